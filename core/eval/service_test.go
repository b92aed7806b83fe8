package eval_test

import (
	"testing"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/trezcool/maendeleo/core/eval"
	"github.com/trezcool/maendeleo/core/param"
	dummydb "github.com/trezcool/maendeleo/storage/database/dummy"
	testutil "github.com/trezcool/maendeleo/tests"
)

func setup(t *testing.T) (*eval.Service, *param.Service, param.Repository) {
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	conf := testutil.NewConfig()
	paramRepo := dummydb.NewParamRepository(db)
	paramSvc := param.NewService(paramRepo, conf)
	return eval.NewService(dummydb.NewEvalRepository(db), paramSvc, conf), paramSvc, paramRepo
}

func newActiveCycle(t *testing.T, svc *eval.Service, parameterIDs ...string) eval.EvaluationCycle {
	now := time.Now().UTC()
	c, err := svc.CreateCycle("2026-T1", "Term 1 midline", now.Add(-time.Hour), now.Add(72*time.Hour), parameterIDs, nil)
	if err != nil {
		t.Fatalf("CreateCycle() failed: %v", err)
	}
	if c, err = svc.ActivateCycle(c.ID); err != nil {
		t.Fatalf("ActivateCycle() failed: %v", err)
	}
	return c
}

func Test_evalService_Submit(t *testing.T) {
	svc, paramSvc, _ := setup(t)

	p, err := paramSvc.Create(param.NewParameter{
		Name: "Teamwork", Category: param.CategoryLifeSkills, Weightage: 0.15, ScaleMin: 0, ScaleMax: 5,
	})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if _, err = paramSvc.AddRubricVersion(p.ID, param.DefaultLevels(0, 5), true); err != nil {
		t.Fatalf("AddRubricVersion() failed: %v", err)
	}
	if _, err = svc.CreateAssignment(p.ID, []eval.RoleWeight{
		{Role: eval.RoleTeacher, Weight: 1, Required: true},
	}); err != nil {
		t.Fatalf("CreateAssignment() failed: %v", err)
	}
	cycle := newActiveCycle(t, svc, p.ID)

	ne := eval.NewEvaluation{
		StudentID:   "student-1",
		ParameterID: p.ID,
		EvaluatorID: "teacher-1",
		Role:        eval.RoleTeacher,
		CycleID:     cycle.ID,
		Score:       4,
		Confidence:  0.9,
		Remark:      "works well with the group",
	}
	ev, err := svc.Submit(ne)
	if err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}
	if ev.GradeLetter != "A" {
		t.Errorf("GradeLetter = %s, want A", ev.GradeLetter)
	}
	if ev.RubricVersion != 1 {
		t.Errorf("RubricVersion = %d, want 1", ev.RubricVersion)
	}
	if ev.Version != 1 {
		t.Errorf("Version = %d, want 1", ev.Version)
	}

	// resubmission supersedes the previous version, never duplicates
	ne.Score = 3
	ev2, err := svc.Submit(ne)
	if err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}
	if ev2.Version != 2 {
		t.Errorf("resubmitted Version = %d, want 2", ev2.Version)
	}
	current, err := svc.Current("student-1", p.ID, cycle.ID)
	if err != nil {
		t.Fatalf("Current() failed: %v", err)
	}
	if len(current) != 1 {
		t.Fatalf("Current() returned %d evaluations, want 1", len(current))
	}
	if current[0].Score != 3 {
		t.Errorf("current Score = %g, want 3", current[0].Score)
	}

	// the evaluator's current version is directly addressable
	latest, err := svc.Latest("student-1", p.ID, "teacher-1", cycle.ID)
	if err != nil {
		t.Fatalf("Latest() failed: %v", err)
	}
	if latest.ID != ev2.ID {
		t.Errorf("Latest().ID = %s, want %s", latest.ID, ev2.ID)
	}
	if _, err = svc.Latest("student-1", p.ID, "nobody", cycle.ID); err != eval.ErrNotFound {
		t.Errorf("Latest() error = %v, want %v", err, eval.ErrNotFound)
	}
}

func Test_evalService_Submit_emptyRubric(t *testing.T) {
	svc, paramSvc, paramRepo := setup(t)

	p, err := paramSvc.Create(param.NewParameter{
		Name: "Self Awareness", Category: param.CategoryLifeSkills, Weightage: 0.15, ScaleMin: 0, ScaleMax: 5,
	})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	// a published rubric without levels can predate the service-side check;
	// submitting against it must fail cleanly, not panic
	if _, err = paramRepo.CreateRubric(param.Rubric{
		ParameterID: p.ID, Version: 1, Published: true, CreatedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("CreateRubric() failed: %v", err)
	}
	if _, err = svc.CreateAssignment(p.ID, []eval.RoleWeight{
		{Role: eval.RoleSelf, Weight: 1, Required: true},
	}); err != nil {
		t.Fatalf("CreateAssignment() failed: %v", err)
	}
	cycle := newActiveCycle(t, svc, p.ID)

	_, err = svc.Submit(eval.NewEvaluation{
		StudentID:   "student-1",
		ParameterID: p.ID,
		EvaluatorID: "student-1",
		Role:        eval.RoleSelf,
		CycleID:     cycle.ID,
		Score:       3,
		Confidence:  1,
	})
	if pkgerrors.Cause(err) != param.ErrRubricNotFound {
		t.Errorf("Submit() error = %v, want %v", err, param.ErrRubricNotFound)
	}
}
