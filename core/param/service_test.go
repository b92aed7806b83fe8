package param_test

import (
	"testing"

	"github.com/trezcool/maendeleo/core"
	"github.com/trezcool/maendeleo/core/param"
	dummydb "github.com/trezcool/maendeleo/storage/database/dummy"
	testutil "github.com/trezcool/maendeleo/tests"
)

func setup(t *testing.T) *param.Service {
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	return param.NewService(dummydb.NewParamRepository(db), testutil.NewConfig())
}

func Test_paramService_AddRubricVersion(t *testing.T) {
	svc := setup(t)

	p, err := svc.Create(param.NewParameter{
		Name: "Teamwork", Category: param.CategoryLifeSkills, Weightage: 0.15, ScaleMin: 0, ScaleMax: 5,
	})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	// versions are append-only and number up from 1
	r1, err := svc.AddRubricVersion(p.ID, param.DefaultLevels(0, 5), true)
	if err != nil {
		t.Fatalf("AddRubricVersion() failed: %v", err)
	}
	if r1.Version != 1 {
		t.Errorf("first rubric version = %d, want 1", r1.Version)
	}

	draft, err := svc.AddRubricVersion(p.ID, param.DefaultLevels(0, 5), false)
	if err != nil {
		t.Fatalf("AddRubricVersion() failed: %v", err)
	}
	if draft.Version != 2 {
		t.Errorf("second rubric version = %d, want 2", draft.Version)
	}

	// the latest version is the highest published one; drafts stay invisible
	latest, err := svc.LatestRubricVersion(p.ID)
	if err != nil {
		t.Fatalf("LatestRubricVersion() failed: %v", err)
	}
	if latest.Version != 1 {
		t.Errorf("latest published version = %d, want 1", latest.Version)
	}

	// a rubric without levels could never grade anything
	if _, err = svc.AddRubricVersion(p.ID, nil, true); err == nil {
		t.Error("AddRubricVersion() accepted a rubric with no levels")
	} else if _, ok := err.(*core.ValidationError); !ok {
		t.Errorf("AddRubricVersion() error = %v, want *core.ValidationError", err)
	}

	r3, err := svc.AddRubricVersion(p.ID, param.DefaultLevels(0, 5), true)
	if err != nil {
		t.Fatalf("AddRubricVersion() failed: %v", err)
	}
	if r3.Version != 3 {
		t.Errorf("third rubric version = %d, want 3", r3.Version)
	}
	if latest, _ = svc.LatestRubricVersion(p.ID); latest.Version != 3 {
		t.Errorf("latest published version = %d, want 3", latest.Version)
	}
}

func Test_paramService_ResolveGrade(t *testing.T) {
	svc := setup(t)

	p, err := svc.Create(param.NewParameter{
		Name: "Mathematics", Category: param.CategoryScholastic, Weightage: 0.25, ScaleMin: 0, ScaleMax: 100,
	})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if _, err = svc.AddRubricVersion(p.ID, param.DefaultLevels(0, 100), true); err != nil {
		t.Fatalf("AddRubricVersion() failed: %v", err)
	}

	grade, err := svc.ResolveGrade(80, p.ID, 1)
	if err != nil {
		t.Fatalf("ResolveGrade() failed: %v", err)
	}
	if grade.Letter != "A" {
		t.Errorf("ResolveGrade(80).Letter = %s, want A", grade.Letter)
	}

	// a missing rubric version is a hard stop, never a fallback
	if _, err = svc.ResolveGrade(80, p.ID, 7); err != param.ErrRubricNotFound {
		t.Errorf("ResolveGrade() error = %v, want %v", err, param.ErrRubricNotFound)
	}
	if _, err = svc.ResolveGradeLatest("nope", 80); err != param.ErrRubricNotFound {
		t.Errorf("ResolveGradeLatest() error = %v, want %v", err, param.ErrRubricNotFound)
	}
}

func Test_paramService_Supersede(t *testing.T) {
	svc := setup(t)

	p, err := svc.Create(param.NewParameter{
		Name: "Punctuality", Category: param.CategoryDiscipline, Weightage: 0.1, ScaleMin: 0, ScaleMax: 5,
	})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	replacement, err := svc.Supersede(p.ID, param.NewParameter{
		Name: "Punctuality", Category: param.CategoryDiscipline, Weightage: 0.12, ScaleMin: 0, ScaleMax: 5,
	})
	if err != nil {
		t.Fatalf("Supersede() failed: %v", err)
	}
	if replacement.ID == p.ID {
		t.Error("Supersede() reused the old parameter id")
	}

	// the old parameter stays readable for audit but is deactivated and linked
	old, err := svc.GetByID(p.ID)
	if err != nil {
		t.Fatalf("GetByID() failed: %v", err)
	}
	if old.Active {
		t.Error("superseded parameter is still active")
	}
	if old.SupersededBy != replacement.ID {
		t.Errorf("SupersededBy = %s, want %s", old.SupersededBy, replacement.ID)
	}

	// superseding twice is rejected
	if _, err = svc.Supersede(p.ID, param.NewParameter{
		Name: "Punctuality", Category: param.CategoryDiscipline, Weightage: 0.1, ScaleMin: 0, ScaleMax: 5,
	}); err != param.ErrSuperseded {
		t.Errorf("Supersede() error = %v, want %v", err, param.ErrSuperseded)
	}
}
