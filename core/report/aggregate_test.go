package report

import (
	"math"
	"testing"

	"github.com/trezcool/maendeleo/core/eval"
	"github.com/trezcool/maendeleo/core/param"
)

func TestRenormalizeWeights(t *testing.T) {
	assigned := []eval.RoleWeight{
		{Role: eval.RoleTeacher, Weight: 0.5, Required: true},
		{Role: eval.RoleParent, Weight: 0.3, Required: true},
		{Role: eval.RoleSelf, Weight: 0.2, Required: true},
	}

	tests := []struct {
		name      string
		submitted map[eval.Role]bool
		want      map[eval.Role]float64
	}{
		{
			name:      "all roles submitted",
			submitted: map[eval.Role]bool{eval.RoleTeacher: true, eval.RoleParent: true, eval.RoleSelf: true},
			want:      map[eval.Role]float64{eval.RoleTeacher: 0.5, eval.RoleParent: 0.3, eval.RoleSelf: 0.2},
		},
		{
			name:      "missing role redistributes over the rest",
			submitted: map[eval.Role]bool{eval.RoleTeacher: true, eval.RoleParent: true},
			want:      map[eval.Role]float64{eval.RoleTeacher: 0.625, eval.RoleParent: 0.375},
		},
		{
			name:      "single submitter takes full weight",
			submitted: map[eval.Role]bool{eval.RoleSelf: true},
			want:      map[eval.Role]float64{eval.RoleSelf: 1},
		},
		{
			name:      "nobody submitted",
			submitted: map[eval.Role]bool{},
			want:      map[eval.Role]float64{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RenormalizeWeights(assigned, tt.submitted)
			if len(got) != len(tt.want) {
				t.Fatalf("RenormalizeWeights() = %v, want %v", got, tt.want)
			}
			for role, w := range tt.want {
				if math.Abs(got[role]-w) > 1e-9 {
					t.Errorf("weight[%s] = %g, want %g", role, got[role], w)
				}
			}
		})
	}
}

func TestAggregateParameter(t *testing.T) {
	p := param.Parameter{ID: "p1", Name: "Teamwork", ScaleMin: 0, ScaleMax: 5}
	a := eval.EvaluatorAssignment{
		ParameterID: "p1",
		Weights: []eval.RoleWeight{
			{Role: eval.RoleTeacher, Weight: 0.5, Required: true},
			{Role: eval.RoleParent, Weight: 0.3, Required: true},
			{Role: eval.RoleSelf, Weight: 0.2, Required: true},
		},
	}
	resolve := func(score float64) (param.Grade, int, error) {
		r := param.Rubric{Version: 2, Levels: param.DefaultLevels(0, 5)}
		return r.Resolve(score), r.Version, nil
	}
	ev := func(id string, role eval.Role, score, confidence float64) eval.Evaluation {
		return eval.Evaluation{ID: id, StudentID: "s1", ParameterID: "p1", Role: role, Score: score, Confidence: confidence}
	}

	t.Run("missing required role renormalizes and flags", func(t *testing.T) {
		agg, err := AggregateParameter(p, a, []eval.Evaluation{
			ev("e1", eval.RoleTeacher, 4, 0.9),
			ev("e2", eval.RoleParent, 5, 0.8),
		}, resolve)
		if err != nil {
			t.Fatalf("AggregateParameter() failed: %v", err)
		}

		// teacher 4*0.9=3.6 at weight .5/.8, parent 5*0.8=4.0 at weight .3/.8
		if want := 3.75; math.Abs(agg.Score-want) > 1e-9 {
			t.Errorf("Score = %g, want %g", agg.Score, want)
		}
		if agg.RubricVersion != 2 {
			t.Errorf("RubricVersion = %d, want 2", agg.RubricVersion)
		}
		if len(agg.Flags) != 1 || agg.Flags[0] != "missing_role:self" {
			t.Errorf("Flags = %v, want [missing_role:self]", agg.Flags)
		}
		if len(agg.Roles) != 2 {
			t.Fatalf("got %d role scores, want 2", len(agg.Roles))
		}
		// roles come out in deterministic order
		if agg.Roles[0].Role != eval.RoleParent || agg.Roles[1].Role != eval.RoleTeacher {
			t.Errorf("role order = [%s %s], want [parent teacher]", agg.Roles[0].Role, agg.Roles[1].Role)
		}
		if math.Abs(agg.Roles[1].Weight-0.625) > 1e-9 {
			t.Errorf("teacher weight = %g, want 0.625", agg.Roles[1].Weight)
		}
	})

	t.Run("multiple evaluators per role are averaged", func(t *testing.T) {
		agg, err := AggregateParameter(p, a, []eval.Evaluation{
			ev("e1", eval.RoleTeacher, 4, 1),
			ev("e2", eval.RoleTeacher, 2, 1),
			ev("e3", eval.RoleParent, 3, 1),
			ev("e4", eval.RoleSelf, 3, 1),
		}, resolve)
		if err != nil {
			t.Fatalf("AggregateParameter() failed: %v", err)
		}
		if want := 3.0; math.Abs(agg.Score-want) > 1e-9 {
			t.Errorf("Score = %g, want %g", agg.Score, want)
		}
		for _, rs := range agg.Roles {
			if rs.Role == eval.RoleTeacher && rs.Evaluators != 2 {
				t.Errorf("teacher Evaluators = %d, want 2", rs.Evaluators)
			}
		}
		if agg.Flags != nil {
			t.Errorf("Flags = %v, want none", agg.Flags)
		}
	})

	t.Run("confidence discount cannot push below the scale floor", func(t *testing.T) {
		scaled := p
		scaled.ScaleMin = 1
		agg, err := AggregateParameter(scaled, a, []eval.Evaluation{
			ev("e1", eval.RoleTeacher, 1, 0.5),
			ev("e2", eval.RoleParent, 1, 0.5),
			ev("e3", eval.RoleSelf, 1, 0.5),
		}, resolve)
		if err != nil {
			t.Fatalf("AggregateParameter() failed: %v", err)
		}
		if agg.Score != 1 {
			t.Errorf("Score = %g, want clamped to 1", agg.Score)
		}
	})

	t.Run("missing rubric version is a hard stop", func(t *testing.T) {
		failResolve := func(float64) (param.Grade, int, error) {
			return param.Grade{}, 0, param.ErrRubricNotFound
		}
		if _, err := AggregateParameter(p, a, []eval.Evaluation{ev("e1", eval.RoleSelf, 3, 1)}, failResolve); err != param.ErrRubricNotFound {
			t.Errorf("AggregateParameter() error = %v, want %v", err, param.ErrRubricNotFound)
		}
	})

	t.Run("remarks and evidence become evidence refs", func(t *testing.T) {
		withEvidence := ev("e1", eval.RoleTeacher, 4, 0.9)
		withEvidence.Remark = "led the group project"
		withEvidence.Evidence = []string{"doc-1"}
		agg, err := AggregateParameter(p, a, []eval.Evaluation{withEvidence}, resolve)
		if err != nil {
			t.Fatalf("AggregateParameter() failed: %v", err)
		}
		if len(agg.Evidence) != 2 {
			t.Fatalf("Evidence = %v, want 2 refs", agg.Evidence)
		}
		if agg.Evidence[0] != "teacher:doc-1" {
			t.Errorf("Evidence[0] = %s, want teacher:doc-1", agg.Evidence[0])
		}
	})

	t.Run("output does not depend on repository order", func(t *testing.T) {
		first := ev("e1", eval.RoleTeacher, 4, 0.9)
		first.Remark = "led the group project"
		first.Evidence = []string{"doc-1"}
		second := ev("e2", eval.RoleTeacher, 3, 0.8)
		second.Remark = "quiet in plenary sessions"
		second.Evidence = []string{"doc-2"}
		third := ev("e3", eval.RoleSelf, 4, 0.7)
		third.Remark = "I kept the team on schedule"

		agg1, err := AggregateParameter(p, a, []eval.Evaluation{first, second, third}, resolve)
		if err != nil {
			t.Fatalf("AggregateParameter() failed: %v", err)
		}
		agg2, err := AggregateParameter(p, a, []eval.Evaluation{third, second, first}, resolve)
		if err != nil {
			t.Fatalf("AggregateParameter() failed: %v", err)
		}

		if len(agg1.Evidence) != len(agg2.Evidence) {
			t.Fatalf("Evidence = %v vs %v, want identical", agg1.Evidence, agg2.Evidence)
		}
		for i := range agg1.Evidence {
			if agg1.Evidence[i] != agg2.Evidence[i] {
				t.Errorf("Evidence[%d] = %s vs %s, want identical order", i, agg1.Evidence[i], agg2.Evidence[i])
			}
		}
		if agg1.Score != agg2.Score {
			t.Errorf("Score = %g vs %g, want identical", agg1.Score, agg2.Score)
		}
	})
}
