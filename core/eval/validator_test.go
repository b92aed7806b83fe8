package eval

import (
	"testing"
	"time"

	"github.com/trezcool/maendeleo/core"
	"github.com/trezcool/maendeleo/core/param"
)

func TestValidateSubmission(t *testing.T) {
	p := param.Parameter{ID: "p1", Name: "Teamwork", ScaleMin: 0, ScaleMax: 5}
	a := EvaluatorAssignment{
		ParameterID: "p1",
		Weights: []RoleWeight{
			{Role: RoleTeacher, Weight: 0.5, Required: true},
			{Role: RoleParent, Weight: 0.3, Required: true},
			{Role: RoleSelf, Weight: 0.2, Required: true},
		},
	}
	now := time.Now().UTC()
	activeCycle := EvaluationCycle{
		ID:           "c1",
		TermID:       "2026-T1",
		StartsAt:     now.Add(-time.Hour),
		EndsAt:       now.Add(time.Hour),
		ParameterIDs: []string{"p1"},
		Status:       CycleActive,
	}
	completedCycle := activeCycle
	completedCycle.Status = CycleCompleted

	scopedCycle := activeCycle
	scopedCycle.Roles = []Role{RoleTeacher, RoleSelf}

	ne := func(role Role, score, confidence float64, remark string) NewEvaluation {
		return NewEvaluation{
			StudentID:   "s1",
			ParameterID: "p1",
			EvaluatorID: "e1",
			Role:        role,
			CycleID:     "c1",
			Score:       score,
			Confidence:  confidence,
			Remark:      remark,
		}
	}

	tests := []struct {
		name       string
		ne         NewEvaluation
		cycle      EvaluationCycle
		wantFields []string
	}{
		{name: "valid teacher submission", ne: ne(RoleTeacher, 4, 0.9, "shows consistent initiative"), cycle: activeCycle},
		{name: "valid self submission without remark", ne: ne(RoleSelf, 5, 0.6, ""), cycle: activeCycle},
		{
			name: "completed cycle", ne: ne(RoleTeacher, 4, 0.9, "shows consistent initiative"), cycle: completedCycle,
			wantFields: []string{"cycle_id"},
		},
		{
			name: "unassigned role", ne: ne(RolePeer, 4, 0.9, ""), cycle: activeCycle,
			wantFields: []string{"role"},
		},
		{
			name: "role outside cycle scope", ne: ne(RoleParent, 4, 0.9, ""), cycle: scopedCycle,
			wantFields: []string{"role"},
		},
		{
			name: "score above scale", ne: ne(RoleSelf, 6, 0.6, ""), cycle: activeCycle,
			wantFields: []string{"score"},
		},
		{
			name: "confidence above 1", ne: ne(RoleSelf, 4, 1.2, ""), cycle: activeCycle,
			wantFields: []string{"confidence"},
		},
		{
			name: "confidence below role floor", ne: ne(RoleTeacher, 4, 0.4, "shows consistent initiative"), cycle: activeCycle,
			wantFields: []string{"confidence"},
		},
		{
			name: "remark too short for teacher", ne: ne(RoleTeacher, 4, 0.9, "ok"), cycle: activeCycle,
			wantFields: []string{"remark"},
		},
		{
			name: "every violation reported at once", ne: ne(RoleTeacher, 9, 0.1, ""), cycle: completedCycle,
			wantFields: []string{"cycle_id", "score", "confidence", "remark"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSubmission(tt.ne, p, a, tt.cycle, 10)
			if len(tt.wantFields) == 0 {
				if err != nil {
					t.Fatalf("ValidateSubmission() unexpected error: %v", err)
				}
				return
			}

			vErr, ok := err.(*core.ValidationError)
			if !ok {
				t.Fatalf("ValidateSubmission() error = %v, want *core.ValidationError", err)
			}
			if len(vErr.Fields) != len(tt.wantFields) {
				t.Fatalf("got %d field errors, want %d: %+v", len(vErr.Fields), len(tt.wantFields), vErr.Fields)
			}
			for i, fld := range vErr.Fields {
				if fld.Field != tt.wantFields[i] {
					t.Errorf("field[%d] = %s, want %s", i, fld.Field, tt.wantFields[i])
				}
			}
		})
	}
}

func TestEvaluatorAssignment_CheckWeights(t *testing.T) {
	tests := []struct {
		name    string
		weights []RoleWeight
		wantErr bool
	}{
		{
			name: "required weights sum to 1",
			weights: []RoleWeight{
				{Role: RoleTeacher, Weight: 0.5, Required: true},
				{Role: RoleParent, Weight: 0.3, Required: true},
				{Role: RoleSelf, Weight: 0.2, Required: true},
			},
		},
		{
			name: "optional weights do not count",
			weights: []RoleWeight{
				{Role: RoleTeacher, Weight: 0.6, Required: true},
				{Role: RoleSelf, Weight: 0.4, Required: true},
				{Role: RolePeer, Weight: 0.2},
			},
		},
		{
			name: "floating point noise within tolerance",
			weights: []RoleWeight{
				{Role: RoleTeacher, Weight: 0.1, Required: true},
				{Role: RoleParent, Weight: 0.2, Required: true},
				{Role: RoleSelf, Weight: 0.7, Required: true},
			},
		},
		{
			name: "sum above 1",
			weights: []RoleWeight{
				{Role: RoleTeacher, Weight: 0.8, Required: true},
				{Role: RoleParent, Weight: 0.3, Required: true},
			},
			wantErr: true,
		},
		{
			name: "sum below 1",
			weights: []RoleWeight{
				{Role: RoleTeacher, Weight: 0.5, Required: true},
				{Role: RoleSelf, Weight: 0.2, Required: true},
			},
			wantErr: true,
		},
		{name: "no required roles", weights: []RoleWeight{{Role: RolePeer, Weight: 0.5}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := EvaluatorAssignment{ParameterID: "p1", Weights: tt.weights}
			if err := a.CheckWeights(1e-6); (err != nil) != tt.wantErr {
				t.Errorf("CheckWeights() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
