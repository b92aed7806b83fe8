package eval

import (
	"math"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/maendeleo/core"
)

// Role is the closed set of stakeholder types that may evaluate a student.
// Role-specific rules live in the policy table below, not in scattered
// conditionals.
type Role string

const (
	RoleTeacher   Role = "teacher"
	RoleParent    Role = "parent"
	RolePeer      Role = "peer"
	RoleSelf      Role = "self"
	RoleCounselor Role = "counselor"
	RoleCoach     Role = "coach"
)

var AllRoles = []Role{RoleTeacher, RoleParent, RolePeer, RoleSelf, RoleCounselor, RoleCoach}

func (r Role) IsValid() bool {
	switch r {
	case RoleTeacher, RoleParent, RolePeer, RoleSelf, RoleCounselor, RoleCoach:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

// RolePolicy holds the per-role validation rules.
type RolePolicy struct {
	RemarkRequired bool
	// MinConfidence a submission from this role must carry to be accepted.
	MinConfidence float64
}

var rolePolicies = map[Role]RolePolicy{
	RoleTeacher:   {RemarkRequired: true, MinConfidence: 0.5},
	RoleCounselor: {RemarkRequired: true, MinConfidence: 0.5},
	RoleCoach:     {RemarkRequired: true, MinConfidence: 0.3},
	RoleParent:    {RemarkRequired: false, MinConfidence: 0},
	RolePeer:      {RemarkRequired: false, MinConfidence: 0},
	RoleSelf:      {RemarkRequired: false, MinConfidence: 0},
}

func PolicyFor(role Role) RolePolicy { return rolePolicies[role] }

// RoleWeight is one role's contribution to a parameter's aggregate.
type RoleWeight struct {
	Role     Role    `json:"role" validate:"required,evalrole"`
	Weight   float64 `json:"weight" validate:"gt=0,lte=1"`
	Required bool    `json:"required"`
}

// EvaluatorAssignment declares which roles must/may evaluate a Parameter and
// how much each contributes.
type EvaluatorAssignment struct {
	ParameterID string       `json:"parameter_id"`
	Weights     []RoleWeight `json:"weights"`
	CreatedAt   time.Time    `json:"created_at"` // UTC
	UpdatedAt   time.Time    `json:"updated_at"` // UTC
}

func (a EvaluatorAssignment) WeightFor(role Role) (RoleWeight, bool) {
	for _, rw := range a.Weights {
		if rw.Role == role {
			return rw, true
		}
	}
	return RoleWeight{}, false
}

func (a EvaluatorAssignment) RequiredRoles() []Role {
	var roles []Role
	for _, rw := range a.Weights {
		if rw.Required {
			roles = append(roles, rw.Role)
		}
	}
	return roles
}

// CheckWeights verifies the invariant that required-role weights sum to
// 1.0 within the configured tolerance.
func (a EvaluatorAssignment) CheckWeights(tolerance float64) error {
	var sum float64
	for _, rw := range a.Weights {
		if rw.Required {
			sum += rw.Weight
		}
	}
	if math.Abs(sum-1.0) > tolerance {
		return core.NewValidationError(errWeightsSum, core.FieldError{
			Field: "weights",
			Error: "required role weights must sum to 1.0",
		})
	}
	return nil
}

// CycleStatus governs whether evaluations may still be submitted.
type CycleStatus string

const (
	CyclePlanned   CycleStatus = "planned"
	CycleActive    CycleStatus = "active"
	CycleCompleted CycleStatus = "completed"
	CycleCancelled CycleStatus = "cancelled"
)

// EvaluationCycle is a named evaluation window within a term.
type EvaluationCycle struct {
	ID           string      `json:"id"`
	TermID       string      `json:"term_id"`
	Name         string      `json:"name"`
	StartsAt     time.Time   `json:"starts_at"` // UTC
	EndsAt       time.Time   `json:"ends_at"`   // UTC
	ParameterIDs []string    `json:"parameter_ids"`
	Roles        []Role      `json:"roles"`
	Status       CycleStatus `json:"status"`
	CreatedAt    time.Time   `json:"created_at"` // UTC
	UpdatedAt    time.Time   `json:"updated_at"` // UTC
}

func (c EvaluationCycle) IsActive() bool { return c.Status == CycleActive }

func (c EvaluationCycle) ParameterInScope(parameterID string) bool {
	for _, id := range c.ParameterIDs {
		if id == parameterID {
			return true
		}
	}
	return false
}

func (c EvaluationCycle) RoleInScope(role Role) bool {
	if len(c.Roles) == 0 {
		return true
	}
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Status is an evaluation's lifecycle state.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
	StatusReviewed  Status = "reviewed"
	StatusApproved  Status = "approved"
)

// Evaluation is one stakeholder's judgment of one student on one Parameter
// within one cycle. An evaluation is never deleted: edits create a new
// version and mark the old one superseded.
type Evaluation struct {
	ID            string    `json:"id"`
	StudentID     string    `json:"student_id"`
	ParameterID   string    `json:"parameter_id"`
	EvaluatorID   string    `json:"evaluator_id"`
	Role          Role      `json:"role"`
	CycleID       string    `json:"cycle_id"`
	Score         float64   `json:"score"`
	GradeLetter   string    `json:"grade_letter"`
	RubricVersion int       `json:"rubric_version"`
	Remark        string    `json:"remark"`
	Evidence      []string  `json:"evidence,omitempty"`
	Confidence    float64   `json:"confidence"`
	Status        Status    `json:"status"`
	Version       int       `json:"version"`
	Superseded    bool      `json:"superseded"`
	CreatedAt     time.Time `json:"created_at"` // UTC
	UpdatedAt     time.Time `json:"updated_at"` // UTC
}

// NewEvaluation contains information needed to submit an evaluation.
type NewEvaluation struct {
	StudentID   string   `json:"student_id" validate:"required"`
	ParameterID string   `json:"parameter_id" validate:"required"`
	EvaluatorID string   `json:"evaluator_id" validate:"required"`
	Role        Role     `json:"role" validate:"required,evalrole"`
	CycleID     string   `json:"cycle_id" validate:"required"`
	Score       float64  `json:"score"`
	Confidence  float64  `json:"confidence"`
	Remark      string   `json:"remark"`
	Evidence    []string `json:"evidence"`
}

func (ne *NewEvaluation) Validate() error {
	ne.Remark = core.CleanString(ne.Remark)
	return core.Validate.Struct(ne)
}

var (
	evalRoleTag  = "evalrole"
	evalRoleText = "invalid evaluator role"
)

func init() {
	_ = core.Validate.RegisterValidation(evalRoleTag, func(fl validator.FieldLevel) bool {
		return Role(fl.Field().String()).IsValid()
	})
	core.RegisterCustomTranslation(evalRoleTag, evalRoleText)
}
