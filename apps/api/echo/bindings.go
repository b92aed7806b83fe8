package echoapi

import (
	"time"

	"github.com/trezcool/maendeleo/core"
	"github.com/trezcool/maendeleo/core/eval"
	"github.com/trezcool/maendeleo/core/param"
	"github.com/trezcool/maendeleo/core/report"
)

type (
	LoginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}

	NewRubricRequest struct {
		Levels  []param.RubricLevel `json:"levels" validate:"required,min=2,dive"`
		Publish bool                `json:"publish"`
	}

	NewCycleRequest struct {
		TermID       string      `json:"term_id" validate:"required"`
		Name         string      `json:"name" validate:"required"`
		StartsAt     time.Time   `json:"starts_at" validate:"required"`
		EndsAt       time.Time   `json:"ends_at" validate:"required,gtfield=StartsAt"`
		ParameterIDs []string    `json:"parameter_ids" validate:"required,min=1"`
		Roles        []eval.Role `json:"roles" validate:"omitempty,dive,evalrole"`
	}

	NewAssignmentRequest struct {
		Weights []eval.RoleWeight `json:"weights" validate:"required,min=1,dive"`
	}

	CompileRequest struct {
		StudentID string `json:"student_id" validate:"required"`
		TermID    string `json:"term_id" validate:"required"`
		CycleID   string `json:"cycle_id" validate:"required"`
	}

	StepActionRequest struct {
		Decision report.Decision `json:"decision" validate:"required"`
		Comments string          `json:"comments"`
	}
)

func (r *LoginRequest) Validate() error {
	r.Username = core.CleanString(r.Username, true /* lower */)
	return core.Validate.Struct(r)
}

func (r *NewRubricRequest) Validate() error     { return core.Validate.Struct(r) }
func (r *NewCycleRequest) Validate() error      { return core.Validate.Struct(r) }
func (r *NewAssignmentRequest) Validate() error { return core.Validate.Struct(r) }
func (r *CompileRequest) Validate() error       { return core.Validate.Struct(r) }

func (r *StepActionRequest) Validate() error {
	r.Comments = core.CleanString(r.Comments)
	return core.Validate.Struct(r)
}
