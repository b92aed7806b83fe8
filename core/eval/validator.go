package eval

import (
	"fmt"

	"github.com/trezcool/maendeleo/core"
	"github.com/trezcool/maendeleo/core/param"
)

// ValidateSubmission checks a candidate evaluation against its cycle,
// parameter and evaluator assignment. It is a pure check: acceptance is the
// caller's responsibility and no state is touched.
//
// Every violated rule is reported, not just the first, so callers can surface
// all problems at once.
func ValidateSubmission(
	ne NewEvaluation,
	p param.Parameter,
	a EvaluatorAssignment,
	c EvaluationCycle,
	remarkMinLen int,
) error {
	var flds []core.FieldError
	fail := func(field, text string) {
		flds = append(flds, core.FieldError{Field: field, Error: text})
	}

	// 1. cycle must be active and the parameter in scope
	if !c.IsActive() {
		fail("cycle_id", fmt.Sprintf("cycle is %s, not active", c.Status))
	}
	if !c.ParameterInScope(ne.ParameterID) {
		fail("parameter_id", "parameter is not in scope for this cycle")
	}

	// 2. evaluator role must be assigned for the parameter and in cycle scope
	if _, ok := a.WeightFor(ne.Role); !ok {
		fail("role", "role is not assigned to evaluate this parameter")
	}
	if !c.RoleInScope(ne.Role) {
		fail("role", "role is not in scope for this cycle")
	}

	// 3. score within the parameter's declared scale
	if !p.InScale(ne.Score) {
		fail("score", fmt.Sprintf("score must be between %g and %g", p.ScaleMin, p.ScaleMax))
	}

	// 4. confidence within [0, 1] and above the role's floor
	if ne.Confidence < 0 || ne.Confidence > 1 {
		fail("confidence", "confidence must be between 0 and 1")
	} else if policy := PolicyFor(ne.Role); ne.Confidence < policy.MinConfidence {
		fail("confidence", fmt.Sprintf("confidence must be at least %g for role %s", policy.MinConfidence, ne.Role))
	}

	// 5. role remark policy
	if policy := PolicyFor(ne.Role); policy.RemarkRequired {
		if len(ne.Remark) < remarkMinLen {
			fail("remark", fmt.Sprintf("a remark of at least %d characters is required for role %s", remarkMinLen, ne.Role))
		}
	}

	if flds != nil {
		return core.NewValidationError(errInvalidSubmission, flds...)
	}
	return nil
}
