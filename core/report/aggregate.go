package report

import (
	"fmt"
	"sort"

	"github.com/trezcool/maendeleo/core"
	"github.com/trezcool/maendeleo/core/eval"
	"github.com/trezcool/maendeleo/core/param"
)

// RoleScore is the resolved contribution of one evaluator role to a
// parameter aggregate.
type RoleScore struct {
	Role       eval.Role `json:"role"`
	Score      float64   `json:"score"`      // mean of score*confidence over the role's evaluators
	RawScore   float64   `json:"raw_score"`  // mean of raw scores
	Confidence float64   `json:"confidence"` // mean confidence
	Evaluators int       `json:"evaluators"`
	Weight     float64   `json:"weight"` // effective (renormalized) weight used
}

// ParameterAggregate combines all current evaluations for one
// (student, parameter, cycle) into a composite score with a per-role
// breakdown.
type ParameterAggregate struct {
	ParameterID   string      `json:"parameter_id"`
	Score         float64     `json:"score"`
	GradeLetter   string      `json:"grade_letter"`
	Descriptor    string      `json:"descriptor"`
	RubricVersion int         `json:"rubric_version"`
	Roles         []RoleScore `json:"roles"`
	Evidence      []string    `json:"evidence,omitempty"`
	Flags         []string    `json:"flags,omitempty"`
}

// RenormalizeWeights redistributes assignment weights over only the roles
// that actually submitted. A missing required role therefore lowers
// confidence in the aggregate instead of failing it; callers record the
// missing-role condition as a quality flag.
//
// This is the single place the missing-role policy lives; keep it pure.
func RenormalizeWeights(assigned []eval.RoleWeight, submitted map[eval.Role]bool) map[eval.Role]float64 {
	var total float64
	for _, rw := range assigned {
		if submitted[rw.Role] {
			total += rw.Weight
		}
	}
	weights := make(map[eval.Role]float64, len(assigned))
	if total == 0 {
		return weights
	}
	for _, rw := range assigned {
		if submitted[rw.Role] {
			weights[rw.Role] = rw.Weight / total
		}
	}
	return weights
}

// AggregateParameter folds all non-superseded evaluations for one parameter
// into a ParameterAggregate. Evaluations sharing a role are averaged first;
// each role contributes the mean of its evaluators' confidence-weighted
// scores (score * confidence). The aggregate is clamped to the parameter's
// scale.
//
// resolve maps the final score to a grade; it must fail with
// param.ErrRubricNotFound when the rubric version is missing. A missing
// version is a hard stop, never a silent fallback.
func AggregateParameter(
	p param.Parameter,
	a eval.EvaluatorAssignment,
	evs []eval.Evaluation,
	resolve func(score float64) (param.Grade, int, error),
) (ParameterAggregate, error) {
	// the document checksum hinges on a stable fold order; never trust the
	// repository to return evaluations in a deterministic order
	sorted := make([]eval.Evaluation, len(evs))
	copy(sorted, evs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	byRole := make(map[eval.Role][]eval.Evaluation, len(a.Weights))
	for _, ev := range sorted {
		byRole[ev.Role] = append(byRole[ev.Role], ev)
	}

	submitted := make(map[eval.Role]bool, len(byRole))
	for role := range byRole {
		submitted[role] = true
	}
	weights := RenormalizeWeights(a.Weights, submitted)

	agg := ParameterAggregate{ParameterID: p.ID}

	// deterministic role order for stable documents
	ordered := make([]eval.RoleWeight, len(a.Weights))
	copy(ordered, a.Weights)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Role < ordered[j].Role })

	var weightedSum float64
	for _, rw := range ordered {
		roleEvs := byRole[rw.Role]
		if len(roleEvs) == 0 {
			if rw.Required {
				agg.Flags = append(agg.Flags, "missing_role:"+rw.Role.String())
			}
			continue
		}

		var scoreSum, rawSum, confSum float64
		for _, ev := range roleEvs {
			scoreSum += ev.Score * ev.Confidence
			rawSum += ev.Score
			confSum += ev.Confidence
			if ev.Remark != "" || len(ev.Evidence) > 0 {
				agg.Evidence = append(agg.Evidence, evidenceRefs(ev)...)
			}
		}
		n := float64(len(roleEvs))
		rs := RoleScore{
			Role:       rw.Role,
			Score:      scoreSum / n,
			RawScore:   rawSum / n,
			Confidence: confSum / n,
			Evaluators: len(roleEvs),
			Weight:     weights[rw.Role],
		}
		agg.Roles = append(agg.Roles, rs)
		weightedSum += rs.Score * rs.Weight
	}

	// clamp to the declared scale: confidence discounting must not push the
	// composite below the scale floor
	score := core.Clamp(weightedSum, p.ScaleMin, p.ScaleMax)
	agg.Score = score

	grade, version, err := resolve(score)
	if err != nil {
		return ParameterAggregate{}, err
	}
	agg.GradeLetter = grade.Letter
	agg.Descriptor = grade.Descriptor
	agg.RubricVersion = version
	return agg, nil
}

func evidenceRefs(ev eval.Evaluation) []string {
	refs := make([]string, 0, len(ev.Evidence)+1)
	for _, e := range ev.Evidence {
		refs = append(refs, fmt.Sprintf("%s:%s", ev.Role, e))
	}
	if ev.Remark != "" {
		refs = append(refs, fmt.Sprintf("%s:remark:%s", ev.Role, ev.ID))
	}
	return refs
}
