package report

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/maendeleo/core"
	"github.com/trezcool/maendeleo/core/eval"
	"github.com/trezcool/maendeleo/core/param"
)

type (
	// Leaser grants an exclusive short-lived lease per compilation key so a
	// (student, term, cycle) has at most one compile in flight. Acquire
	// fails with ErrCompilationInProgress while the lease is held elsewhere.
	Leaser interface {
		Acquire(ctx context.Context, key string) (release func(), err error)
	}

	// Compiler orchestrates the aggregator across every parameter in a
	// cycle's scope and assembles the summary document. All aggregation
	// state is request-scoped; nothing survives a compile call.
	Compiler struct {
		repo     Repository
		evalSvc  *eval.Service
		paramSvc *param.Service
		leaser   Leaser
		conf     *core.Config
	}
)

func NewCompiler(repo Repository, evalSvc *eval.Service, paramSvc *param.Service, leaser Leaser, conf *core.Config) *Compiler {
	return &Compiler{repo: repo, evalSvc: evalSvc, paramSvc: paramSvc, leaser: leaser, conf: conf}
}

func leaseKey(studentID, termID, cycleID string) string {
	return fmt.Sprintf("compile:%s:%s:%s", studentID, termID, cycleID)
}

// Compile builds (or refreshes) the draft report for (student, term, cycle).
//
// Compilation is idempotent: if the underlying evaluations have not changed,
// the existing draft is returned untouched and the version stays put. A
// changed evaluation set produces a new version.
func (c *Compiler) Compile(ctx context.Context, studentID, termID, cycleID string) (Report, error) {
	release, err := c.leaser.Acquire(ctx, leaseKey(studentID, termID, cycleID))
	if err != nil {
		return Report{}, err
	}
	defer release()

	cycle, err := c.evalSvc.GetCycle(cycleID)
	if err != nil {
		return Report{}, err
	}

	doc, overallScore, err := c.assemble(studentID, cycle)
	if err != nil {
		return Report{}, err
	}

	overallGrade, err := c.resolveOverallGrade(overallScore)
	if err != nil {
		return Report{}, err
	}

	checksum, err := doc.Checksum()
	if err != nil {
		return Report{}, errors.Wrap(err, "hashing summary document")
	}

	now := time.Now().UTC()
	latest, err := c.repo.GetLatestReport(studentID, termID, cycleID)
	switch err {
	case nil:
		if latest.Status == StatusDraft {
			if latest.Checksum == checksum {
				// unchanged inputs: same document, same version
				return latest, nil
			}
			latest.Summary = doc
			latest.Checksum = checksum
			latest.OverallScore = overallScore
			latest.OverallGrade = overallGrade
			latest.Version++
			latest.UpdatedAt = now
			return c.repo.UpdateDraftReport(latest)
		}
		if latest.Status == StatusUnderReview {
			// a report under review is advanced by the workflow only
			return Report{}, ErrReportUnderReview
		}
		// latest is published (immutable): a correction starts a new version
		return c.repo.CreateReport(Report{
			ID:           uuid.New().String(),
			StudentID:    studentID,
			TermID:       termID,
			CycleID:      cycleID,
			Status:       StatusDraft,
			Version:      latest.Version + 1,
			OverallScore: overallScore,
			OverallGrade: overallGrade,
			Summary:      doc,
			Checksum:     checksum,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	case ErrNotFound:
		return c.repo.CreateReport(Report{
			ID:           uuid.New().String(),
			StudentID:    studentID,
			TermID:       termID,
			CycleID:      cycleID,
			Status:       StatusDraft,
			Version:      1,
			OverallScore: overallScore,
			OverallGrade: overallGrade,
			Summary:      doc,
			Checksum:     checksum,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	default:
		return Report{}, err
	}
}

// assemble runs the aggregator for every in-scope parameter and derives the
// document-level indicators.
func (c *Compiler) assemble(studentID string, cycle eval.EvaluationCycle) (SummaryDocument, float64, error) {
	var doc SummaryDocument
	doc.Remarks = make(map[string][]string)

	paramIDs := make([]string, len(cycle.ParameterIDs))
	copy(paramIDs, cycle.ParameterIDs)
	sort.Strings(paramIDs)

	var (
		weightedSum, weightSum  float64
		confSum                 float64
		confCount               int
		requiredSlots, coverage int
		evidenceCount           int
		evaluationCount         int
	)

	for _, pid := range paramIDs {
		p, err := c.paramSvc.GetByID(pid)
		if err != nil {
			return SummaryDocument{}, 0, errors.Wrapf(err, "loading parameter %s", pid)
		}
		assignment, err := c.evalSvc.GetAssignment(pid)
		if err != nil {
			return SummaryDocument{}, 0, errors.Wrapf(err, "loading assignment for %s", pid)
		}
		evs, err := c.evalSvc.Current(studentID, pid, cycle.ID)
		if err != nil {
			return SummaryDocument{}, 0, err
		}

		required := len(assignment.RequiredRoles()) > 0
		if len(evs) == 0 {
			if required {
				// total absence for a required parameter, unlike partial
				// role coverage, cannot be compensated for
				return SummaryDocument{}, 0, errors.Wrapf(ErrIncompleteCycle, "parameter %q has no evaluations", p.Name)
			}
			continue
		}
		evaluationCount += len(evs)

		agg, err := AggregateParameter(p, assignment, evs, func(score float64) (param.Grade, int, error) {
			r, err := c.paramSvc.LatestRubricVersion(pid)
			if err != nil {
				return param.Grade{}, 0, err
			}
			if len(r.Levels) == 0 {
				return param.Grade{}, 0, param.ErrRubricNotFound
			}
			return r.Resolve(score), r.Version, nil
		})
		if err != nil {
			return SummaryDocument{}, 0, err
		}

		doc.Parameters = append(doc.Parameters, ParameterResult{
			ParameterID:   p.ID,
			Name:          p.Name,
			Category:      p.Category,
			Weightage:     p.Weightage,
			Score:         agg.Score,
			GradeLetter:   agg.GradeLetter,
			Descriptor:    agg.Descriptor,
			RubricVersion: agg.RubricVersion,
			Roles:         agg.Roles,
			Evidence:      agg.Evidence,
			Flags:         agg.Flags,
		})

		weightedSum += agg.Score * p.Weightage
		weightSum += p.Weightage
		evidenceCount += len(agg.Evidence)

		for _, rs := range agg.Roles {
			confSum += rs.Confidence
			confCount++
		}
		for _, rw := range assignment.Weights {
			if !rw.Required {
				continue
			}
			requiredSlots++
			for _, rs := range agg.Roles {
				if rs.Role == rw.Role {
					coverage++
					break
				}
			}
		}

		c.collectNarratives(&doc, evs)
	}

	if len(doc.Parameters) == 0 {
		return SummaryDocument{}, 0, errors.Wrap(ErrIncompleteCycle, "cycle has no evaluated parameters")
	}

	var overall float64
	if weightSum > 0 {
		overall = weightedSum / weightSum
	}

	deriveHighlights(&doc)

	quality := QualityIndicators{}
	if confCount > 0 {
		quality.MeanConfidence = confSum / float64(confCount)
	}
	if requiredSlots > 0 {
		quality.Completeness = float64(coverage) / float64(requiredSlots)
	} else {
		quality.Completeness = 1
	}
	quality.EvidenceDensity = float64(evidenceCount) / float64(len(doc.Parameters))
	for _, pr := range doc.Parameters {
		quality.Flags = append(quality.Flags, pr.Flags...)
	}
	sort.Strings(quality.Flags)

	doc.Meta = CompilationMeta{
		EvaluationCount: evaluationCount,
		ParameterCount:  len(doc.Parameters),
		Quality:         quality,
	}
	if len(doc.Remarks) == 0 {
		doc.Remarks = nil
	}
	return doc, overall, nil
}

// collectNarratives groups remarks by stakeholder role; self-role remarks
// double as the student's reflections.
func (c *Compiler) collectNarratives(doc *SummaryDocument, evs []eval.Evaluation) {
	sorted := make([]eval.Evaluation, len(evs))
	copy(sorted, evs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	for _, ev := range sorted {
		if ev.Remark == "" {
			continue
		}
		role := ev.Role.String()
		doc.Remarks[role] = append(doc.Remarks[role], ev.Remark)
		if ev.Role == eval.RoleSelf {
			doc.Reflections = append(doc.Reflections, ev.Remark)
		}
	}
}

// deriveHighlights fills strengths and growth areas from the best and worst
// parameter aggregates.
func deriveHighlights(doc *SummaryDocument) {
	ranked := make([]ParameterResult, len(doc.Parameters))
	copy(ranked, doc.Parameters)
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].ParameterID < ranked[j].ParameterID
	})

	top := len(ranked) / 3
	if top == 0 {
		top = 1
	}
	for i := 0; i < top; i++ {
		doc.Strengths = append(doc.Strengths, ranked[i].Name)
	}
	for i := len(ranked) - 1; i >= len(ranked)-top && i >= top; i-- {
		doc.GrowthAreas = append(doc.GrowthAreas, ranked[i].Name)
	}
}

func (c *Compiler) resolveOverallGrade(score float64) (string, error) {
	grade, err := c.paramSvc.ResolveGradeLatest(c.conf.Hpc.OverallRubricName, score)
	if err != nil {
		return "", errors.Wrap(err, "resolving overall grade")
	}
	return grade.Letter, nil
}
