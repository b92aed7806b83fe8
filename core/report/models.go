package report

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/trezcool/maendeleo/core/param"
)

// Status is a report's lifecycle state. A published report is immutable:
// corrections require compiling a new version.
type Status string

const (
	StatusDraft       Status = "draft"
	StatusUnderReview Status = "under_review"
	StatusApproved    Status = "approved"
	StatusPublished   Status = "published"
)

// Report is one compiled, versioned progress card for a
// (student, term, cycle).
type Report struct {
	ID        string `json:"id"`
	StudentID string `json:"student_id"`
	TermID    string `json:"term_id"`
	CycleID   string `json:"cycle_id"`

	Status       Status          `json:"status"`
	Version      int             `json:"version"`
	OverallScore float64         `json:"overall_score"`
	OverallGrade string          `json:"overall_grade"`
	Summary      SummaryDocument `json:"summary"`
	// Checksum of the canonical summary encoding; unchanged inputs compile
	// to an unchanged checksum, which is what makes compilation idempotent.
	Checksum string `json:"checksum"`

	// WorkflowRev increments on every approval-workflow transition and is
	// the optimistic concurrency token for them. Distinct from Version,
	// which tracks document recompilations.
	WorkflowRev int            `json:"workflow_rev"`
	Steps       []WorkflowStep `json:"steps,omitempty"`

	PublishedAt time.Time `json:"published_at,omitempty"` // UTC, zero until published
	CreatedAt   time.Time `json:"created_at"`             // UTC
	UpdatedAt   time.Time `json:"updated_at"`             // UTC
}

// SummaryDocument is the structured payload of a report. It must marshal
// deterministically: slices carry a fixed order and maps rely on
// encoding/json's sorted keys.
type SummaryDocument struct {
	Parameters   []ParameterResult   `json:"parameters"`
	Remarks      map[string][]string `json:"remarks,omitempty"` // keyed by evaluator role
	Achievements []string            `json:"achievements,omitempty"`
	Reflections  []string            `json:"reflections,omitempty"`
	Strengths    []string            `json:"strengths,omitempty"`
	GrowthAreas  []string            `json:"growth_areas,omitempty"`
	Meta         CompilationMeta     `json:"meta"`
}

// ParameterResult is the per-parameter breakdown inside a summary.
type ParameterResult struct {
	ParameterID   string         `json:"parameter_id"`
	Name          string         `json:"name"`
	Category      param.Category `json:"category"`
	Weightage     float64        `json:"weightage"`
	Score         float64        `json:"score"`
	GradeLetter   string         `json:"grade_letter"`
	Descriptor    string         `json:"descriptor"`
	RubricVersion int            `json:"rubric_version"`
	Roles         []RoleScore    `json:"roles"`
	Evidence      []string       `json:"evidence,omitempty"`
	Flags         []string       `json:"flags,omitempty"`
}

// CompilationMeta holds data-source counts and quality indicators.
// No timestamps in here: recompiling unchanged inputs must produce a
// byte-identical document.
type CompilationMeta struct {
	EvaluationCount int               `json:"evaluation_count"`
	ParameterCount  int               `json:"parameter_count"`
	Quality         QualityIndicators `json:"quality"`
}

// QualityIndicators describe how trustworthy a compiled report is.
// Partial stakeholder coverage is not an error; it shows up here.
type QualityIndicators struct {
	MeanConfidence  float64  `json:"mean_confidence"`
	Completeness    float64  `json:"completeness"`     // submitted required role slots / total
	EvidenceDensity float64  `json:"evidence_density"` // evidence items per parameter
	Flags           []string `json:"flags,omitempty"`
}

// Checksum returns the canonical digest of the document.
func (d SummaryDocument) Checksum() (string, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

func (r Report) IsPublished() bool { return r.Status == StatusPublished }

// PendingStep returns the single step currently awaiting a decision.
func (r Report) PendingStep() (WorkflowStep, bool) {
	for _, s := range r.Steps {
		if s.Status == StepPending {
			return s, true
		}
	}
	return WorkflowStep{}, false
}
