package report

import "time"

// StepStatus is the state of one approval gate.
type StepStatus string

const (
	StepWaiting       StepStatus = "waiting"
	StepPending       StepStatus = "pending"
	StepApproved      StepStatus = "approved"
	StepRejected      StepStatus = "rejected"
	StepNeedsRevision StepStatus = "needs_revision"
)

// Decision is an approver's action on a pending step.
type Decision string

const (
	DecisionApproved      Decision = "approved"
	DecisionRejected      Decision = "rejected"
	DecisionNeedsRevision Decision = "needs_revision"
)

func (d Decision) IsValid() bool {
	switch d {
	case DecisionApproved, DecisionRejected, DecisionNeedsRevision:
		return true
	}
	return false
}

// stepTransitions is the workflow transition table: only a pending step
// accepts a decision; everything else is rejected up front.
var stepTransitions = map[StepStatus]map[Decision]StepStatus{
	StepPending: {
		DecisionApproved:      StepApproved,
		DecisionRejected:      StepRejected,
		DecisionNeedsRevision: StepNeedsRevision,
	},
}

// WorkflowStep is one ordered, role-gated approval gate for a report.
// Steps for a report are created together when it enters review; exactly one
// is pending at a time.
type WorkflowStep struct {
	ReportID     string     `json:"report_id"`
	Number       int        `json:"number"` // 1-based
	ApproverRole string     `json:"approver_role"`
	Status       StepStatus `json:"status"`
	DueAt        time.Time  `json:"due_at,omitempty"`      // UTC, zero while waiting
	AssignedAt   time.Time  `json:"assigned_at,omitempty"` // UTC, when it became pending
	ApprovedAt   time.Time  `json:"approved_at,omitempty"` // UTC
	Comments     string     `json:"comments,omitempty"`
}

// newSteps builds the full step sequence for a report entering review:
// step 1 pending with a due date, the rest waiting.
func newSteps(reportID string, approverRoles []string, now time.Time, dueInterval time.Duration) []WorkflowStep {
	steps := make([]WorkflowStep, 0, len(approverRoles))
	for i, role := range approverRoles {
		s := WorkflowStep{
			ReportID:     reportID,
			Number:       i + 1,
			ApproverRole: role,
			Status:       StepWaiting,
		}
		if i == 0 {
			s.Status = StepPending
			s.AssignedAt = now
			s.DueAt = now.Add(dueInterval)
		}
		steps = append(steps, s)
	}
	return steps
}

// transition applies a decision to step `number` of the given sequence and
// reports the resulting report status. Only the pending step whose approver
// role matches actorRole may act; everything else fails with
// ErrStepNotActive.
func transition(
	steps []WorkflowStep,
	number int,
	actorRole string,
	decision Decision,
	comments string,
	now time.Time,
	dueInterval time.Duration,
) ([]WorkflowStep, Status, error) {
	idx := -1
	for i, s := range steps {
		if s.Number == number {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, "", ErrStepNotActive
	}

	step := steps[idx]
	next, ok := stepTransitions[step.Status][decision]
	if !ok || step.ApproverRole != actorRole {
		return nil, "", ErrStepNotActive
	}

	out := make([]WorkflowStep, len(steps))
	copy(out, steps)

	switch next {
	case StepApproved:
		out[idx].Status = StepApproved
		out[idx].ApprovedAt = now
		out[idx].Comments = comments

		if idx == len(out)-1 {
			// last gate cleared: the report publishes and freezes
			return out, StatusPublished, nil
		}
		// due date for step n+1 is never before step n's approved_at
		out[idx+1].Status = StepPending
		out[idx+1].AssignedAt = now
		out[idx+1].DueAt = now.Add(dueInterval)
		return out, StatusUnderReview, nil

	case StepRejected, StepNeedsRevision:
		// no partial rollback: every step returns to waiting and the report
		// goes back to draft for a fresh compile+submit cycle. The decision
		// comments stay on the acting step for the audit trail.
		for i := range out {
			out[i].Status = StepWaiting
			out[i].DueAt = time.Time{}
			out[i].AssignedAt = time.Time{}
			out[i].ApprovedAt = time.Time{}
			out[i].Comments = ""
		}
		out[idx].Comments = comments
		return out, StatusDraft, nil
	}
	return nil, "", ErrStepNotActive
}
