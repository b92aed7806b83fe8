package report

import (
	"testing"
	"time"
)

var approverRoles = []string{"staff:teacher", "staff:counselor", "admin:principal"}

func TestNewSteps(t *testing.T) {
	now := time.Now().UTC()
	steps := newSteps("r1", approverRoles, now, 72*time.Hour)

	if len(steps) != 3 {
		t.Fatalf("newSteps() returned %d steps, want 3", len(steps))
	}
	if steps[0].Status != StepPending {
		t.Errorf("step 1 status = %s, want %s", steps[0].Status, StepPending)
	}
	if want := now.Add(72 * time.Hour); !steps[0].DueAt.Equal(want) {
		t.Errorf("step 1 due at = %v, want %v", steps[0].DueAt, want)
	}
	for i, s := range steps[1:] {
		if s.Status != StepWaiting {
			t.Errorf("step %d status = %s, want %s", i+2, s.Status, StepWaiting)
		}
		if !s.DueAt.IsZero() {
			t.Errorf("step %d has a due date while waiting", i+2)
		}
	}
	for i, s := range steps {
		if s.Number != i+1 {
			t.Errorf("step[%d].Number = %d, want %d", i, s.Number, i+1)
		}
		if s.ApproverRole != approverRoles[i] {
			t.Errorf("step[%d].ApproverRole = %s, want %s", i, s.ApproverRole, approverRoles[i])
		}
	}
}

func TestTransition(t *testing.T) {
	now := time.Now().UTC()
	due := 72 * time.Hour
	fresh := func() []WorkflowStep { return newSteps("r1", approverRoles, now, due) }

	t.Run("approval advances the pending step", func(t *testing.T) {
		steps, status, err := transition(fresh(), 1, "staff:teacher", DecisionApproved, "looks good", now, due)
		if err != nil {
			t.Fatalf("transition() failed: %v", err)
		}
		if status != StatusUnderReview {
			t.Errorf("status = %s, want %s", status, StatusUnderReview)
		}
		if steps[0].Status != StepApproved || steps[0].Comments != "looks good" {
			t.Errorf("step 1 = %+v, want approved with comments", steps[0])
		}
		if steps[1].Status != StepPending {
			t.Errorf("step 2 status = %s, want %s", steps[1].Status, StepPending)
		}
		if steps[1].DueAt.Before(steps[0].ApprovedAt) {
			t.Error("step 2 due date precedes step 1 approval")
		}
		if steps[2].Status != StepWaiting {
			t.Errorf("step 3 status = %s, want %s", steps[2].Status, StepWaiting)
		}
	})

	t.Run("last approval publishes", func(t *testing.T) {
		steps := fresh()
		var status Status
		var err error
		for i, role := range approverRoles {
			steps, status, err = transition(steps, i+1, role, DecisionApproved, "", now, due)
			if err != nil {
				t.Fatalf("transition(step %d) failed: %v", i+1, err)
			}
		}
		if status != StatusPublished {
			t.Errorf("status = %s, want %s", status, StatusPublished)
		}
	})

	t.Run("rejection resets every step and returns to draft", func(t *testing.T) {
		steps, _, err := transition(fresh(), 1, "staff:teacher", DecisionApproved, "fine by me", now, due)
		if err != nil {
			t.Fatalf("transition() failed: %v", err)
		}
		steps, status, err := transition(steps, 2, "staff:counselor", DecisionRejected, "numbers look off", now, due)
		if err != nil {
			t.Fatalf("transition() failed: %v", err)
		}
		if status != StatusDraft {
			t.Errorf("status = %s, want %s", status, StatusDraft)
		}
		for i, s := range steps {
			if s.Status != StepWaiting {
				t.Errorf("step %d status = %s, want %s", i+1, s.Status, StepWaiting)
			}
			if !s.DueAt.IsZero() || !s.ApprovedAt.IsZero() {
				t.Errorf("step %d kept stale timestamps: %+v", i+1, s)
			}
		}
		// the decision comments survive on the acting step for the audit trail
		if steps[1].Comments != "numbers look off" {
			t.Errorf("step 2 comments = %q, want the rejection comments", steps[1].Comments)
		}
		if steps[0].Comments != "" {
			t.Errorf("step 1 comments = %q, want cleared", steps[0].Comments)
		}
	})

	t.Run("needs_revision behaves like rejection", func(t *testing.T) {
		_, status, err := transition(fresh(), 1, "staff:teacher", DecisionNeedsRevision, "add remarks", now, due)
		if err != nil {
			t.Fatalf("transition() failed: %v", err)
		}
		if status != StatusDraft {
			t.Errorf("status = %s, want %s", status, StatusDraft)
		}
	})

	errTests := []struct {
		name     string
		number   int
		role     string
		decision Decision
	}{
		{name: "waiting step cannot be decided", number: 2, role: "staff:counselor", decision: DecisionApproved},
		{name: "wrong actor role", number: 1, role: "admin:principal", decision: DecisionApproved},
		{name: "unknown step number", number: 9, role: "staff:teacher", decision: DecisionApproved},
	}
	for _, tt := range errTests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := transition(fresh(), tt.number, tt.role, tt.decision, "", now, due); err != ErrStepNotActive {
				t.Errorf("transition() error = %v, want %v", err, ErrStepNotActive)
			}
		})
	}
}
