package report

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/trezcool/maendeleo/core"
)

var (
	// errors
	ErrNotFound              = errors.New("report not found")
	ErrIncompleteCycle       = errors.New("required parameter has no evaluations")
	ErrCompilationInProgress = errors.New("a compilation for this report is already in progress") // retryable
	ErrStepNotActive         = errors.New("approval step is not active for this actor")
	ErrVersionConflict       = errors.New("report was modified concurrently, retry with fresh state") // retryable
	ErrReportUnderReview     = errors.New("report is under review and cannot be recompiled")
	ErrNotDraft              = errors.New("only a draft report can be submitted for review")
	ErrPublished             = errors.New("report is published and immutable")
)

type (
	Repository interface {
		CreateReport(r Report) (Report, error)
		GetReportByID(id string) (Report, error)
		// GetLatestReport returns the highest version for (student, term, cycle).
		GetLatestReport(studentID, termID, cycleID string) (Report, error)
		UpdateDraftReport(r Report) (Report, error)
		// UpdateReportWorkflow persists status, steps and workflowRev+1,
		// conditioned on the stored workflowRev still equalling expectedRev;
		// fails with ErrVersionConflict otherwise.
		UpdateReportWorkflow(r Report, expectedRev int) (Report, error)
	}

	// Notifier enumerates who hears about a report event.
	Notifier interface {
		RecipientsFor(r Report) []mail.Address
	}

	// AnalyticsInvalidator drops derived records that a publication makes
	// stale, so cached analytics never outlive the report they rank.
	AnalyticsInvalidator interface {
		Invalidate(ctx context.Context, studentID, termID string)
	}

	Service struct {
		repo      Repository
		compiler  *Compiler
		mailSvc   core.EmailService
		renderer  core.RenderService
		notifier  Notifier
		analytics AnalyticsInvalidator
		logger    core.Logger
		conf      *core.Config
	}
)

func NewService(
	repo Repository,
	compiler *Compiler,
	mailSvc core.EmailService,
	renderer core.RenderService,
	notifier Notifier,
	analytics AnalyticsInvalidator,
	logger core.Logger,
	conf *core.Config,
) *Service {
	return &Service{
		repo:      repo,
		compiler:  compiler,
		mailSvc:   mailSvc,
		renderer:  renderer,
		notifier:  notifier,
		analytics: analytics,
		logger:    logger,
		conf:      conf,
	}
}

func (svc *Service) Compile(ctx context.Context, studentID, termID, cycleID string) (Report, error) {
	return svc.compiler.Compile(ctx, studentID, termID, cycleID)
}

func (svc *Service) GetByID(id string) (Report, error) {
	return svc.repo.GetReportByID(id)
}

// SubmitForReview creates the approval step sequence from the configured
// approver roles and moves the draft into review.
func (svc *Service) SubmitForReview(reportID string) (Report, error) {
	r, err := svc.repo.GetReportByID(reportID)
	if err != nil {
		return Report{}, err
	}
	if r.Status != StatusDraft {
		return Report{}, ErrNotDraft
	}

	now := time.Now().UTC()
	expectedRev := r.WorkflowRev
	r.Steps = newSteps(r.ID, svc.conf.Hpc.ApproverRoles, now, svc.conf.Hpc.StepDueInterval)
	r.Status = StatusUnderReview
	r.UpdatedAt = now
	return svc.repo.UpdateReportWorkflow(r, expectedRev)
}

// ActOnStep applies an approver decision to one workflow step under
// optimistic concurrency: a concurrent conflicting transition surfaces as
// ErrVersionConflict and must be retried against refreshed state.
func (svc *Service) ActOnStep(ctx context.Context, reportID string, stepNumber int, actorRole string, decision Decision, comments string) (Report, error) {
	if !decision.IsValid() {
		return Report{}, core.NewValidationError(nil, core.FieldError{Field: "decision", Error: "invalid decision"})
	}

	r, err := svc.repo.GetReportByID(reportID)
	if err != nil {
		return Report{}, err
	}
	if r.Status != StatusUnderReview {
		return Report{}, ErrStepNotActive
	}

	now := time.Now().UTC()
	steps, status, err := transition(r.Steps, stepNumber, actorRole, decision, comments, now, svc.conf.Hpc.StepDueInterval)
	if err != nil {
		return Report{}, err
	}

	expectedRev := r.WorkflowRev
	r.Steps = steps
	r.Status = status
	r.UpdatedAt = now
	if status == StatusPublished {
		r.PublishedAt = now
	}

	r, err = svc.repo.UpdateReportWorkflow(r, expectedRev)
	if err != nil {
		return Report{}, err
	}

	if r.Status == StatusPublished {
		// the cache must not keep serving pre-publication analytics
		if svc.analytics != nil {
			svc.analytics.Invalidate(ctx, r.StudentID, r.TermID)
		}
		// best-effort follow-ups; never roll back the approved state
		go svc.publishFollowUps(r)
	}
	return r, nil
}

// publishFollowUps renders the report and notifies stakeholders after
// publication. Failures are logged and dropped.
func (svc *Service) publishFollowUps(r Report) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	url, err := svc.renderer.RenderReport(ctx, r.ID, r.Summary)
	if err != nil {
		svc.logger.Error("rendering published report", pkgerrors.Wrap(err, r.ID))
		url = svc.conf.FrontendBaseURL + "/reports/" + r.ID
	}

	if svc.notifier == nil {
		return
	}
	recipients := svc.notifier.RecipientsFor(r)
	if len(recipients) == 0 {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      recipients,
		Subject: fmt.Sprintf("Progress card published (term %s)", r.TermID),
		Body: fmt.Sprintf(
			"A progress card (version %d, overall grade %s) has been published.\n\nView it at: %s\n",
			r.Version, r.OverallGrade, url,
		),
	})
}
