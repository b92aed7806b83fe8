package eval

import (
	"errors"
	"time"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"

	"github.com/trezcool/maendeleo/core"
	"github.com/trezcool/maendeleo/core/param"
)

var (
	// errors
	ErrNotFound           = errors.New("evaluation not found")
	ErrCycleNotFound      = errors.New("evaluation cycle not found")
	ErrAssignmentNotFound = errors.New("evaluator assignment not found")

	errInvalidSubmission = errors.New("invalid evaluation submission")
	errWeightsSum        = errors.New("invalid evaluator assignment weights")
)

type (
	Repository interface {
		// SubmitEvaluation atomically supersedes the previous version for
		// (student, parameter, evaluator, cycle), assigns version = prev+1
		// (or 1) and inserts ev. Concurrent submissions for the same key
		// serialize to "last write creates next version".
		SubmitEvaluation(ev Evaluation) (Evaluation, error)
		GetLatestEvaluation(studentID, parameterID, evaluatorID, cycleID string) (Evaluation, error)
		// QueryCurrentEvaluations returns all non-superseded evaluations for
		// (student, parameter, cycle).
		QueryCurrentEvaluations(studentID, parameterID, cycleID string) ([]Evaluation, error)

		CreateCycle(c EvaluationCycle) (EvaluationCycle, error)
		GetCycleByID(id string) (EvaluationCycle, error)
		UpdateCycleStatus(id string, status CycleStatus) (EvaluationCycle, error)

		CreateAssignment(a EvaluatorAssignment) (EvaluatorAssignment, error)
		GetAssignment(parameterID string) (EvaluatorAssignment, error)
	}

	Service struct {
		repo     Repository
		paramSvc *param.Service
		conf     *core.Config
	}
)

func NewService(repo Repository, paramSvc *param.Service, conf *core.Config) *Service {
	return &Service{repo: repo, paramSvc: paramSvc, conf: conf}
}

// Submit validates and stores one stakeholder evaluation. Resubmission for
// the same (student, parameter, evaluator, cycle) is an idempotent upsert:
// it creates a new version and supersedes the old one, never a duplicate.
func (svc *Service) Submit(ne NewEvaluation) (Evaluation, error) {
	if err := ne.Validate(); err != nil {
		return Evaluation{}, err
	}

	cycle, err := svc.repo.GetCycleByID(ne.CycleID)
	if err != nil {
		return Evaluation{}, err
	}
	p, err := svc.paramSvc.GetByID(ne.ParameterID)
	if err != nil {
		return Evaluation{}, err
	}
	assignment, err := svc.repo.GetAssignment(ne.ParameterID)
	if err != nil {
		return Evaluation{}, err
	}

	if err := ValidateSubmission(ne, p, assignment, cycle, svc.conf.Hpc.RemarkMinLen); err != nil {
		return Evaluation{}, err
	}

	// grade under the current published rubric; the version is recorded so
	// the grading stays reproducible after future rubric changes
	rubric, err := svc.paramSvc.LatestRubricVersion(ne.ParameterID)
	if err != nil {
		return Evaluation{}, pkgerrors.Wrap(err, "resolving rubric for submission")
	}
	if len(rubric.Levels) == 0 {
		return Evaluation{}, pkgerrors.Wrap(param.ErrRubricNotFound, "resolving rubric for submission")
	}
	grade := rubric.Resolve(ne.Score)

	now := time.Now().UTC()
	ev := Evaluation{
		ID:            uuid.New().String(),
		StudentID:     ne.StudentID,
		ParameterID:   ne.ParameterID,
		EvaluatorID:   ne.EvaluatorID,
		Role:          ne.Role,
		CycleID:       ne.CycleID,
		Score:         ne.Score,
		GradeLetter:   grade.Letter,
		RubricVersion: rubric.Version,
		Remark:        ne.Remark,
		Evidence:      ne.Evidence,
		Confidence:    ne.Confidence,
		Status:        StatusSubmitted,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	return svc.repo.SubmitEvaluation(ev)
}

// Latest returns the current (non-superseded) evaluation one evaluator holds
// for (student, parameter, cycle), so clients can prefill a resubmission.
func (svc *Service) Latest(studentID, parameterID, evaluatorID, cycleID string) (Evaluation, error) {
	return svc.repo.GetLatestEvaluation(studentID, parameterID, evaluatorID, cycleID)
}

// Current returns the non-superseded evaluations feeding one parameter
// aggregate.
func (svc *Service) Current(studentID, parameterID, cycleID string) ([]Evaluation, error) {
	return svc.repo.QueryCurrentEvaluations(studentID, parameterID, cycleID)
}

func (svc *Service) GetCycle(id string) (EvaluationCycle, error) {
	return svc.repo.GetCycleByID(id)
}

// CreateCycle registers a new evaluation window in `planned` status.
func (svc *Service) CreateCycle(termID, name string, startsAt, endsAt time.Time, parameterIDs []string, roles []Role) (EvaluationCycle, error) {
	now := time.Now().UTC()
	c := EvaluationCycle{
		ID:           uuid.New().String(),
		TermID:       termID,
		Name:         core.CleanString(name),
		StartsAt:     startsAt.UTC(),
		EndsAt:       endsAt.UTC(),
		ParameterIDs: parameterIDs,
		Roles:        roles,
		Status:       CyclePlanned,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return svc.repo.CreateCycle(c)
}

func (svc *Service) ActivateCycle(id string) (EvaluationCycle, error) {
	return svc.repo.UpdateCycleStatus(id, CycleActive)
}

func (svc *Service) CompleteCycle(id string) (EvaluationCycle, error) {
	return svc.repo.UpdateCycleStatus(id, CycleCompleted)
}

// CreateAssignment stores an evaluator assignment after checking the
// weight-sum invariant.
func (svc *Service) CreateAssignment(parameterID string, weights []RoleWeight) (EvaluatorAssignment, error) {
	now := time.Now().UTC()
	a := EvaluatorAssignment{
		ParameterID: parameterID,
		Weights:     weights,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := a.CheckWeights(svc.conf.Hpc.WeightTolerance); err != nil {
		return EvaluatorAssignment{}, err
	}
	return svc.repo.CreateAssignment(a)
}

func (svc *Service) GetAssignment(parameterID string) (EvaluatorAssignment, error) {
	return svc.repo.GetAssignment(parameterID)
}
