package param

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/maendeleo/core"
)

var (
	// errors
	ErrNotFound       = errors.New("parameter not found")
	ErrRubricNotFound = errors.New("rubric version not found")
	ErrSuperseded     = errors.New("parameter has been superseded")

	errWeightageBounds = errors.New("category weightage out of configured bounds")
)

type (
	Repository interface {
		CreateParameter(p Parameter) (Parameter, error)
		GetParameterByID(id string) (Parameter, error)
		QueryParametersByID(ids ...string) ([]Parameter, error)
		QueryActiveParameters() ([]Parameter, error)
		// SupersedeParameter deactivates old and links it to its replacement.
		SupersedeParameter(oldID string, replacement Parameter) (Parameter, error)

		CreateRubric(r Rubric) (Rubric, error)
		// GetRubric returns the rubric for (parameterID, version).
		GetRubric(parameterID string, version int) (Rubric, error)
		// GetLatestRubric returns the highest published version for parameterID.
		GetLatestRubric(parameterID string) (Rubric, error)
	}

	Service struct {
		repo Repository
		conf *core.Config
	}
)

func NewService(repo Repository, conf *core.Config) *Service {
	return &Service{repo: repo, conf: conf}
}

func (svc *Service) Create(np NewParameter) (Parameter, error) {
	now := time.Now().UTC()
	p := Parameter{
		ID:          uuid.New().String(),
		Name:        np.Name,
		Category:    np.Category,
		Weightage:   np.Weightage,
		ScaleMin:    np.ScaleMin,
		ScaleMax:    np.ScaleMax,
		GradeLevels: np.GradeLevels,
		Frequency:   np.Frequency,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateParameter(p)
}

func (svc *Service) GetByID(id string) (Parameter, error) {
	return svc.repo.GetParameterByID(id)
}

func (svc *Service) QueryByID(ids ...string) ([]Parameter, error) {
	return svc.repo.QueryParametersByID(ids...)
}

// Supersede replaces an existing parameter with a corrected copy under a new
// id. The old parameter is deactivated but kept: evaluations referencing it
// stay auditable.
func (svc *Service) Supersede(oldID string, np NewParameter) (Parameter, error) {
	old, err := svc.repo.GetParameterByID(oldID)
	if err != nil {
		return Parameter{}, err
	}
	if old.SupersededBy != "" {
		return Parameter{}, ErrSuperseded
	}

	now := time.Now().UTC()
	replacement := Parameter{
		ID:          uuid.New().String(),
		Name:        np.Name,
		Category:    np.Category,
		Weightage:   np.Weightage,
		ScaleMin:    np.ScaleMin,
		ScaleMax:    np.ScaleMax,
		GradeLevels: np.GradeLevels,
		Frequency:   np.Frequency,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.SupersedeParameter(oldID, replacement)
}

// CheckWeightageBounds validates the category weightage invariant over all
// active parameters.
func (svc *Service) CheckWeightageBounds() error {
	params, err := svc.repo.QueryActiveParameters()
	if err != nil {
		return err
	}
	return CheckCategoryWeightage(params, svc.conf.Hpc.CategoryBounds)
}

// AddRubricVersion appends a new rubric version for a parameter. Versions are
// append-only; the new version number is lastVersion+1.
func (svc *Service) AddRubricVersion(parameterID string, levels []RubricLevel, publish bool) (Rubric, error) {
	if len(levels) == 0 {
		return Rubric{}, core.NewValidationError(nil, core.FieldError{Field: "levels", Error: "at least one rubric level is required"})
	}

	version := 1
	if last, err := svc.repo.GetLatestRubric(parameterID); err == nil {
		version = last.Version + 1
	} else if err != ErrRubricNotFound {
		return Rubric{}, err
	}

	r := Rubric{
		ParameterID: parameterID,
		Version:     version,
		Levels:      levels,
		Published:   publish,
		CreatedAt:   time.Now().UTC(),
	}
	return svc.repo.CreateRubric(r)
}

// ResolveGrade maps score to a grade under the given rubric version.
// A missing rubric version is a hard stop (ErrRubricNotFound): aggregation
// must not silently fall back to a different version.
func (svc *Service) ResolveGrade(score float64, parameterID string, version int) (Grade, error) {
	r, err := svc.repo.GetRubric(parameterID, version)
	if err != nil {
		return Grade{}, err
	}
	if len(r.Levels) == 0 {
		return Grade{}, ErrRubricNotFound
	}
	return r.Resolve(score), nil
}

// LatestRubricVersion returns the current published rubric version for a
// parameter; evaluations record it so regrades stay reproducible.
func (svc *Service) LatestRubricVersion(parameterID string) (Rubric, error) {
	return svc.repo.GetLatestRubric(parameterID)
}

// ResolveGradeLatest maps score to a grade under the current published
// rubric of parameterID (also used with the school-level "overall" rubric).
func (svc *Service) ResolveGradeLatest(parameterID string, score float64) (Grade, error) {
	r, err := svc.repo.GetLatestRubric(parameterID)
	if err != nil {
		return Grade{}, err
	}
	if len(r.Levels) == 0 {
		return Grade{}, ErrRubricNotFound
	}
	return r.Resolve(score), nil
}
