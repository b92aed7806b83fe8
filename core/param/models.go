package param

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/maendeleo/core"
)

// Category groups evaluable traits on the progress card.
type Category string

const (
	CategoryScholastic   Category = "scholastic"
	CategoryCoScholastic Category = "co_scholastic"
	CategoryLifeSkills   Category = "life_skills"
	CategoryDiscipline   Category = "discipline"
)

var AllCategories = []Category{CategoryScholastic, CategoryCoScholastic, CategoryLifeSkills, CategoryDiscipline}

func (c Category) IsValid() bool {
	switch c {
	case CategoryScholastic, CategoryCoScholastic, CategoryLifeSkills, CategoryDiscipline:
		return true
	}
	return false
}

func (c Category) String() string { return string(c) }

// EvaluationFrequency is how often a parameter is evaluated within a term.
type EvaluationFrequency string

const (
	FrequencyPerCycle EvaluationFrequency = "per_cycle"
	FrequencyMonthly  EvaluationFrequency = "monthly"
	FrequencyPerTerm  EvaluationFrequency = "per_term"
)

// Parameter is one evaluable trait (e.g. "Teamwork").
// A Parameter is immutable once referenced by an evaluation: corrections
// supersede it with a new id, the old row is kept for audit.
type Parameter struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	Category     Category            `json:"category"`
	Weightage    float64             `json:"weightage"` // fraction of the overall score
	ScaleMin     float64             `json:"scale_min"`
	ScaleMax     float64             `json:"scale_max"`
	GradeLevels  []int               `json:"grade_levels"` // applicable school grades
	Frequency    EvaluationFrequency `json:"frequency"`
	Active       bool                `json:"active"`
	SupersededBy string              `json:"superseded_by,omitempty"`
	CreatedAt    time.Time           `json:"created_at"` // UTC
	UpdatedAt    time.Time           `json:"updated_at"` // UTC
}

// InScale reports whether a raw evaluation score fits the parameter's scale.
func (p Parameter) InScale(score float64) bool {
	return p.ScaleMin <= score && score <= p.ScaleMax
}

func (p Parameter) AppliesToGrade(grade int) bool {
	if len(p.GradeLevels) == 0 {
		return true
	}
	for _, g := range p.GradeLevels {
		if g == grade {
			return true
		}
	}
	return false
}

// NewParameter contains information needed to create a new Parameter.
type NewParameter struct {
	Name        string              `json:"name" validate:"required,alphanum_"`
	Category    Category            `json:"category" validate:"required,category"`
	Weightage   float64             `json:"weightage" validate:"gt=0,lte=1"`
	ScaleMin    float64             `json:"scale_min" validate:"gte=0"`
	ScaleMax    float64             `json:"scale_max" validate:"gtfield=ScaleMin"`
	GradeLevels []int               `json:"grade_levels" validate:"omitempty,dive,min=1,max=12"`
	Frequency   EvaluationFrequency `json:"frequency" validate:"omitempty,oneof=per_cycle monthly per_term"`
}

func (np *NewParameter) Validate() error {
	np.Name = core.CleanString(np.Name)
	if np.Frequency == "" {
		np.Frequency = FrequencyPerCycle
	}
	return core.Validate.Struct(np)
}

var (
	categoryTag  = "category"
	categoryText = "invalid category"
)

func init() {
	_ = core.Validate.RegisterValidation(categoryTag, func(fl validator.FieldLevel) bool {
		return Category(fl.Field().String()).IsValid()
	})
	core.RegisterCustomTranslation(categoryTag, categoryText)
}

// CheckCategoryWeightage verifies that the summed weightage of active
// parameters in each category stays within that category's configured bound.
// Returns one ValidationError carrying every violated category.
func CheckCategoryWeightage(params []Parameter, bounds map[string]core.CategoryBound) error {
	totals := make(map[Category]float64, len(AllCategories))
	for _, p := range params {
		if p.Active {
			totals[p.Category] += p.Weightage
		}
	}

	var flds []core.FieldError
	for _, cat := range AllCategories {
		bound, ok := bounds[cat.String()]
		if !ok {
			continue
		}
		if total := totals[cat]; total < bound.Min || total > bound.Max {
			flds = append(flds, core.FieldError{
				Field: cat.String(),
				Error: "category weightage out of configured bounds",
			})
		}
	}
	if flds != nil {
		return core.NewValidationError(errWeightageBounds, flds...)
	}
	return nil
}
