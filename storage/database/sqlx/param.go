package sqlxrepos

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/maendeleo/core/param"
)

type parameterRow struct {
	ID           string        `db:"id"`
	Name         string        `db:"name"`
	Category     string        `db:"category"`
	Weightage    float64       `db:"weightage"`
	ScaleMin     float64       `db:"scale_min"`
	ScaleMax     float64       `db:"scale_max"`
	GradeLevels  pq.Int64Array `db:"grade_levels"`
	Frequency    string        `db:"frequency"`
	Active       bool          `db:"active"`
	SupersededBy null.String   `db:"superseded_by"`
	CreatedAt    time.Time     `db:"created_at"`
	UpdatedAt    time.Time     `db:"updated_at"`
}

func (r parameterRow) toParameter() param.Parameter {
	levels := make([]int, 0, len(r.GradeLevels))
	for _, l := range r.GradeLevels {
		levels = append(levels, int(l))
	}
	return param.Parameter{
		ID:           r.ID,
		Name:         r.Name,
		Category:     param.Category(r.Category),
		Weightage:    r.Weightage,
		ScaleMin:     r.ScaleMin,
		ScaleMax:     r.ScaleMax,
		GradeLevels:  levels,
		Frequency:    param.EvaluationFrequency(r.Frequency),
		Active:       r.Active,
		SupersededBy: r.SupersededBy.String,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type rubricRow struct {
	ParameterID string    `db:"parameter_id"`
	Version     int       `db:"version"`
	Levels      []byte    `db:"levels"`
	Published   bool      `db:"published"`
	CreatedAt   time.Time `db:"created_at"`
}

func (r rubricRow) toRubric() (param.Rubric, error) {
	var levels []param.RubricLevel
	if err := json.Unmarshal(r.Levels, &levels); err != nil {
		return param.Rubric{}, errors.Wrap(err, "decoding rubric levels")
	}
	return param.Rubric{
		ParameterID: r.ParameterID,
		Version:     r.Version,
		Levels:      levels,
		Published:   r.Published,
		CreatedAt:   r.CreatedAt,
	}, nil
}

type paramRepository struct {
	db *sqlx.DB
}

var _ param.Repository = (*paramRepository)(nil) // interface compliance check

func NewParamRepository(db *sqlx.DB) param.Repository {
	return &paramRepository{db: db}
}

func insertParameter(e sqlx.Ext, p param.Parameter) error {
	levels := make(pq.Int64Array, 0, len(p.GradeLevels))
	for _, l := range p.GradeLevels {
		levels = append(levels, int64(l))
	}
	_, err := e.Exec(`
		INSERT INTO parameter (id, name, category, weightage, scale_min, scale_max,
		                       grade_levels, frequency, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		p.ID, p.Name, p.Category.String(), p.Weightage, p.ScaleMin, p.ScaleMax,
		levels, string(p.Frequency), p.Active, p.CreatedAt, p.UpdatedAt,
	)
	return err
}

func (repo *paramRepository) CreateParameter(p param.Parameter) (param.Parameter, error) {
	if err := insertParameter(repo.db, p); err != nil {
		return param.Parameter{}, err
	}
	return p, nil
}

func (repo *paramRepository) GetParameterByID(id string) (param.Parameter, error) {
	var r parameterRow
	err := repo.db.Get(&r, `SELECT * FROM parameter WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return param.Parameter{}, param.ErrNotFound
	}
	if err != nil {
		return param.Parameter{}, err
	}
	return r.toParameter(), nil
}

func (repo *paramRepository) QueryParametersByID(ids ...string) ([]param.Parameter, error) {
	var rows []parameterRow
	err := repo.db.Select(&rows, `SELECT * FROM parameter WHERE id = ANY ($1) ORDER BY created_at`, pq.StringArray(ids))
	if err != nil {
		return nil, err
	}
	params := make([]param.Parameter, 0, len(rows))
	for _, r := range rows {
		params = append(params, r.toParameter())
	}
	return params, nil
}

func (repo *paramRepository) QueryActiveParameters() ([]param.Parameter, error) {
	var rows []parameterRow
	if err := repo.db.Select(&rows, `SELECT * FROM parameter WHERE active ORDER BY created_at`); err != nil {
		return nil, err
	}
	params := make([]param.Parameter, 0, len(rows))
	for _, r := range rows {
		params = append(params, r.toParameter())
	}
	return params, nil
}

// SupersedeParameter deactivates the old row and inserts its replacement in
// one transaction, so no reader ever sees both active.
func (repo *paramRepository) SupersedeParameter(oldID string, replacement param.Parameter) (param.Parameter, error) {
	tx, err := repo.db.Beginx()
	if err != nil {
		return param.Parameter{}, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec(`
		UPDATE parameter SET active = FALSE, superseded_by = $2, updated_at = $3 WHERE id = $1`,
		oldID, replacement.ID, replacement.CreatedAt,
	)
	if err != nil {
		return param.Parameter{}, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return param.Parameter{}, err
	} else if n == 0 {
		return param.Parameter{}, param.ErrNotFound
	}

	if err = insertParameter(tx, replacement); err != nil {
		return param.Parameter{}, err
	}
	if err = tx.Commit(); err != nil {
		return param.Parameter{}, err
	}
	return replacement, nil
}

func (repo *paramRepository) CreateRubric(r param.Rubric) (param.Rubric, error) {
	levels, err := json.Marshal(r.Levels)
	if err != nil {
		return param.Rubric{}, errors.Wrap(err, "encoding rubric levels")
	}
	_, err = repo.db.Exec(`
		INSERT INTO rubric (parameter_id, version, levels, published, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		r.ParameterID, r.Version, levels, r.Published, r.CreatedAt,
	)
	if err != nil {
		return param.Rubric{}, err
	}
	return r, nil
}

func (repo *paramRepository) GetRubric(parameterID string, version int) (param.Rubric, error) {
	var r rubricRow
	err := repo.db.Get(&r, `SELECT * FROM rubric WHERE parameter_id = $1 AND version = $2`, parameterID, version)
	if err == sql.ErrNoRows {
		return param.Rubric{}, param.ErrRubricNotFound
	}
	if err != nil {
		return param.Rubric{}, err
	}
	return r.toRubric()
}

func (repo *paramRepository) GetLatestRubric(parameterID string) (param.Rubric, error) {
	var r rubricRow
	err := repo.db.Get(&r, `
		SELECT * FROM rubric WHERE parameter_id = $1 AND published ORDER BY version DESC LIMIT 1`, parameterID)
	if err == sql.ErrNoRows {
		return param.Rubric{}, param.ErrRubricNotFound
	}
	if err != nil {
		return param.Rubric{}, err
	}
	return r.toRubric()
}
