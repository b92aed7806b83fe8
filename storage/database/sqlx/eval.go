package sqlxrepos

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/maendeleo/core/eval"
)

type evaluationRow struct {
	ID            string         `db:"id"`
	StudentID     string         `db:"student_id"`
	ParameterID   string         `db:"parameter_id"`
	EvaluatorID   string         `db:"evaluator_id"`
	Role          string         `db:"role"`
	CycleID       string         `db:"cycle_id"`
	Score         float64        `db:"score"`
	GradeLetter   string         `db:"grade_letter"`
	RubricVersion int            `db:"rubric_version"`
	Remark        string         `db:"remark"`
	Evidence      pq.StringArray `db:"evidence"`
	Confidence    float64        `db:"confidence"`
	Status        string         `db:"status"`
	Version       int            `db:"version"`
	Superseded    bool           `db:"superseded"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

func (r evaluationRow) toEvaluation() eval.Evaluation {
	return eval.Evaluation{
		ID:            r.ID,
		StudentID:     r.StudentID,
		ParameterID:   r.ParameterID,
		EvaluatorID:   r.EvaluatorID,
		Role:          eval.Role(r.Role),
		CycleID:       r.CycleID,
		Score:         r.Score,
		GradeLetter:   r.GradeLetter,
		RubricVersion: r.RubricVersion,
		Remark:        r.Remark,
		Evidence:      r.Evidence,
		Confidence:    r.Confidence,
		Status:        eval.Status(r.Status),
		Version:       r.Version,
		Superseded:    r.Superseded,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

type cycleRow struct {
	ID           string         `db:"id"`
	TermID       string         `db:"term_id"`
	Name         string         `db:"name"`
	StartsAt     time.Time      `db:"starts_at"`
	EndsAt       time.Time      `db:"ends_at"`
	ParameterIDs pq.StringArray `db:"parameter_ids"`
	Roles        pq.StringArray `db:"roles"`
	Status       string         `db:"status"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

func (r cycleRow) toCycle() eval.EvaluationCycle {
	roles := make([]eval.Role, 0, len(r.Roles))
	for _, role := range r.Roles {
		roles = append(roles, eval.Role(role))
	}
	return eval.EvaluationCycle{
		ID:           r.ID,
		TermID:       r.TermID,
		Name:         r.Name,
		StartsAt:     r.StartsAt,
		EndsAt:       r.EndsAt,
		ParameterIDs: r.ParameterIDs,
		Roles:        roles,
		Status:       eval.CycleStatus(r.Status),
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type assignmentRow struct {
	ParameterID string    `db:"parameter_id"`
	Weights     []byte    `db:"weights"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r assignmentRow) toAssignment() (eval.EvaluatorAssignment, error) {
	var weights []eval.RoleWeight
	if err := json.Unmarshal(r.Weights, &weights); err != nil {
		return eval.EvaluatorAssignment{}, errors.Wrap(err, "decoding assignment weights")
	}
	return eval.EvaluatorAssignment{
		ParameterID: r.ParameterID,
		Weights:     weights,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}, nil
}

type evalRepository struct {
	db *sqlx.DB
}

var _ eval.Repository = (*evalRepository)(nil) // interface compliance check

func NewEvalRepository(db *sqlx.DB) eval.Repository {
	return &evalRepository{db: db}
}

// SubmitEvaluation supersedes the live version for the submission key and
// inserts ev as the next one, in a single transaction. The partial unique
// index on the key serializes concurrent submitters.
func (repo *evalRepository) SubmitEvaluation(ev eval.Evaluation) (eval.Evaluation, error) {
	tx, err := repo.db.Beginx()
	if err != nil {
		return eval.Evaluation{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var prevVersion int
	err = tx.Get(&prevVersion, `
		UPDATE evaluation SET superseded = TRUE, updated_at = $5
		WHERE student_id = $1 AND parameter_id = $2 AND evaluator_id = $3 AND cycle_id = $4
		  AND NOT superseded
		RETURNING version`,
		ev.StudentID, ev.ParameterID, ev.EvaluatorID, ev.CycleID, ev.CreatedAt,
	)
	switch err {
	case nil:
		ev.Version = prevVersion + 1
	case sql.ErrNoRows:
		ev.Version = 1
	default:
		return eval.Evaluation{}, err
	}

	_, err = tx.Exec(`
		INSERT INTO evaluation (id, student_id, parameter_id, evaluator_id, role, cycle_id,
		                        score, grade_letter, rubric_version, remark, evidence,
		                        confidence, status, version, superseded, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, FALSE, $15, $16)`,
		ev.ID, ev.StudentID, ev.ParameterID, ev.EvaluatorID, ev.Role.String(), ev.CycleID,
		ev.Score, ev.GradeLetter, ev.RubricVersion, ev.Remark, pq.StringArray(ev.Evidence),
		ev.Confidence, string(ev.Status), ev.Version, ev.CreatedAt, ev.UpdatedAt,
	)
	if err != nil {
		return eval.Evaluation{}, err
	}
	if err = tx.Commit(); err != nil {
		return eval.Evaluation{}, err
	}
	return ev, nil
}

func (repo *evalRepository) GetLatestEvaluation(studentID, parameterID, evaluatorID, cycleID string) (eval.Evaluation, error) {
	var r evaluationRow
	err := repo.db.Get(&r, `
		SELECT * FROM evaluation
		WHERE student_id = $1 AND parameter_id = $2 AND evaluator_id = $3 AND cycle_id = $4
		  AND NOT superseded`,
		studentID, parameterID, evaluatorID, cycleID,
	)
	if err == sql.ErrNoRows {
		return eval.Evaluation{}, eval.ErrNotFound
	}
	if err != nil {
		return eval.Evaluation{}, err
	}
	return r.toEvaluation(), nil
}

func (repo *evalRepository) QueryCurrentEvaluations(studentID, parameterID, cycleID string) ([]eval.Evaluation, error) {
	var rows []evaluationRow
	err := repo.db.Select(&rows, `
		SELECT * FROM evaluation
		WHERE student_id = $1 AND parameter_id = $2 AND cycle_id = $3 AND NOT superseded
		ORDER BY id`,
		studentID, parameterID, cycleID,
	)
	if err != nil {
		return nil, err
	}
	evs := make([]eval.Evaluation, 0, len(rows))
	for _, r := range rows {
		evs = append(evs, r.toEvaluation())
	}
	return evs, nil
}

func (repo *evalRepository) CreateCycle(c eval.EvaluationCycle) (eval.EvaluationCycle, error) {
	roles := make(pq.StringArray, 0, len(c.Roles))
	for _, role := range c.Roles {
		roles = append(roles, role.String())
	}
	_, err := repo.db.Exec(`
		INSERT INTO evaluation_cycle (id, term_id, name, starts_at, ends_at, parameter_ids,
		                              roles, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		c.ID, c.TermID, c.Name, c.StartsAt, c.EndsAt, pq.StringArray(c.ParameterIDs),
		roles, string(c.Status), c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return eval.EvaluationCycle{}, err
	}
	return c, nil
}

func (repo *evalRepository) GetCycleByID(id string) (eval.EvaluationCycle, error) {
	var r cycleRow
	err := repo.db.Get(&r, `SELECT * FROM evaluation_cycle WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return eval.EvaluationCycle{}, eval.ErrCycleNotFound
	}
	if err != nil {
		return eval.EvaluationCycle{}, err
	}
	return r.toCycle(), nil
}

func (repo *evalRepository) UpdateCycleStatus(id string, status eval.CycleStatus) (eval.EvaluationCycle, error) {
	var r cycleRow
	err := repo.db.Get(&r, `
		UPDATE evaluation_cycle SET status = $2, updated_at = $3 WHERE id = $1 RETURNING *`,
		id, string(status), time.Now().UTC(),
	)
	if err == sql.ErrNoRows {
		return eval.EvaluationCycle{}, eval.ErrCycleNotFound
	}
	if err != nil {
		return eval.EvaluationCycle{}, err
	}
	return r.toCycle(), nil
}

func (repo *evalRepository) CreateAssignment(a eval.EvaluatorAssignment) (eval.EvaluatorAssignment, error) {
	weights, err := json.Marshal(a.Weights)
	if err != nil {
		return eval.EvaluatorAssignment{}, errors.Wrap(err, "encoding assignment weights")
	}
	_, err = repo.db.Exec(`
		INSERT INTO evaluator_assignment (parameter_id, weights, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (parameter_id) DO UPDATE SET weights = $2, updated_at = $4`,
		a.ParameterID, weights, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return eval.EvaluatorAssignment{}, err
	}
	return a, nil
}

func (repo *evalRepository) GetAssignment(parameterID string) (eval.EvaluatorAssignment, error) {
	var r assignmentRow
	err := repo.db.Get(&r, `SELECT * FROM evaluator_assignment WHERE parameter_id = $1`, parameterID)
	if err == sql.ErrNoRows {
		return eval.EvaluatorAssignment{}, eval.ErrAssignmentNotFound
	}
	if err != nil {
		return eval.EvaluatorAssignment{}, err
	}
	return r.toAssignment()
}
