package sqlxrepos

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/maendeleo/core/report"
)

type reportRow struct {
	ID           string    `db:"id"`
	StudentID    string    `db:"student_id"`
	TermID       string    `db:"term_id"`
	CycleID      string    `db:"cycle_id"`
	Status       string    `db:"status"`
	Version      int       `db:"version"`
	OverallScore float64   `db:"overall_score"`
	OverallGrade string    `db:"overall_grade"`
	Summary      []byte    `db:"summary"`
	Checksum     string    `db:"checksum"`
	WorkflowRev  int       `db:"workflow_rev"`
	Steps        []byte    `db:"steps"`
	PublishedAt  null.Time `db:"published_at"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r reportRow) toReport() (report.Report, error) {
	var summary report.SummaryDocument
	if err := json.Unmarshal(r.Summary, &summary); err != nil {
		return report.Report{}, errors.Wrap(err, "decoding report summary")
	}
	var steps []report.WorkflowStep
	if len(r.Steps) > 0 {
		if err := json.Unmarshal(r.Steps, &steps); err != nil {
			return report.Report{}, errors.Wrap(err, "decoding workflow steps")
		}
	}
	return report.Report{
		ID:           r.ID,
		StudentID:    r.StudentID,
		TermID:       r.TermID,
		CycleID:      r.CycleID,
		Status:       report.Status(r.Status),
		Version:      r.Version,
		OverallScore: r.OverallScore,
		OverallGrade: r.OverallGrade,
		Summary:      summary,
		Checksum:     r.Checksum,
		WorkflowRev:  r.WorkflowRev,
		Steps:        steps,
		PublishedAt:  r.PublishedAt.Time,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}, nil
}

func encodeReport(r report.Report) (summary, steps []byte, err error) {
	if summary, err = json.Marshal(r.Summary); err != nil {
		return nil, nil, errors.Wrap(err, "encoding report summary")
	}
	if r.Steps != nil {
		if steps, err = json.Marshal(r.Steps); err != nil {
			return nil, nil, errors.Wrap(err, "encoding workflow steps")
		}
	}
	return summary, steps, nil
}

type reportRepository struct {
	db *sqlx.DB
}

var _ report.Repository = (*reportRepository)(nil) // interface compliance check

func NewReportRepository(db *sqlx.DB) report.Repository {
	return &reportRepository{db: db}
}

func (repo *reportRepository) CreateReport(r report.Report) (report.Report, error) {
	summary, steps, err := encodeReport(r)
	if err != nil {
		return report.Report{}, err
	}
	_, err = repo.db.Exec(`
		INSERT INTO report (id, student_id, term_id, cycle_id, status, version,
		                    overall_score, overall_grade, summary, checksum,
		                    workflow_rev, steps, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		r.ID, r.StudentID, r.TermID, r.CycleID, string(r.Status), r.Version,
		r.OverallScore, r.OverallGrade, summary, r.Checksum,
		r.WorkflowRev, steps, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return report.Report{}, err
	}
	return r, nil
}

func (repo *reportRepository) GetReportByID(id string) (report.Report, error) {
	var r reportRow
	err := repo.db.Get(&r, `SELECT * FROM report WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return report.Report{}, report.ErrNotFound
	}
	if err != nil {
		return report.Report{}, err
	}
	return r.toReport()
}

func (repo *reportRepository) GetLatestReport(studentID, termID, cycleID string) (report.Report, error) {
	var r reportRow
	err := repo.db.Get(&r, `
		SELECT * FROM report
		WHERE student_id = $1 AND term_id = $2 AND cycle_id = $3
		ORDER BY version DESC LIMIT 1`,
		studentID, termID, cycleID,
	)
	if err == sql.ErrNoRows {
		return report.Report{}, report.ErrNotFound
	}
	if err != nil {
		return report.Report{}, err
	}
	return r.toReport()
}

func (repo *reportRepository) UpdateDraftReport(r report.Report) (report.Report, error) {
	summary, _, err := encodeReport(r)
	if err != nil {
		return report.Report{}, err
	}
	res, err := repo.db.Exec(`
		UPDATE report SET
			summary       = $2,
			checksum      = $3,
			overall_score = $4,
			overall_grade = $5,
			version       = $6,
			updated_at    = $7
		WHERE id = $1 AND status = $8`,
		r.ID, summary, r.Checksum, r.OverallScore, r.OverallGrade, r.Version,
		r.UpdatedAt, string(report.StatusDraft),
	)
	if err != nil {
		return report.Report{}, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return report.Report{}, err
	} else if n == 0 {
		return report.Report{}, report.ErrNotDraft
	}
	return r, nil
}

// UpdateReportWorkflow persists a workflow transition guarded by the stored
// workflow_rev; a zero row count means someone transitioned first.
func (repo *reportRepository) UpdateReportWorkflow(r report.Report, expectedRev int) (report.Report, error) {
	_, steps, err := encodeReport(r)
	if err != nil {
		return report.Report{}, err
	}
	var row reportRow
	err = repo.db.Get(&row, `
		UPDATE report SET
			status       = $2,
			steps        = $3,
			workflow_rev = workflow_rev + 1,
			published_at = $4,
			updated_at   = $5
		WHERE id = $1 AND workflow_rev = $6
		RETURNING *`,
		r.ID, string(r.Status), steps,
		null.NewTime(r.PublishedAt.UTC(), !r.PublishedAt.IsZero()), r.UpdatedAt, expectedRev,
	)
	if err == sql.ErrNoRows {
		return report.Report{}, report.ErrVersionConflict
	}
	if err != nil {
		return report.Report{}, err
	}
	return row.toReport()
}
