package sqlxrepos

import (
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/maendeleo/core/analytics"
)

type analyticsRepository struct {
	db *sqlx.DB
}

var _ analytics.Repository = (*analyticsRepository)(nil) // interface compliance check

func NewAnalyticsRepository(db *sqlx.DB) analytics.Repository {
	return &analyticsRepository{db: db}
}

func (repo *analyticsRepository) QueryPublishedScores(studentID string) ([]analytics.ScorePoint, error) {
	type pointRow struct {
		TermID      string    `db:"term_id"`
		CycleID     string    `db:"cycle_id"`
		Score       float64   `db:"score"`
		PublishedAt time.Time `db:"published_at"`
	}
	// one point per (term, cycle): the latest published version only,
	// ordered chronologically for trajectory and prediction
	var rows []pointRow
	err := repo.db.Select(&rows, `
		SELECT term_id, cycle_id, score, published_at FROM (
			SELECT DISTINCT ON (term_id, cycle_id)
			       term_id, cycle_id, overall_score AS score, published_at
			FROM report
			WHERE student_id = $1 AND status = 'published'
			ORDER BY term_id, cycle_id, version DESC
		) latest
		ORDER BY published_at`,
		studentID,
	)
	if err != nil {
		return nil, err
	}
	points := make([]analytics.ScorePoint, 0, len(rows))
	for _, r := range rows {
		points = append(points, analytics.ScorePoint(r))
	}
	return points, nil
}

func (repo *analyticsRepository) QueryCohortScores(studentID, termID string) (analytics.CohortScores, error) {
	type peerRow struct {
		StudentID    string      `db:"student_id"`
		OverallScore float64     `db:"overall_score"`
		ClassID      null.String `db:"class_id"`
		GradeLevel   null.Int    `db:"grade_level"`
	}
	var peers []peerRow
	err := repo.db.Select(&peers, `
		WITH latest AS (
			SELECT DISTINCT ON (student_id) student_id, overall_score
			FROM report
			WHERE term_id = $1 AND status = 'published'
			ORDER BY student_id, version DESC
		)
		SELECT l.student_id, l.overall_score, p.class_id, p.grade_level
		FROM latest l
		LEFT JOIN student_profile p ON p.user_id = l.student_id`,
		termID,
	)
	if err != nil {
		return analytics.CohortScores{}, err
	}

	var self *peerRow
	for i := range peers {
		if peers[i].StudentID == studentID {
			self = &peers[i]
			break
		}
	}

	var cohorts analytics.CohortScores
	for _, peer := range peers {
		cohorts.School = append(cohorts.School, peer.OverallScore)
		if self == nil {
			continue
		}
		if peer.ClassID.Valid && self.ClassID.Valid && peer.ClassID == self.ClassID {
			cohorts.Class = append(cohorts.Class, peer.OverallScore)
		}
		if peer.GradeLevel.Valid && self.GradeLevel.Valid && peer.GradeLevel == self.GradeLevel {
			cohorts.Grade = append(cohorts.Grade, peer.OverallScore)
		}
	}
	return cohorts, nil
}

func (repo *analyticsRepository) GetPublishedCompleteness(studentID, termID string) (float64, error) {
	var completeness float64
	err := repo.db.Get(&completeness, `
		SELECT COALESCE((summary -> 'meta' -> 'quality' ->> 'completeness')::float8, 0)
		FROM report
		WHERE student_id = $1 AND term_id = $2 AND status = 'published'
		ORDER BY version DESC LIMIT 1`,
		studentID, termID,
	)
	if err == sql.ErrNoRows {
		return 0, analytics.ErrRecordNotFound
	}
	if err != nil {
		return 0, err
	}
	return completeness, nil
}
