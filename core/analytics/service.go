package analytics

import (
	"context"
	"errors"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/trezcool/maendeleo/core"
)

var (
	// errors
	ErrRecordNotFound = errors.New("analytics record not found")

	// ErrCacheMiss is returned by Cache implementations when no entry exists.
	ErrCacheMiss = errors.New("analytics record not cached")
)

type (
	// CohortScores are the published overall scores of a student's peers for
	// one term, from narrowest cohort to widest.
	CohortScores struct {
		Class  []float64
		Grade  []float64
		School []float64
	}

	Repository interface {
		// QueryPublishedScores returns the student's published overall scores
		// ordered by publication time, oldest first.
		QueryPublishedScores(studentID string) ([]ScorePoint, error)
		// QueryCohortScores returns the published scores of the student's
		// class, grade and school cohorts for termID (the student included).
		QueryCohortScores(studentID, termID string) (CohortScores, error)
		// GetPublishedCompleteness returns the completeness indicator of the
		// student's published report for termID, ErrRecordNotFound if none.
		GetPublishedCompleteness(studentID, termID string) (float64, error)
	}

	// Cache holds regenerable records; a miss or a cache outage is never an
	// error for the caller, only a recompute.
	Cache interface {
		GetRecord(ctx context.Context, studentID, termID string) (Record, error)
		SetRecord(ctx context.Context, rec Record, ttl time.Duration) error
		DeleteRecord(ctx context.Context, studentID, termID string) error
	}

	Service struct {
		repo   Repository
		cache  Cache
		logger core.Logger
		conf   *core.Config
	}
)

func NewService(repo Repository, cache Cache, logger core.Logger, conf *core.Config) *Service {
	return &Service{repo: repo, cache: cache, logger: logger, conf: conf}
}

// Get returns the analytics record for (student, term), serving from cache
// when possible and recomputing it from published reports otherwise.
func (svc *Service) Get(ctx context.Context, studentID, termID string) (Record, error) {
	if svc.cache != nil {
		rec, err := svc.cache.GetRecord(ctx, studentID, termID)
		switch {
		case err == nil:
			return rec, nil
		case errors.Is(err, ErrCacheMiss):
		default:
			svc.logger.Warn("analytics cache read failed", pkgerrors.Wrap(err, studentID))
		}
	}

	rec, err := svc.generate(studentID, termID)
	if err != nil {
		return Record{}, err
	}

	if svc.cache != nil {
		if err := svc.cache.SetRecord(ctx, rec, svc.conf.Redis.AnalyticsTTL); err != nil {
			svc.logger.Warn("analytics cache write failed", pkgerrors.Wrap(err, studentID))
		}
	}
	return rec, nil
}

// Invalidate drops the cached record so the next read recomputes; called
// after a new report publishes for the student.
func (svc *Service) Invalidate(ctx context.Context, studentID, termID string) {
	if svc.cache == nil {
		return
	}
	if err := svc.cache.DeleteRecord(ctx, studentID, termID); err != nil {
		svc.logger.Warn("analytics cache invalidation failed", pkgerrors.Wrap(err, studentID))
	}
}

func (svc *Service) generate(studentID, termID string) (Record, error) {
	history, err := svc.repo.QueryPublishedScores(studentID)
	if err != nil {
		return Record{}, err
	}
	if len(history) == 0 {
		return Record{}, ErrRecordNotFound
	}

	cohorts, err := svc.repo.QueryCohortScores(studentID, termID)
	if err != nil {
		return Record{}, err
	}

	latest := history[len(history)-1].Score
	rec := Record{
		StudentID: studentID,
		TermID:    termID,
		Percentiles: Percentiles{
			Class:  PercentileRank(cohorts.Class, latest),
			Grade:  PercentileRank(cohorts.Grade, latest),
			School: PercentileRank(cohorts.School, latest),
		},
		Trajectory:  ClassifyGrowth(history, svc.conf.Hpc.GrowthDeadBand),
		GeneratedAt: time.Now().UTC(),
	}

	pred, err := PredictNext(history, svc.conf.Hpc.PredictionWindow)
	switch {
	case err == nil:
		rec.Prediction = &pred
	case errors.Is(err, ErrInsufficientHistory):
		// a short history is normal for new students; no prediction then
	default:
		return Record{}, err
	}

	rec.Risks = svc.riskIndicators(studentID, termID, rec)
	return rec, nil
}

// riskIndicators flags students who may need intervention. Indicators are
// advisory only and never block any workflow.
func (svc *Service) riskIndicators(studentID, termID string, rec Record) []string {
	var risks []string
	if rec.Trajectory == TrajectoryDeclining {
		risks = append(risks, "declining_trajectory")
	}
	if rec.Percentiles.School < 10 {
		risks = append(risks, "bottom_decile")
	}

	completeness, err := svc.repo.GetPublishedCompleteness(studentID, termID)
	switch {
	case err == nil:
		if completeness < svc.conf.Hpc.CompletenessRisk {
			risks = append(risks, "low_completeness")
		}
	case errors.Is(err, ErrRecordNotFound):
	default:
		svc.logger.Warn("loading report completeness", pkgerrors.Wrap(err, studentID))
	}
	return risks
}
