package dummydb

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/trezcool/maendeleo/core/analytics"
	"github.com/trezcool/maendeleo/core/report"
)

type analyticsRepository struct {
	reports *reportTable
	users   *userTable
}

var _ analytics.Repository = (*analyticsRepository)(nil) // interface compliance check

func NewAnalyticsRepository(db *DB) analytics.Repository {
	return &analyticsRepository{reports: db.report, users: db.user}
}

func (repo *analyticsRepository) QueryPublishedScores(studentID string) ([]analytics.ScorePoint, error) {
	repo.reports.RLock()
	defer repo.reports.RUnlock()

	var points []analytics.ScorePoint
	for _, r := range repo.reports.table {
		if r.StudentID != studentID || !r.IsPublished() {
			continue
		}
		points = append(points, analytics.ScorePoint{
			TermID:      r.TermID,
			CycleID:     r.CycleID,
			Score:       r.OverallScore,
			PublishedAt: r.PublishedAt,
		})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].PublishedAt.Before(points[j].PublishedAt) })
	return points, nil
}

func (repo *analyticsRepository) QueryCohortScores(studentID, termID string) (analytics.CohortScores, error) {
	latest := repo.latestPublishedByStudent(termID)

	repo.users.RLock()
	defer repo.users.RUnlock()

	var cohorts analytics.CohortScores
	self, hasProfile := repo.users.profiles[studentID]
	for sid, r := range latest {
		cohorts.School = append(cohorts.School, r.OverallScore)
		if !hasProfile {
			continue
		}
		if peer, ok := repo.users.profiles[sid]; ok {
			if peer.ClassID == self.ClassID {
				cohorts.Class = append(cohorts.Class, r.OverallScore)
			}
			if peer.GradeLevel == self.GradeLevel {
				cohorts.Grade = append(cohorts.Grade, r.OverallScore)
			}
		}
	}
	return cohorts, nil
}

func (repo *analyticsRepository) GetPublishedCompleteness(studentID, termID string) (float64, error) {
	latest := repo.latestPublishedByStudent(termID)
	r, ok := latest[studentID]
	if !ok {
		return 0, analytics.ErrRecordNotFound
	}
	return r.Summary.Meta.Quality.Completeness, nil
}

// latestPublishedByStudent resolves the highest published version per student
// for the term; older published versions stay out of the cohorts.
func (repo *analyticsRepository) latestPublishedByStudent(termID string) map[string]report.Report {
	repo.reports.RLock()
	defer repo.reports.RUnlock()

	latest := make(map[string]report.Report)
	for _, r := range repo.reports.table {
		if r.TermID != termID || !r.IsPublished() {
			continue
		}
		if prev, ok := latest[r.StudentID]; !ok || r.Version > prev.Version {
			latest[r.StudentID] = *r
		}
	}
	return latest
}

// AnalyticsCache is an in-process analytics.Cache for tests and single-node
// setups; entries expire lazily on read.
type AnalyticsCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	rec       analytics.Record
	expiresAt time.Time
}

var _ analytics.Cache = (*AnalyticsCache)(nil) // interface compliance check

func NewAnalyticsCache() *AnalyticsCache {
	return &AnalyticsCache{entries: make(map[string]cacheEntry)}
}

func cacheKey(studentID, termID string) string { return studentID + ":" + termID }

func (c *AnalyticsCache) GetRecord(_ context.Context, studentID, termID string) (analytics.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[cacheKey(studentID, termID)]
	if !ok || time.Now().After(entry.expiresAt) {
		delete(c.entries, cacheKey(studentID, termID))
		return analytics.Record{}, analytics.ErrCacheMiss
	}
	return entry.rec, nil
}

func (c *AnalyticsCache) SetRecord(_ context.Context, rec analytics.Record, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[cacheKey(rec.StudentID, rec.TermID)] = cacheEntry{rec: rec, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (c *AnalyticsCache) DeleteRecord(_ context.Context, studentID, termID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, cacheKey(studentID, termID))
	return nil
}
