package dummydb

import (
	"github.com/trezcool/maendeleo/core/report"
)

type reportRepository struct {
	db *reportTable
}

var _ report.Repository = (*reportRepository)(nil) // interface compliance check

func NewReportRepository(db *DB) report.Repository {
	return &reportRepository{db: db.report}
}

func (repo *reportRepository) CreateReport(r report.Report) (report.Report, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.table[r.ID] = &r
	return r, nil
}

func (repo *reportRepository) GetReportByID(id string) (report.Report, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if r, ok := repo.db.table[id]; ok {
		return *r, nil
	}
	return report.Report{}, report.ErrNotFound
}

func (repo *reportRepository) GetLatestReport(studentID, termID, cycleID string) (report.Report, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var (
		latest report.Report
		found  bool
	)
	for _, r := range repo.db.table {
		if r.StudentID != studentID || r.TermID != termID || r.CycleID != cycleID {
			continue
		}
		if !found || r.Version > latest.Version {
			latest = *r
			found = true
		}
	}
	if !found {
		return report.Report{}, report.ErrNotFound
	}
	return latest, nil
}

func (repo *reportRepository) UpdateDraftReport(r report.Report) (report.Report, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[r.ID]
	if !ok {
		return report.Report{}, report.ErrNotFound
	}
	if orig.Status != report.StatusDraft {
		return report.Report{}, report.ErrNotDraft
	}

	orig.Summary = r.Summary
	orig.Checksum = r.Checksum
	orig.OverallScore = r.OverallScore
	orig.OverallGrade = r.OverallGrade
	orig.Version = r.Version
	orig.UpdatedAt = r.UpdatedAt
	return *orig, nil
}

func (repo *reportRepository) UpdateReportWorkflow(r report.Report, expectedRev int) (report.Report, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[r.ID]
	if !ok {
		return report.Report{}, report.ErrNotFound
	}
	if orig.WorkflowRev != expectedRev {
		return report.Report{}, report.ErrVersionConflict
	}

	orig.Status = r.Status
	orig.Steps = r.Steps
	orig.WorkflowRev = expectedRev + 1
	orig.PublishedAt = r.PublishedAt
	orig.UpdatedAt = r.UpdatedAt
	return *orig, nil
}
