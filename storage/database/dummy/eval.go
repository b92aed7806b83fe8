package dummydb

import (
	"time"

	"github.com/trezcool/maendeleo/core/eval"
)

type evalRepository struct {
	db *evalTable
}

var _ eval.Repository = (*evalRepository)(nil) // interface compliance check

func NewEvalRepository(db *DB) eval.Repository {
	return &evalRepository{db: db.eval}
}

// SubmitEvaluation supersedes the current version for the submission key and
// inserts ev as the next one. The whole read-modify-write happens under one
// write lock, which is the in-memory stand-in for a serializable transaction.
func (repo *evalRepository) SubmitEvaluation(ev eval.Evaluation) (eval.Evaluation, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	ev.Version = 1
	for _, prev := range repo.db.table {
		if prev.Superseded {
			continue
		}
		if prev.StudentID == ev.StudentID &&
			prev.ParameterID == ev.ParameterID &&
			prev.EvaluatorID == ev.EvaluatorID &&
			prev.CycleID == ev.CycleID {
			prev.Superseded = true
			prev.UpdatedAt = ev.CreatedAt
			ev.Version = prev.Version + 1
			break
		}
	}

	repo.db.table[ev.ID] = &ev
	return ev, nil
}

func (repo *evalRepository) GetLatestEvaluation(studentID, parameterID, evaluatorID, cycleID string) (eval.Evaluation, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, ev := range repo.db.table {
		if ev.Superseded {
			continue
		}
		if ev.StudentID == studentID &&
			ev.ParameterID == parameterID &&
			ev.EvaluatorID == evaluatorID &&
			ev.CycleID == cycleID {
			return *ev, nil
		}
	}
	return eval.Evaluation{}, eval.ErrNotFound
}

func (repo *evalRepository) QueryCurrentEvaluations(studentID, parameterID, cycleID string) ([]eval.Evaluation, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var evs []eval.Evaluation
	for _, ev := range repo.db.table {
		if ev.Superseded {
			continue
		}
		if ev.StudentID == studentID && ev.ParameterID == parameterID && ev.CycleID == cycleID {
			evs = append(evs, *ev)
		}
	}
	return evs, nil
}

func (repo *evalRepository) CreateCycle(c eval.EvaluationCycle) (eval.EvaluationCycle, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.cycles[c.ID] = &c
	return c, nil
}

func (repo *evalRepository) GetCycleByID(id string) (eval.EvaluationCycle, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if c, ok := repo.db.cycles[id]; ok {
		return *c, nil
	}
	return eval.EvaluationCycle{}, eval.ErrCycleNotFound
}

func (repo *evalRepository) UpdateCycleStatus(id string, status eval.CycleStatus) (eval.EvaluationCycle, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	c, ok := repo.db.cycles[id]
	if !ok {
		return eval.EvaluationCycle{}, eval.ErrCycleNotFound
	}
	c.Status = status
	c.UpdatedAt = time.Now().UTC()
	return *c, nil
}

func (repo *evalRepository) CreateAssignment(a eval.EvaluatorAssignment) (eval.EvaluatorAssignment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.assignments[a.ParameterID] = &a
	return a, nil
}

func (repo *evalRepository) GetAssignment(parameterID string) (eval.EvaluatorAssignment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if a, ok := repo.db.assignments[parameterID]; ok {
		return *a, nil
	}
	return eval.EvaluatorAssignment{}, eval.ErrAssignmentNotFound
}
