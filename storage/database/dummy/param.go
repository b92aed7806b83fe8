package dummydb

import (
	"github.com/trezcool/maendeleo/core/param"
)

type paramRepository struct {
	db *paramTable
}

var _ param.Repository = (*paramRepository)(nil) // interface compliance check

func NewParamRepository(db *DB) param.Repository {
	return &paramRepository{db: db.param}
}

func (repo *paramRepository) CreateParameter(p param.Parameter) (param.Parameter, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.table[p.ID] = &p
	return p, nil
}

func (repo *paramRepository) GetParameterByID(id string) (param.Parameter, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if p, ok := repo.db.table[id]; ok {
		return *p, nil
	}
	return param.Parameter{}, param.ErrNotFound
}

func (repo *paramRepository) QueryParametersByID(ids ...string) ([]param.Parameter, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	params := make([]param.Parameter, 0, len(ids))
	for _, id := range ids {
		if p, ok := repo.db.table[id]; ok {
			params = append(params, *p)
		}
	}
	return params, nil
}

func (repo *paramRepository) QueryActiveParameters() ([]param.Parameter, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var params []param.Parameter
	for _, p := range repo.db.table {
		if p.Active {
			params = append(params, *p)
		}
	}
	return params, nil
}

func (repo *paramRepository) SupersedeParameter(oldID string, replacement param.Parameter) (param.Parameter, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	old, ok := repo.db.table[oldID]
	if !ok {
		return param.Parameter{}, param.ErrNotFound
	}
	old.Active = false
	old.SupersededBy = replacement.ID
	old.UpdatedAt = replacement.CreatedAt

	repo.db.table[replacement.ID] = &replacement
	return replacement, nil
}

func (repo *paramRepository) CreateRubric(r param.Rubric) (param.Rubric, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.rubrics[r.ParameterID] = append(repo.db.rubrics[r.ParameterID], r)
	return r, nil
}

func (repo *paramRepository) GetRubric(parameterID string, version int) (param.Rubric, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, r := range repo.db.rubrics[parameterID] {
		if r.Version == version {
			return r, nil
		}
	}
	return param.Rubric{}, param.ErrRubricNotFound
}

func (repo *paramRepository) GetLatestRubric(parameterID string) (param.Rubric, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var (
		latest param.Rubric
		found  bool
	)
	for _, r := range repo.db.rubrics[parameterID] {
		if r.Published && r.Version > latest.Version {
			latest = r
			found = true
		}
	}
	if !found {
		return param.Rubric{}, param.ErrRubricNotFound
	}
	return latest, nil
}
