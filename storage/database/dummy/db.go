package dummydb

import (
	"sync"

	"github.com/trezcool/maendeleo/core/eval"
	"github.com/trezcool/maendeleo/core/param"
	"github.com/trezcool/maendeleo/core/report"
	"github.com/trezcool/maendeleo/core/user"
)

type (
	DB struct {
		user   *userTable
		param  *paramTable
		eval   *evalTable
		report *reportTable
	}

	userTable struct {
		sync.RWMutex
		table    map[string]*user.User
		profiles map[string]*user.StudentProfile // keyed by user id
	}

	paramTable struct {
		sync.RWMutex
		table   map[string]*param.Parameter
		rubrics map[string][]param.Rubric // keyed by parameter id, ascending versions
	}

	evalTable struct {
		sync.RWMutex
		table       map[string]*eval.Evaluation
		cycles      map[string]*eval.EvaluationCycle
		assignments map[string]*eval.EvaluatorAssignment // keyed by parameter id
	}

	reportTable struct {
		sync.RWMutex
		table map[string]*report.Report
	}
)

func Open() (*DB, error) {
	db := &DB{
		user: &userTable{
			table:    make(map[string]*user.User),
			profiles: make(map[string]*user.StudentProfile),
		},
		param: &paramTable{
			table:   make(map[string]*param.Parameter),
			rubrics: make(map[string][]param.Rubric),
		},
		eval: &evalTable{
			table:       make(map[string]*eval.Evaluation),
			cycles:      make(map[string]*eval.EvaluationCycle),
			assignments: make(map[string]*eval.EvaluatorAssignment),
		},
		report: &reportTable{table: make(map[string]*report.Report)},
	}
	return db, nil
}

// SetStudentProfile registers the cohort info analytics ranks a student by.
func (db *DB) SetStudentProfile(p user.StudentProfile) {
	db.user.Lock()
	defer db.user.Unlock()
	db.user.profiles[p.UserID] = &p
}

// StudentProfile returns the stored cohort info for a student, if any.
func (db *DB) StudentProfile(userID string) (user.StudentProfile, bool) {
	db.user.RLock()
	defer db.user.RUnlock()

	if p, ok := db.user.profiles[userID]; ok {
		return *p, true
	}
	return user.StudentProfile{}, false
}
