package dummydb

import (
	"context"
	"sync"

	"github.com/trezcool/maendeleo/core/report"
)

// Leaser is an in-process compile lease for single-node setups and tests.
// The redis locker takes over when compiles may run on several nodes.
type Leaser struct {
	mu   sync.Mutex
	held map[string]bool
}

var _ report.Leaser = (*Leaser)(nil) // interface compliance check

func NewLeaser() *Leaser {
	return &Leaser{held: make(map[string]bool)}
}

func (l *Leaser) Acquire(_ context.Context, key string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held[key] {
		return nil, report.ErrCompilationInProgress
	}
	l.held[key] = true

	release := func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
	}
	return release, nil
}
