package session

import (
	"fmt"
	"sync"

	"github.com/fxlv/trireme/internal/pipeline"
)

// Fake is an in-memory Session for tests: it never touches a real cluster.
// QueryFunc, if set, is called for every Execute and decides the rows (or
// error) to return; otherwise Execute returns Rows unconditionally.
//
// Fake records every query it was asked to execute, for assertions in
// tests that care about exact query shapes (e.g. the delete/update drivers).
type Fake struct {
	mu        sync.Mutex
	Rows      []pipeline.Row
	QueryFunc func(query string) ([]pipeline.Row, error)
	Queries   []string
	Closed    bool
}

func (f *Fake) Execute(query string) (Iter, error) {
	f.mu.Lock()
	f.Queries = append(f.Queries, query)
	f.mu.Unlock()

	rows := f.Rows
	var err error
	if f.QueryFunc != nil {
		rows, err = f.QueryFunc(query)
	}
	if err != nil {
		return nil, err
	}
	return &fakeIter{rows: rows}, nil
}

func (f *Fake) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
}

// ExecutedQueries returns a copy of every query string passed to Execute.
func (f *Fake) ExecutedQueries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.Queries))
	copy(out, f.Queries)
	return out
}

type fakeIter struct {
	rows []pipeline.Row
	pos  int
}

func (it *fakeIter) Next() (pipeline.Row, bool) {
	if it.pos >= len(it.rows) {
		return nil, false
	}
	row := it.rows[it.pos]
	it.pos++
	return row, true
}

func (it *fakeIter) Err() error { return nil }

// FailingConnect is a Config.Host sentinel value tests can use with a
// custom factory to simulate a ConnectFailure without a real cluster.
const FailingConnect = "unreachable-host"

// ErrFakeConnect is returned by a connect factory stub standing in for a
// real network failure.
var ErrFakeConnect = fmt.Errorf("session: simulated connect failure")
