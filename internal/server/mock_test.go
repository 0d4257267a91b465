package server

import (
	"context"
	"sync"

	"github.com/velofit/fitcheck/internal/pipeline"
	"github.com/velofit/fitcheck/internal/store"
	"github.com/velofit/fitcheck/pkg/airtable"
)

// fakeChecker implements Checker with a canned result.
type fakeChecker struct {
	result *pipeline.Result
	err    error

	mu        sync.Mutex
	calls     int
	lastQuery pipeline.Query
}

func (f *fakeChecker) Check(_ context.Context, query pipeline.Query) (*pipeline.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastQuery = query
	if query.BikeInfo == "" || query.ProductURL == "" {
		return nil, pipeline.ErrMissingInput
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

// fakeStore implements store.Store in memory.
type fakeStore struct {
	mu      sync.Mutex
	runs    []store.CheckRun
	saveErr error
	listErr error
}

func (f *fakeStore) SaveCheck(_ context.Context, run store.CheckRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.runs = append(f.runs, run)
	return nil
}

func (f *fakeStore) ListChecks(_ context.Context, limit int) ([]store.CheckRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	if limit > 0 && limit < len(f.runs) {
		return f.runs[:limit], nil
	}
	return f.runs, nil
}

func (f *fakeStore) Migrate(context.Context) error { return nil }
func (f *fakeStore) Close() error                  { return nil }

func (f *fakeStore) saved() []store.CheckRun {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]store.CheckRun, len(f.runs))
	copy(out, f.runs)
	return out
}

// fakeAirtable implements airtable.Client.
type fakeAirtable struct {
	rec *airtable.Record
	err error

	mu         sync.Mutex
	calls      int
	lastFields map[string]any
}

func (f *fakeAirtable) CreateRecord(_ context.Context, _, _ string, fields map[string]any) (*airtable.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastFields = fields
	if f.err != nil {
		return nil, f.err
	}
	return f.rec, nil
}
