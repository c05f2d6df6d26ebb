package mocks

import (
	"context"
	"errors"
	"sync"

	"github.com/mcoot/treason-stats/internal/storage"
)

// ErrInjected is the default failure returned by FaultyStore
var ErrInjected = errors.New("injected store failure")

// Op names a DocumentStore operation
type Op string

const (
	OpExists      Op = "exists"
	OpCreate      Op = "create"
	OpGet         Op = "get"
	OpSave        Op = "save"
	OpMerge       Op = "merge"
	OpDefineViews Op = "define_views"
	OpQuery       Op = "query"
)

// FaultyStore wraps a DocumentStore, counting calls and failing chosen
// operations on demand
type FaultyStore struct {
	inner storage.DocumentStore

	mu        sync.Mutex
	failures  map[Op]error
	calls     map[Op]int
	mergeGate chan struct{}
}

// Ensure FaultyStore implements DocumentStore
var _ storage.DocumentStore = (*FaultyStore)(nil)

// NewFaultyStore wraps inner
func NewFaultyStore(inner storage.DocumentStore) *FaultyStore {
	return &FaultyStore{
		inner:    inner,
		failures: make(map[Op]error),
		calls:    make(map[Op]int),
	}
}

// Fail makes every later call to op return err (ErrInjected if nil)
func (f *FaultyStore) Fail(op Op, err error) {
	if err == nil {
		err = ErrInjected
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op] = err
}

// Heal stops failing op
func (f *FaultyStore) Heal(op Op) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.failures, op)
}

// Calls returns how many times op has been invoked
func (f *FaultyStore) Calls(op Op) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// BlockMerges holds every Merge until the returned release func is called
func (f *FaultyStore) BlockMerges() (release func()) {
	gate := make(chan struct{})
	f.mu.Lock()
	f.mergeGate = gate
	f.mu.Unlock()

	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

func (f *FaultyStore) enter(op Op) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	return f.failures[op]
}

func (f *FaultyStore) Exists(ctx context.Context) (bool, error) {
	if err := f.enter(OpExists); err != nil {
		return false, err
	}
	return f.inner.Exists(ctx)
}

func (f *FaultyStore) Create(ctx context.Context) error {
	if err := f.enter(OpCreate); err != nil {
		return err
	}
	return f.inner.Create(ctx)
}

func (f *FaultyStore) Get(ctx context.Context, id string, out any) error {
	if err := f.enter(OpGet); err != nil {
		return err
	}
	return f.inner.Get(ctx, id, out)
}

func (f *FaultyStore) Save(ctx context.Context, id string, doc any) (string, error) {
	if err := f.enter(OpSave); err != nil {
		return "", err
	}
	return f.inner.Save(ctx, id, doc)
}

func (f *FaultyStore) Merge(ctx context.Context, id string, fields map[string]any) error {
	if err := f.enter(OpMerge); err != nil {
		return err
	}

	f.mu.Lock()
	gate := f.mergeGate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return f.inner.Merge(ctx, id, fields)
}

func (f *FaultyStore) DefineViews(ctx context.Context, design string, views storage.Views) error {
	if err := f.enter(OpDefineViews); err != nil {
		return err
	}
	return f.inner.DefineViews(ctx, design, views)
}

func (f *FaultyStore) Query(ctx context.Context, view string, opts storage.QueryOptions) ([]storage.Row, error) {
	if err := f.enter(OpQuery); err != nil {
		return nil, err
	}
	return f.inner.Query(ctx, view, opts)
}
