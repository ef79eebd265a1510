// Package memory is an in-process implementation of every audit repository
// plus a TxManager. It backs the "memory" database driver and the engine tests.
//
// Writers are serialized: a transaction holds the writer lock for its whole
// duration and restores a cloned state when fn fails or panics.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/heartmarshall/inventory-audit-backend/internal/domain"
)

type resultKey struct {
	session uuid.UUID
	item    int64
}

type state struct {
	plans         map[uuid.UUID]domain.AuditPlan
	sessions      map[uuid.UUID]domain.AuditSession
	expected      map[uuid.UUID]map[int64]domain.ExpectedItem
	scans         map[uuid.UUID]domain.Scan
	scanSeq       int64
	results       map[resultKey]domain.ItemResult
	discrepancies map[uuid.UUID]domain.Discrepancy
	actions       map[uuid.UUID]domain.Action
}

func newState() state {
	return state{
		plans:         map[uuid.UUID]domain.AuditPlan{},
		sessions:      map[uuid.UUID]domain.AuditSession{},
		expected:      map[uuid.UUID]map[int64]domain.ExpectedItem{},
		scans:         map[uuid.UUID]domain.Scan{},
		results:       map[resultKey]domain.ItemResult{},
		discrepancies: map[uuid.UUID]domain.Discrepancy{},
		actions:       map[uuid.UUID]domain.Action{},
	}
}

// clone copies every map. Pointer fields inside entities are treated as
// immutable values; slices and maps are copied per entity.
func (s state) clone() state {
	out := state{
		plans:         make(map[uuid.UUID]domain.AuditPlan, len(s.plans)),
		sessions:      maps.Clone(s.sessions),
		expected:      make(map[uuid.UUID]map[int64]domain.ExpectedItem, len(s.expected)),
		scans:         make(map[uuid.UUID]domain.Scan, len(s.scans)),
		scanSeq:       s.scanSeq,
		results:       maps.Clone(s.results),
		discrepancies: maps.Clone(s.discrepancies),
		actions:       maps.Clone(s.actions),
	}
	for k, v := range s.plans {
		out.plans[k] = clonePlan(v)
	}
	for k, v := range s.expected {
		out.expected[k] = maps.Clone(v)
	}
	for k, v := range s.scans {
		out.scans[k] = cloneScan(v)
	}
	return out
}

func clonePlan(p domain.AuditPlan) domain.AuditPlan {
	p.Scope = domain.PlanScope{
		LocationIDs:   slices.Clone(p.Scope.LocationIDs),
		DepartmentIDs: slices.Clone(p.Scope.DepartmentIDs),
		ItemIDs:       slices.Clone(p.Scope.ItemIDs),
	}
	return p
}

func cloneScan(s domain.Scan) domain.Scan {
	s.Metadata = maps.Clone(s.Metadata)
	return s
}

// Store holds the whole audit dataset in memory.
type Store struct {
	// txMu serializes writers, mu guards state.
	txMu sync.Mutex
	mu   sync.RWMutex
	st   state
}

// New creates an empty store.
func New() *Store {
	return &Store{st: newState()}
}

type txCtxKey struct{}

func inTx(ctx context.Context) bool {
	_, ok := ctx.Value(txCtxKey{}).(*Store)
	return ok
}

// RunInTx runs fn with exclusive write access. A nested call joins the outer
// transaction. Any error or panic from fn rolls the state back.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if inTx(ctx) {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	backup := s.st.clone()
	s.mu.RUnlock()

	defer func() {
		if r := recover(); r != nil {
			s.restore(backup)
			panic(r)
		}
	}()

	if err := fn(context.WithValue(ctx, txCtxKey{}, s)); err != nil {
		s.restore(backup)
		return err
	}
	return nil
}

func (s *Store) restore(backup state) {
	s.mu.Lock()
	s.st = backup
	s.mu.Unlock()
}

// write applies fn under the writer lock, joining the transaction in ctx if any.
func (s *Store) write(ctx context.Context, fn func(st *state) error) error {
	if !inTx(ctx) {
		s.txMu.Lock()
		defer s.txMu.Unlock()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&s.st)
}

func (s *Store) read(fn func(st *state) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&s.st)
}

// Ping always succeeds. It lets the store stand in for the database in health checks.
func (s *Store) Ping(context.Context) error { return nil }

// Plans returns the plan repository.
func (s *Store) Plans() *PlanRepo { return &PlanRepo{s: s} }

// Sessions returns the session repository.
func (s *Store) Sessions() *SessionRepo { return &SessionRepo{s: s} }

// Snapshots returns the expected snapshot repository.
func (s *Store) Snapshots() *SnapshotRepo { return &SnapshotRepo{s: s} }

// Scans returns the scan repository.
func (s *Store) Scans() *ScanRepo { return &ScanRepo{s: s} }

// Results returns the item result repository.
func (s *Store) Results() *ResultRepo { return &ResultRepo{s: s} }

// Discrepancies returns the discrepancy repository.
func (s *Store) Discrepancies() *DiscrepancyRepo { return &DiscrepancyRepo{s: s} }

// Actions returns the action repository.
func (s *Store) Actions() *ActionRepo { return &ActionRepo{s: s} }

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
