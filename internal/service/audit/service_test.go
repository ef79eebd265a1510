package audit

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/inventory-audit-backend/internal/adapter/lock"
	"github.com/heartmarshall/inventory-audit-backend/internal/adapter/memory"
	"github.com/heartmarshall/inventory-audit-backend/internal/config"
	"github.com/heartmarshall/inventory-audit-backend/internal/domain"
	"github.com/heartmarshall/inventory-audit-backend/pkg/ctxutil"
)

//go:generate moq -out inventory_client_mock_test.go -pkg audit . inventoryClient
//go:generate moq -out event_publisher_mock_test.go -pkg audit . eventPublisher

// registry is the programmable inventory backend behind inventoryClientMock.
type registry struct {
	mu        sync.Mutex
	items     map[int64]domain.InventoryItem
	moveErrs  map[int64]error
	respErrs  map[int64]error
	listErr   error
	lookupErr error
}

func newRegistry(items ...domain.InventoryItem) *registry {
	r := &registry{
		items:    map[int64]domain.InventoryItem{},
		moveErrs: map[int64]error{},
		respErrs: map[int64]error{},
	}
	for _, it := range items {
		r.items[it.ID] = it
	}
	return r
}

func (r *registry) put(it domain.InventoryItem) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[it.ID] = it
}

func (r *registry) get(id int64) domain.InventoryItem {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.items[id]
}

func (r *registry) failMove(id int64, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err == nil {
		delete(r.moveErrs, id)
		return
	}
	r.moveErrs[id] = err
}

func (r *registry) mock() *inventoryClientMock {
	return &inventoryClientMock{
		GetItemsByLocationFunc: func(_ context.Context, locationID int64) ([]domain.InventoryItem, error) {
			r.mu.Lock()
			defer r.mu.Unlock()
			if r.listErr != nil {
				return nil, r.listErr
			}
			var out []domain.InventoryItem
			for _, it := range r.items {
				if it.LocationID == locationID {
					out = append(out, it)
				}
			}
			return out, nil
		},
		ResolveBarcodeFunc: func(_ context.Context, barcode string) (*domain.InventoryItem, error) {
			r.mu.Lock()
			defer r.mu.Unlock()
			if r.lookupErr != nil {
				return nil, r.lookupErr
			}
			for _, it := range r.items {
				if it.Barcode == barcode {
					return &it, nil
				}
			}
			return nil, fmt.Errorf("barcode %q: %w", barcode, domain.ErrUnknownBarcode)
		},
		GetItemFunc: func(_ context.Context, itemID int64) (*domain.InventoryItem, error) {
			r.mu.Lock()
			defer r.mu.Unlock()
			if r.lookupErr != nil {
				return nil, r.lookupErr
			}
			it, ok := r.items[itemID]
			if !ok {
				return nil, fmt.Errorf("item %d: %w", itemID, domain.ErrNotFound)
			}
			return &it, nil
		},
		MoveItemFunc: func(_ context.Context, itemID, toLocationID int64, _ string) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			if err := r.moveErrs[itemID]; err != nil {
				return err
			}
			it := r.items[itemID]
			it.LocationID = toLocationID
			r.items[itemID] = it
			return nil
		},
		SetResponsibleFunc: func(_ context.Context, itemID int64, userID *int64, _ string) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			if err := r.respErrs[itemID]; err != nil {
				return err
			}
			it := r.items[itemID]
			it.ResponsibleID = userID
			r.items[itemID] = it
			return nil
		},
	}
}

type harness struct {
	svc    *Service
	store  *memory.Store
	reg    *registry
	inv    *inventoryClientMock
	events *eventPublisherMock
	userID uuid.UUID
	ctx    context.Context
}

func testAuditConfig() config.AuditConfig {
	return config.AuditConfig{
		MaxScanBatch:     10,
		LockTimeout:      time.Second,
		ActionTimeout:    time.Second,
		ApplyConcurrency: 4,
		SnapshotTimeout:  time.Second,
	}
}

func newHarness(t *testing.T, items ...domain.InventoryItem) *harness {
	t.Helper()

	store := memory.New()
	reg := newRegistry(items...)
	inv := reg.mock()
	events := &eventPublisherMock{
		PublishFunc: func(context.Context, domain.SessionEvent) error { return nil },
	}

	svc := NewService(
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		store.Plans(),
		store.Sessions(),
		store.Snapshots(),
		store.Scans(),
		store.Results(),
		store.Discrepancies(),
		store.Actions(),
		inv,
		lock.NewLocal(time.Second),
		events,
		store,
		testAuditConfig(),
	)

	userID := uuid.New()
	return &harness{
		svc:    svc,
		store:  store,
		reg:    reg,
		inv:    inv,
		events: events,
		userID: userID,
		ctx:    ctxutil.WithUserID(context.Background(), userID),
	}
}

func item(id, locationID int64) domain.InventoryItem {
	return domain.InventoryItem{
		ID:         id,
		Barcode:    fmt.Sprintf("BC-%d", id),
		Name:       fmt.Sprintf("item %d", id),
		LocationID: locationID,
	}
}

func ptr[T any](v T) *T { return &v }

// startedSession creates a session for locationID and starts it.
func (h *harness) startedSession(t *testing.T, locationID int64) *domain.AuditSession {
	t.Helper()
	sess, err := h.svc.CreateSession(h.ctx, CreateSessionInput{LocationID: locationID})
	require.NoError(t, err)
	sess, err = h.svc.StartSession(h.ctx, sess.ID)
	require.NoError(t, err)
	require.Equal(t, domain.SessionStatusInProgress, sess.Status)
	return sess
}

func (h *harness) scan(t *testing.T, sessionID uuid.UUID, clientID, barcode string, found int64) *IngestResult {
	t.Helper()
	res, err := h.svc.IngestScan(h.ctx, sessionID, ScanInput{
		ClientScanID:    clientID,
		BarcodeValue:    barcode,
		FoundLocationID: &found,
	})
	require.NoError(t, err)
	return res
}

// awaitingApproval closes the session and checks it reached awaiting_approval.
func (h *harness) awaitingApproval(t *testing.T, sessionID uuid.UUID) *domain.AuditSession {
	t.Helper()
	sess, err := h.svc.CloseSession(h.ctx, sessionID)
	require.NoError(t, err)
	require.Equal(t, domain.SessionStatusAwaitingApproval, sess.Status)
	return sess
}

func (h *harness) discrepancies(t *testing.T, sessionID uuid.UUID) []*domain.Discrepancy {
	t.Helper()
	list, err := h.svc.ListDiscrepancies(h.ctx, ListDiscrepanciesInput{SessionID: sessionID})
	require.NoError(t, err)
	return list
}

func (h *harness) eventTypes() []domain.EventType {
	var out []domain.EventType
	for _, c := range h.events.PublishCalls() {
		out = append(out, c.E.Type)
	}
	return out
}

func findDiscrepancy(list []*domain.Discrepancy, t domain.DiscrepancyType) *domain.Discrepancy {
	for _, d := range list {
		if d.Type == t {
			return d
		}
	}
	return nil
}
