package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/inventory-audit-backend/internal/domain"
)

// ---------------------------------------------------------------------------
// Snapshot
// ---------------------------------------------------------------------------

func TestBuildSnapshot_StampedOnce(t *testing.T) {
	t.Parallel()

	h := newHarness(t, item(1, 10), item(2, 10), item(3, 99))
	sess, err := h.svc.CreateSession(h.ctx, CreateSessionInput{LocationID: 10})
	require.NoError(t, err)

	first, err := h.svc.BuildSnapshot(h.ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	assert.False(t, first.Empty)
	require.NotNil(t, first.Session.ExpectedSnapshotVersion)
	version := *first.Session.ExpectedSnapshotVersion
	assert.Regexp(t, `^sha256:[0-9a-f]{16}$`, version)

	// The registry changes; the snapshot must not.
	h.reg.put(item(4, 10))

	second, err := h.svc.BuildSnapshot(h.ctx, sess.ID)
	require.NoError(t, err)
	assert.Len(t, second.Items, 2)
	assert.Equal(t, version, *second.Session.ExpectedSnapshotVersion)

	started, err := h.svc.StartSession(h.ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, version, *started.ExpectedSnapshotVersion)
	assert.Len(t, h.inv.GetItemsByLocationCalls(), 1)

	_, err = h.svc.BuildSnapshot(h.ctx, sess.ID)
	require.NoError(t, err, "returns the stored snapshot after start")
}

func TestBuildSnapshot_EmptyScopeIsNotFatal(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	sess, err := h.svc.CreateSession(h.ctx, CreateSessionInput{LocationID: 10})
	require.NoError(t, err)

	res, err := h.svc.BuildSnapshot(h.ctx, sess.ID)
	require.NoError(t, err)
	assert.True(t, res.Empty)
	assert.True(t, res.Session.HasSnapshot())
}

func TestBuildSnapshot_BackendFailureRejects(t *testing.T) {
	t.Parallel()

	h := newHarness(t, item(1, 10))
	h.reg.listErr = errors.New("connection refused")
	sess, err := h.svc.CreateSession(h.ctx, CreateSessionInput{LocationID: 10})
	require.NoError(t, err)

	_, err = h.svc.StartSession(h.ctx, sess.ID)
	require.Error(t, err)

	got, err := h.svc.GetSession(h.ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusDraft, got.Status)
	assert.False(t, got.HasSnapshot())
}

func TestBuildSnapshot_PlanScopes(t *testing.T) {
	t.Parallel()

	dept := func(it domain.InventoryItem, d int64) domain.InventoryItem {
		it.DepartmentID = &d
		return it
	}

	tests := []struct {
		name  string
		plan  CreatePlanInput
		items []domain.InventoryItem
		want  []int64
	}{
		{
			name:  "location scope keeps every item",
			plan:  CreatePlanInput{Title: "rooms", ScopeType: domain.ScopeTypeLocation, Scope: domain.PlanScope{LocationIDs: []int64{10}}},
			items: []domain.InventoryItem{item(1, 10), item(2, 10)},
			want:  []int64{1, 2},
		},
		{
			name:  "department scope filters by department",
			plan:  CreatePlanInput{Title: "it", ScopeType: domain.ScopeTypeDepartment, Scope: domain.PlanScope{DepartmentIDs: []int64{5}}},
			items: []domain.InventoryItem{dept(item(1, 10), 5), dept(item(2, 10), 6), item(3, 10)},
			want:  []int64{1},
		},
		{
			name:  "custom scope looks items up and keeps those in the room",
			plan:  CreatePlanInput{Title: "laptops", ScopeType: domain.ScopeTypeCustom, Scope: domain.PlanScope{ItemIDs: []int64{3, 1, 2, 404}}},
			items: []domain.InventoryItem{item(1, 10), item(2, 20), item(3, 10)},
			want:  []int64{1, 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t, tt.items...)
			plan, err := h.svc.CreatePlan(h.ctx, tt.plan)
			require.NoError(t, err)
			_, err = h.svc.TransitionPlan(h.ctx, TransitionPlanInput{PlanID: plan.ID, To: domain.PlanStatusActive})
			require.NoError(t, err)

			sess, err := h.svc.CreateSession(h.ctx, CreateSessionInput{PlanID: &plan.ID, LocationID: 10})
			require.NoError(t, err)
			res, err := h.svc.BuildSnapshot(h.ctx, sess.ID)
			require.NoError(t, err)

			var got []int64
			for _, it := range res.Items {
				got = append(got, it.ItemID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSnapshotVersion_Deterministic(t *testing.T) {
	t.Parallel()

	a := []domain.ExpectedItem{{ItemID: 1, Barcode: "A", ExpectedLocationID: 10}, {ItemID: 2, Barcode: "B", ExpectedLocationID: 10}}
	b := []domain.ExpectedItem{{ItemID: 1, Barcode: "A", ExpectedLocationID: 10}, {ItemID: 2, Barcode: "B", ExpectedLocationID: 10, ExpectedResponsibleID: ptr(int64(3))}}

	assert.Equal(t, snapshotVersion(a), snapshotVersion(a))
	assert.NotEqual(t, snapshotVersion(a), snapshotVersion(b))
}

// ---------------------------------------------------------------------------
// Sessions
// ---------------------------------------------------------------------------

func TestCreateSession_OneOpenPerLocation(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	first, err := h.svc.CreateSession(h.ctx, CreateSessionInput{LocationID: 10})
	require.NoError(t, err)

	_, err = h.svc.CreateSession(h.ctx, CreateSessionInput{LocationID: 10})
	var conflict *domain.SessionConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, first.ID, conflict.SessionID)
	assert.ErrorIs(t, err, domain.ErrSessionConflict)

	_, err = h.svc.CancelSession(h.ctx, CancelInput{SessionID: first.ID, Reason: "wrong room"})
	require.NoError(t, err)

	_, err = h.svc.CreateSession(h.ctx, CreateSessionInput{LocationID: 10})
	assert.NoError(t, err)
}

func TestCreateSession_PlanRules(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	plan, err := h.svc.CreatePlan(h.ctx, CreatePlanInput{
		Title: "Q3", ScopeType: domain.ScopeTypeLocation, Scope: domain.PlanScope{LocationIDs: []int64{10}},
	})
	require.NoError(t, err)

	_, err = h.svc.CreateSession(h.ctx, CreateSessionInput{PlanID: &plan.ID, LocationID: 10})
	assert.ErrorIs(t, err, domain.ErrConflict, "draft plans do not accept sessions")

	_, err = h.svc.TransitionPlan(h.ctx, TransitionPlanInput{PlanID: plan.ID, To: domain.PlanStatusScheduled})
	require.NoError(t, err)

	_, err = h.svc.CreateSession(h.ctx, CreateSessionInput{PlanID: &plan.ID, LocationID: 11})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = h.svc.CreateSession(h.ctx, CreateSessionInput{PlanID: &plan.ID, LocationID: 10})
	assert.NoError(t, err)
}

func TestSessionTransitions_IllegalMovesHaveNoEffect(t *testing.T) {
	t.Parallel()

	h := newHarness(t, item(1, 10))
	sess, err := h.svc.CreateSession(h.ctx, CreateSessionInput{LocationID: 10})
	require.NoError(t, err)

	calls := []struct {
		name string
		fn   func() error
	}{
		{"approve draft", func() error {
			_, err := h.svc.ApproveSession(h.ctx, ApproveInput{SessionID: sess.ID})
			return err
		}},
		{"close draft", func() error { _, err := h.svc.CloseSession(h.ctx, sess.ID); return err }},
		{"apply draft", func() error { _, err := h.svc.ApplySession(h.ctx, sess.ID); return err }},
		{"finalize draft", func() error { _, err := h.svc.FinalizeSession(h.ctx, sess.ID); return err }},
	}
	for _, c := range calls {
		err := c.fn()
		assert.ErrorIs(t, err, domain.ErrInvalidTransition, c.name)
	}

	got, err := h.svc.GetSession(h.ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusDraft, got.Status)
	assert.Nil(t, got.ClosedAt)
	assert.Nil(t, got.ApprovedAt)

	_, err = h.svc.StartSession(h.ctx, sess.ID)
	require.NoError(t, err)
	_, err = h.svc.StartSession(h.ctx, sess.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition, "start twice")
}

func TestCancelSession_TerminalAndBlocksActions(t *testing.T) {
	t.Parallel()

	h := newHarness(t, item(1, 10))
	sess := h.startedSession(t, 10)
	h.scan(t, sess.ID, "c1", "BC-1", 20)

	canceled, err := h.svc.CancelSession(h.ctx, CancelInput{SessionID: sess.ID, Reason: "fire drill"})
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusCanceled, canceled.Status)
	assert.Equal(t, "fire drill", *canceled.CancelReason)

	_, err = h.svc.CancelSession(h.ctx, CancelInput{SessionID: sess.ID})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = h.svc.BuildActions(h.ctx, sess.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidSessionState)

	assert.Len(t, h.discrepancies(t, sess.ID), 1, "history is retained")
}

func TestCloseSession_MarksUnscannedItemsMissing(t *testing.T) {
	t.Parallel()

	h := newHarness(t, item(1, 10), item(2, 10), item(3, 10))
	sess := h.startedSession(t, 10)
	h.scan(t, sess.ID, "c1", "BC-1", 10)

	closed := h.awaitingApproval(t, sess.ID)
	require.NotNil(t, closed.ClosedAt)
	assert.Equal(t, h.userID, *closed.ClosedBy)

	results, err := h.svc.ListResults(h.ctx, sess.ID)
	require.NoError(t, err)
	status := map[int64]domain.ResultStatus{}
	for _, r := range results {
		status[r.ItemID] = r.Status
	}
	assert.Equal(t, map[int64]domain.ResultStatus{
		1: domain.ResultStatusFoundInPlace,
		2: domain.ResultStatusMissing,
		3: domain.ResultStatusMissing,
	}, status)

	missing := domain.DiscrepancyMissing
	list, err := h.svc.ListDiscrepancies(h.ctx, ListDiscrepanciesInput{SessionID: sess.ID, Type: &missing})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = h.svc.IngestScan(h.ctx, sess.ID, ScanInput{ClientScanID: "late", BarcodeValue: "BC-2"})
	assert.ErrorIs(t, err, domain.ErrInvalidSessionState, "intake is frozen")

	types := h.eventTypes()
	assert.Contains(t, types, domain.EventSessionClosed)
	assert.Contains(t, types, domain.EventSessionReconciled)
}

func TestApproveSession_Override(t *testing.T) {
	t.Parallel()

	h := newHarness(t, item(1, 10))
	sess := h.startedSession(t, 10)
	h.awaitingApproval(t, sess.ID)

	_, err := h.svc.ApproveSession(h.ctx, ApproveInput{SessionID: sess.ID, Override: true})
	assert.ErrorIs(t, err, domain.ErrValidation, "override needs a reason")

	approved, err := h.svc.ApproveSession(h.ctx, ApproveInput{SessionID: sess.ID, Override: true, Reason: "item written off"})
	require.NoError(t, err)
	assert.True(t, approved.ApprovalOverride)
	assert.Equal(t, "item written off", *approved.ApprovalNote)
}

func TestService_RequiresIdentity(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	_, err := h.svc.CreateSession(context.Background(), CreateSessionInput{LocationID: 10})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = h.svc.CreatePlan(context.Background(), CreatePlanInput{})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestService_PublishFailureDoesNotFailOperation(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.events.PublishFunc = func(context.Context, domain.SessionEvent) error { return errors.New("broker down") }

	sess, err := h.svc.CreateSession(h.ctx, CreateSessionInput{LocationID: 10})
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusDraft, sess.Status)
	require.Len(t, h.events.PublishCalls(), 1)
	assert.Equal(t, domain.EventSessionCreated, h.events.PublishCalls()[0].E.Type)
}

// ---------------------------------------------------------------------------
// Plans
// ---------------------------------------------------------------------------

func TestTransitionPlan(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	plan, err := h.svc.CreatePlan(h.ctx, CreatePlanInput{
		Title: "Annual", ScopeType: domain.ScopeTypeLocation, Scope: domain.PlanScope{LocationIDs: []int64{10}},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PlanStatusDraft, plan.Status)

	_, err = h.svc.TransitionPlan(h.ctx, TransitionPlanInput{PlanID: plan.ID, To: domain.PlanStatusClosed})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = h.svc.TransitionPlan(h.ctx, TransitionPlanInput{PlanID: plan.ID, To: domain.PlanStatusActive})
	require.NoError(t, err)

	sess, err := h.svc.CreateSession(h.ctx, CreateSessionInput{PlanID: &plan.ID, LocationID: 10})
	require.NoError(t, err)

	_, err = h.svc.TransitionPlan(h.ctx, TransitionPlanInput{PlanID: plan.ID, To: domain.PlanStatusClosed})
	assert.ErrorIs(t, err, domain.ErrConflict, "open session blocks close")

	_, err = h.svc.CancelSession(h.ctx, CancelInput{SessionID: sess.ID})
	require.NoError(t, err)

	closed, err := h.svc.TransitionPlan(h.ctx, TransitionPlanInput{PlanID: plan.ID, To: domain.PlanStatusClosed})
	require.NoError(t, err)
	assert.Equal(t, domain.PlanStatusClosed, closed.Status)
}

func TestListPlans_DefaultLimitAndValidation(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	for i := range 3 {
		_, err := h.svc.CreatePlan(h.ctx, CreatePlanInput{
			Title: fmt.Sprintf("plan %d", i), ScopeType: domain.ScopeTypeCustom, Scope: domain.PlanScope{ItemIDs: []int64{1}},
		})
		require.NoError(t, err)
	}

	plans, total, err := h.svc.ListPlans(h.ctx, ListPlansInput{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, plans, 2)

	_, _, err = h.svc.ListPlans(h.ctx, ListPlansInput{Limit: MaxLimit + 1})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

// ---------------------------------------------------------------------------
// Concurrency
// ---------------------------------------------------------------------------

func TestIngestScan_ConcurrentScannersKeepAggregatesConsistent(t *testing.T) {
	t.Parallel()

	var items []domain.InventoryItem
	for i := int64(1); i <= 20; i++ {
		items = append(items, item(i, 10))
	}
	h := newHarness(t, items...)
	sess := h.startedSession(t, 10)

	var wg sync.WaitGroup
	for i := int64(1); i <= 20; i++ {
		for replay := range 3 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := h.svc.IngestScan(h.ctx, sess.ID, ScanInput{
					ClientScanID: fmt.Sprintf("scan-%d", i),
					BarcodeValue: fmt.Sprintf("BC-%d", i),
				})
				assert.NoError(t, err, "replay %d", replay)
			}()
		}
	}
	wg.Wait()

	scans, err := h.svc.ListScans(h.ctx, sess.ID)
	require.NoError(t, err)
	assert.Len(t, scans, 20)

	results, err := h.svc.ListResults(h.ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, results, 20)
	for _, r := range results {
		assert.Equal(t, 1, r.ScanCount)
		assert.Equal(t, domain.ResultStatusFoundInPlace, r.Status)
	}
	assert.Empty(t, h.discrepancies(t, sess.ID))
}

func TestSessions_AreIndependent(t *testing.T) {
	t.Parallel()

	h := newHarness(t, item(1, 10), item(2, 20))
	a := h.startedSession(t, 10)
	b := h.startedSession(t, 20)

	h.scan(t, a.ID, "same-client-id", "BC-1", 10)
	res := h.scan(t, b.ID, "same-client-id", "BC-2", 20)
	assert.False(t, res.Replayed, "client_scan_id is scoped to its session")

	_, err := h.svc.CancelSession(h.ctx, CancelInput{SessionID: a.ID})
	require.NoError(t, err)

	got, err := h.svc.GetSession(h.ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusInProgress, got.Status)
}

func TestGetSession_NotFound(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	_, err := h.svc.GetSession(h.ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
