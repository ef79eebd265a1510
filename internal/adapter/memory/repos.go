package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/inventory-audit-backend/internal/domain"
)

func notFound(entity string, id any) error {
	return fmt.Errorf("%s %v: %w", entity, id, domain.ErrNotFound)
}

func alreadyExists(entity string, id any) error {
	return fmt.Errorf("%s %v: %w", entity, id, domain.ErrAlreadyExists)
}

func stamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}

// ---------------------------------------------------------------------------
// Plans
// ---------------------------------------------------------------------------

// PlanRepo stores audit plans.
type PlanRepo struct{ s *Store }

func (r *PlanRepo) Create(ctx context.Context, p *domain.AuditPlan) (*domain.AuditPlan, error) {
	var out domain.AuditPlan
	err := r.s.write(ctx, func(st *state) error {
		if _, ok := st.plans[p.ID]; ok {
			return alreadyExists("audit_plan", p.ID)
		}
		row := clonePlan(*p)
		row.CreatedAt = stamp(p.CreatedAt)
		row.UpdatedAt = row.CreatedAt
		st.plans[p.ID] = row
		out = clonePlan(row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *PlanRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.AuditPlan, error) {
	var out domain.AuditPlan
	err := r.s.read(func(st *state) error {
		p, ok := st.plans[id]
		if !ok {
			return notFound("audit_plan", id)
		}
		out = clonePlan(p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetByIDForUpdate is GetByID; transactions already hold the writer lock.
func (r *PlanRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.AuditPlan, error) {
	return r.GetByID(ctx, id)
}

func (r *PlanRepo) List(_ context.Context, f domain.PlanFilter) ([]*domain.AuditPlan, int, error) {
	var matched []domain.AuditPlan
	_ = r.s.read(func(st *state) error {
		for _, p := range st.plans {
			if f.Status != nil && p.Status != *f.Status {
				continue
			}
			matched = append(matched, clonePlan(p))
		}
		return nil
	})

	slices.SortFunc(matched, func(a, b domain.AuditPlan) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})

	total := len(matched)
	out := []*domain.AuditPlan{}
	for _, p := range page(matched, f.Limit, f.Offset) {
		out = append(out, &p)
	}
	return out, total, nil
}

func (r *PlanRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.PlanStatus) (*domain.AuditPlan, error) {
	var out domain.AuditPlan
	err := r.s.write(ctx, func(st *state) error {
		p, ok := st.plans[id]
		if !ok {
			return notFound("audit_plan", id)
		}
		p.Status = status
		p.UpdatedAt = time.Now().UTC()
		st.plans[id] = p
		out = clonePlan(p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ---------------------------------------------------------------------------
// Sessions
// ---------------------------------------------------------------------------

// SessionRepo stores audit sessions and keeps one open session per location.
type SessionRepo struct{ s *Store }

func openSessionAt(st *state, locationID int64) (domain.AuditSession, bool) {
	for _, s := range st.sessions {
		if s.LocationID == locationID && !s.Status.IsTerminal() {
			return s, true
		}
	}
	return domain.AuditSession{}, false
}

func (r *SessionRepo) Create(ctx context.Context, s *domain.AuditSession) (*domain.AuditSession, error) {
	var out domain.AuditSession
	err := r.s.write(ctx, func(st *state) error {
		if _, ok := st.sessions[s.ID]; ok {
			return alreadyExists("audit_session", s.ID)
		}
		if _, ok := openSessionAt(st, s.LocationID); ok && !s.Status.IsTerminal() {
			return alreadyExists("audit_session", s.ID)
		}
		row := *s
		row.CreatedAt = stamp(s.CreatedAt)
		row.UpdatedAt = row.CreatedAt
		st.sessions[s.ID] = row
		out = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *SessionRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.AuditSession, error) {
	var out domain.AuditSession
	err := r.s.read(func(st *state) error {
		s, ok := st.sessions[id]
		if !ok {
			return notFound("audit_session", id)
		}
		out = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetByIDForUpdate is GetByID; transactions already hold the writer lock.
func (r *SessionRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.AuditSession, error) {
	return r.GetByID(ctx, id)
}

func (r *SessionRepo) GetOpenByLocation(_ context.Context, locationID int64) (*domain.AuditSession, error) {
	var out domain.AuditSession
	err := r.s.read(func(st *state) error {
		s, ok := openSessionAt(st, locationID)
		if !ok {
			return notFound("audit_session for location", locationID)
		}
		out = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *SessionRepo) List(_ context.Context, f domain.SessionFilter) ([]*domain.AuditSession, int, error) {
	var matched []domain.AuditSession
	_ = r.s.read(func(st *state) error {
		for _, s := range st.sessions {
			if f.PlanID != nil && (s.PlanID == nil || *s.PlanID != *f.PlanID) {
				continue
			}
			if f.LocationID != nil && s.LocationID != *f.LocationID {
				continue
			}
			if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, s.Status) {
				continue
			}
			matched = append(matched, s)
		}
		return nil
	})

	slices.SortFunc(matched, func(a, b domain.AuditSession) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})

	total := len(matched)
	out := []*domain.AuditSession{}
	for _, s := range page(matched, f.Limit, f.Offset) {
		out = append(out, &s)
	}
	return out, total, nil
}

func (r *SessionRepo) Update(ctx context.Context, s *domain.AuditSession) (*domain.AuditSession, error) {
	var out domain.AuditSession
	err := r.s.write(ctx, func(st *state) error {
		cur, ok := st.sessions[s.ID]
		if !ok {
			return notFound("audit_session", s.ID)
		}
		// Snapshot stamps and identity are owned by Create/SetSnapshotVersion.
		row := *s
		row.PlanID = cur.PlanID
		row.LocationID = cur.LocationID
		row.CreatedBy = cur.CreatedBy
		row.CreatedAt = cur.CreatedAt
		row.ExpectedSnapshotVersion = cur.ExpectedSnapshotVersion
		row.SnapshotAt = cur.SnapshotAt
		row.UpdatedAt = time.Now().UTC()
		st.sessions[s.ID] = row
		out = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *SessionRepo) SetSnapshotVersion(ctx context.Context, id uuid.UUID, version string, at time.Time) error {
	return r.s.write(ctx, func(st *state) error {
		s, ok := st.sessions[id]
		if !ok {
			return notFound("audit_session", id)
		}
		if s.ExpectedSnapshotVersion != nil {
			return fmt.Errorf("audit_session %s: snapshot version already set: %w", id, domain.ErrConflict)
		}
		v, t := version, at.UTC()
		s.ExpectedSnapshotVersion = &v
		s.SnapshotAt = &t
		s.UpdatedAt = time.Now().UTC()
		st.sessions[id] = s
		return nil
	})
}

// ---------------------------------------------------------------------------
// Expected snapshot
// ---------------------------------------------------------------------------

// SnapshotRepo stores expected items.
type SnapshotRepo struct{ s *Store }

func (r *SnapshotRepo) InsertBatch(ctx context.Context, items []domain.ExpectedItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.s.write(ctx, func(st *state) error {
		for _, it := range items {
			if _, ok := st.expected[it.SessionID][it.ItemID]; ok {
				return alreadyExists("audit_expected_item", it.ItemID)
			}
		}
		for _, it := range items {
			bucket, ok := st.expected[it.SessionID]
			if !ok {
				bucket = map[int64]domain.ExpectedItem{}
				st.expected[it.SessionID] = bucket
			}
			it.CapturedAt = stamp(it.CapturedAt)
			bucket[it.ItemID] = it
		}
		return nil
	})
}

func (r *SnapshotRepo) ListBySession(_ context.Context, sessionID uuid.UUID) ([]domain.ExpectedItem, error) {
	out := []domain.ExpectedItem{}
	_ = r.s.read(func(st *state) error {
		for _, it := range st.expected[sessionID] {
			out = append(out, it)
		}
		return nil
	})
	slices.SortFunc(out, func(a, b domain.ExpectedItem) int { return cmp.Compare(a.ItemID, b.ItemID) })
	return out, nil
}

func (r *SnapshotRepo) GetByItem(_ context.Context, sessionID uuid.UUID, itemID int64) (*domain.ExpectedItem, error) {
	var out domain.ExpectedItem
	err := r.s.read(func(st *state) error {
		it, ok := st.expected[sessionID][itemID]
		if !ok {
			return notFound("audit_expected_item", itemID)
		}
		out = it
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *SnapshotRepo) GetByBarcode(ctx context.Context, sessionID uuid.UUID, barcode string) (*domain.ExpectedItem, error) {
	items, _ := r.ListBySession(ctx, sessionID)
	for _, it := range items {
		if it.Barcode == barcode {
			return &it, nil
		}
	}
	return nil, notFound("audit_expected_item", barcode)
}

func (r *SnapshotRepo) CountBySession(_ context.Context, sessionID uuid.UUID) (int, error) {
	var n int
	_ = r.s.read(func(st *state) error {
		n = len(st.expected[sessionID])
		return nil
	})
	return n, nil
}

// ---------------------------------------------------------------------------
// Scans
// ---------------------------------------------------------------------------

// ScanRepo stores append-only scans, unique per (session, client_scan_id).
type ScanRepo struct{ s *Store }

func (r *ScanRepo) Create(ctx context.Context, sc *domain.Scan) (*domain.Scan, error) {
	var out domain.Scan
	err := r.s.write(ctx, func(st *state) error {
		if _, ok := st.sessions[sc.SessionID]; !ok {
			return notFound("audit_session", sc.SessionID)
		}
		for _, existing := range st.scans {
			if existing.SessionID == sc.SessionID && existing.ClientScanID == sc.ClientScanID {
				return alreadyExists("audit_scan", sc.ClientScanID)
			}
		}
		st.scanSeq++
		row := cloneScan(*sc)
		row.Seq = st.scanSeq
		row.CreatedAt = stamp(sc.CreatedAt)
		if row.Metadata == nil {
			row.Metadata = map[string]string{}
		}
		st.scans[sc.ID] = row
		out = cloneScan(row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *ScanRepo) GetByClientScanID(_ context.Context, sessionID uuid.UUID, clientScanID string) (*domain.Scan, error) {
	var out domain.Scan
	err := r.s.read(func(st *state) error {
		for _, sc := range st.scans {
			if sc.SessionID == sessionID && sc.ClientScanID == clientScanID {
				out = cloneScan(sc)
				return nil
			}
		}
		return notFound("audit_scan", clientScanID)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *ScanRepo) ListBySession(_ context.Context, sessionID uuid.UUID) ([]*domain.Scan, error) {
	var matched []domain.Scan
	_ = r.s.read(func(st *state) error {
		for _, sc := range st.scans {
			if sc.SessionID == sessionID {
				matched = append(matched, cloneScan(sc))
			}
		}
		return nil
	})

	slices.SortFunc(matched, func(a, b domain.Scan) int { return cmp.Compare(a.Seq, b.Seq) })

	out := make([]*domain.Scan, 0, len(matched))
	for i := range matched {
		out = append(out, &matched[i])
	}
	return out, nil
}

func (r *ScanRepo) CountBySession(ctx context.Context, sessionID uuid.UUID) (int, error) {
	scans, _ := r.ListBySession(ctx, sessionID)
	return len(scans), nil
}

// ---------------------------------------------------------------------------
// Item results
// ---------------------------------------------------------------------------

// ResultRepo stores one result per (session, item).
type ResultRepo struct{ s *Store }

func (r *ResultRepo) Upsert(ctx context.Context, res *domain.ItemResult) (*domain.ItemResult, error) {
	var out domain.ItemResult
	err := r.s.write(ctx, func(st *state) error {
		row := *res
		row.UpdatedAt = time.Now().UTC()
		st.results[resultKey{res.SessionID, res.ItemID}] = row
		out = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *ResultRepo) Get(_ context.Context, sessionID uuid.UUID, itemID int64) (*domain.ItemResult, error) {
	var out domain.ItemResult
	err := r.s.read(func(st *state) error {
		res, ok := st.results[resultKey{sessionID, itemID}]
		if !ok {
			return notFound("audit_item_result", itemID)
		}
		out = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *ResultRepo) ListBySession(_ context.Context, sessionID uuid.UUID) ([]*domain.ItemResult, error) {
	var matched []domain.ItemResult
	_ = r.s.read(func(st *state) error {
		for k, res := range st.results {
			if k.session == sessionID {
				matched = append(matched, res)
			}
		}
		return nil
	})

	slices.SortFunc(matched, func(a, b domain.ItemResult) int { return cmp.Compare(a.ItemID, b.ItemID) })

	out := make([]*domain.ItemResult, 0, len(matched))
	for i := range matched {
		out = append(out, &matched[i])
	}
	return out, nil
}

func (r *ResultRepo) DeleteBySession(ctx context.Context, sessionID uuid.UUID) error {
	return r.s.write(ctx, func(st *state) error {
		for k := range st.results {
			if k.session == sessionID {
				delete(st.results, k)
			}
		}
		return nil
	})
}

// ---------------------------------------------------------------------------
// Discrepancies
// ---------------------------------------------------------------------------

// DiscrepancyRepo stores discrepancies, unique per (session, dedup key).
type DiscrepancyRepo struct{ s *Store }

func (r *DiscrepancyRepo) Insert(ctx context.Context, d *domain.Discrepancy) (*domain.Discrepancy, bool, error) {
	var (
		out     domain.Discrepancy
		created bool
	)
	err := r.s.write(ctx, func(st *state) error {
		for _, existing := range st.discrepancies {
			if existing.SessionID == d.SessionID && existing.DedupKey == d.DedupKey {
				out = existing
				return nil
			}
		}
		row := *d
		row.ResolutionStatus = domain.ResolutionOpen
		row.CreatedAt = stamp(d.CreatedAt)
		row.UpdatedAt = row.CreatedAt
		st.discrepancies[d.ID] = row
		out, created = row, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &out, created, nil
}

func (r *DiscrepancyRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Discrepancy, error) {
	var out domain.Discrepancy
	err := r.s.read(func(st *state) error {
		d, ok := st.discrepancies[id]
		if !ok {
			return notFound("audit_discrepancy", id)
		}
		out = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetByIDForUpdate is GetByID; transactions already hold the writer lock.
func (r *DiscrepancyRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Discrepancy, error) {
	return r.GetByID(ctx, id)
}

func (r *DiscrepancyRepo) List(_ context.Context, f domain.DiscrepancyFilter) ([]*domain.Discrepancy, error) {
	var matched []domain.Discrepancy
	_ = r.s.read(func(st *state) error {
		for _, d := range st.discrepancies {
			if d.SessionID != f.SessionID {
				continue
			}
			if f.Type != nil && d.Type != *f.Type {
				continue
			}
			if f.Status != nil && d.ResolutionStatus != *f.Status {
				continue
			}
			matched = append(matched, d)
		}
		return nil
	})

	slices.SortFunc(matched, func(a, b domain.Discrepancy) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.DedupKey, b.DedupKey)
	})

	out := make([]*domain.Discrepancy, 0, len(matched))
	for i := range matched {
		out = append(out, &matched[i])
	}
	return out, nil
}

func (r *DiscrepancyRepo) CountOpen(ctx context.Context, sessionID uuid.UUID) (int, error) {
	open := domain.ResolutionOpen
	list, _ := r.List(ctx, domain.DiscrepancyFilter{SessionID: sessionID, Status: &open})
	return len(list), nil
}

func (r *DiscrepancyRepo) UpdateResolution(ctx context.Context, d *domain.Discrepancy) (*domain.Discrepancy, error) {
	var out domain.Discrepancy
	err := r.s.write(ctx, func(st *state) error {
		cur, ok := st.discrepancies[d.ID]
		if !ok {
			return notFound("audit_discrepancy", d.ID)
		}
		cur.ResolutionStatus = d.ResolutionStatus
		cur.Resolution = d.Resolution
		cur.ResolvedBy = d.ResolvedBy
		cur.ResolvedAt = d.ResolvedAt
		cur.UpdatedAt = time.Now().UTC()
		st.discrepancies[d.ID] = cur
		out = cur
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ---------------------------------------------------------------------------
// Actions
// ---------------------------------------------------------------------------

// ActionRepo stores remediation actions, unique per idempotency key.
type ActionRepo struct{ s *Store }

func (r *ActionRepo) Insert(ctx context.Context, a *domain.Action) (*domain.Action, bool, error) {
	var (
		out     domain.Action
		created bool
	)
	err := r.s.write(ctx, func(st *state) error {
		for _, existing := range st.actions {
			if existing.IdempotencyKey == a.IdempotencyKey {
				out = existing
				return nil
			}
		}
		if _, ok := st.discrepancies[a.DiscrepancyID]; !ok {
			return notFound("audit_discrepancy", a.DiscrepancyID)
		}
		row := *a
		row.CreatedAt = stamp(a.CreatedAt)
		row.UpdatedAt = row.CreatedAt
		st.actions[a.ID] = row
		out, created = row, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &out, created, nil
}

func (r *ActionRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Action, error) {
	var out domain.Action
	err := r.s.read(func(st *state) error {
		a, ok := st.actions[id]
		if !ok {
			return notFound("audit_action", id)
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *ActionRepo) List(_ context.Context, f domain.ActionFilter) ([]*domain.Action, error) {
	var matched []domain.Action
	_ = r.s.read(func(st *state) error {
		for _, a := range st.actions {
			if a.SessionID != f.SessionID {
				continue
			}
			if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, a.Status) {
				continue
			}
			matched = append(matched, a)
		}
		return nil
	})

	slices.SortFunc(matched, func(a, b domain.Action) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.IdempotencyKey, b.IdempotencyKey)
	})

	out := make([]*domain.Action, 0, len(matched))
	for i := range matched {
		out = append(out, &matched[i])
	}
	return out, nil
}

func (r *ActionRepo) UpdateStatus(ctx context.Context, a *domain.Action) (*domain.Action, error) {
	var out domain.Action
	err := r.s.write(ctx, func(st *state) error {
		cur, ok := st.actions[a.ID]
		if !ok {
			return notFound("audit_action", a.ID)
		}
		cur.Status = a.Status
		cur.Attempts = a.Attempts
		cur.LastError = a.LastError
		cur.SentAt = a.SentAt
		cur.CompletedAt = a.CompletedAt
		cur.UpdatedAt = time.Now().UTC()
		st.actions[a.ID] = cur
		out = cur
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
