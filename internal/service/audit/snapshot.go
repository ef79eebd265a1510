package audit

import (
	"cmp"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/heartmarshall/inventory-audit-backend/internal/domain"
)

// customScopeFetchLimit bounds concurrent item lookups for custom scopes.
const customScopeFetchLimit = 8

// BuildSnapshot captures the expected state of the session location. The
// snapshot is taken once; calling it again returns the stored rows.
func (s *Service) BuildSnapshot(ctx context.Context, sessionID uuid.UUID) (*SnapshotResult, error) {
	userID, err := actorFromCtx(ctx)
	if err != nil {
		return nil, err
	}

	var res *SnapshotResult
	err = s.withSessionLock(ctx, sessionID, func(ctx context.Context) error {
		sess, err := s.getSession(ctx, sessionID)
		if err != nil {
			return err
		}
		res, err = s.buildSnapshot(ctx, sess, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// buildSnapshot requires the session lock.
func (s *Service) buildSnapshot(ctx context.Context, sess *domain.AuditSession, userID uuid.UUID) (*SnapshotResult, error) {
	if sess.HasSnapshot() {
		items, err := s.snapshots.ListBySession(ctx, sess.ID)
		if err != nil {
			return nil, fmt.Errorf("list snapshot: %w", err)
		}
		return &SnapshotResult{Session: sess, Items: items, Empty: len(items) == 0}, nil
	}
	if err := requireStatus("build snapshot", sess, domain.SessionStatusDraft); err != nil {
		return nil, err
	}
	if err := s.ensureNoOpenSession(ctx, sess.LocationID, sess.ID); err != nil {
		return nil, err
	}

	var plan *domain.AuditPlan
	if sess.PlanID != nil {
		p, err := s.plans.GetByID(ctx, *sess.PlanID)
		if err != nil {
			return nil, fmt.Errorf("get plan: %w", err)
		}
		plan = p
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.SnapshotTimeout)
	defer cancel()
	inv, err := s.fetchScope(fetchCtx, sess.LocationID, plan)
	if err != nil {
		return nil, fmt.Errorf("fetch expected items: %w", err)
	}

	capturedAt := s.now()
	items := make([]domain.ExpectedItem, 0, len(inv))
	for _, it := range inv {
		items = append(items, domain.ExpectedItem{
			SessionID:             sess.ID,
			ItemID:                it.ID,
			Barcode:               it.Barcode,
			Name:                  it.Name,
			ExpectedLocationID:    sess.LocationID,
			ExpectedResponsibleID: it.ResponsibleID,
			DepartmentID:          it.DepartmentID,
			CapturedAt:            capturedAt,
		})
	}
	version := snapshotVersion(items)

	var stamped *domain.AuditSession
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		cur, err := s.sessions.GetByIDForUpdate(txCtx, sess.ID)
		if err != nil {
			return fmt.Errorf("get session: %w", err)
		}
		if err := requireStatus("build snapshot", cur, domain.SessionStatusDraft); err != nil {
			return err
		}
		if len(items) > 0 {
			if err := s.snapshots.InsertBatch(txCtx, items); err != nil {
				return fmt.Errorf("insert snapshot: %w", err)
			}
		}
		if err := s.sessions.SetSnapshotVersion(txCtx, cur.ID, version, capturedAt); err != nil {
			return fmt.Errorf("stamp snapshot version: %w", err)
		}
		stamped, err = s.sessions.GetByID(txCtx, cur.ID)
		if err != nil {
			return fmt.Errorf("get session: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(items) == 0 {
		s.log.WarnContext(ctx, "snapshot scope is empty",
			slog.String("session_id", sess.ID.String()),
			slog.Int64("location_id", sess.LocationID),
		)
	}
	s.lifecycle(ctx, stamped.Status, stamped, domain.EventSessionSnapshotBuilt, userID, map[string]string{
		"snapshot_version": version,
		"expected_items":   fmt.Sprint(len(items)),
	})

	return &SnapshotResult{Session: stamped, Items: items, Empty: len(items) == 0}, nil
}

// fetchScope returns the registry items of locationID narrowed by the plan
// scope, sorted by id. Custom scopes look items up one by one.
func (s *Service) fetchScope(ctx context.Context, locationID int64, plan *domain.AuditPlan) ([]domain.InventoryItem, error) {
	var items []domain.InventoryItem

	if plan != nil && plan.ScopeType == domain.ScopeTypeCustom {
		ids := plan.Scope.ItemIDs
		found := make([]*domain.InventoryItem, len(ids))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(customScopeFetchLimit)
		for i, id := range ids {
			g.Go(func() error {
				it, err := s.inventory.GetItem(gctx, id)
				if errors.Is(err, domain.ErrNotFound) {
					return nil
				}
				if err != nil {
					return err
				}
				found[i] = it
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		for _, it := range found {
			if it != nil && it.LocationID == locationID {
				items = append(items, *it)
			}
		}
	} else {
		all, err := s.inventory.GetItemsByLocation(ctx, locationID)
		if err != nil {
			return nil, err
		}
		for _, it := range all {
			if plan == nil || plan.Includes(it) {
				items = append(items, it)
			}
		}
	}

	slices.SortFunc(items, func(a, b domain.InventoryItem) int { return cmp.Compare(a.ID, b.ID) })
	items = slices.CompactFunc(items, func(a, b domain.InventoryItem) bool { return a.ID == b.ID })
	return items, nil
}

// snapshotVersion hashes the sorted expected rows.
func snapshotVersion(items []domain.ExpectedItem) string {
	h := sha256.New()
	for _, it := range items {
		resp := "-"
		if it.ExpectedResponsibleID != nil {
			resp = fmt.Sprint(*it.ExpectedResponsibleID)
		}
		fmt.Fprintf(h, "%d|%s|%d|%s\n", it.ItemID, it.Barcode, it.ExpectedLocationID, resp)
	}
	return "sha256:" + hex.EncodeToString(h.Sum(nil))[:16]
}

// ListExpected returns the snapshot of a session.
func (s *Service) ListExpected(ctx context.Context, sessionID uuid.UUID) ([]domain.ExpectedItem, error) {
	if _, err := s.getSession(ctx, sessionID); err != nil {
		return nil, err
	}
	items, err := s.snapshots.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list snapshot: %w", err)
	}
	return items, nil
}
