package audit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/heartmarshall/inventory-audit-backend/internal/domain"
	"github.com/heartmarshall/inventory-audit-backend/internal/telemetry"
	"github.com/heartmarshall/inventory-audit-backend/pkg/ctxutil"
)

// Reclassify recomputes item results and derived discrepancies of a session
// from its scans and snapshot, without calling the inventory backend.
// Discrepancy inserts are idempotent and resolutions are left untouched.
// After close, missing items are computed too and a reconciling session
// moves on to awaiting_approval.
func (s *Service) Reclassify(ctx context.Context, sessionID uuid.UUID) (*ReclassifyResult, error) {
	var res *ReclassifyResult
	err := s.withSessionLock(ctx, sessionID, func(ctx context.Context) error {
		sess, err := s.getSession(ctx, sessionID)
		if err != nil {
			return err
		}
		res, err = s.reclassify(ctx, sess)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// reclassify requires the session lock.
func (s *Service) reclassify(ctx context.Context, sess *domain.AuditSession) (*ReclassifyResult, error) {
	err := requireStatus("reclassify", sess,
		domain.SessionStatusInProgress,
		domain.SessionStatusReconciling,
		domain.SessionStatusAwaitingApproval,
	)
	if err != nil {
		return nil, err
	}

	expected, err := s.snapshots.ListBySession(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("list snapshot: %w", err)
	}
	scans, err := s.scans.ListBySession(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("list scans: %w", err)
	}

	expectedByItem := make(map[int64]*domain.ExpectedItem, len(expected))
	for i := range expected {
		expectedByItem[expected[i].ItemID] = &expected[i]
	}

	now := s.now()
	results := make(map[int64]*domain.ItemResult)
	var order []int64
	var derived []*domain.Discrepancy

	for _, sc := range scans {
		f := scanFacts{
			SessionID:          sess.ID,
			ScanID:             sc.ID,
			ScanTime:           sc.ScanTime,
			Barcode:            sc.BarcodeValue,
			FoundLocationID:    sc.FoundLocationID,
			ItemID:             sc.ItemID,
			RegistryLocationID: sc.ItemLocationID,
		}
		if sc.ItemID != nil {
			f.Expected = expectedByItem[*sc.ItemID]
			f.Prior = results[*sc.ItemID]
		}

		delta := classifyScan(f)
		if delta.Result != nil {
			if _, seen := results[delta.Result.ItemID]; !seen {
				order = append(order, delta.Result.ItemID)
			}
			results[delta.Result.ItemID] = delta.Result
		}
		derived = append(derived, delta.Discrepancies...)
	}

	postClose := sess.Status != domain.SessionStatusInProgress
	if postClose {
		missing, missingDisc := missingDelta(sess.ID, expected, results, now)
		for _, r := range missing {
			order = append(order, r.ItemID)
			results[r.ItemID] = r
		}
		derived = append(derived, missingDisc...)
	}

	out := &ReclassifyResult{Session: sess, Scans: len(scans), Results: len(results)}
	var created []*domain.Discrepancy
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		cur, err := s.sessions.GetByIDForUpdate(txCtx, sess.ID)
		if err != nil {
			return fmt.Errorf("get session: %w", err)
		}
		if cur.Status != sess.Status {
			return &domain.SessionStateError{Op: "reclassify", Status: cur.Status}
		}

		if err := s.results.DeleteBySession(txCtx, sess.ID); err != nil {
			return fmt.Errorf("delete item results: %w", err)
		}
		for _, itemID := range order {
			r := results[itemID]
			r.UpdatedAt = now
			if _, err := s.results.Upsert(txCtx, r); err != nil {
				return fmt.Errorf("upsert item result: %w", err)
			}
		}

		for _, d := range derived {
			d.CreatedAt = now
			stored, isNew, err := s.discrepancies.Insert(txCtx, d)
			if err != nil {
				return fmt.Errorf("insert discrepancy: %w", err)
			}
			if isNew {
				created = append(created, stored)
			}
		}

		if cur.Status == domain.SessionStatusReconciling {
			if err := transition(cur, domain.SessionStatusAwaitingApproval); err != nil {
				return err
			}
			updated, err := s.sessions.Update(txCtx, cur)
			if err != nil {
				return fmt.Errorf("update session: %w", err)
			}
			out.Session = updated
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out.CreatedDiscrepancies = len(created)
	for _, d := range created {
		telemetry.DiscrepanciesTotal.WithLabelValues(d.Type.String()).Inc()
	}

	s.log.InfoContext(ctx, "session reclassified",
		slog.String("session_id", sess.ID.String()),
		slog.Int("scans", out.Scans),
		slog.Int("results", out.Results),
		slog.Int("created_discrepancies", out.CreatedDiscrepancies),
	)

	if sess.Status != out.Session.Status {
		actor, _ := ctxutil.UserIDFromCtx(ctx)
		s.lifecycle(ctx, sess.Status, out.Session, domain.EventSessionReconciled, actor, nil)
	}
	return out, nil
}
