package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"

	"github.com/google/uuid"

	"github.com/heartmarshall/inventory-audit-backend/internal/domain"
	"github.com/heartmarshall/inventory-audit-backend/internal/telemetry"
)

// resolvedItem is the item a scan points at, with its snapshot row if any.
type resolvedItem struct {
	ID                 int64
	Barcode            string
	RegistryLocationID int64
	Expected           *domain.ExpectedItem
}

// IngestScan records one scan and classifies it. A client_scan_id already
// stored in the session returns the original scan with Replayed set and
// changes nothing.
func (s *Service) IngestScan(ctx context.Context, sessionID uuid.UUID, input ScanInput) (*IngestResult, error) {
	userID, err := actorFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}
	clientScanID := strings.TrimSpace(input.ClientScanID)

	var res *IngestResult
	err = s.withSessionLock(ctx, sessionID, func(ctx context.Context) error {
		sess, err := s.getSession(ctx, sessionID)
		if err != nil {
			return err
		}

		if replay, err := s.replay(ctx, sessionID, clientScanID); err != nil || replay != nil {
			res = replay
			return err
		}

		if err := requireStatus("scan", sess, domain.SessionStatusInProgress); err != nil {
			return err
		}
		if err := input.checkScanTime(sess.StartedAt, s.now()); err != nil {
			return err
		}

		item, err := s.resolveItem(ctx, sess.ID, input)
		if err != nil {
			return err
		}

		res, err = s.recordScan(ctx, sess, userID, clientScanID, input, item)
		return err
	})
	if errors.Is(err, domain.ErrAlreadyExists) {
		// Another replica stored the same client_scan_id first.
		if replay, rerr := s.replay(ctx, sessionID, clientScanID); rerr == nil && replay != nil {
			return replay, nil
		}
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Service) replay(ctx context.Context, sessionID uuid.UUID, clientScanID string) (*IngestResult, error) {
	existing, err := ignoreNotFound(s.scans.GetByClientScanID(ctx, sessionID, clientScanID))
	if err != nil {
		return nil, fmt.Errorf("get scan: %w", err)
	}
	if existing == nil {
		return nil, nil
	}

	out := &IngestResult{Scan: existing, Replayed: true}
	if existing.ItemID != nil {
		out.Result, err = ignoreNotFound(s.results.Get(ctx, sessionID, *existing.ItemID))
		if err != nil {
			return nil, fmt.Errorf("get item result: %w", err)
		}
	}
	return out, nil
}

// resolveItem maps the scan to an item: snapshot first, then the registry.
// An unknown barcode yields nil; an unknown manual item id is rejected.
func (s *Service) resolveItem(ctx context.Context, sessionID uuid.UUID, input ScanInput) (*resolvedItem, error) {
	if input.ItemID != nil {
		expected, err := ignoreNotFound(s.snapshots.GetByItem(ctx, sessionID, *input.ItemID))
		if err != nil {
			return nil, fmt.Errorf("get expected item: %w", err)
		}
		if expected != nil {
			return fromExpected(expected), nil
		}
		inv, err := s.inventory.GetItem(ctx, *input.ItemID)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewValidationError("item_id", "unknown item")
		}
		if err != nil {
			return nil, fmt.Errorf("get item: %w", err)
		}
		return &resolvedItem{ID: inv.ID, Barcode: inv.Barcode, RegistryLocationID: inv.LocationID}, nil
	}

	barcode := strings.TrimSpace(input.BarcodeValue)
	expected, err := ignoreNotFound(s.snapshots.GetByBarcode(ctx, sessionID, barcode))
	if err != nil {
		return nil, fmt.Errorf("get expected item by barcode: %w", err)
	}
	if expected != nil {
		return fromExpected(expected), nil
	}

	inv, err := s.inventory.ResolveBarcode(ctx, barcode)
	if errors.Is(err, domain.ErrUnknownBarcode) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve barcode: %w", err)
	}

	item := &resolvedItem{ID: inv.ID, Barcode: inv.Barcode, RegistryLocationID: inv.LocationID}
	item.Expected, err = ignoreNotFound(s.snapshots.GetByItem(ctx, sessionID, inv.ID))
	if err != nil {
		return nil, fmt.Errorf("get expected item: %w", err)
	}
	return item, nil
}

func fromExpected(e *domain.ExpectedItem) *resolvedItem {
	return &resolvedItem{ID: e.ItemID, Barcode: e.Barcode, RegistryLocationID: e.ExpectedLocationID, Expected: e}
}

func (s *Service) recordScan(ctx context.Context, sess *domain.AuditSession, userID uuid.UUID, clientScanID string, input ScanInput, item *resolvedItem) (*IngestResult, error) {
	now := s.now()

	scan := &domain.Scan{
		ID:              uuid.New(),
		SessionID:       sess.ID,
		ClientScanID:    clientScanID,
		ScannerUserID:   userID,
		ScanTime:        now,
		Source:          domain.ScanSourceBarcode,
		BarcodeValue:    strings.TrimSpace(input.BarcodeValue),
		FoundLocationID: sess.LocationID,
		Notes:           input.Notes,
		PhotoURL:        input.PhotoURL,
		Metadata:        maps.Clone(input.Metadata),
		CreatedAt:       now,
	}
	if input.ScanTime != nil {
		scan.ScanTime = input.ScanTime.UTC()
	}
	if input.FoundLocationID != nil {
		scan.FoundLocationID = *input.FoundLocationID
	}
	switch {
	case input.Source != "":
		scan.Source = input.Source
	case input.ItemID != nil:
		scan.Source = domain.ScanSourceManual
	}
	if item != nil {
		itemID, loc := item.ID, item.RegistryLocationID
		scan.ItemID = &itemID
		scan.ItemLocationID = &loc
		if scan.BarcodeValue == "" {
			scan.BarcodeValue = item.Barcode
		}
	}

	var (
		res     = &IngestResult{}
		created []*domain.Discrepancy
	)
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		facts := factsFor(scan, item)
		if scan.ItemID != nil {
			prior, err := ignoreNotFound(s.results.Get(txCtx, sess.ID, *scan.ItemID))
			if err != nil {
				return fmt.Errorf("get item result: %w", err)
			}
			facts.Prior = prior
		}

		delta := classifyScan(facts)
		scan.Outcome = delta.Outcome

		stored, err := s.scans.Create(txCtx, scan)
		if err != nil {
			return fmt.Errorf("create scan: %w", err)
		}
		res.Scan = stored

		if delta.Result != nil {
			delta.Result.UpdatedAt = now
			res.Result, err = s.results.Upsert(txCtx, delta.Result)
			if err != nil {
				return fmt.Errorf("upsert item result: %w", err)
			}
		}

		for _, d := range delta.Discrepancies {
			d.CreatedAt = now
			stored, isNew, err := s.discrepancies.Insert(txCtx, d)
			if err != nil {
				return fmt.Errorf("insert discrepancy: %w", err)
			}
			res.Discrepancies = append(res.Discrepancies, stored)
			if isNew {
				created = append(created, stored)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	telemetry.ScansTotal.WithLabelValues(res.Scan.Outcome.String()).Inc()
	for _, d := range created {
		telemetry.DiscrepanciesTotal.WithLabelValues(d.Type.String()).Inc()
	}

	attrs := []any{
		slog.String("session_id", sess.ID.String()),
		slog.String("client_scan_id", clientScanID),
		slog.String("outcome", res.Scan.Outcome.String()),
		slog.Int64("found_location_id", res.Scan.FoundLocationID),
	}
	if res.Scan.ItemID != nil {
		attrs = append(attrs, slog.Int64("item_id", *res.Scan.ItemID))
	}
	s.log.DebugContext(ctx, "scan classified", attrs...)

	return res, nil
}

func factsFor(scan *domain.Scan, item *resolvedItem) scanFacts {
	f := scanFacts{
		SessionID:       scan.SessionID,
		ScanID:          scan.ID,
		ScanTime:        scan.ScanTime,
		Barcode:         scan.BarcodeValue,
		FoundLocationID: scan.FoundLocationID,
		ItemID:          scan.ItemID,
	}
	if item != nil {
		f.Expected = item.Expected
		f.RegistryLocationID = scan.ItemLocationID
	}
	return f
}

// IngestScanBatch ingests scans in order with the same rules as IngestScan.
// Per-scan failures are reported in the result and do not stop the batch.
func (s *Service) IngestScanBatch(ctx context.Context, sessionID uuid.UUID, inputs []ScanInput) ([]BatchItemResult, error) {
	if _, err := actorFromCtx(ctx); err != nil {
		return nil, err
	}
	if len(inputs) == 0 {
		return nil, domain.NewValidationError("scans", "required")
	}
	if len(inputs) > s.cfg.MaxScanBatch {
		return nil, domain.NewValidationError("scans", fmt.Sprintf("max %d scans per batch", s.cfg.MaxScanBatch))
	}

	if _, err := s.getSession(ctx, sessionID); err != nil {
		return nil, err
	}

	out := make([]BatchItemResult, 0, len(inputs))
	for _, in := range inputs {
		res, err := s.IngestScan(ctx, sessionID, in)
		out = append(out, BatchItemResult{ClientScanID: in.ClientScanID, Result: res, Err: err})
	}
	return out, nil
}

// ListScans returns the scans of a session in classification order.
func (s *Service) ListScans(ctx context.Context, sessionID uuid.UUID) ([]*domain.Scan, error) {
	if _, err := s.getSession(ctx, sessionID); err != nil {
		return nil, err
	}
	scans, err := s.scans.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list scans: %w", err)
	}
	return scans, nil
}
