package audit

import (
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/inventory-audit-backend/internal/domain"
)

// scanFacts is everything classification needs to know about one scan.
type scanFacts struct {
	SessionID       uuid.UUID
	ScanID          uuid.UUID
	ScanTime        time.Time
	Barcode         string
	FoundLocationID int64

	// ItemID is nil when the barcode resolved to nothing.
	ItemID *int64
	// Expected is the snapshot row of the item, nil when not expected.
	Expected *domain.ExpectedItem
	// RegistryLocationID is where the registry places an unexpected item.
	RegistryLocationID *int64
	// Prior is the item result before this scan, nil on first sight.
	Prior *domain.ItemResult
}

// classification is the delta produced by one scan.
type classification struct {
	Outcome       domain.ScanOutcome
	Result        *domain.ItemResult
	Discrepancies []*domain.Discrepancy
}

// classifyScan is pure: the same facts always give the same delta.
//
// The first scan of an item fixes its found location. A later scan at the
// same location is a rescan; at any other location it raises a duplicate
// keyed by that location, so each extra location is flagged once.
func classifyScan(f scanFacts) classification {
	found := f.FoundLocationID

	if f.ItemID == nil {
		return classification{
			Outcome: domain.OutcomeUnknownBarcode,
			Discrepancies: []*domain.Discrepancy{
				newDiscrepancy(f, domain.DiscrepancyUnknownBarcode, nil),
			},
		}
	}

	if f.Prior != nil && f.Prior.FoundLocationID != nil {
		res := *f.Prior
		res.ScanCount++
		if res.LastScanAt == nil || f.ScanTime.After(*res.LastScanAt) {
			at := f.ScanTime
			res.LastScanAt = &at
		}
		if *f.Prior.FoundLocationID == found {
			return classification{Outcome: domain.OutcomeRescan, Result: &res}
		}
		d := newDiscrepancy(f, domain.DiscrepancyDuplicate, f.Prior.ExpectedLocationID)
		return classification{
			Outcome:       domain.OutcomeDuplicate,
			Result:        &res,
			Discrepancies: []*domain.Discrepancy{d},
		}
	}

	at := f.ScanTime
	res := &domain.ItemResult{
		SessionID:       f.SessionID,
		ItemID:          *f.ItemID,
		Status:          domain.ResultStatusFound,
		FoundLocationID: &found,
		FirstFoundAt:    &at,
		LastScanAt:      &at,
		ScanCount:       1,
	}

	if f.Expected != nil {
		expected := f.Expected.ExpectedLocationID
		res.ExpectedLocationID = &expected
		if expected == found {
			res.Status = domain.ResultStatusFoundInPlace
			return classification{Outcome: domain.OutcomeFoundInPlace, Result: res}
		}
		d := newDiscrepancy(f, domain.DiscrepancyMisplaced, &expected)
		d.ExpectedResponsibleID = f.Expected.ExpectedResponsibleID
		return classification{
			Outcome:       domain.OutcomeMisplaced,
			Result:        res,
			Discrepancies: []*domain.Discrepancy{d},
		}
	}

	res.ExpectedLocationID = f.RegistryLocationID
	return classification{
		Outcome:       domain.OutcomeUnexpected,
		Result:        res,
		Discrepancies: []*domain.Discrepancy{newDiscrepancy(f, domain.DiscrepancyUnexpected, f.RegistryLocationID)},
	}
}

func newDiscrepancy(f scanFacts, t domain.DiscrepancyType, expectedLocation *int64) *domain.Discrepancy {
	found := f.FoundLocationID
	scanID := f.ScanID
	d := &domain.Discrepancy{
		ID:                 uuid.New(),
		SessionID:          f.SessionID,
		Type:               t,
		ItemID:             f.ItemID,
		ExpectedLocationID: expectedLocation,
		FoundLocationID:    &found,
		ScanID:             &scanID,
		DedupKey:           domain.DiscrepancyKey(t, f.ItemID, f.Barcode, &found),
		ResolutionStatus:   domain.ResolutionOpen,
	}
	if f.Barcode != "" {
		barcode := f.Barcode
		d.BarcodeValue = &barcode
	}
	return d
}

// missingDelta marks every expected item without a result as missing.
// Items come back in snapshot order.
func missingDelta(sessionID uuid.UUID, expected []domain.ExpectedItem, results map[int64]*domain.ItemResult, now time.Time) ([]*domain.ItemResult, []*domain.Discrepancy) {
	var (
		missing []*domain.ItemResult
		found   []*domain.Discrepancy
	)
	for _, it := range expected {
		if _, ok := results[it.ItemID]; ok {
			continue
		}
		itemID := it.ItemID
		expectedLoc := it.ExpectedLocationID
		missing = append(missing, &domain.ItemResult{
			SessionID:          sessionID,
			ItemID:             itemID,
			Status:             domain.ResultStatusMissing,
			ExpectedLocationID: &expectedLoc,
			UpdatedAt:          now,
		})

		d := &domain.Discrepancy{
			ID:                    uuid.New(),
			SessionID:             sessionID,
			Type:                  domain.DiscrepancyMissing,
			ItemID:                &itemID,
			ExpectedLocationID:    &expectedLoc,
			ExpectedResponsibleID: it.ExpectedResponsibleID,
			DedupKey:              domain.DiscrepancyKey(domain.DiscrepancyMissing, &itemID, it.Barcode, nil),
			ResolutionStatus:      domain.ResolutionOpen,
		}
		if it.Barcode != "" {
			barcode := it.Barcode
			d.BarcodeValue = &barcode
		}
		found = append(found, d)
	}
	return missing, found
}
