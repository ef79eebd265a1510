package testhelper

import (
	"context"
	"encoding/binary"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heartmarshall/inventory-audit-backend/internal/domain"
)

// UniqueLocationID returns a location id unlikely to collide with other tests
// sharing the container. The open-session index is per location.
func UniqueLocationID() int64 {
	id := uuid.New()
	return int64(binary.BigEndian.Uint32(id[:4])) + 1
}

// SeedPlan inserts a draft location-scoped plan.
func SeedPlan(t *testing.T, pool *pgxpool.Pool, locationIDs ...int64) domain.AuditPlan {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Microsecond)
	plan := domain.AuditPlan{
		ID:        uuid.New(),
		Title:     "Plan " + uuid.New().String()[:8],
		ScopeType: domain.ScopeTypeLocation,
		Scope:     domain.PlanScope{LocationIDs: locationIDs},
		Status:    domain.PlanStatusDraft,
		CreatedBy: uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := pool.Exec(context.Background(),
		`INSERT INTO audit_plans (id, title, scope_type, scope, status, created_by, created_at, updated_at)
		 VALUES ($1, $2, $3, '{}'::jsonb, $4, $5, $6, $6)`,
		plan.ID, plan.Title, string(plan.ScopeType), string(plan.Status), plan.CreatedBy, plan.CreatedAt,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedPlan: %v", err)
	}
	return plan
}

// SeedSession inserts a session in the given status for a fresh location.
func SeedSession(t *testing.T, pool *pgxpool.Pool, status domain.SessionStatus) domain.AuditSession {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Microsecond)
	s := domain.AuditSession{
		ID:         uuid.New(),
		LocationID: UniqueLocationID(),
		Status:     status,
		CreatedBy:  uuid.New(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	_, err := pool.Exec(context.Background(),
		`INSERT INTO audit_sessions (id, location_id, status, created_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $5)`,
		s.ID, s.LocationID, string(s.Status), s.CreatedBy, s.CreatedAt,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedSession: %v", err)
	}
	return s
}

// SeedScan inserts a resolved barcode scan and returns its id.
func SeedScan(t *testing.T, pool *pgxpool.Pool, sessionID uuid.UUID, itemID, foundLocationID int64) uuid.UUID {
	t.Helper()

	id := uuid.New()
	_, err := pool.Exec(context.Background(),
		`INSERT INTO audit_scans (id, session_id, client_scan_id, scanner_user_id, scan_time, source,
		     barcode_value, item_id, found_location_id, outcome)
		 VALUES ($1, $2, $3, $4, now(), 'barcode', $5, $6, $7, 'found_in_place')`,
		id, sessionID, "seed-"+id.String()[:8], uuid.New(), "BC-"+id.String()[:6], itemID, foundLocationID,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedScan: %v", err)
	}
	return id
}
