package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/inventory-audit-backend/internal/config"
	"github.com/heartmarshall/inventory-audit-backend/internal/domain"
)

type planRepo interface {
	Create(ctx context.Context, p *domain.AuditPlan) (*domain.AuditPlan, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.AuditPlan, error)
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.AuditPlan, error)
	List(ctx context.Context, f domain.PlanFilter) ([]*domain.AuditPlan, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.PlanStatus) (*domain.AuditPlan, error)
}

type sessionRepo interface {
	Create(ctx context.Context, s *domain.AuditSession) (*domain.AuditSession, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.AuditSession, error)
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.AuditSession, error)
	GetOpenByLocation(ctx context.Context, locationID int64) (*domain.AuditSession, error)
	List(ctx context.Context, f domain.SessionFilter) ([]*domain.AuditSession, int, error)
	Update(ctx context.Context, s *domain.AuditSession) (*domain.AuditSession, error)
	SetSnapshotVersion(ctx context.Context, id uuid.UUID, version string, at time.Time) error
}

type snapshotRepo interface {
	InsertBatch(ctx context.Context, items []domain.ExpectedItem) error
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]domain.ExpectedItem, error)
	GetByItem(ctx context.Context, sessionID uuid.UUID, itemID int64) (*domain.ExpectedItem, error)
	GetByBarcode(ctx context.Context, sessionID uuid.UUID, barcode string) (*domain.ExpectedItem, error)
	CountBySession(ctx context.Context, sessionID uuid.UUID) (int, error)
}

type scanRepo interface {
	Create(ctx context.Context, sc *domain.Scan) (*domain.Scan, error)
	GetByClientScanID(ctx context.Context, sessionID uuid.UUID, clientScanID string) (*domain.Scan, error)
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*domain.Scan, error)
	CountBySession(ctx context.Context, sessionID uuid.UUID) (int, error)
}

type resultRepo interface {
	Upsert(ctx context.Context, res *domain.ItemResult) (*domain.ItemResult, error)
	Get(ctx context.Context, sessionID uuid.UUID, itemID int64) (*domain.ItemResult, error)
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*domain.ItemResult, error)
	DeleteBySession(ctx context.Context, sessionID uuid.UUID) error
}

type discrepancyRepo interface {
	Insert(ctx context.Context, d *domain.Discrepancy) (*domain.Discrepancy, bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Discrepancy, error)
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Discrepancy, error)
	List(ctx context.Context, f domain.DiscrepancyFilter) ([]*domain.Discrepancy, error)
	CountOpen(ctx context.Context, sessionID uuid.UUID) (int, error)
	UpdateResolution(ctx context.Context, d *domain.Discrepancy) (*domain.Discrepancy, error)
}

type actionRepo interface {
	Insert(ctx context.Context, a *domain.Action) (*domain.Action, bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Action, error)
	List(ctx context.Context, f domain.ActionFilter) ([]*domain.Action, error)
	UpdateStatus(ctx context.Context, a *domain.Action) (*domain.Action, error)
}

type inventoryClient interface {
	GetItemsByLocation(ctx context.Context, locationID int64) ([]domain.InventoryItem, error)
	ResolveBarcode(ctx context.Context, barcode string) (*domain.InventoryItem, error)
	GetItem(ctx context.Context, itemID int64) (*domain.InventoryItem, error)
	MoveItem(ctx context.Context, itemID, toLocationID int64, idempotencyKey string) error
	SetResponsible(ctx context.Context, itemID int64, userID *int64, idempotencyKey string) error
}

type locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

type eventPublisher interface {
	Publish(ctx context.Context, e domain.SessionEvent) error
}

type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service is the reconciliation engine: plans, snapshots, scan ingestion,
// the session state machine, discrepancy resolution and remediation actions.
type Service struct {
	plans         planRepo
	sessions      sessionRepo
	snapshots     snapshotRepo
	scans         scanRepo
	results       resultRepo
	discrepancies discrepancyRepo
	actions       actionRepo
	inventory     inventoryClient
	locks         locker
	events        eventPublisher
	tx            txManager
	cfg           config.AuditConfig
	log           *slog.Logger
	now           func() time.Time
}

// NewService creates a new audit service.
func NewService(
	logger *slog.Logger,
	plans planRepo,
	sessions sessionRepo,
	snapshots snapshotRepo,
	scans scanRepo,
	results resultRepo,
	discrepancies discrepancyRepo,
	actions actionRepo,
	inventory inventoryClient,
	locks locker,
	events eventPublisher,
	tx txManager,
	cfg config.AuditConfig,
) *Service {
	return &Service{
		plans:         plans,
		sessions:      sessions,
		snapshots:     snapshots,
		scans:         scans,
		results:       results,
		discrepancies: discrepancies,
		actions:       actions,
		inventory:     inventory,
		locks:         locks,
		events:        events,
		tx:            tx,
		cfg:           cfg,
		log:           logger.With("service", "audit"),
		now:           func() time.Time { return time.Now().UTC() },
	}
}
