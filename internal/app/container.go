package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/heartmarshall/inventory-audit-backend/internal/adapter/events"
	"github.com/heartmarshall/inventory-audit-backend/internal/adapter/inventory"
	"github.com/heartmarshall/inventory-audit-backend/internal/adapter/lock"
	"github.com/heartmarshall/inventory-audit-backend/internal/adapter/memory"
	"github.com/heartmarshall/inventory-audit-backend/internal/adapter/postgres"
	actionrepo "github.com/heartmarshall/inventory-audit-backend/internal/adapter/postgres/action"
	discrepancyrepo "github.com/heartmarshall/inventory-audit-backend/internal/adapter/postgres/discrepancy"
	itemresultrepo "github.com/heartmarshall/inventory-audit-backend/internal/adapter/postgres/itemresult"
	planrepo "github.com/heartmarshall/inventory-audit-backend/internal/adapter/postgres/plan"
	scanrepo "github.com/heartmarshall/inventory-audit-backend/internal/adapter/postgres/scan"
	sessionrepo "github.com/heartmarshall/inventory-audit-backend/internal/adapter/postgres/session"
	snapshotrepo "github.com/heartmarshall/inventory-audit-backend/internal/adapter/postgres/snapshot"
	"github.com/heartmarshall/inventory-audit-backend/internal/config"
	"github.com/heartmarshall/inventory-audit-backend/internal/domain"
	"github.com/heartmarshall/inventory-audit-backend/internal/service/audit"
	"github.com/heartmarshall/inventory-audit-backend/internal/telemetry"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// Probe is a dependency the health endpoints check.
type Probe struct {
	Name     string
	Pinger   pinger
	Optional bool
}

type publisher interface {
	Publish(ctx context.Context, e domain.SessionEvent) error
	Close() error
}

// Container holds the wired audit engine and the resources behind it.
type Container struct {
	Audit  *audit.Service
	DB     pinger
	Probes []Probe

	closers []func() error
	log     *slog.Logger
}

// Build connects storage, the inventory backend, locks and the event
// publisher according to cfg and wires the audit service on top.
// Call Close when done.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	c := &Container{log: logger}

	inv := inventory.NewClient(cfg.Inventory.BaseURL, cfg.Inventory.Token, cfg.Inventory.Timeout, logger)

	locks, err := c.buildLocker(ctx, cfg)
	if err != nil {
		c.Close()
		return nil, err
	}
	pub := c.buildPublisher(cfg)

	switch cfg.Database.Driver {
	case config.DriverMemory:
		store := memory.New()
		c.DB = store
		c.Probes = append([]Probe{{Name: "storage", Pinger: store}}, c.Probes...)
		logger.Warn("using in-memory storage; data is lost on restart")
		c.Audit = audit.NewService(logger,
			store.Plans(), store.Sessions(), store.Snapshots(), store.Scans(),
			store.Results(), store.Discrepancies(), store.Actions(),
			inv, locks, pub, store, cfg.Audit,
		)
		return c, nil

	default:
		if cfg.Database.AutoMigrate {
			if err := migrateUp(ctx, cfg.Database.DSN, logger); err != nil {
				c.Close()
				return nil, err
			}
		}

		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			c.Close()
			return nil, err
		}
		c.closers = append(c.closers, func() error { pool.Close(); return nil })
		c.DB = pool
		c.Probes = append([]Probe{{Name: "storage", Pinger: pool}}, c.Probes...)
		telemetry.StartPoolStatsCollector(ctx, pool)

		c.Audit = audit.NewService(logger,
			planrepo.New(pool),
			sessionrepo.New(pool),
			snapshotrepo.New(pool),
			scanrepo.New(pool),
			itemresultrepo.New(pool),
			discrepancyrepo.New(pool),
			actionrepo.New(pool),
			inv, locks, pub, postgres.NewTxManager(pool), cfg.Audit,
		)
		logger.Info("connected to postgres",
			slog.Int("max_conns", int(cfg.Database.MaxConns)),
		)
		return c, nil
	}
}

func (c *Container) buildLocker(ctx context.Context, cfg *config.Config) (locker, error) {
	if !cfg.Redis.Enabled() {
		return lock.NewLocal(cfg.Audit.LockTimeout), nil
	}

	client, err := lock.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	c.closers = append(c.closers, client.Close)
	c.log.Info("using redis session locks", slog.String("addr", cfg.Redis.Addr))

	l := lock.NewRedis(client, cfg.Redis.LockTTL, cfg.Audit.LockTimeout, c.log)
	c.Probes = append(c.Probes, Probe{Name: "locks", Pinger: l})
	return l, nil
}

func (c *Container) buildPublisher(cfg *config.Config) publisher {
	if !cfg.Kafka.Enabled() {
		return events.Noop{}
	}
	p := events.NewKafkaPublisher(cfg.Kafka.BrokerList(), cfg.Kafka.Topic, cfg.Kafka.WriteTimeout, c.log)
	c.closers = append(c.closers, p.Close)
	c.Probes = append(c.Probes, Probe{Name: "events", Pinger: p, Optional: true})
	c.log.Info("publishing session events to kafka",
		slog.String("topic", cfg.Kafka.Topic),
		slog.Any("brokers", cfg.Kafka.BrokerList()),
	)
	return p
}

// Close releases everything Build opened, in reverse order.
func (c *Container) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

func migrateUp(ctx context.Context, dsn string, logger *slog.Logger) error {
	m, err := postgres.NewMigrator(dsn)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(ctx, logger); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}
