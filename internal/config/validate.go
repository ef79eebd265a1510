package config

import (
	"fmt"
	"net/url"
	"time"
)

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 characters (got %d)", len(c.Auth.JWTSecret))
	}
	if c.Auth.JWTLeeway < 0 || c.Auth.JWTLeeway > 5*time.Minute {
		return fmt.Errorf("auth.jwt_leeway must be between 0 and 5m (got %s)", c.Auth.JWTLeeway)
	}
	if len(c.Auth.ApproverRoleList()) == 0 {
		return fmt.Errorf("auth.approver_roles must list at least one role")
	}

	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for driver %q", DriverPostgres)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("database.driver must be %q or %q (got %q)", DriverPostgres, DriverMemory, c.Database.Driver)
	}

	if err := c.Inventory.validate(); err != nil {
		return fmt.Errorf("inventory: %w", err)
	}

	if err := c.Audit.validate(); err != nil {
		return fmt.Errorf("audit: %w", err)
	}

	if c.Redis.Enabled() && c.Redis.LockTTL < time.Second {
		return fmt.Errorf("redis.lock_ttl must be at least 1s (got %v)", c.Redis.LockTTL)
	}

	if c.RateLimit.Enabled && (c.RateLimit.PerMinute <= 0 || c.RateLimit.ScanPerMinute <= 0) {
		return fmt.Errorf("rate_limit: limits must be > 0 when enabled")
	}

	return nil
}

func (c *InventoryConfig) validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("base_url must be an absolute URL (got %q)", c.BaseURL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be > 0 (got %v)", c.Timeout)
	}
	return nil
}

func (c *AuditConfig) validate() error {
	if c.MaxScanBatch <= 0 {
		return fmt.Errorf("max_scan_batch must be > 0 (got %d)", c.MaxScanBatch)
	}
	if c.LockTimeout <= 0 {
		return fmt.Errorf("lock_timeout must be > 0 (got %v)", c.LockTimeout)
	}
	if c.ActionTimeout <= 0 {
		return fmt.Errorf("action_timeout must be > 0 (got %v)", c.ActionTimeout)
	}
	if c.SnapshotTimeout <= 0 {
		return fmt.Errorf("snapshot_timeout must be > 0 (got %v)", c.SnapshotTimeout)
	}
	if c.ApplyConcurrency < 1 {
		return fmt.Errorf("apply_concurrency must be >= 1 (got %d)", c.ApplyConcurrency)
	}
	return nil
}
