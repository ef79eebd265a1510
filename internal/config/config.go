package config

import (
	"strings"
	"time"
)

// Config is the root application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Log       LogConfig       `yaml:"log"`
	CORS      CORSConfig      `yaml:"cors"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Audit     AuditConfig     `yaml:"audit"`
	Inventory InventoryConfig `yaml:"inventory"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins   string `yaml:"allowed_origins"   env:"CORS_ALLOWED_ORIGINS"   env-default:"*"`
	AllowedMethods   string `yaml:"allowed_methods"   env:"CORS_ALLOWED_METHODS"   env-default:"GET,POST,OPTIONS"`
	AllowedHeaders   string `yaml:"allowed_headers"   env:"CORS_ALLOWED_HEADERS"   env-default:"Authorization,Content-Type,X-Request-Id"`
	AllowCredentials bool   `yaml:"allow_credentials" env:"CORS_ALLOW_CREDENTIALS" env-default:"true"`
	MaxAge           int    `yaml:"max_age"           env:"CORS_MAX_AGE"           env-default:"86400"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host"             env:"SERVER_HOST"             env-default:"0.0.0.0"`
	Port            int           `yaml:"port"             env:"SERVER_PORT"             env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"    env-default:"60s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"SERVER_IDLE_TIMEOUT"     env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// DatabaseConfig holds storage settings. The memory driver keeps everything
// in process and is meant for local runs.
type DatabaseConfig struct {
	Driver          string        `yaml:"driver"             env:"DATABASE_DRIVER"             env-default:"postgres"`
	DSN             string        `yaml:"dsn"                env:"DATABASE_DSN"`
	MaxConns        int32         `yaml:"max_conns"          env:"DATABASE_MAX_CONNS"          env-default:"25"`
	MinConns        int32         `yaml:"min_conns"          env:"DATABASE_MIN_CONNS"          env-default:"5"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"DATABASE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
	AutoMigrate     bool          `yaml:"auto_migrate"       env:"DATABASE_AUTO_MIGRATE"       env-default:"false"`
}

// AuthConfig holds bearer token validation settings.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" env:"AUTH_JWT_SECRET" env-required:"true"`
	JWTIssuer string `yaml:"jwt_issuer" env:"AUTH_JWT_ISSUER" env-default:"inventory"`
	// JWTAudience, when set, must appear in the token "aud" claim.
	JWTAudience string        `yaml:"jwt_audience" env:"AUTH_JWT_AUDIENCE"`
	JWTLeeway   time.Duration `yaml:"jwt_leeway"   env:"AUTH_JWT_LEEWAY"   env-default:"30s"`
	// ApproverRoles may approve, apply, finalize and cancel sessions.
	ApproverRoles string `yaml:"approver_roles" env:"AUTH_APPROVER_ROLES" env-default:"manager,admin"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// RateLimitConfig holds per-client request limits.
type RateLimitConfig struct {
	Enabled       bool `yaml:"enabled"         env:"RATE_LIMIT_ENABLED"         env-default:"true"`
	PerMinute     int  `yaml:"per_minute"      env:"RATE_LIMIT_PER_MINUTE"      env-default:"600"`
	ScanPerMinute int  `yaml:"scan_per_minute" env:"RATE_LIMIT_SCAN_PER_MINUTE" env-default:"1200"`
}

// AuditConfig holds reconciliation engine settings.
type AuditConfig struct {
	MaxScanBatch     int           `yaml:"max_scan_batch"     env:"AUDIT_MAX_SCAN_BATCH"     env-default:"500"`
	LockTimeout      time.Duration `yaml:"lock_timeout"       env:"AUDIT_LOCK_TIMEOUT"       env-default:"5s"`
	ActionTimeout    time.Duration `yaml:"action_timeout"     env:"AUDIT_ACTION_TIMEOUT"     env-default:"10s"`
	ApplyConcurrency int           `yaml:"apply_concurrency"  env:"AUDIT_APPLY_CONCURRENCY"  env-default:"4"`
	SnapshotTimeout  time.Duration `yaml:"snapshot_timeout"   env:"AUDIT_SNAPSHOT_TIMEOUT"   env-default:"30s"`
}

// InventoryConfig points at the external inventory/cabinet service.
type InventoryConfig struct {
	BaseURL string        `yaml:"base_url" env:"INVENTORY_BASE_URL"`
	Token   string        `yaml:"token"    env:"INVENTORY_TOKEN"`
	Timeout time.Duration `yaml:"timeout"  env:"INVENTORY_TIMEOUT"  env-default:"10s"`
}

// RedisConfig enables distributed session locks. Empty Addr keeps locks in process.
type RedisConfig struct {
	Addr     string        `yaml:"addr"     env:"REDIS_ADDR"`
	Password string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int           `yaml:"db"       env:"REDIS_DB"       env-default:"0"`
	LockTTL  time.Duration `yaml:"lock_ttl" env:"REDIS_LOCK_TTL" env-default:"2m"`
}

// Enabled reports whether a Redis address is configured.
func (c RedisConfig) Enabled() bool { return c.Addr != "" }

// KafkaConfig enables lifecycle event publishing. Empty Brokers disables it.
type KafkaConfig struct {
	Brokers      string        `yaml:"brokers"       env:"KAFKA_BROKERS"`
	Topic        string        `yaml:"topic"         env:"KAFKA_TOPIC"         env-default:"audit.session-events"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"KAFKA_WRITE_TIMEOUT" env-default:"10s"`
}

// Enabled reports whether at least one broker is configured.
func (c KafkaConfig) Enabled() bool { return len(c.BrokerList()) > 0 }

// BrokerList splits the comma-separated broker list.
func (c KafkaConfig) BrokerList() []string {
	var out []string
	for _, b := range strings.Split(c.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// MetricsConfig holds the Prometheus side listener settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" env:"METRICS_ENABLED" env-default:"true"`
	Addr    string `yaml:"addr"    env:"METRICS_ADDR"    env-default:":9090"`
}

// ApproverRoleList splits the comma-separated approver roles.
func (c AuthConfig) ApproverRoleList() []string {
	var out []string
	for _, r := range strings.Split(c.ApproverRoles, ",") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}
