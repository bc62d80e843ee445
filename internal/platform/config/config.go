package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Ledger backends.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// Postgres database/sql drivers.
const (
	DriverPQ  = "pq"
	DriverPGX = "pgx"
)

// DevJWTSigningKey is used when JWT_SIGNING_KEY is unset. Never run with it outside development.
const DevJWTSigningKey = "dev-secret-key-change-in-production"

type Config struct {
	Server    Server
	Ledger    LedgerConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Audit     AuditConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	VoteFee   int64
	LogLevel  string
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	ShutdownTimeout time.Duration
}

type LedgerConfig struct {
	Backend        string
	DatabaseURL    string
	PostgresDriver string
	SQLitePath     string
	KeyTTL         time.Duration
}

type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig enables the audit sink when Brokers is non-empty.
type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
}

// AuditConfig sizes the in-process audit ring served on the admin routes.
type AuditConfig struct {
	MemoryEvents int
}

type AuthConfig struct {
	JWTSigningKey string
	JWTIssuer     string
	TokenTTL      time.Duration
	// AdminToken gates /admin routes; empty disables them.
	AdminToken string
}

// RateLimitConfig bounds writes per caller. Writes == 0 disables the limiter.
// Buckets live in Redis when REDIS_URL is set and in process memory otherwise.
type RateLimitConfig struct {
	Writes int
	Window time.Duration
}

// Load reads envFile into the process environment when it exists, then builds
// the config from the environment. Variables already set win over the file.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	return FromEnv()
}

// FromEnv builds the config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	return fromLookup(os.LookupEnv)
}

func fromLookup(lookup func(string) (string, bool)) (Config, error) {
	e := env{lookup: lookup}
	cfg := Config{
		Server: Server{
			Addr:            e.str("POLLBOOK_ADDR", ":8080"),
			ShutdownTimeout: e.duration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Ledger: LedgerConfig{
			Backend:        strings.ToLower(e.str("LEDGER_BACKEND", BackendMemory)),
			DatabaseURL:    e.str("DATABASE_URL", ""),
			PostgresDriver: strings.ToLower(e.str("POSTGRES_DRIVER", DriverPQ)),
			SQLitePath:     e.str("SQLITE_PATH", "pollbook.db"),
			KeyTTL:         e.duration("LEDGER_KEY_TTL", 100*24*time.Hour),
		},
		Redis: RedisConfig{
			URL:          e.str("REDIS_URL", ""),
			PoolSize:     e.intVal("REDIS_POOL_SIZE", 10),
			MinIdleConns: e.intVal("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  e.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  e.duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: e.duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:    e.list("KAFKA_BROKERS"),
			AuditTopic: e.str("AUDIT_TOPIC", "pollbook.audit"),
		},
		Audit: AuditConfig{
			MemoryEvents: e.intVal("AUDIT_MEMORY_EVENTS", 10_000),
		},
		Auth: AuthConfig{
			JWTSigningKey: e.str("JWT_SIGNING_KEY", DevJWTSigningKey),
			JWTIssuer:     e.str("JWT_ISSUER", "pollbook"),
			TokenTTL:      e.duration("JWT_TOKEN_TTL", time.Hour),
			AdminToken:    e.str("ADMIN_TOKEN", ""),
		},
		RateLimit: RateLimitConfig{
			Writes: e.intVal("RATE_LIMIT_WRITES", 60),
			Window: e.duration("RATE_LIMIT_WINDOW", time.Minute),
		},
		VoteFee:  e.int64Val("VOTE_FEE_STROOPS", 1_000_000),
		LogLevel: strings.ToLower(e.str("LOG_LEVEL", "info")),
	}
	if len(e.errs) > 0 {
		return Config{}, errors.Join(e.errs...)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field requirements.
func (c Config) Validate() error {
	var errs []error
	switch c.Ledger.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Redis.URL == "" {
			errs = append(errs, errors.New("REDIS_URL is required for the redis ledger backend"))
		}
	case BackendPostgres:
		if c.Ledger.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres ledger backend"))
		}
		if c.Ledger.PostgresDriver != DriverPQ && c.Ledger.PostgresDriver != DriverPGX {
			errs = append(errs, fmt.Errorf("POSTGRES_DRIVER must be %q or %q", DriverPQ, DriverPGX))
		}
	case BackendSQLite:
		if c.Ledger.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required for the sqlite ledger backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown LEDGER_BACKEND %q", c.Ledger.Backend))
	}
	if c.Ledger.KeyTTL <= 0 {
		errs = append(errs, errors.New("LEDGER_KEY_TTL must be positive"))
	}
	if c.VoteFee < 0 {
		errs = append(errs, errors.New("VOTE_FEE_STROOPS must not be negative"))
	}
	if len(c.Auth.JWTSigningKey) < 16 {
		errs = append(errs, errors.New("JWT_SIGNING_KEY must be at least 16 bytes"))
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.AuditTopic == "" {
		errs = append(errs, errors.New("AUDIT_TOPIC is required when KAFKA_BROKERS is set"))
	}
	if c.Audit.MemoryEvents <= 0 {
		errs = append(errs, errors.New("AUDIT_MEMORY_EVENTS must be positive"))
	}
	if c.RateLimit.Writes < 0 {
		errs = append(errs, errors.New("RATE_LIMIT_WRITES must not be negative"))
	}
	if c.RateLimit.Writes > 0 && c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_WINDOW must be positive"))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown LOG_LEVEL %q", c.LogLevel))
	}
	return errors.Join(errs...)
}

type env struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (e *env) str(key, def string) string {
	if v, ok := e.lookup(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (e *env) intVal(key string, def int) int {
	raw := e.str(key, "")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: invalid integer %q", key, raw))
		return def
	}
	return n
}

func (e *env) int64Val(key string, def int64) int64 {
	raw := e.str(key, "")
	if raw == "" {
		return def
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: invalid integer %q", key, raw))
		return def
	}
	return n
}

func (e *env) duration(key string, def time.Duration) time.Duration {
	raw := e.str(key, "")
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: invalid duration %q", key, raw))
		return def
	}
	return d
}

func (e *env) list(key string) []string {
	raw := e.str(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
