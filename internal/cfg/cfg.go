package cfg

import (
	"errors"
	"flag"
	"fmt"
	"time"
)

// Store backends selected by Config.StoreKind.
const (
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
	StoreMemory   = "memory"
)

// Config adds carepath-specific configuration fields to the
// common cfg.Registerable and cfg.Validatable interfaces
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int

	DatabaseURL  string
	DBMaxConns   int
	DBSlowQuery  time.Duration
	SQLitePath   string
	SessionTTL   time.Duration
	SweepEvery   time.Duration
	FailOpen     bool
	EarlyRedFlag bool

	LLMAugment   bool
	ClaudeAPIKey string
	ClaudeModel  string

	SlackWebhookURL string
	AdminToken      string
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.StringVar(&c.DatabaseURL, "database-url", "", "PostgreSQL connection URL for the session store")
	fs.IntVar(&c.DBMaxConns, "db-max-conns", 0, "maximum PostgreSQL pool connections (0 = pgx default)")
	fs.DurationVar(&c.DBSlowQuery, "db-slow-query", 0, "only log successful queries slower than this (0 = log all)")
	fs.StringVar(&c.SQLitePath, "sqlite-path", "", "SQLite file for the session store (used when database-url is empty)")
	fs.DurationVar(&c.SessionTTL, "session-ttl", 30*time.Minute, "sliding idle expiry for intake sessions")
	fs.DurationVar(&c.SweepEvery, "sweep-interval", time.Minute, "how often expired sessions are purged")
	fs.BoolVar(&c.FailOpen, "store-fail-open", false, "continue intake turns unsaved when the session store fails")
	fs.BoolVar(&c.EarlyRedFlag, "early-red-flag", true, "finish intake as soon as a red-flag rule matches")
	fs.BoolVar(&c.LLMAugment, "llm-augment", false, "add plain-language prose to verdicts via Claude")
	fs.StringVar(&c.ClaudeAPIKey, "claude-api-key", "", "API key for the Claude provider (required with llm-augment)")
	fs.StringVar(&c.ClaudeModel, "claude-model", "claude-sonnet-4-20250514", "Claude model used for verdict prose")
	fs.StringVar(&c.SlackWebhookURL, "slack-webhook-url", "", "Slack webhook URL for emergency notifications")
	fs.StringVar(&c.AdminToken, "admin-token", "", "bearer token required by operator endpoints (empty = open)")
}

// StoreKind reports which session store the configuration selects.
func (c *Config) StoreKind() string {
	switch {
	case c.DatabaseURL != "":
		return StorePostgres
	case c.SQLitePath != "":
		return StoreSQLite
	default:
		return StoreMemory
	}
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	// Drain and shutdown budgets
	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}

	// Shutdown budget must be greater than drain time
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	// API port must be valid TCP port number
	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	if c.DatabaseURL != "" && c.SQLitePath != "" {
		errs = append(errs, errors.New("DATABASE_URL and SQLITE_PATH are mutually exclusive"))
	}
	if c.DBMaxConns < 0 || c.DBMaxConns > 1000 {
		errs = append(errs, fmt.Errorf("invalid DB_MAX_CONNS %d (must be 0..1000)", c.DBMaxConns))
	}
	if c.DBSlowQuery < 0 {
		errs = append(errs, fmt.Errorf("invalid DB_SLOW_QUERY %s (must not be negative)", c.DBSlowQuery))
	}

	// Session expiry and sweeping
	if c.SessionTTL < time.Minute || c.SessionTTL > 24*time.Hour {
		errs = append(errs, fmt.Errorf("invalid SESSION_TTL %s (must be 1m..24h)", c.SessionTTL))
	}
	if c.SweepEvery < time.Second || c.SweepEvery > time.Hour {
		errs = append(errs, fmt.Errorf("invalid SWEEP_INTERVAL %s (must be 1s..1h)", c.SweepEvery))
	}

	// Claude is only needed when verdict prose is enabled
	if c.LLMAugment {
		if c.ClaudeAPIKey == "" {
			errs = append(errs, errors.New("CLAUDE_API_KEY is required when LLM_AUGMENT is set"))
		}
		if c.ClaudeModel == "" {
			errs = append(errs, errors.New("CLAUDE_MODEL is required when LLM_AUGMENT is set"))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
