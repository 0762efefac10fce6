package main

import (
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/partsline/partsline/internal/api"
	"github.com/partsline/partsline/internal/extract"
	"github.com/partsline/partsline/internal/session"
	"github.com/partsline/partsline/internal/store"
	"github.com/partsline/partsline/internal/util"
)

// Default configuration constants
const (
	// DefaultCatalogPath is the default product catalog file.
	DefaultCatalogPath = "products.json"
	// DefaultAddr is the default HTTP listen address.
	DefaultAddr = ":4000"
)

func main() {
	// Initialize structured logger
	initializeLogger()

	// Load environment configuration
	config := loadEnvironmentConfig()

	// Parse command line flags
	flags := parseCommandLineFlags(config)

	// Build module options
	extractOpts := buildExtractOptions(flags)
	sessionOpts := buildSessionOptions(flags)
	storeOpts := buildStoreOptions(flags)
	apiOpts := buildAPIOptions(flags)

	// Start the service
	slog.Info("Bootstrapping PartsLine with configured modules")
	slog.Debug("Module options counts", "extract", len(extractOpts), "session", len(sessionOpts), "store", len(storeOpts), "api", len(apiOpts))
	if err := api.Run(*flags.catalogPath, extractOpts, sessionOpts, storeOpts, apiOpts); err != nil {
		slog.Error("PartsLine failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("PartsLine exited successfully")
}

// Config holds environment configuration
type Config struct {
	OpenAIKey   string
	Addr        string
	CatalogPath string
	DatabaseURL string
	SessionTTL  time.Duration
}

// Flags holds command line flag values
type Flags struct {
	openaiKey   *string
	addr        *string
	catalogPath *string
	dbDSN       *string
	sessionTTL  *time.Duration
}

// initializeLogger sets up structured logging; PARTSLINE_DEBUG enables debug level.
func initializeLogger() {
	level := slog.LevelInfo
	if util.ParseBoolEnv("PARTSLINE_DEBUG", false) {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		OpenAIKey:   os.Getenv("OPENAI_API_KEY"),
		Addr:        os.Getenv("PORT"),
		CatalogPath: os.Getenv("PARTSLINE_CATALOG"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		SessionTTL:  util.ParseDurationEnv("SESSION_TTL", session.DefaultTTL),
	}

	// PORT carries just the port number; normalize it to a listen address.
	if config.Addr == "" {
		config.Addr = DefaultAddr
	} else if config.Addr[0] != ':' {
		config.Addr = ":" + config.Addr
	}
	if config.CatalogPath == "" {
		config.CatalogPath = DefaultCatalogPath
	}

	slog.Debug("environment variables loaded",
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"PORT", config.Addr,
		"PARTSLINE_CATALOG", config.CatalogPath,
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"SESSION_TTL", config.SessionTTL)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		openaiKey:   flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		addr:        flag.String("addr", config.Addr, "HTTP listen address (overrides $PORT)"),
		catalogPath: flag.String("catalog", config.CatalogPath, "product catalog JSON file (overrides $PARTSLINE_CATALOG)"),
		dbDSN:       flag.String("db-dsn", config.DatabaseURL, "quote store DSN, PostgreSQL or SQLite path (overrides $DATABASE_URL)"),
		sessionTTL:  flag.Duration("session-ttl", config.SessionTTL, "idle call session expiration (overrides $SESSION_TTL)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"openaiKeySet", *flags.openaiKey != "",
		"addr", *flags.addr,
		"catalog", *flags.catalogPath,
		"dbDSN_set", *flags.dbDSN != "",
		"sessionTTL", *flags.sessionTTL)

	return flags
}

// buildExtractOptions constructs extraction client configuration options
func buildExtractOptions(flags Flags) []extract.Option {
	var opts []extract.Option
	if *flags.openaiKey != "" {
		opts = append(opts, extract.WithAPIKey(*flags.openaiKey))
	}
	return opts
}

// buildSessionOptions constructs session store configuration options
func buildSessionOptions(flags Flags) []session.Option {
	var opts []session.Option
	if *flags.sessionTTL > 0 {
		opts = append(opts, session.WithTTL(*flags.sessionTTL))
	}
	return opts
}

// buildStoreOptions constructs quote store configuration options
func buildStoreOptions(flags Flags) []store.Option {
	var opts []store.Option
	if *flags.dbDSN != "" {
		if store.DetectDSNType(*flags.dbDSN) == "postgres" {
			slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store", "dsn_type", "postgresql", "dsn_set", true)
			opts = append(opts, store.WithPostgresDSN(*flags.dbDSN))
		} else {
			slog.Debug("Detected SQLite DSN, configuring SQLite store", "dsn_type", "sqlite", "db_path", *flags.dbDSN)
			opts = append(opts, store.WithSQLiteDSN(*flags.dbDSN))
		}
	} else {
		slog.Debug("No database DSN provided, will use in-memory quote store")
	}
	return opts
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags) []api.Option {
	var opts []api.Option
	if *flags.addr != "" {
		opts = append(opts, api.WithAddr(*flags.addr))
	}
	return opts
}
