package config

import (
	"fmt"
	"time"
)

// Remote backends understood by the wiring layer.
const (
	BackendSheets   = "sheets"
	BackendS3       = "s3"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config holds runtime settings for the docsync CLI.
type Config struct {
	RemoteBackend string

	// Google Sheets backend.
	SheetsSpreadsheetID   string
	SheetsCredentialsFile string

	// S3 backend. Static credentials are optional; without them the default
	// AWS credential chain is used.
	S3Bucket       string
	S3Prefix       string
	S3Region       string
	S3BaseEndpoint string
	S3AccessKey    string
	S3SecretKey    string

	// Postgres backend.
	RemoteDatabaseDSN string

	// CacheDSN is the SQLite DSN of the local cache. The default keeps the
	// cache in memory for the lifetime of the process.
	CacheDSN string

	DocsCollectionPrefix string
	BackfillRemoteIDs    bool

	ReadCacheTTL  time.Duration
	ReadCacheSize int

	// PublicationTarget is how many validated documents a client is
	// expected to have; the client analysis reports the shortfall.
	PublicationTarget int

	SessionSecret string
	SessionTTL    time.Duration
	SessionFile   string

	LogLevel string
	LogFile  string

	DefaultAdminUser     string
	DefaultAdminPassword string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.RemoteBackend = BackendSheets
	c.S3Region = "us-east-1"
	c.CacheDSN = ":memory:"
	c.DocsCollectionPrefix = "docs_"
	c.BackfillRemoteIDs = true
	c.ReadCacheTTL = 15 * time.Minute
	c.ReadCacheSize = 128
	c.PublicationTarget = 100
	c.SessionTTL = 12 * time.Hour
	c.SessionFile = ".docsync-session"
	c.LogLevel = "info"
	c.DefaultAdminUser = "admin"
}

// LoadConfig applies defaults, then the file at path (if any), then the
// flags in fs that were explicitly set (if fs is non-nil).
func LoadConfig(path string, fs Changed) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if path != "" {
		if err := parseFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if fs != nil {
		if err := applyChangedFlags(fs, cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the selected backend has what it needs.
func (c *Config) Validate() error {
	switch c.RemoteBackend {
	case BackendSheets:
		if c.SheetsSpreadsheetID == "" {
			return fmt.Errorf("sheets backend: spreadsheet id is required")
		}
	case BackendS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("s3 backend: bucket is required")
		}
	case BackendPostgres:
		if c.RemoteDatabaseDSN == "" {
			return fmt.Errorf("postgres backend: database dsn is required")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown remote backend %q", c.RemoteBackend)
	}
	if c.DocsCollectionPrefix == "" {
		return fmt.Errorf("docs collection prefix must not be empty")
	}
	if c.PublicationTarget < 0 {
		return fmt.Errorf("publication target must not be negative")
	}
	return nil
}
