package config

import (
	"fmt"

	"github.com/spf13/pflag"
)

// Changed is the part of a flag set LoadConfig needs: a walk over flags the
// user actually set. *pflag.FlagSet satisfies it.
type Changed interface {
	Visit(fn func(*pflag.Flag))
}

// Bind registers one flag per setting on fs, writing into c. Flag defaults
// are taken from the current values of c.
func (c *Config) Bind(fs *pflag.FlagSet) {
	fs.StringVarP(&c.RemoteBackend, "backend", "b", c.RemoteBackend, "remote backend: sheets, s3, postgres or memory")

	fs.StringVar(&c.SheetsSpreadsheetID, "spreadsheet", c.SheetsSpreadsheetID, "Google spreadsheet id")
	fs.StringVar(&c.SheetsCredentialsFile, "credentials", c.SheetsCredentialsFile, "service account credentials JSON file")

	fs.StringVar(&c.S3Bucket, "s3-bucket", c.S3Bucket, "S3 bucket holding the collections")
	fs.StringVar(&c.S3Prefix, "s3-prefix", c.S3Prefix, "key prefix for collection objects")
	fs.StringVar(&c.S3Region, "s3-region", c.S3Region, "S3 region")
	fs.StringVar(&c.S3BaseEndpoint, "s3-endpoint", c.S3BaseEndpoint, "S3 base endpoint (S3-compatible servers)")
	fs.StringVar(&c.S3AccessKey, "s3-access-key", c.S3AccessKey, "S3 access key")
	fs.StringVar(&c.S3SecretKey, "s3-secret-key", c.S3SecretKey, "S3 secret key")

	fs.StringVarP(&c.RemoteDatabaseDSN, "database-dsn", "d", c.RemoteDatabaseDSN, "postgres DSN of the remote store")
	fs.StringVar(&c.CacheDSN, "cache-dsn", c.CacheDSN, "SQLite DSN of the local cache")

	fs.StringVar(&c.DocsCollectionPrefix, "docs-prefix", c.DocsCollectionPrefix, "prefix of per-collaborator document collections")
	fs.BoolVar(&c.BackfillRemoteIDs, "backfill-ids", c.BackfillRemoteIDs, "write generated ids back to legacy remote rows")

	fs.DurationVar(&c.ReadCacheTTL, "read-cache-ttl", c.ReadCacheTTL, "TTL of cached report queries (0 disables)")
	fs.IntVar(&c.ReadCacheSize, "read-cache-size", c.ReadCacheSize, "max cached report queries")
	fs.IntVar(&c.PublicationTarget, "publication-target", c.PublicationTarget, "validated documents expected per client")

	fs.StringVar(&c.SessionSecret, "session-secret", c.SessionSecret, "HMAC secret for session tokens")
	fs.DurationVar(&c.SessionTTL, "session-ttl", c.SessionTTL, "session token lifetime")
	fs.StringVar(&c.SessionFile, "session-file", c.SessionFile, "where the session token is stored")

	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "debug, info, warn or error")
	fs.StringVar(&c.LogFile, "log-file", c.LogFile, "rotating log file (stderr when empty)")

	fs.StringVar(&c.DefaultAdminUser, "admin-user", c.DefaultAdminUser, "username of the bootstrap admin")
	fs.StringVar(&c.DefaultAdminPassword, "admin-password", c.DefaultAdminPassword, "password of the bootstrap admin")
}

// applyChangedFlags re-applies every explicitly set flag from changed onto
// cfg, so they win over values read from the config file.
func applyChangedFlags(changed Changed, cfg *Config) error {
	overlay := pflag.NewFlagSet("overlay", pflag.ContinueOnError)
	cfg.Bind(overlay)

	var firstErr error
	changed.Visit(func(f *pflag.Flag) {
		if firstErr != nil || overlay.Lookup(f.Name) == nil {
			return
		}
		if err := overlay.Set(f.Name, f.Value.String()); err != nil {
			firstErr = fmt.Errorf("flag --%s: %w", f.Name, err)
		}
	})
	return firstErr
}
