package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/docsync/internal/config"
	"github.com/dmitrijs2005/docsync/internal/remote"
	"github.com/dmitrijs2005/docsync/internal/remote/memstore"
	"github.com/dmitrijs2005/docsync/internal/remote/pgstore"
	"github.com/dmitrijs2005/docsync/internal/remote/s3csv"
	"github.com/dmitrijs2005/docsync/internal/remote/sheets"
)

// openRemote is a test seam: it returns the configured backend and a func
// releasing it.
var openRemote = func(ctx context.Context, cfg *config.Config) (remote.Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.RemoteBackend {
	case config.BackendSheets:
		s, err := sheets.Open(ctx, cfg.SheetsSpreadsheetID, cfg.SheetsCredentialsFile)
		if err != nil {
			return nil, nil, err
		}
		return s, noop, nil

	case config.BackendS3:
		s, err := s3csv.Open(ctx, s3csv.Options{
			Bucket:       cfg.S3Bucket,
			Prefix:       cfg.S3Prefix,
			Region:       cfg.S3Region,
			BaseEndpoint: cfg.S3BaseEndpoint,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, noop, nil

	case config.BackendPostgres:
		s, err := pgstore.Open(ctx, cfg.RemoteDatabaseDSN)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil

	case config.BackendMemory:
		return memstore.New(), noop, nil
	}
	return nil, nil, fmt.Errorf("unknown remote backend %q", cfg.RemoteBackend)
}

// migrateRemote applies the schema of backends that keep one.
func migrateRemote(ctx context.Context, cfg *config.Config) error {
	if cfg.RemoteBackend != config.BackendPostgres {
		return fmt.Errorf("backend %q has no schema to migrate", cfg.RemoteBackend)
	}
	s, err := pgstore.Open(ctx, cfg.RemoteDatabaseDSN)
	if err != nil {
		return err
	}
	defer s.Close()
	return s.Migrate(ctx)
}
