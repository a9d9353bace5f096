package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/dmitrijs2005/docsync/internal/timex"
)

// FileConfig is a DTO used exclusively for file decoding. Pointer fields
// distinguish "absent" from "zero", so a file only overrides what it names.
type FileConfig struct {
	RemoteBackend         *string `json:"remote_backend" toml:"remote_backend"`
	SheetsSpreadsheetID   *string `json:"sheets_spreadsheet_id" toml:"sheets_spreadsheet_id"`
	SheetsCredentialsFile *string `json:"sheets_credentials_file" toml:"sheets_credentials_file"`

	S3Bucket       *string `json:"s3_bucket" toml:"s3_bucket"`
	S3Prefix       *string `json:"s3_prefix" toml:"s3_prefix"`
	S3Region       *string `json:"s3_region" toml:"s3_region"`
	S3BaseEndpoint *string `json:"s3_base_endpoint" toml:"s3_base_endpoint"`
	S3AccessKey    *string `json:"s3_access_key" toml:"s3_access_key"`
	S3SecretKey    *string `json:"s3_secret_key" toml:"s3_secret_key"`

	RemoteDatabaseDSN *string `json:"remote_database_dsn" toml:"remote_database_dsn"`
	CacheDSN          *string `json:"cache_dsn" toml:"cache_dsn"`

	DocsCollectionPrefix *string `json:"docs_collection_prefix" toml:"docs_collection_prefix"`
	BackfillRemoteIDs    *bool   `json:"backfill_remote_ids" toml:"backfill_remote_ids"`

	ReadCacheTTL  *timex.Duration `json:"read_cache_ttl" toml:"read_cache_ttl"`
	ReadCacheSize *int            `json:"read_cache_size" toml:"read_cache_size"`

	PublicationTarget *int `json:"publication_target" toml:"publication_target"`

	SessionSecret *string         `json:"session_secret" toml:"session_secret"`
	SessionTTL    *timex.Duration `json:"session_ttl" toml:"session_ttl"`
	SessionFile   *string         `json:"session_file" toml:"session_file"`

	LogLevel *string `json:"log_level" toml:"log_level"`
	LogFile  *string `json:"log_file" toml:"log_file"`

	DefaultAdminUser     *string `json:"default_admin_user" toml:"default_admin_user"`
	DefaultAdminPassword *string `json:"default_admin_password" toml:"default_admin_password"`
}

// parseFile overlays cfg with the values found in the file at path.
// ".toml" files are decoded as TOML, everything else as JSON.
func parseFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var fc FileConfig
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(string(data), &fc); err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
	} else if err := json.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}

	fc.apply(cfg)
	return nil
}

func (fc *FileConfig) apply(cfg *Config) {
	setString(&cfg.RemoteBackend, fc.RemoteBackend)
	setString(&cfg.SheetsSpreadsheetID, fc.SheetsSpreadsheetID)
	setString(&cfg.SheetsCredentialsFile, fc.SheetsCredentialsFile)
	setString(&cfg.S3Bucket, fc.S3Bucket)
	setString(&cfg.S3Prefix, fc.S3Prefix)
	setString(&cfg.S3Region, fc.S3Region)
	setString(&cfg.S3BaseEndpoint, fc.S3BaseEndpoint)
	setString(&cfg.S3AccessKey, fc.S3AccessKey)
	setString(&cfg.S3SecretKey, fc.S3SecretKey)
	setString(&cfg.RemoteDatabaseDSN, fc.RemoteDatabaseDSN)
	setString(&cfg.CacheDSN, fc.CacheDSN)
	setString(&cfg.DocsCollectionPrefix, fc.DocsCollectionPrefix)
	setString(&cfg.SessionSecret, fc.SessionSecret)
	setString(&cfg.SessionFile, fc.SessionFile)
	setString(&cfg.LogLevel, fc.LogLevel)
	setString(&cfg.LogFile, fc.LogFile)
	setString(&cfg.DefaultAdminUser, fc.DefaultAdminUser)
	setString(&cfg.DefaultAdminPassword, fc.DefaultAdminPassword)

	if fc.BackfillRemoteIDs != nil {
		cfg.BackfillRemoteIDs = *fc.BackfillRemoteIDs
	}
	if fc.ReadCacheTTL != nil {
		cfg.ReadCacheTTL = fc.ReadCacheTTL.Duration
	}
	if fc.ReadCacheSize != nil {
		cfg.ReadCacheSize = *fc.ReadCacheSize
	}
	if fc.PublicationTarget != nil {
		cfg.PublicationTarget = *fc.PublicationTarget
	}
	if fc.SessionTTL != nil {
		cfg.SessionTTL = fc.SessionTTL.Duration
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
