package config

import (
	"fmt"
	"strconv"
	"time"
)

type lookupFunc func(key string) (string, bool)

// applyEnv overlays cfg with environment variables. The SUPABASE_* and
// ENCRYPTION_* names are shared with the .env files of earlier releases.
func applyEnv(cfg *Config, lookup lookupFunc) error {
	strs := map[string]*string{
		"SUPABASE_URL":                  &cfg.SupabaseURL,
		"SUPABASE_KEY":                  &cfg.SupabaseKey,
		"SUPABASE_BUCKET":               &cfg.Bucket,
		"ENCRYPTION_KEY":                &cfg.EncryptionKey,
		"ENCRYPTION_IV":                 &cfg.EncryptionIV,
		"ENCRYPTION_PASSPHRASE":         &cfg.EncryptionPassphrase,
		"ENCRYPTION_SALT":               &cfg.EncryptionSalt,
		"CONTINU_S3_ENDPOINT":           &cfg.S3Endpoint,
		"CONTINU_S3_REGION":             &cfg.S3Region,
		"CONTINU_S3_ACCESS_KEY_ID":      &cfg.S3AccessKeyID,
		"CONTINU_S3_SECRET_ACCESS_KEY":  &cfg.S3SecretAccessKey,
		"CONTINU_DATABASE_DSN":          &cfg.DatabaseDSN,
		"CONTINU_SETTINGS":              &cfg.SettingsPath,
		"CONTINU_STATE":                 &cfg.StatePath,
		"CONTINU_LOG_DIR":               &cfg.LogDir,
		"CONTINU_OS_RELEASE":            &cfg.OSReleasePath,
		"CONTINU_MANIFEST_RESTORE_PATH": &cfg.ManifestRestorePath,
	}
	for name, dst := range strs {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookup("CONTINU_LEGACY_FIXED_IV"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("CONTINU_LEGACY_FIXED_IV: %w", err)
		}
		cfg.LegacyFixedIV = b
	}
	if v, ok := lookup("CONTINU_DEBUG"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("CONTINU_DEBUG: %w", err)
		}
		cfg.Debug = b
	}
	if v, ok := lookup("CONTINU_REQUEST_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("CONTINU_REQUEST_TIMEOUT: %w", err)
		}
		cfg.RequestTimeout = d
	}
	if v, ok := lookup("CONTINU_UPLOAD_RETRIES"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CONTINU_UPLOAD_RETRIES: %w", err)
		}
		cfg.UploadRetries = n
	}
	return nil
}
