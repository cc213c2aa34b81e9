package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// jsonConfig is a DTO used exclusively for JSON unmarshalling. Pointer
// fields distinguish "absent" from zero values so the file only overrides
// what it mentions.
type jsonConfig struct {
	SupabaseURL          *string   `json:"supabase_url"`
	SupabaseKey          *string   `json:"supabase_key"`
	Bucket               *string   `json:"bucket"`
	S3Endpoint           *string   `json:"s3_endpoint"`
	S3Region             *string   `json:"s3_region"`
	S3AccessKeyID        *string   `json:"s3_access_key_id"`
	S3SecretAccessKey    *string   `json:"s3_secret_access_key"`
	DatabaseDSN          *string   `json:"database_dsn"`
	EncryptionKey        *string   `json:"encryption_key"`
	EncryptionIV         *string   `json:"encryption_iv"`
	EncryptionPassphrase *string   `json:"encryption_passphrase"`
	EncryptionSalt       *string   `json:"encryption_salt"`
	LegacyFixedIV        *bool     `json:"legacy_fixed_iv"`
	SettingsPath         *string   `json:"settings_path"`
	StatePath            *string   `json:"state_path"`
	LogDir               *string   `json:"log_dir"`
	OSReleasePath        *string   `json:"os_release_path"`
	ManifestRestorePath  *string   `json:"manifest_restore_path"`
	RequestTimeout       *Duration `json:"request_timeout"`
	IdleInterval         *Duration `json:"idle_interval"`
	UploadRetries        *int      `json:"upload_retries"`
	Debug                *bool     `json:"debug"`
}

// parseJSON overlays cfg with the values present in the JSON file at path.
func parseJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var jc jsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&cfg.SupabaseURL, jc.SupabaseURL)
	setString(&cfg.SupabaseKey, jc.SupabaseKey)
	setString(&cfg.Bucket, jc.Bucket)
	setString(&cfg.S3Endpoint, jc.S3Endpoint)
	setString(&cfg.S3Region, jc.S3Region)
	setString(&cfg.S3AccessKeyID, jc.S3AccessKeyID)
	setString(&cfg.S3SecretAccessKey, jc.S3SecretAccessKey)
	setString(&cfg.DatabaseDSN, jc.DatabaseDSN)
	setString(&cfg.EncryptionKey, jc.EncryptionKey)
	setString(&cfg.EncryptionIV, jc.EncryptionIV)
	setString(&cfg.EncryptionPassphrase, jc.EncryptionPassphrase)
	setString(&cfg.EncryptionSalt, jc.EncryptionSalt)
	setString(&cfg.SettingsPath, jc.SettingsPath)
	setString(&cfg.StatePath, jc.StatePath)
	setString(&cfg.LogDir, jc.LogDir)
	setString(&cfg.OSReleasePath, jc.OSReleasePath)
	setString(&cfg.ManifestRestorePath, jc.ManifestRestorePath)

	if jc.LegacyFixedIV != nil {
		cfg.LegacyFixedIV = *jc.LegacyFixedIV
	}
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.IdleInterval != nil {
		cfg.IdleInterval = jc.IdleInterval.Duration
	}
	if jc.UploadRetries != nil {
		cfg.UploadRetries = *jc.UploadRetries
	}
	if jc.Debug != nil {
		cfg.Debug = *jc.Debug
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
