package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// Config holds runtime settings for the continu CLI.
type Config struct {
	SupabaseURL string
	SupabaseKey string
	Bucket      string

	// S3 endpoint of Supabase Storage. Derived from SupabaseURL when empty.
	S3Endpoint        string
	S3Region          string
	S3AccessKeyID     string
	S3SecretAccessKey string

	// DatabaseDSN enables the direct Postgres ledger. Empty means PostgREST.
	DatabaseDSN string

	EncryptionKey        string
	EncryptionIV         string
	EncryptionPassphrase string
	EncryptionSalt       string
	LegacyFixedIV        bool

	SettingsPath        string
	StatePath           string
	LogDir              string
	OSReleasePath       string
	ManifestRestorePath string

	RequestTimeout time.Duration
	IdleInterval   time.Duration
	UploadRetries  int

	Debug bool
}

// LoadDefaults populates c with sensible defaults. Paths are anchored at the
// current user's home directory.
func (c *Config) LoadDefaults() {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	c.Bucket = "backups"
	c.S3Region = "us-east-1"
	c.SettingsPath = filepath.Join(home, ".init")
	c.StatePath = filepath.Join(home, ".continu", "state.db")
	c.LogDir = "logs"
	c.OSReleasePath = "/etc/os-release"
	c.ManifestRestorePath = filepath.Join(home, "installed_packages.txt")
	c.RequestTimeout = 30 * time.Second
	c.IdleInterval = 60 * time.Second
	c.UploadRetries = 3
}

// Load constructs a Config, applies defaults, then overlays values from JSON
// (if a path is given), the environment and the explicitly set flags in fs.
// fs may be nil.
func Load(fs *pflag.FlagSet) (*Config, error) {
	return load(fs, os.LookupEnv)
}

func load(fs *pflag.FlagSet, lookup lookupFunc) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	path := jsonPath(fs, lookup)
	if path != "" {
		if err := parseJSON(cfg, path); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg, lookup); err != nil {
		return nil, err
	}

	if fs != nil {
		if err := applyFlags(cfg, fs); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// S3URL returns the S3 protocol endpoint of the storage service.
func (c *Config) S3URL() string {
	if c.S3Endpoint != "" {
		return c.S3Endpoint
	}
	if c.SupabaseURL == "" {
		return ""
	}
	return c.SupabaseURL + "/storage/v1/s3"
}

// ProjectRef is the Supabase project reference, the first label of the
// SupabaseURL host ("abcd" for https://abcd.supabase.co).
func (c *Config) ProjectRef() string {
	u, err := url.Parse(c.SupabaseURL)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	host, _, _ := strings.Cut(u.Hostname(), ".")
	return host
}

var (
	ErrMissingSupabase = errors.New("SUPABASE_URL and SUPABASE_KEY must be set")
	ErrMissingKey      = errors.New("ENCRYPTION_KEY or ENCRYPTION_PASSPHRASE must be set")
	ErrMissingIV       = errors.New("ENCRYPTION_IV must be set when legacy_fixed_iv is enabled")
	ErrMissingSalt     = errors.New("ENCRYPTION_SALT must be set when ENCRYPTION_PASSPHRASE is used")
)

// Validate reports settings required by commands that talk to the backend
// and encrypt data.
func (c *Config) Validate() error {
	var errs []error
	if c.SupabaseURL == "" || c.SupabaseKey == "" {
		errs = append(errs, ErrMissingSupabase)
	}
	if c.EncryptionKey == "" && c.EncryptionPassphrase == "" {
		errs = append(errs, ErrMissingKey)
	}
	if c.EncryptionKey == "" && c.EncryptionPassphrase != "" && c.EncryptionSalt == "" {
		errs = append(errs, ErrMissingSalt)
	}
	if c.LegacyFixedIV && c.EncryptionIV == "" {
		errs = append(errs, ErrMissingIV)
	}
	if c.UploadRetries < 0 {
		errs = append(errs, fmt.Errorf("upload_retries must not be negative, got %d", c.UploadRetries))
	}
	return errors.Join(errs...)
}
