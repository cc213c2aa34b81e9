package config

import (
	"github.com/spf13/pflag"
)

const (
	flagConfig         = "config"
	flagSupabaseURL    = "supabase-url"
	flagBucket         = "bucket"
	flagSettings       = "settings"
	flagState          = "state"
	flagLogDir         = "log-dir"
	flagLegacyFixedIV  = "legacy-fixed-iv"
	flagRequestTimeout = "timeout"
	flagRetries        = "retries"
	flagDebug          = "debug"
)

// RegisterFlags adds the configuration flags to fs. Defaults shown in help
// are zero values; the effective defaults come from LoadDefaults.
//
//	-c, --config string        JSON config file
//	    --supabase-url string  Supabase project URL
//	    --bucket string        storage bucket
//	    --settings string      settings file with exclude:/frequency: lines
//	    --state string         local state database
//	    --log-dir string       directory for dated log files
//	    --legacy-fixed-iv      read/write blobs with the configured fixed IV
//	    --timeout duration     per-request timeout
//	    --retries int          retries for transient transfer failures
//	    --debug                verbose logging
func RegisterFlags(fs *pflag.FlagSet) {
	fs.StringP(flagConfig, "c", "", "JSON config file")
	fs.String(flagSupabaseURL, "", "Supabase project URL")
	fs.String(flagBucket, "", "storage bucket")
	fs.String(flagSettings, "", "settings file with exclude:/frequency: lines")
	fs.String(flagState, "", "local state database")
	fs.String(flagLogDir, "", "directory for dated log files")
	fs.Bool(flagLegacyFixedIV, false, "read/write blobs with the configured fixed IV")
	fs.Duration(flagRequestTimeout, 0, "per-request timeout")
	fs.Int(flagRetries, 0, "retries for transient transfer failures")
	fs.Bool(flagDebug, false, "verbose logging")
}

func jsonPath(fs *pflag.FlagSet, lookup lookupFunc) string {
	if fs != nil && fs.Changed(flagConfig) {
		if v, err := fs.GetString(flagConfig); err == nil && v != "" {
			return v
		}
	}
	if v, ok := lookup("CONTINU_CONFIG"); ok {
		return v
	}
	return ""
}

// applyFlags copies the flags the user explicitly set into cfg.
func applyFlags(cfg *Config, fs *pflag.FlagSet) error {
	strs := map[string]*string{
		flagSupabaseURL: &cfg.SupabaseURL,
		flagBucket:      &cfg.Bucket,
		flagSettings:    &cfg.SettingsPath,
		flagState:       &cfg.StatePath,
		flagLogDir:      &cfg.LogDir,
	}
	for name, dst := range strs {
		if fs.Lookup(name) == nil || !fs.Changed(name) {
			continue
		}
		v, err := fs.GetString(name)
		if err != nil {
			return err
		}
		*dst = v
	}

	bools := map[string]*bool{
		flagLegacyFixedIV: &cfg.LegacyFixedIV,
		flagDebug:         &cfg.Debug,
	}
	for name, dst := range bools {
		if fs.Lookup(name) == nil || !fs.Changed(name) {
			continue
		}
		v, err := fs.GetBool(name)
		if err != nil {
			return err
		}
		*dst = v
	}

	if fs.Lookup(flagRequestTimeout) != nil && fs.Changed(flagRequestTimeout) {
		d, err := fs.GetDuration(flagRequestTimeout)
		if err != nil {
			return err
		}
		cfg.RequestTimeout = d
	}
	if fs.Lookup(flagRetries) != nil && fs.Changed(flagRetries) {
		n, err := fs.GetInt(flagRetries)
		if err != nil {
			return err
		}
		cfg.UploadRetries = n
	}
	return nil
}
