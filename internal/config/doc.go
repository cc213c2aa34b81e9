// Package config loads runtime configuration for the continu CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c/--config or CONTINU_CONFIG.
//  3. Environment variables (SUPABASE_*, ENCRYPTION_*, CONTINU_*).
//  4. Command-line flags registered by RegisterFlags; only flags the user
//     actually set override earlier values.
//
// # JSON schema
//
// Durations can be either strings like "30s" or integer nanoseconds:
//
//	{
//	  "supabase_url": "https://abcd.supabase.co",
//	  "supabase_key": "<anon key>",
//	  "bucket": "backups",
//	  "request_timeout": "30s",
//	  "legacy_fixed_iv": false
//	}
package config
