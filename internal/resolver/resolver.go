// Package resolver decides which files a backup pass protects and how often
// the scheduler runs it.
package resolver

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/dmitrijs2005/continu/internal/logging"
	"github.com/dmitrijs2005/continu/internal/platform"
	"github.com/dmitrijs2005/continu/internal/settings"
)

// Options configures a Resolver.
type Options struct {
	OSReleasePath string
	SettingsPath  string
	Home          string
	Profiles      []platform.Profile
}

// Resolver combines platform detection with the user's settings file. The
// settings file is re-read on every call so edits apply to the next pass.
type Resolver struct {
	opts Options
	log  logging.Logger
}

func New(opts Options, log logging.Logger) *Resolver {
	if opts.Profiles == nil {
		opts.Profiles = platform.Default()
	}
	return &Resolver{opts: opts, log: log}
}

// Profile detects the current platform. It fails with
// common.ErrUnsupportedPlatform when no profile matches.
func (r *Resolver) Profile() (platform.Profile, error) {
	return platform.Detect(r.opts.OSReleasePath, r.opts.Profiles)
}

// ResolveFiles returns the detected profile's candidate files minus the
// configured exclusions, in candidate order.
func (r *Resolver) ResolveFiles(ctx context.Context) ([]string, error) {
	p, err := r.Profile()
	if err != nil {
		return nil, err
	}

	s, err := settings.Load(r.opts.SettingsPath, r.opts.Home)
	if err != nil {
		return nil, fmt.Errorf("load exclusions: %w", err)
	}
	excluded := s.ExcludeSet()

	candidates := p.CandidateFiles(r.opts.Home)
	files := make([]string, 0, len(candidates))
	seen := make(map[string]string, len(candidates))
	for _, path := range candidates {
		if _, skip := excluded[path]; skip {
			continue
		}
		base := filepath.Base(path)
		if prev, dup := seen[base]; dup {
			r.log.Warn(ctx, "Duplicate blob name, later file overwrites the earlier one",
				"name", base, "first", prev, "second", path)
		}
		seen[base] = path
		files = append(files, path)
	}
	return files, nil
}

// ResolveFrequency returns the configured backup frequency. It never fails:
// read errors and unknown values degrade to daily.
func (r *Resolver) ResolveFrequency(ctx context.Context) settings.Frequency {
	s, err := settings.Load(r.opts.SettingsPath, r.opts.Home)
	if err != nil {
		r.log.Warn(ctx, "Could not read settings, using daily backups", "err", err)
		return settings.Daily
	}

	f, ok := settings.ParseFrequency(s.RawFrequency)
	if !ok && s.RawFrequency != "" {
		r.log.Warn(ctx, "Unknown backup frequency, using daily", "frequency", s.RawFrequency)
	}
	return f
}
