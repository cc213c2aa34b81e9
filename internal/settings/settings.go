// Package settings reads the user's local settings file: a line-oriented
// list of "key: value" pairs.
//
//	exclude: ~/.vimrc
//	exclude: /etc/environment
//	frequency: hourly
//
// exclude may repeat. When frequency repeats the last occurrence wins.
// Unknown keys and blank lines are ignored.
package settings

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Frequency is how often the scheduler runs a backup.
type Frequency string

const (
	Hourly Frequency = "hourly"
	Daily  Frequency = "daily"
	Weekly Frequency = "weekly"
)

// ParseFrequency maps s onto a Frequency. ok is false for empty or unknown
// values, in which case Daily is returned.
func ParseFrequency(s string) (f Frequency, ok bool) {
	switch Frequency(strings.ToLower(strings.TrimSpace(s))) {
	case Hourly:
		return Hourly, true
	case Daily:
		return Daily, true
	case Weekly:
		return Weekly, true
	}
	return Daily, false
}

// Interval is the sleep between scheduled backups.
func (f Frequency) Interval() time.Duration {
	switch f {
	case Hourly:
		return time.Hour
	case Weekly:
		return 7 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// Settings is the parsed content of the settings file.
type Settings struct {
	Exclude []string
	// RawFrequency is the last frequency value as written, empty if absent.
	RawFrequency string
}

// Frequency returns the configured frequency, Daily when absent or unknown.
func (s Settings) Frequency() Frequency {
	f, _ := ParseFrequency(s.RawFrequency)
	return f
}

// ExcludeSet returns the exclusions as a set.
func (s Settings) ExcludeSet() map[string]struct{} {
	set := make(map[string]struct{}, len(s.Exclude))
	for _, p := range s.Exclude {
		set[p] = struct{}{}
	}
	return set
}

// Load reads the settings file at path. A missing file yields empty
// Settings. Exclusions starting with "~/" are expanded against home.
func Load(path, home string) (Settings, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Settings{}, nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("open settings %s: %w", path, err)
	}
	defer f.Close()

	var s Settings
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case strings.HasPrefix(line, "exclude:"):
			p := strings.TrimSpace(strings.TrimPrefix(line, "exclude:"))
			if p == "" {
				continue
			}
			s.Exclude = append(s.Exclude, expandHome(p, home))
		case strings.HasPrefix(line, "frequency:"):
			s.RawFrequency = strings.TrimSpace(strings.TrimPrefix(line, "frequency:"))
		}
	}
	if err := sc.Err(); err != nil {
		return Settings{}, fmt.Errorf("read settings %s: %w", path, err)
	}
	return s, nil
}

func expandHome(p, home string) string {
	if home == "" {
		return p
	}
	if p == "~" {
		return home
	}
	if strings.HasPrefix(p, "~/") {
		return filepath.Join(home, p[2:])
	}
	return p
}
