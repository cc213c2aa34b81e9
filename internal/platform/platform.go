// Package platform describes the operating systems continu knows how to
// protect: how to recognise them, which files matter and how to list the
// installed packages.
package platform

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/dmitrijs2005/continu/internal/common"
)

// Profile is a supported platform.
type Profile interface {
	// Name is a human readable identifier, e.g. "ubuntu".
	Name() string
	// Matches reports whether the os-release contents describe this platform.
	Matches(osRelease string) bool
	// CandidateFiles lists the files to protect, in backup order.
	CandidateFiles(home string) []string
	// PackageCommand returns argv of the installed-package enumeration.
	PackageCommand() []string
	// ManifestName is the blob name under which the package list is stored.
	ManifestName() string
}

// Default is the set of profiles shipped with the binary.
func Default() []Profile {
	return []Profile{Ubuntu{}}
}

// Detect reads the os-release file at path and returns the first profile
// matching it. An unreadable file is treated as an unsupported platform.
func Detect(path string, profiles []Profile) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", common.ErrUnsupportedPlatform, path, err)
	}
	for _, p := range profiles {
		if p.Matches(string(data)) {
			return p, nil
		}
	}
	return nil, common.ErrUnsupportedPlatform
}

// OSDetails is the NAME / VERSION_ID pair of an os-release file.
type OSDetails struct {
	Name    string
	Version string
}

func (d OSDetails) String() string {
	return d.Name + " " + d.Version
}

var ErrOSDetails = errors.New("unable to determine OS name or version")

// ReadOSDetails parses NAME and VERSION_ID from the os-release file at path.
func ReadOSDetails(path string) (OSDetails, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return OSDetails{}, fmt.Errorf("read %s: %w", path, err)
	}

	var d OSDetails
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		value = strings.Trim(value, `"'`)
		switch key {
		case "NAME":
			d.Name = value
		case "VERSION_ID":
			d.Version = value
		}
	}
	if err := sc.Err(); err != nil {
		return OSDetails{}, fmt.Errorf("scan %s: %w", path, err)
	}

	if d.Name == "" || d.Version == "" {
		return OSDetails{}, ErrOSDetails
	}
	return d, nil
}

// CommandRunner runs argv and returns its standard output.
type CommandRunner func(ctx context.Context, argv []string) ([]byte, error)

// ExecRunner runs argv with os/exec.
func ExecRunner(ctx context.Context, argv []string) ([]byte, error) {
	if len(argv) == 0 {
		return nil, errors.New("empty command")
	}
	out, err := exec.CommandContext(ctx, argv[0], argv[1:]...).Output()
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", strings.Join(argv, " "), err)
	}
	return out, nil
}
