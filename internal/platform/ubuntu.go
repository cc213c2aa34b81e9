package platform

import (
	"path/filepath"
	"strings"
)

// Ubuntu is the dpkg based Ubuntu profile.
type Ubuntu struct{}

func (Ubuntu) Name() string { return "ubuntu" }

func (Ubuntu) Matches(osRelease string) bool {
	return strings.Contains(osRelease, "Ubuntu")
}

func (Ubuntu) CandidateFiles(home string) []string {
	return []string{
		filepath.Join(home, ".bashrc"),
		filepath.Join(home, ".vimrc"),
		filepath.Join(home, ".gitconfig"),
		"/etc/apt/sources.list",
		"/etc/environment",
	}
}

func (Ubuntu) PackageCommand() []string {
	return []string{"dpkg", "--get-selections"}
}

func (Ubuntu) ManifestName() string { return "installed_packages.txt" }
