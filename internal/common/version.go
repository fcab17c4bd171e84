package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Version information (set via -ldflags during build)
var (
	Version   = "dev"
	Build     = "unknown"
	GitCommit = "unknown"
)

// GetVersion returns the bare version string.
func GetVersion() string {
	return Version
}

// GetFullVersion returns the version with build metadata, as printed by
// the version command.
func GetFullVersion() string {
	return fmt.Sprintf("%s (build: %s, commit: %s)", Version, Build, GitCommit)
}

// LoadVersionFromFile overrides the compiled-in version with the
// contents of a .version file next to the binary, when one exists.
func LoadVersionFromFile() string {
	exePath, err := os.Executable()
	if err != nil {
		return Version
	}

	data, err := os.ReadFile(filepath.Join(filepath.Dir(exePath), ".version"))
	if err != nil {
		return Version
	}

	if v := strings.TrimSpace(string(data)); v != "" {
		Version = v
	}
	return Version
}
