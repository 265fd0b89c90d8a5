package utils

import (
	"os"
	"path/filepath"
)

// GetProjectRoot returns the absolute path to the project root directory.
func GetProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return "." // fallback
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break // reached root
		}
		dir = parent
	}
	return "." // fallback
}

// DefaultConfigPath returns config.yaml under the project root.
func DefaultConfigPath() string {
	return filepath.Join(GetProjectRoot(), "config.yaml")
}

// DefaultWorkbookPath returns the local workbook used by the xlsx backend
// when no path is configured.
func DefaultWorkbookPath() string {
	return filepath.Join(GetProjectRoot(), "data", "contacts.xlsx")
}
