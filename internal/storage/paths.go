// Package storage persists opening books and build statistics in BadgerDB.
package storage

import (
	"os"
	"path/filepath"
	"runtime"
)

const (
	appName         = "othellobook"
	defaultBookName = "book.bin.zst"
)

// GetDataDir returns the platform-specific data directory for the application.
// - macOS: ~/Library/Application Support/othellobook/
// - Linux: ~/.local/share/othellobook/
// - Windows: %APPDATA%/othellobook/
func GetDataDir() (string, error) {
	var baseDir string

	switch runtime.GOOS {
	case "darwin":
		// macOS: ~/Library/Application Support/
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		baseDir = filepath.Join(homeDir, "Library", "Application Support")

	case "windows":
		// Windows: %APPDATA%
		baseDir = os.Getenv("APPDATA")
		if baseDir == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			baseDir = filepath.Join(homeDir, "AppData", "Roaming")
		}

	default:
		// Linux and other Unix-like: ~/.local/share/
		// Check XDG_DATA_HOME first
		baseDir = os.Getenv("XDG_DATA_HOME")
		if baseDir == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			baseDir = filepath.Join(homeDir, ".local", "share")
		}
	}

	dataDir := filepath.Join(baseDir, appName)

	// Create directory if it doesn't exist
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", err
	}

	return dataDir, nil
}

// GetBooksDir returns the directory for book files.
func GetBooksDir() (string, error) {
	dataDir, err := GetDataDir()
	if err != nil {
		return "", err
	}

	booksDir := filepath.Join(dataDir, "books")
	if err := os.MkdirAll(booksDir, 0755); err != nil {
		return "", err
	}

	return booksDir, nil
}

// DefaultBookPath returns the compressed book file in the books directory.
func DefaultBookPath() (string, error) {
	booksDir, err := GetBooksDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(booksDir, defaultBookName), nil
}

// GetDatabaseDir returns the directory for storing the BadgerDB database.
func GetDatabaseDir() (string, error) {
	dataDir, err := GetDataDir()
	if err != nil {
		return "", err
	}

	dbDir := filepath.Join(dataDir, "db")
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return "", err
	}

	return dbDir, nil
}
