// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads credentials for the review service from a directory
// of plain-text files and from dotenv files.
//
// In a secrets directory each file is one secret: the filename is the key and
// the trimmed contents are the value. Dotenv files populate the process
// environment so the config layer sees them as LITREVIEW_* variables.
package secrets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// APIKeyFile is the secrets-directory file holding the service API key.
const APIKeyFile = "litreview-api-key"

// Secrets maps secret names to values.
type Secrets map[string]string

// APIKey returns the service API key, or "" when none was loaded.
func (s Secrets) APIKey() string {
	return s[APIKeyFile]
}

// Keys returns the loaded secret names without their values.
func (s Secrets) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	return keys
}

// Load reads all files in dir. A missing directory is not an error; Load
// returns an empty set. Unreadable files produce a warning on stderr but do
// not abort.
func Load(dir string) (Secrets, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Secrets{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	out := make(Secrets)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not read secret %s: %v\n", name, err)
			continue
		}

		if value := strings.TrimSpace(string(data)); value != "" {
			out[name] = value
		}
	}
	return out, nil
}

// LoadDotenv loads the given dotenv files into the process environment.
// Variables already set in the environment are left alone, and files that do
// not exist are skipped. It returns the files that were actually loaded.
func LoadDotenv(paths ...string) ([]string, error) {
	var loaded []string
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return loaded, fmt.Errorf("checking %s: %w", p, err)
		}
		if err := godotenv.Load(p); err != nil {
			return loaded, fmt.Errorf("loading %s: %w", p, err)
		}
		loaded = append(loaded, p)
	}
	return loaded, nil
}
