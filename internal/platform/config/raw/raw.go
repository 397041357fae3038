// Package raw reads the environment without logging, for bootstrapping the logger itself
package raw

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Conf is a namespaced view over the environment
type Conf struct{ prefix string }

// New returns the unprefixed root view
func New() Conf { return Conf{} }

// Prefix returns a child view, e.g. New().Prefix("LOG_")
func (c Conf) Prefix(p string) Conf { return Conf{prefix: c.prefix + p} }

// Get returns the trimmed value or def when blank
func (c Conf) Get(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(c.prefix + key)); v != "" {
		return v
	}
	return def
}

// GetBool accepts 1, true and yes in any case; anything else set is false
func (c Conf) GetBool(key string, def bool) bool {
	switch v := strings.ToLower(c.Get(key, "")); v {
	case "":
		return def
	case "1", "true", "yes":
		return true
	}
	return false
}

// GetInt returns a non-negative integer or def
func (c Conf) GetInt(key string, def int) int {
	n, err := strconv.Atoi(c.Get(key, ""))
	if err != nil || n < 0 {
		return def
	}
	return n
}

// LoadDotenv loads env files, .env by default. Missing files are skipped and
// variables already in the process environment win
func LoadDotenv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}
