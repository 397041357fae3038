// Package config reads typed settings from environment variables.
// Invalid optional values fall back to their default with a warning.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"nexuscalc/internal/platform/logger"

	"github.com/shopspring/decimal"
)

// Conf is a namespaced view over the environment, e.g. New().Prefix("CORE_ANALYSIS_")
type Conf struct{ prefix string }

// New returns the unprefixed root view
func New() Conf { return Conf{} }

// Prefix returns a child view; prefixes concatenate
func (c Conf) Prefix(p string) Conf { return Conf{prefix: c.prefix + p} }

func (c Conf) key(k string) string { return c.prefix + k }

// lookup returns the trimmed value; blank counts as unset
func (c Conf) lookup(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(c.key(key)))
	return v, v != ""
}

func may[T any](c Conf, key string, def T, kind string, parse func(string) (T, error)) T {
	s, ok := c.lookup(key)
	if !ok {
		return def
	}
	v, err := parse(s)
	if err != nil {
		logger.Get().Warn().Str("key", c.key(key)).Str("value", s).Interface("default", def).
			Msgf("invalid %s; using default", kind)
		return def
	}
	return v
}

// MayString returns the value or def
func (c Conf) MayString(key, def string) string {
	if v, ok := c.lookup(key); ok {
		return v
	}
	return def
}

// MayInt returns the value or def
func (c Conf) MayInt(key string, def int) int {
	return may(c, key, def, "int", strconv.Atoi)
}

// MayFloat64 returns the value or def
func (c Conf) MayFloat64(key string, def float64) float64 {
	return may(c, key, def, "float", func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
}

// MayDecimal returns an exact decimal, for rates and fractions
func (c Conf) MayDecimal(key string, def decimal.Decimal) decimal.Decimal {
	return may(c, key, def, "decimal", decimal.NewFromString)
}

// MayBool returns the value or def
func (c Conf) MayBool(key string, def bool) bool {
	return may(c, key, def, "bool", strconv.ParseBool)
}

// MayDuration returns the value or def, e.g. "250ms" or "2s"
func (c Conf) MayDuration(key string, def time.Duration) time.Duration {
	return may(c, key, def, "duration", time.ParseDuration)
}

// MayCSV splits a comma separated value, dropping blanks. Nothing left means def
func (c Conf) MayCSV(key string, def []string) []string {
	s, ok := c.lookup(key)
	if !ok {
		return def
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

// MayEnum returns the value or def and panics when the value is not one of allowed.
// Matching ignores case; the value is returned as written.
func (c Conf) MayEnum(key, def string, allowed ...string) string {
	v := c.MayString(key, def)
	if v == "" {
		return v
	}
	for _, a := range allowed {
		if strings.EqualFold(v, a) {
			return v
		}
	}
	logger.Get().Panic().Str("key", c.key(key)).Str("value", v).Strs("allowed", allowed).Msg("invalid enum value")
	return ""
}
