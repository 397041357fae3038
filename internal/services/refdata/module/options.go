package module

import (
	"strings"
	"time"

	"nexuscalc/internal/platform/config"
	"nexuscalc/internal/services/refdata/domain"
	refsvc "nexuscalc/internal/services/refdata/service"
)

// Options holds configuration settings for the refdata module
type Options struct {
	Source   domain.Source
	File     string
	CacheTTL time.Duration
}

// FromConfig reads CORE_REFDATA_* settings
func FromConfig(cfg config.Conf) Options {
	rf := cfg.Prefix("CORE_REFDATA_")
	src := rf.MayEnum("SOURCE", string(domain.SourceEmbedded),
		string(domain.SourceEmbedded), string(domain.SourceFile), string(domain.SourcePG))
	return Options{
		Source:   domain.Source(strings.ToLower(src)),
		File:     rf.MayString("FILE", ""),
		CacheTTL: rf.MayDuration("CACHE_TTL", 5*time.Minute),
	}
}

// Service converts the module options to service options
func (o Options) Service() refsvc.Options {
	return refsvc.Options{Source: o.Source, File: o.File, CacheTTL: o.CacheTTL}
}
