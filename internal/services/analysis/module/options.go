package module

import (
	"strings"

	"nexuscalc/internal/core/engine"
	"nexuscalc/internal/core/ledger"
	"nexuscalc/internal/core/threshold"
	"nexuscalc/internal/core/vda"
	"nexuscalc/internal/platform/config"
	anasvc "nexuscalc/internal/services/analysis/service"

	"github.com/shopspring/decimal"
)

// Options holds configuration settings for the analysis module
type Options struct {
	Service   anasvc.Options
	MaxBodyMB int
	Migrate   bool
}

// FromConfig reads CORE_ANALYSIS_* and CORE_VDA_* settings
func FromConfig(cfg config.Conf) Options {
	af := cfg.Prefix("CORE_ANALYSIS_")
	vf := cfg.Prefix("CORE_VDA_")

	exposure := af.MayEnum("EXPOSURE_FROM", string(engine.ExposureFromObligation),
		string(engine.ExposureFromObligation), string(engine.ExposureFromTriggerYear))
	band := af.MayEnum("BAND_BASIS", string(threshold.BandThreshold),
		string(threshold.BandThreshold), string(threshold.BandGross))

	rejectRate := af.MayFloat64("MAX_REJECT_RATE", ledger.DefaultMaxRejectRate)

	return Options{
		Service: anasvc.Options{
			MaxRejectRate:  &rejectRate,
			Parallelism:    af.MayInt("PARALLELISM", 0),
			ExposureFrom:   engine.ExposureFrom(strings.ToLower(exposure)),
			BandBasis:      threshold.BandBasis(strings.ToLower(band)),
			Persist:        af.MayBool("PERSIST", true),
			LookbackMonths: vf.MayInt("LOOKBACK_MONTHS", vda.DefaultLookbackMonths),
			InterestWaiver: vf.MayDecimal("INTEREST_WAIVER", decimal.Zero),
		},
		MaxBodyMB: af.MayInt("MAX_BODY_MB", 32),
		Migrate:   af.MayBool("MIGRATE", false),
	}
}
