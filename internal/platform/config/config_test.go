package config

import (
	"testing"
	"time"

	kit "nexuscalc/internal/platform/testkit"

	"github.com/shopspring/decimal"
)

func TestPrefixNests(t *testing.T) {
	if got := New().Prefix("CORE_").Prefix("ANALYSIS_").key("WORKERS"); got != "CORE_ANALYSIS_WORKERS" {
		t.Fatalf("key = %q", got)
	}
}

func TestMayString(t *testing.T) {
	c := New().Prefix("T_")
	t.Setenv("T_SOURCE", "  file ")
	t.Setenv("T_BLANK", "   ")
	if got := c.MayString("SOURCE", "embedded"); got != "file" {
		t.Fatalf("set: %q", got)
	}
	if got := c.MayString("BLANK", "embedded"); got != "embedded" {
		t.Fatalf("blank: %q", got)
	}
}

func TestTypedFallbacks(t *testing.T) {
	c := New().Prefix("T_")
	t.Setenv("T_WORKERS", "8")
	t.Setenv("T_BAD_WORKERS", "eight")
	t.Setenv("T_REJECT", "0.25")
	t.Setenv("T_WAIVER", "0.5")
	t.Setenv("T_BAD_WAIVER", "half")
	t.Setenv("T_METRICS", "false")
	t.Setenv("T_TIMEOUT", "250ms")
	t.Setenv("T_BAD_TIMEOUT", "soon")

	if c.MayInt("WORKERS", 1) != 8 || c.MayInt("BAD_WORKERS", 1) != 1 || c.MayInt("UNSET", 3) != 3 {
		t.Fatal("MayInt")
	}
	if c.MayFloat64("REJECT", 0.5) != 0.25 {
		t.Fatal("MayFloat64")
	}
	if !c.MayDecimal("WAIVER", decimal.Zero).Equal(decimal.RequireFromString("0.5")) ||
		!c.MayDecimal("BAD_WAIVER", decimal.Zero).IsZero() {
		t.Fatal("MayDecimal")
	}
	if c.MayBool("METRICS", true) || !c.MayBool("UNSET", true) {
		t.Fatal("MayBool")
	}
	if c.MayDuration("TIMEOUT", 0) != 250*time.Millisecond || c.MayDuration("BAD_TIMEOUT", time.Second) != time.Second {
		t.Fatal("MayDuration")
	}
}

func TestMayCSV(t *testing.T) {
	c := New().Prefix("T_")
	def := []string{"*"}
	t.Setenv("T_ORIGINS", " https://a.example, ,https://b.example ")
	t.Setenv("T_COMMAS", " , ,")
	if got := c.MayCSV("ORIGINS", def); len(got) != 2 || got[1] != "https://b.example" {
		t.Fatalf("origins %v", got)
	}
	if got := c.MayCSV("COMMAS", def); len(got) != 1 || got[0] != "*" {
		t.Fatalf("commas only %v", got)
	}
}

func TestMayEnum(t *testing.T) {
	c := New().Prefix("T_")
	t.Setenv("T_BAND", "Ratio")
	if got := c.MayEnum("BAND", "threshold", "threshold", "ratio"); got != "Ratio" {
		t.Fatalf("got %q", got)
	}
	if got := c.MayEnum("UNSET", "threshold", "threshold", "ratio"); got != "threshold" {
		t.Fatalf("default %q", got)
	}
	if got := c.MayEnum("UNSET", "", "a"); got != "" {
		t.Fatalf("empty default %q", got)
	}
	t.Setenv("T_BAND", "bogus")
	kit.MustPanic(t, func() { c.MayEnum("BAND", "threshold", "threshold", "ratio") })
}
