package strings

import (
	"testing"

	"nexuscalc/internal/platform/testkit"
)

func TestIfEmpty(t *testing.T) {
	def := []string{"GET", "POST"}
	if got := IfEmpty(nil, def); len(got) != 2 {
		t.Fatalf("nil input: got %v", got)
	}
	if got := IfEmpty([]string{"PUT"}, def); len(got) != 1 || got[0] != "PUT" {
		t.Fatalf("non-empty input replaced: %v", got)
	}
}

func TestMustString(t *testing.T) {
	if got := MustString("analysis", "module name"); got != "analysis" {
		t.Fatalf("got %q", got)
	}
	if r := testkit.MustPanic(t, func() { MustString("  ", "module name") }); r != "module name is required" {
		t.Fatalf("panic = %v", r)
	}
}

func TestMustPrefix(t *testing.T) {
	cases := map[string]string{
		"analysis":     "/analysis",
		"/refdata/":    "/refdata",
		"  /meta  ":    "/meta",
		"//analysis//": "/analysis",
	}
	for in, want := range cases {
		if got := MustPrefix(in); got != want {
			t.Errorf("MustPrefix(%q) = %q, want %q", in, got, want)
		}
	}
	testkit.MustPanic(t, func() { MustPrefix(" / ") })
}

func TestSQLNull(t *testing.T) {
	if SQLNull(" ") != nil {
		t.Fatal("blank should be NULL")
	}
	if SQLNull("REFERENCE_DATA") != "REFERENCE_DATA" {
		t.Fatal("value should pass through")
	}
	if SQLNullInt(0) != nil {
		t.Fatal("zero should be NULL")
	}
	if SQLNullInt(2023) != 2023 {
		t.Fatal("year should pass through")
	}
}
