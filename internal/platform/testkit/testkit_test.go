package testkit

import "testing"

var rate = 6.25

func TestSwapRestores(t *testing.T) {
	t.Run("swapped", func(t *testing.T) {
		Swap(t, &rate, 7.0)
		if rate != 7.0 {
			t.Fatalf("rate = %v", rate)
		}
	})
	if rate != 6.25 {
		t.Fatalf("rate not restored: %v", rate)
	}
}

func TestMustPanicReturnsValue(t *testing.T) {
	if got := MustPanic(t, func() { panic("unknown jurisdiction") }); got != "unknown jurisdiction" {
		t.Fatalf("recovered %v", got)
	}
}

func TestSerialReleases(t *testing.T) {
	t.Run("first", func(t *testing.T) { Serial(t) })
	t.Run("second", func(t *testing.T) { Serial(t) })
}
