package nexus

import (
	"testing"

	"nexuscalc/internal/core/threshold"
)

func in(year int, st threshold.Status) YearInput {
	return YearInput{Year: year, Eval: threshold.Result{Status: st}}
}

func TestFold_StickyAfterTrigger(t *testing.T) {
	years, st, err := Fold([]YearInput{
		in(2020, threshold.StatusNone),
		in(2021, threshold.StatusApproaching),
		in(2022, threshold.StatusHasNexus),
		in(2023, threshold.StatusNone),
		in(2024, threshold.StatusApproaching),
	})
	if err != nil {
		t.Fatalf("Fold: %v", err)
	}
	want := []struct {
		status threshold.Status
		sticky bool
		first  int
	}{
		{threshold.StatusNone, false, 0},
		{threshold.StatusApproaching, false, 0},
		{threshold.StatusHasNexus, false, 2022},
		{threshold.StatusHasNexus, true, 2022},
		{threshold.StatusHasNexus, true, 2022},
	}
	for i, w := range want {
		y := years[i]
		if y.Status != w.status || y.IsSticky != w.sticky || y.FirstTriggeredYear != w.first {
			t.Fatalf("year %d = %+v, want %+v", y.Year, y, w)
		}
	}
	if !st.Triggered || st.FirstTriggeredYear != 2022 {
		t.Fatalf("terminal state = %+v", st)
	}
	// own evaluation is kept for reporting even when overridden
	if years[3].Eval.Status != threshold.StatusNone {
		t.Fatalf("eval should be preserved")
	}
}

func TestFold_Invariants(t *testing.T) {
	statuses := []threshold.Status{
		threshold.StatusNone, threshold.StatusHasNexus, threshold.StatusApproaching,
		threshold.StatusHasNexus, threshold.StatusNone, threshold.StatusNone,
	}
	inputs := make([]YearInput, len(statuses))
	for i, s := range statuses {
		inputs[i] = in(2018+i, s)
	}
	years, _, err := Fold(inputs)
	if err != nil {
		t.Fatalf("Fold: %v", err)
	}
	lastFirst := 0
	for _, y := range years {
		if y.IsSticky && y.Status != threshold.StatusHasNexus {
			t.Fatalf("sticky year %d without nexus", y.Year)
		}
		if y.FirstTriggeredYear < lastFirst {
			t.Fatalf("first_triggered_year decreased at %d", y.Year)
		}
		lastFirst = y.FirstTriggeredYear
	}
}

func TestFold_RejectsOutOfOrder(t *testing.T) {
	if _, _, err := Fold([]YearInput{in(2022, threshold.StatusNone), in(2021, threshold.StatusNone)}); err == nil {
		t.Fatalf("descending years should fail")
	}
	if _, _, err := Fold([]YearInput{in(2022, threshold.StatusNone), in(2022, threshold.StatusNone)}); err == nil {
		t.Fatalf("duplicate years should fail")
	}
}

func TestStep_IsReplayable(t *testing.T) {
	prior := State{Triggered: true, FirstTriggeredYear: 2019, Economic: true}
	y, next := Step(prior, in(2025, threshold.StatusNone))
	if y.Status != threshold.StatusHasNexus || !y.IsSticky || y.FirstTriggeredYear != 2019 {
		t.Fatalf("unexpected year: %+v", y)
	}
	if next != prior {
		t.Fatalf("state should not change once triggered: %+v", next)
	}
}

func TestStep_Types(t *testing.T) {
	y, st := Step(State{}, YearInput{Year: 2021, Eval: threshold.Result{Status: threshold.StatusNone}, Physical: true})
	if y.Status != threshold.StatusHasNexus || y.Type != TypePhysical {
		t.Fatalf("physical presence should trigger: %+v", y)
	}
	y, _ = Step(st, YearInput{Year: 2022, Eval: threshold.Result{Status: threshold.StatusHasNexus}, Physical: true})
	if y.Type != TypeBoth || !y.IsSticky {
		t.Fatalf("expected both/sticky: %+v", y)
	}
	y, _ = Step(State{}, in(2020, threshold.StatusApproaching))
	if y.Type != TypeNone {
		t.Fatalf("approaching is not nexus: %+v", y)
	}
}
