package solar

import (
	"math"
	"strings"
	"testing"
)

func sampleResponse() CalculationResponse {
	return CalculationResponse{
		RecommendedKW:      3.2,
		YieldPerKWp:        1450.5,
		TotalYieldKWhYear1: 4641.6,
		TotalCost:          180000,
		StateSubsidy:       50000,
		CentralSubsidy:     30000,
		NetCost:            100000,
		NPV:                145000,
		IRRPercent:         18.4,
		PaybackYears:       4.6,
		LifetimeSavings:    250000,
		CO2AvoidedKg:       95000,
		TreesSaved:         4300,
	}
}

func TestToDisplayResult(t *testing.T) {
	resp := sampleResponse()
	before := resp

	got := ToDisplayResult(resp)

	if resp != before {
		t.Fatal("ToDisplayResult modified its input")
	}
	if got.Subsidy != 80000 {
		t.Fatalf("Subsidy = %v, want 80000", got.Subsidy)
	}
	if got.AnnualSavings != 10000 {
		t.Fatalf("AnnualSavings = %v, want 10000", got.AnnualSavings)
	}
	if math.Abs(got.MonthlySavings-833.3333) > 0.001 {
		t.Fatalf("MonthlySavings = %v, want about 833.33", got.MonthlySavings)
	}
	if got.SolarYield != resp.YieldPerKWp || got.AnnualEnergy != resp.TotalYieldKWhYear1 {
		t.Fatalf("yield fields not carried over: %+v", got)
	}
	if got.PaybackYears != 4.6 || got.TreesSaved != 4300 || got.CO2AvoidedKg != 95000 {
		t.Fatalf("pass-through fields wrong: %+v", got)
	}
	if again := ToDisplayResult(resp); again != got {
		t.Fatal("ToDisplayResult is not deterministic")
	}
}

func TestToDisplayResultZeroSavings(t *testing.T) {
	got := ToDisplayResult(CalculationResponse{})
	if got.AnnualSavings != 0 || got.MonthlySavings != 0 || got.Subsidy != 0 {
		t.Fatalf("zero response produced %+v", got)
	}
}

func TestNewCalculationRequest(t *testing.T) {
	req, err := NewCalculationRequest(FormInput{State: "Goa", MonthlyUnits: "250", Coordinates: "15.3,74.1"})
	if err != nil {
		t.Fatalf("NewCalculationRequest: %v", err)
	}
	want := CalculationRequest{State: "Goa", MonthlyUnits: 250, LatLong: "15.3,74.1"}
	if req != want {
		t.Fatalf("request = %+v, want %+v", req, want)
	}

	if _, err := NewCalculationRequest(FormInput{State: "Goa", MonthlyUnits: "x"}); err == nil {
		t.Fatal("expected error for bad units")
	}
}

func TestFormatCurrency(t *testing.T) {
	got := FormatCurrency(100000)
	if !strings.HasPrefix(got, "₹") {
		t.Fatalf("FormatCurrency(100000) = %q, missing rupee sign", got)
	}
	if digits := strings.Map(keepDigits, got); digits != "100000" {
		t.Fatalf("FormatCurrency(100000) digits = %q", digits)
	}
	if strings.Contains(got, ".") {
		t.Fatalf("FormatCurrency(100000) = %q, want no decimals", got)
	}

	if got := FormatCurrency(999.6); got != "₹1,000" {
		t.Fatalf("FormatCurrency(999.6) = %q, want ₹1,000", got)
	}
	if got := FormatCurrency(42); got != "₹42" {
		t.Fatalf("FormatCurrency(42) = %q", got)
	}
	if got := FormatCurrency(-500); got != "-₹500" {
		t.Fatalf("FormatCurrency(-500) = %q", got)
	}
	if got := FormatCurrency(math.NaN()); got != "₹0" {
		t.Fatalf("FormatCurrency(NaN) = %q", got)
	}
	if FormatCurrency(123456.7) != FormatCurrency(123456.7) {
		t.Fatal("FormatCurrency is not deterministic")
	}
}

func keepDigits(r rune) rune {
	if r >= '0' && r <= '9' {
		return r
	}
	return -1
}

func TestFormatFixed(t *testing.T) {
	tests := []struct {
		v      float64
		digits int
		want   string
	}{
		{3.25, 1, "3.2"},
		{3.26, 1, "3.3"},
		{4300.4, 0, "4300"},
		{2, 2, "2.00"},
		{1.5, -1, "2"},
	}
	for _, tt := range tests {
		if got := FormatFixed(tt.v, tt.digits); got != tt.want {
			t.Errorf("FormatFixed(%v, %d) = %q, want %q", tt.v, tt.digits, got, tt.want)
		}
	}
}

func TestGroups(t *testing.T) {
	groups := Groups(ToDisplayResult(sampleResponse()))
	if len(groups) != 3 {
		t.Fatalf("len(groups) = %d, want 3", len(groups))
	}
	keys := []string{groups[0].Key, groups[1].Key, groups[2].Key}
	if keys[0] != "output" || keys[1] != "financial" || keys[2] != "environmental" {
		t.Fatalf("group keys = %v", keys)
	}

	values := map[string]string{}
	for _, g := range groups {
		for _, m := range g.Metrics {
			values[m.Label] = m.Value
		}
	}
	if v := values["Recommended System Size"]; v != "3.2 kW" {
		t.Fatalf("system size = %q", v)
	}
	if v := values["Government Subsidy"]; !strings.HasPrefix(v, "-₹") {
		t.Fatalf("subsidy = %q, want negative rupee amount", v)
	}
	if v := values["Metric tons CO2 avoided"]; v != "95.0" {
		t.Fatalf("co2 tons = %q", v)
	}
	if v := values["Trees equivalent"]; v != "4300" {
		t.Fatalf("trees = %q", v)
	}
	if v := values["Internal Rate of Return"]; v != "18.4%" {
		t.Fatalf("irr = %q", v)
	}
}

func TestPhases(t *testing.T) {
	phases := DefaultPhases(DefaultPhaseDuration)
	if len(phases) != 4 {
		t.Fatalf("len(phases) = %d, want 4", len(phases))
	}
	for i, p := range phases {
		if p.Duration != 3e9 {
			t.Fatalf("phase %d duration = %v", i, p.Duration)
		}
	}
	if DefaultPhases(-1)[0].Duration != 0 {
		t.Fatal("negative duration not clamped")
	}

	views := PhaseViews(phases, 2)
	want := []PhaseStatus{PhaseDone, PhaseDone, PhaseActive, PhasePending}
	for i, v := range views {
		if v.Status != want[i] || v.Index != i {
			t.Fatalf("view %d = %+v, want status %s", i, v, want[i])
		}
	}
	for _, v := range PhaseViews(phases, -1) {
		if v.Status != PhasePending {
			t.Fatalf("inactive sequence has %s phase", v.Status)
		}
	}
}

func TestProgressPercent(t *testing.T) {
	tests := []struct{ active, total, want int }{
		{-1, 4, 0},
		{0, 4, 25},
		{1, 4, 50},
		{3, 4, 100},
		{7, 4, 100},
		{0, 3, 33},
		{1, 3, 67},
		{0, 0, 0},
	}
	for _, tt := range tests {
		if got := ProgressPercent(tt.active, tt.total); got != tt.want {
			t.Errorf("ProgressPercent(%d, %d) = %d, want %d", tt.active, tt.total, got, tt.want)
		}
	}
}
