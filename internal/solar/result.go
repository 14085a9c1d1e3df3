package solar

import "github.com/shopspring/decimal"

// LifetimeYears is the horizon the service reports lifetime savings over.
const LifetimeYears = 25

// CalculationRequest is the body posted to the calculation service.
type CalculationRequest struct {
	State        string  `json:"state"`
	MonthlyUnits float64 `json:"monthly_units"`
	LatLong      string  `json:"latlong"`
}

// NewCalculationRequest builds the request from validated input.
func NewCalculationRequest(in FormInput) (CalculationRequest, error) {
	units, ok := ParseMonthlyUnits(in.MonthlyUnits)
	if !ok {
		return CalculationRequest{}, ValidationErrors{FieldMonthlyUnits: msgMonthlyUnits}
	}
	return CalculationRequest{State: in.State, MonthlyUnits: units, LatLong: in.Coordinates}, nil
}

// CalculationResponse is the calculation service's answer.
type CalculationResponse struct {
	RecommendedKW      float64 `json:"recommended_kw"`
	YieldPerKWp        float64 `json:"yield_per_kwp"`
	TotalYieldKWhYear1 float64 `json:"total_yield_kwh_year1"`
	TotalCost          float64 `json:"total_cost"`
	StateSubsidy       float64 `json:"state_subsidy"`
	CentralSubsidy     float64 `json:"central_subsidy"`
	NetCost            float64 `json:"net_cost"`
	NPV                float64 `json:"npv"`
	IRRPercent         float64 `json:"irr_percent"`
	PaybackYears       float64 `json:"payback_period_years"`
	LifetimeSavings    float64 `json:"lifetime_savings"`
	CO2AvoidedKg       float64 `json:"co2_avoided_kg"`
	TreesSaved         float64 `json:"trees_saved_equivalent"`
}

// DisplayResult is the presentation shape of a CalculationResponse.
type DisplayResult struct {
	RecommendedKW   float64 `json:"recommended_kw"`
	SolarYield      float64 `json:"solar_yield"`
	AnnualEnergy    float64 `json:"annual_energy"`
	TotalCost       float64 `json:"total_cost"`
	Subsidy         float64 `json:"subsidy"`
	NetCost         float64 `json:"net_cost"`
	NPV             float64 `json:"npv"`
	IRRPercent      float64 `json:"irr_percent"`
	PaybackYears    float64 `json:"payback_years"`
	LifetimeSavings float64 `json:"lifetime_savings"`
	AnnualSavings   float64 `json:"annual_savings"`
	MonthlySavings  float64 `json:"monthly_savings"`
	CO2AvoidedKg    float64 `json:"co2_avoided_kg"`
	TreesSaved      float64 `json:"trees_saved"`
}

// ToDisplayResult derives the display fields. The response is taken by value
// and never modified.
func ToDisplayResult(resp CalculationResponse) DisplayResult {
	subsidy := decimal.NewFromFloat(resp.StateSubsidy).Add(decimal.NewFromFloat(resp.CentralSubsidy))
	annual := decimal.NewFromFloat(resp.LifetimeSavings).Div(decimal.NewFromInt(LifetimeYears))
	monthly := annual.Div(decimal.NewFromInt(12))

	return DisplayResult{
		RecommendedKW:   resp.RecommendedKW,
		SolarYield:      resp.YieldPerKWp,
		AnnualEnergy:    resp.TotalYieldKWhYear1,
		TotalCost:       resp.TotalCost,
		Subsidy:         subsidy.InexactFloat64(),
		NetCost:         resp.NetCost,
		NPV:             resp.NPV,
		IRRPercent:      resp.IRRPercent,
		PaybackYears:    resp.PaybackYears,
		LifetimeSavings: resp.LifetimeSavings,
		AnnualSavings:   annual.InexactFloat64(),
		MonthlySavings:  monthly.InexactFloat64(),
		CO2AvoidedKg:    resp.CO2AvoidedKg,
		TreesSaved:      resp.TreesSaved,
	}
}
