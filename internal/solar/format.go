package solar

import (
	"math"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const rupee = "₹"

var inPrinter = message.NewPrinter(language.MustParse("en-IN"))

// FormatCurrency renders v in Indian rupees with en-IN digit grouping and no
// decimal places.
func FormatCurrency(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return rupee + "0"
	}
	r := int64(math.Round(v))
	sign := ""
	if r < 0 {
		sign = "-"
		r = -r
	}
	return sign + rupee + inPrinter.Sprint(number.Decimal(r))
}

// FormatFixed renders v with exactly digits decimal places.
func FormatFixed(v float64, digits int) string {
	if digits < 0 {
		digits = 0
	}
	return strconv.FormatFloat(v, 'f', digits, 64)
}

// Metric is one labelled, formatted value of a result group.
type Metric struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// ResultGroup is one card of the result view.
type ResultGroup struct {
	Key     string   `json:"key"`
	Title   string   `json:"title"`
	Metrics []Metric `json:"metrics"`
}

// Groups splits r into the solar output, financial and environmental cards.
func Groups(r DisplayResult) []ResultGroup {
	return []ResultGroup{
		{
			Key:   "output",
			Title: "Solar Output & Recommendation",
			Metrics: []Metric{
				{Label: "Solar Yield per kWp/year", Value: FormatFixed(r.SolarYield, 1) + " kWh"},
				{Label: "Recommended System Size", Value: FormatFixed(r.RecommendedKW, 1) + " kW"},
				{Label: "Annual Generation", Value: FormatFixed(r.AnnualEnergy, 1) + " kWh"},
			},
		},
		{
			Key:   "financial",
			Title: "Financial Analysis",
			Metrics: []Metric{
				{Label: "Total Investment", Value: FormatCurrency(r.TotalCost)},
				{Label: "Government Subsidy", Value: "-" + FormatCurrency(r.Subsidy)},
				{Label: "Net Investment", Value: FormatCurrency(r.NetCost)},
				{Label: "Monthly Savings", Value: FormatCurrency(r.MonthlySavings)},
				{Label: "Annual Savings", Value: FormatCurrency(r.AnnualSavings)},
				{Label: "Payback Period", Value: FormatFixed(r.PaybackYears, 1) + " years"},
				{Label: "Internal Rate of Return", Value: FormatFixed(r.IRRPercent, 1) + "%"},
				{Label: "Net Present Value", Value: FormatCurrency(r.NPV)},
				{Label: "25-Year Savings", Value: FormatCurrency(r.LifetimeSavings)},
			},
		},
		{
			Key:   "environmental",
			Title: "Environmental Impact",
			Metrics: []Metric{
				{Label: "Metric tons CO2 avoided", Value: FormatFixed(r.CO2AvoidedKg/1000, 1)},
				{Label: "Trees equivalent", Value: FormatFixed(r.TreesSaved, 0)},
			},
		},
	}
}
