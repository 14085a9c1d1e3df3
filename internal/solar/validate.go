package solar

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Field names double as the wire names sent to the calculation service.
const (
	FieldState        = "state"
	FieldMonthlyUnits = "monthly_units"
	FieldCoordinates  = "latlong"
)

const (
	msgStateMissing = "Select a state"
	msgStateUnknown = "Select a valid state"
	msgMonthlyUnits = "Enter valid monthly units"
	msgCoordinates  = "Enter coords as lat,lng"
)

var coordinatesPattern = regexp.MustCompile(`^[-+]?(\d+\.?\d*|\.\d+),[-+]?(\d+\.?\d*|\.\d+)$`)

// FormInput is what the visitor typed into the calculator form.
type FormInput struct {
	State        string `json:"state" form:"state"`
	MonthlyUnits string `json:"monthly_units" form:"monthly_units"`
	Coordinates  string `json:"latlong" form:"latlong"`
}

// Normalize trims surrounding whitespace from every field.
func (in FormInput) Normalize() FormInput {
	return FormInput{
		State:        strings.TrimSpace(in.State),
		MonthlyUnits: strings.TrimSpace(in.MonthlyUnits),
		Coordinates:  strings.TrimSpace(in.Coordinates),
	}
}

// Set returns a copy of in with field replaced by value. Unknown fields are ignored.
func (in FormInput) Set(field, value string) FormInput {
	switch field {
	case FieldState:
		in.State = value
	case FieldMonthlyUnits:
		in.MonthlyUnits = value
	case FieldCoordinates:
		in.Coordinates = value
	}
	return in
}

// ValidationErrors maps a field name to a human readable message. An empty
// map means the input is valid.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "no validation errors"
	}
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+v[f])
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

// Has reports whether field has an error.
func (v ValidationErrors) Has(field string) bool {
	_, ok := v[field]
	return ok
}

// Fields returns the failing field names in sorted order.
func (v ValidationErrors) Fields() []string {
	out := make([]string, 0, len(v))
	for f := range v {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Validate checks all three fields and returns every failure at once.
// Latitude and longitude are not range checked.
func Validate(in FormInput, regions RegionSet) ValidationErrors {
	errs := ValidationErrors{}

	switch {
	case in.State == "":
		errs[FieldState] = msgStateMissing
	case !regions.Contains(in.State):
		errs[FieldState] = msgStateUnknown
	}

	if _, ok := ParseMonthlyUnits(in.MonthlyUnits); !ok {
		errs[FieldMonthlyUnits] = msgMonthlyUnits
	}

	if !coordinatesPattern.MatchString(in.Coordinates) {
		errs[FieldCoordinates] = msgCoordinates
	}
	return errs
}

// ParseMonthlyUnits parses s as a finite, strictly positive number.
func ParseMonthlyUnits(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, false
	}
	return v, true
}
