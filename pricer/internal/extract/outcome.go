// Package extract turns rendered search result pages into price observations.
//
// One generic engine is parameterized by per-site Rules (selectors, regexes,
// sanity bands, exclusion markers, brand aliases); the five supported sites
// differ only in that data, not in control flow. The rod-facing navigation
// lives in searcher.go; everything below it is pure and unit-testable.
package extract

// Status classifies a search attempt.
type Status string

const (
	// Found means at least one price passed every filter.
	Found Status = "ok"
	// NotFound means the site answered but produced no usable price.
	NotFound Status = "no_results"
	// Failed means the attempt errored (navigation, login, page state).
	Failed Status = "error"
	// TimedOut means the per-source deadline expired.
	TimedOut Status = "timeout"
)

// Outcome is the result of one search against one site.
type Outcome struct {
	Status Status
	// Prices is the deduplicated set of accepted prices. Non-empty iff
	// Status == Found.
	Prices []float64
	// Brand is the first non-empty brand label observed in document order
	// (or the filtered brand when a filter was applied).
	Brand string
	// URL is the page the result was read from, kept for diagnostics.
	URL string
	// Err carries the failure message for Status == Failed.
	Err string
}

// Min returns the lowest accepted price. Only meaningful when Status == Found.
func (o Outcome) Min() float64 {
	if len(o.Prices) == 0 {
		return 0
	}
	min := o.Prices[0]
	for _, p := range o.Prices[1:] {
		if p < min {
			min = p
		}
	}
	return min
}

// ErrorOutcome builds a Failed outcome from an error.
func ErrorOutcome(err error, url string) Outcome {
	return Outcome{Status: Failed, URL: url, Err: err.Error()}
}
