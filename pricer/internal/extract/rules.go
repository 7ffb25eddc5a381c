package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Rules is the per-site extraction policy. It is data: selector strings,
// regex patterns, lexical markers, and numeric bands. The engine and the
// searcher never branch on the site name.
type Rules struct {
	// Site is the source identifier (zzap, stparts, ...).
	Site string
	// BaseURL is the site root.
	BaseURL string
	// SearchURL is a printf template producing the search results URL from
	// an already URL-escaped part number.
	SearchURL string

	// ResultsSelector is the element that signals results are present.
	ResultsSelector string
	// RowSelector enumerates result rows under the results container.
	RowSelector string
	// BrandSelector locates the brand label inside a row. When empty the
	// engine falls back to BrandCellText extraction from the row text.
	BrandSelector string
	// PriceSelector narrows the price text inside a row; empty means the
	// whole row text is scanned.
	PriceSelector string
	// NoResultsMarkers are page-text fragments meaning an empty answer.
	NoResultsMarkers []string
	// PendingMarkers are page-text fragments meaning results are still
	// loading; the searcher keeps polling while one is present.
	PendingMarkers []string
	// DisambiguationSelector points at the candidate-chooser shown when a
	// part number matches several catalog entries. Empty = site has none.
	DisambiguationSelector string
	// CandidateSelector enumerates the clickable candidates inside the
	// disambiguation step.
	CandidateSelector string

	// BrandPattern extracts a brand label from row text on sites that
	// carry it inline ("Производитель: X") instead of a dedicated cell.
	// Group 1 captures the label. Used when BrandSelector yields nothing.
	BrandPattern *regexp.Regexp
	// PricePattern extracts the price token from a cell or row text.
	// Group 1 must capture the numeric part.
	PricePattern *regexp.Regexp
	// StripPhrases are removed from the text before PricePattern runs, so a
	// minimum-order "from X" figure never masks the line-item price.
	StripPhrases []string
	// MinPrice and MaxPrice bound plausible prices (exclusive).
	MinPrice, MaxPrice float64

	// UsedMarkers mark used/refurbished rows; matched case-insensitively,
	// the whole row is dropped.
	UsedMarkers []string
	// OutOfStockMarkers mark rows with no stock; same treatment.
	OutOfStockMarkers []string
	// SkipMarkers mark service rows (group headers, collapse controls) that
	// carry no offer.
	SkipMarkers []string

	// BrandAliases widens brand filter matching to related labels
	// (hyundai → kia/mobis and so on).
	BrandAliases map[string][]string

	// SettleWait is the pause after results appear, letting late AJAX rows
	// land before rows are read.
	SettleWait time.Duration
	// ResultTimeout bounds the wait for ResultsSelector; expiry is
	// NotFound, not an error.
	ResultTimeout time.Duration
}

// ParsePrice extracts one price from text, applying strip phrases, numeric
// normalisation (spaces, NBSP, decimal comma) and the sanity band. The
// second return is false when no acceptable price is present; a malformed
// token is discarded, never an error.
func (r *Rules) ParsePrice(text string) (float64, bool) {
	for _, phrase := range r.StripPhrases {
		text = stripPhraseLine(text, phrase)
	}
	m := r.PricePattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	raw := strings.NewReplacer(" ", "", " ", "", ",", ".").Replace(strings.TrimSpace(m[1]))
	val, ok := parseFloat(raw)
	if !ok {
		return 0, false
	}
	if val <= r.MinPrice || val >= r.MaxPrice {
		return 0, false
	}
	return val, true
}

// ParseAllPrices extracts every acceptable price from text.
func (r *Rules) ParseAllPrices(text string) []float64 {
	for _, phrase := range r.StripPhrases {
		text = stripPhraseLine(text, phrase)
	}
	var out []float64
	for _, m := range r.PricePattern.FindAllStringSubmatch(text, -1) {
		raw := strings.NewReplacer(" ", "", " ", "", ",", ".").Replace(strings.TrimSpace(m[1]))
		val, ok := parseFloat(raw)
		if !ok {
			continue
		}
		if val <= r.MinPrice || val >= r.MaxPrice {
			continue
		}
		out = append(out, val)
	}
	return out
}

// Excluded reports whether a row must be dropped entirely: used/refurbished
// goods or out-of-stock offers never contribute prices.
func (r *Rules) Excluded(rowText string) bool {
	lower := strings.ToLower(rowText)
	for _, m := range r.UsedMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	for _, m := range r.OutOfStockMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// Skip reports whether a row is a service row (header, collapse control).
func (r *Rules) Skip(rowText string) bool {
	for _, m := range r.SkipMarkers {
		if strings.Contains(rowText, m) {
			return true
		}
	}
	return false
}

// MatchesBrand reports whether a row's brand label satisfies the filter.
// Matching is case-insensitive substring in either direction, widened by the
// alias table (so "hyundai" accepts a MOBIS row).
func (r *Rules) MatchesBrand(rowBrand, filter string) bool {
	if filter == "" {
		return true
	}
	if rowBrand == "" {
		return false
	}
	brand := strings.ToLower(strings.TrimSpace(rowBrand))
	want := strings.ToLower(strings.TrimSpace(filter))

	accepted := r.BrandAliases[want]
	if accepted == nil {
		accepted = []string{want}
	}
	for _, a := range accepted {
		if strings.Contains(brand, a) || strings.Contains(a, brand) {
			return true
		}
	}
	return false
}

// RowBrand resolves a row's brand label: the selector-extracted label when
// present, else the first BrandPattern match in the row text.
func (r *Rules) RowBrand(row Row) string {
	if row.Brand != "" {
		return strings.TrimSpace(strings.SplitN(row.Brand, "\n", 2)[0])
	}
	if r.BrandPattern == nil {
		return ""
	}
	m := r.BrandPattern.FindStringSubmatch(row.Text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// stripPhraseLine removes every line containing phrase (case-insensitive),
// so "Заказ от 10 шт." style fragments can't feed the price regex.
func stripPhraseLine(text, phrase string) string {
	if !strings.Contains(strings.ToLower(text), strings.ToLower(phrase)) {
		return text
	}
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, l := range lines {
		if strings.Contains(strings.ToLower(l), strings.ToLower(phrase)) {
			continue
		}
		kept = append(kept, l)
	}
	return strings.Join(kept, "\n")
}

func parseFloat(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	val, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return val, true
}
