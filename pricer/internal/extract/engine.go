package extract

import "sort"

// Row is one result row as read from the page: the full row text plus the
// narrowed brand and price fragments when the site's selectors could isolate
// them. Price falls back to Text when empty.
type Row struct {
	Text  string
	Brand string
	Price string
}

// Extraction is the engine's answer for one page of rows.
type Extraction struct {
	// Prices is the deduplicated, ascending set of accepted prices.
	Prices []float64
	// Brand is the first non-empty brand in document order among rows that
	// survived filtering.
	Brand string
	// Rows counts rows inspected; Kept counts rows that contributed.
	Rows, Kept int
}

// Run applies the site rules to the collected rows: service rows skipped,
// used/out-of-stock rows dropped before any price is read, brand filter
// applied alias-aware, prices parsed with strip phrases and sanity band,
// result set-deduplicated.
func Run(r *Rules, rows []Row, brandFilter string) Extraction {
	var ex Extraction
	seen := make(map[float64]bool)

	for _, row := range rows {
		if row.Text == "" && row.Price == "" {
			continue
		}
		if r.Skip(row.Text) {
			continue
		}
		ex.Rows++

		if r.Excluded(row.Text) {
			continue
		}
		rowBrand := r.RowBrand(row)
		if brandFilter != "" && !r.MatchesBrand(rowBrand, brandFilter) {
			continue
		}
		ex.Kept++

		if ex.Brand == "" && rowBrand != "" {
			ex.Brand = rowBrand
		}

		priceText := row.Price
		if priceText == "" {
			priceText = row.Text
		}
		for _, p := range r.ParseAllPrices(priceText) {
			if !seen[p] {
				seen[p] = true
				ex.Prices = append(ex.Prices, p)
			}
		}
	}

	sort.Float64s(ex.Prices)
	return ex
}
