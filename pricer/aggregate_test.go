package pricer

import (
	"testing"

	"github.com/varibigrich12345-cmyk/ai-purchase-agent/pricer/internal/extract"
)

func TestAggregateMixedOutcomes(t *testing.T) {
	outcomes := map[string]extract.Outcome{
		"zzap":    {Status: extract.Found, Prices: []float64{100, 250}, Brand: "BOSCH", URL: "https://www.zzap.ru/x"},
		"stparts": {Status: extract.NotFound},
		"trast":   {Status: extract.Found, Prices: []float64{150}},
	}

	res, summary, ok := aggregate(outcomes)
	if !ok {
		t.Fatalf("expected a result, got summary %q", summary)
	}
	if res.MinPrice != 100 {
		t.Fatalf("got min %v, want 100", res.MinPrice)
	}
	// Average of the per-source minima (100 and 150), not of all prices.
	if res.AvgPrice != 125 {
		t.Fatalf("got avg %v, want 125", res.AvgPrice)
	}
	if res.Brand != "BOSCH" || res.ResultURL != "https://www.zzap.ru/x" {
		t.Fatalf("got brand %q url %q", res.Brand, res.ResultURL)
	}
	if len(res.SourceMin) != 2 || res.SourceMin["zzap"] != 100 || res.SourceMin["trast"] != 150 {
		t.Fatalf("got per-source %v", res.SourceMin)
	}
}

func TestAggregateAllFailed(t *testing.T) {
	outcomes := map[string]extract.Outcome{
		"zzap":    {Status: extract.TimedOut},
		"stparts": {Status: extract.NotFound},
		"trast":   {Status: extract.Failed, Err: "navigation failed"},
	}

	res, summary, ok := aggregate(outcomes)
	if ok || res != nil {
		t.Fatalf("got %+v, want no result", res)
	}
	// Fixed source order in the summary.
	want := "zzap: timeout, stparts: no_results, trast: error (navigation failed)"
	if summary != want {
		t.Fatalf("got summary %q, want %q", summary, want)
	}
}

func TestAggregateBrandFromFirstSourceInOrder(t *testing.T) {
	// trast precedes autovid in source order, so its brand wins even though
	// the map iteration order is random.
	outcomes := map[string]extract.Outcome{
		"autovid": {Status: extract.Found, Prices: []float64{200}, Brand: "FEBI"},
		"trast":   {Status: extract.Found, Prices: []float64{300}, Brand: "Mann"},
	}

	res, _, ok := aggregate(outcomes)
	if !ok {
		t.Fatal("expected a result")
	}
	if res.Brand != "Mann" {
		t.Fatalf("got brand %q, want Mann", res.Brand)
	}
	if res.MinPrice != 200 {
		t.Fatalf("got min %v, want 200", res.MinPrice)
	}
}

func TestAggregateSingleSource(t *testing.T) {
	outcomes := map[string]extract.Outcome{
		"zzap": {Status: extract.Found, Prices: []float64{5800, 6400}},
	}

	res, _, ok := aggregate(outcomes)
	if !ok {
		t.Fatal("expected a result")
	}
	// One source: min is its minimum, avg equals that same minimum.
	if res.MinPrice != 5800 || res.AvgPrice != 5800 {
		t.Fatalf("got min %v avg %v, want 5800/5800", res.MinPrice, res.AvgPrice)
	}
}
