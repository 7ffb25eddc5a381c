package pricer

import (
	"fmt"
	"strings"

	"github.com/varibigrich12345-cmyk/ai-purchase-agent/pricer/internal/extract"
	"github.com/varibigrich12345-cmyk/ai-purchase-agent/pricer/internal/store"
)

// aggregate folds per-source outcomes into a task result. The overall
// minimum is the lowest per-source minimum; the average is the mean of the
// per-source minima, so one source with many listings does not outweigh
// the others. Brand and URL come from the first source, in fixed source
// order, that reported them.
//
// ok is false when no source found a price; the summary then describes
// every source's failure, e.g. "zzap: timeout, stparts: no_results".
func aggregate(outcomes map[string]extract.Outcome) (result *store.TaskResult, summary string, ok bool) {
	res := &store.TaskResult{SourceMin: map[string]float64{}}
	var sum float64

	for _, src := range store.Sources {
		out, present := outcomes[src]
		if !present || out.Status != extract.Found {
			continue
		}
		min := out.Min()
		if min <= 0 {
			continue
		}
		res.SourceMin[src] = min
		sum += min
		if res.MinPrice == 0 || min < res.MinPrice {
			res.MinPrice = min
		}
		if res.Brand == "" && out.Brand != "" {
			res.Brand = out.Brand
		}
		if res.ResultURL == "" && out.URL != "" {
			res.ResultURL = out.URL
		}
	}

	if len(res.SourceMin) == 0 {
		return nil, failureSummary(outcomes), false
	}
	res.AvgPrice = sum / float64(len(res.SourceMin))
	return res, "", true
}

func failureSummary(outcomes map[string]extract.Outcome) string {
	parts := make([]string, 0, len(outcomes))
	for _, src := range store.Sources {
		out, present := outcomes[src]
		if !present {
			continue
		}
		detail := string(out.Status)
		if out.Err != "" {
			detail = fmt.Sprintf("%s (%s)", out.Status, out.Err)
		}
		parts = append(parts, src+": "+detail)
	}
	return strings.Join(parts, ", ")
}
