package extract

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// Searcher drives a live page through one site's search flow and feeds the
// collected rows to the engine. It owns no browser state; the page belongs
// to the site's session handle.
type Searcher struct {
	rules  *Rules
	logger *slog.Logger
}

// NewSearcher creates a Searcher for one site's rules.
func NewSearcher(rules *Rules, logger *slog.Logger) *Searcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Searcher{rules: rules, logger: logger}
}

// Rules exposes the site rules (for cache keys and logging).
func (s *Searcher) Rules() *Rules { return s.rules }

// Search navigates to the search results for term and extracts prices.
// A timed-out wait for results is NotFound, not an error; ctx expiry is
// TimedOut. The page stays open either way; sessions outlive searches.
func (s *Searcher) Search(ctx context.Context, page *rod.Page, term, brandFilter string) Outcome {
	r := s.rules
	pg := page.Context(ctx)

	target := fmt.Sprintf(r.SearchURL, url.QueryEscape(term))
	s.logger.Info("extract: searching", "site", r.Site, "url", target, "brand_filter", brandFilter)

	if err := pg.Navigate(target); err != nil {
		if ctx.Err() != nil {
			return Outcome{Status: TimedOut, URL: target}
		}
		return ErrorOutcome(fmt.Errorf("navigate %s: %w", target, err), target)
	}
	if err := pg.WaitLoad(); err != nil {
		s.logger.Warn("extract: wait load", "site", r.Site, "error", err)
	}

	if r.DisambiguationSelector != "" {
		s.resolveDisambiguation(ctx, pg, brandFilter)
	}

	switch s.waitForResults(ctx, pg) {
	case waitTimedOut:
		if ctx.Err() != nil {
			return Outcome{Status: TimedOut, URL: currentURL(pg, target)}
		}
		return Outcome{Status: NotFound, URL: currentURL(pg, target)}
	case waitNoResults:
		return Outcome{Status: NotFound, URL: currentURL(pg, target)}
	}

	sleepCtx(ctx, r.SettleWait)

	rows, err := s.collectRows(pg)
	if err != nil {
		return ErrorOutcome(fmt.Errorf("collect rows: %w", err), currentURL(pg, target))
	}

	ex := Run(r, rows, brandFilter)
	s.logger.Info("extract: done",
		"site", r.Site, "rows", ex.Rows, "kept", ex.Kept,
		"prices", len(ex.Prices), "brand", ex.Brand)

	if len(ex.Prices) == 0 {
		return Outcome{Status: NotFound, Brand: ex.Brand, URL: currentURL(pg, target)}
	}
	return Outcome{Status: Found, Prices: ex.Prices, Brand: ex.Brand, URL: currentURL(pg, target)}
}

// resolveDisambiguation handles the candidate-chooser step: pick the
// candidate matching the brand filter when one is set, else the first.
// Absence of the chooser is the common case and not an error.
func (s *Searcher) resolveDisambiguation(ctx context.Context, pg *rod.Page, brandFilter string) {
	r := s.rules

	el, err := pg.Timeout(5 * time.Second).Element(r.DisambiguationSelector)
	if err != nil || el == nil {
		return
	}

	candidates, err := pg.Elements(r.CandidateSelector)
	if err != nil || len(candidates) == 0 {
		return
	}

	pick := candidates.First()
	if brandFilter != "" {
		for _, c := range candidates {
			label, _ := c.Text()
			if href, err := c.Attribute("href"); err == nil && href != nil {
				label += " " + *href
			}
			if r.MatchesBrand(label, brandFilter) {
				pick = c
				break
			}
		}
	}
	if pick == nil {
		return
	}

	if err := pick.Click(proto.InputMouseButtonLeft, 1); err != nil {
		s.logger.Warn("extract: disambiguation click", "site", r.Site, "error", err)
		return
	}
	s.logger.Info("extract: disambiguation resolved", "site", r.Site, "brand_filter", brandFilter)
	sleepCtx(ctx, 2*time.Second)
}

type waitResult int

const (
	waitReady waitResult = iota
	waitNoResults
	waitTimedOut
)

// waitForResults polls until the results container is present with no
// pending marker left, a no-results marker appears, or the bounded wait
// expires. Polling mirrors how the sites stream rows in via AJAX; there is
// no single load event to await.
func (s *Searcher) waitForResults(ctx context.Context, pg *rod.Page) waitResult {
	r := s.rules
	deadline := time.Now().Add(r.ResultTimeout)

	for {
		if ctx.Err() != nil || time.Now().After(deadline) {
			return waitTimedOut
		}

		text := bodyText(pg)
		if containsAnyFold(text, r.NoResultsMarkers) {
			return waitNoResults
		}

		has, _, err := pg.Has(r.ResultsSelector)
		if err == nil && has && !containsAnyFold(text, r.PendingMarkers) {
			return waitReady
		}

		if !sleepCtx(ctx, time.Second) {
			return waitTimedOut
		}
	}
}

// collectRows reads each result row's text plus the narrowed brand and price
// fragments. A row that fails to read is skipped, not fatal.
func (s *Searcher) collectRows(pg *rod.Page) ([]Row, error) {
	r := s.rules

	els, err := pg.Elements(r.RowSelector)
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(els))
	for _, el := range els {
		text, err := el.Text()
		if err != nil {
			continue
		}
		row := Row{Text: text}

		if r.BrandSelector != "" {
			if has, brandEl, err := el.Has(r.BrandSelector); err == nil && has {
				row.Brand, _ = brandEl.Text()
			}
		}
		if r.PriceSelector != "" {
			if has, priceEl, err := el.Has(r.PriceSelector); err == nil && has {
				row.Price, _ = priceEl.Text()
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func bodyText(pg *rod.Page) string {
	res, err := pg.Timeout(3 * time.Second).Eval(`() => document.body ? document.body.innerText : ""`)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

func currentURL(pg *rod.Page, fallback string) string {
	info, err := pg.Info()
	if err != nil || info.URL == "" {
		return fallback
	}
	return info.URL
}

func containsAnyFold(text string, markers []string) bool {
	if len(markers) == 0 {
		return false
	}
	lower := strings.ToLower(text)
	for _, m := range markers {
		if strings.Contains(lower, strings.ToLower(m)) {
			return true
		}
	}
	return false
}

// sleepCtx waits d or until ctx is done; returns false when interrupted.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
