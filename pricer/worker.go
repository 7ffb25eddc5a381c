package pricer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/varibigrich12345-cmyk/ai-purchase-agent/pricer/internal/extract"
	"github.com/varibigrich12345-cmyk/ai-purchase-agent/pricer/internal/store"
)

// SourceSearch runs one search attempt for a part number against a named
// source. Implementations drive a live browser session; tests inject fakes.
type SourceSearch func(ctx context.Context, source, partnumber, brand string) extract.Outcome

// WorkerConfig tunes the task processing loop.
type WorkerConfig struct {
	// Sources lists the sources to fan out to, in priority order.
	Sources []string
	// CacheWindow is how long a cached per-source price is reused.
	CacheWindow time.Duration
	// SourceTimeout bounds one source's search, retries included.
	SourceTimeout time.Duration
	// RetryAttempts caps attempts per source.
	RetryAttempts int
	// RetryBackoff is the base backoff between attempts.
	RetryBackoff time.Duration
	// PollInterval is the idle sleep between claim attempts.
	PollInterval time.Duration

	Logger *slog.Logger
}

func (c *WorkerConfig) defaults() {
	if len(c.Sources) == 0 {
		c.Sources = store.Sources
	}
	if c.CacheWindow <= 0 {
		c.CacheWindow = 30 * time.Minute
	}
	if c.SourceTimeout <= 0 {
		c.SourceTimeout = 30 * time.Second
	}
	if c.RetryAttempts <= 0 {
		c.RetryAttempts = 3
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = time.Second
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 2 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Worker claims pending tasks one at a time and fans each out to every
// source concurrently. The loop never dies on a task failure: the task is
// marked ERROR and the worker moves on.
type Worker struct {
	store  *store.Store
	search SourceSearch
	cfg    WorkerConfig
	log    *slog.Logger
}

// NewWorker builds a worker over the given store and search function.
func NewWorker(st *store.Store, search SourceSearch, cfg WorkerConfig) *Worker {
	cfg.defaults()
	return &Worker{
		store:  st,
		search: search,
		cfg:    cfg,
		log:    cfg.Logger,
	}
}

// Run polls for pending tasks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	w.log.Info("worker: started", "sources", w.cfg.Sources)
	for {
		task, err := w.store.ClaimOldestPending(ctx)
		if err != nil {
			if ctx.Err() != nil {
				w.log.Info("worker: stopped")
				return
			}
			w.log.Error("worker: claim failed", "error", err)
		}

		if task != nil {
			w.ProcessTask(ctx, task)
			continue
		}

		select {
		case <-ctx.Done():
			w.log.Info("worker: stopped")
			return
		case <-time.After(w.cfg.PollInterval):
		}
	}
}

// ProcessTask runs one claimed task to completion: concurrent per-source
// searches, aggregation, and the terminal status write. A panic anywhere in
// the task path is converted into an ERROR status write; the loop survives.
func (w *Worker) ProcessTask(ctx context.Context, task *store.Task) {
	log := w.log.With("task_id", task.ID, "partnumber", task.PartNumber)

	defer func() {
		if r := recover(); r != nil {
			log.Error("worker: task panic", "panic", r)
			if err := w.store.FailTask(ctx, task.ID, fmt.Sprintf("panic: %v", r)); err != nil {
				log.Error("worker: fail write lost", "error", err)
			}
		}
	}()

	log.Info("worker: task started", "search_brand", task.SearchBrand)

	outcomes := w.searchAll(ctx, task)

	res, summary, ok := aggregate(outcomes)
	if !ok {
		if err := w.store.FailTask(ctx, task.ID, summary); err != nil {
			log.Error("worker: fail write lost", "error", err)
		}
		log.Warn("worker: task failed", "summary", summary)
		return
	}

	if err := w.store.CompleteTask(ctx, task.ID, res); err != nil {
		log.Error("worker: complete write lost", "error", err)
		return
	}
	w.recordHistory(ctx, task, res)
	log.Info("worker: task done",
		"min_price", res.MinPrice,
		"avg_price", res.AvgPrice,
		"sources", len(res.SourceMin))
}

// searchAll fans the task out to every source with its own deadline. A
// fresh cached price short-circuits the browser entirely.
func (w *Worker) searchAll(ctx context.Context, task *store.Task) map[string]extract.Outcome {
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		outcomes = make(map[string]extract.Outcome, len(w.cfg.Sources))
	)

	for _, source := range w.cfg.Sources {
		wg.Add(1)
		go func(source string) {
			defer wg.Done()
			// The CDP layer can panic on an abrupt browser disconnect; a
			// dead source must not take the process down.
			defer func() {
				if r := recover(); r != nil {
					w.log.Error("worker: source panic",
						"task_id", task.ID, "source", source, "panic", r)
					mu.Lock()
					outcomes[source] = extract.Outcome{
						Status: extract.Failed,
						Err:    fmt.Sprintf("panic: %v", r),
					}
					mu.Unlock()
				}
			}()
			out := w.searchOne(ctx, source, task)
			mu.Lock()
			outcomes[source] = out
			mu.Unlock()
		}(source)
	}
	wg.Wait()
	return outcomes
}

func (w *Worker) searchOne(ctx context.Context, source string, task *store.Task) extract.Outcome {
	log := w.log.With("task_id", task.ID, "source", source)

	cached, err := w.store.LookupCachedPrice(ctx, task.PartNumber, task.SearchBrand, source, w.cfg.CacheWindow)
	if err != nil {
		log.Warn("worker: cache lookup failed", "error", err)
	} else if cached != nil {
		log.Info("worker: cache hit", "price", cached.Price)
		return extract.Outcome{
			Status: extract.Found,
			Prices: []float64{cached.Price},
			Brand:  cached.Brand,
			URL:    cached.URL,
		}
	}

	srcCtx, cancel := context.WithTimeout(ctx, w.cfg.SourceTimeout)
	defer cancel()

	out := withRetry(srcCtx, w.cfg.RetryAttempts, w.cfg.RetryBackoff, log, func(ctx context.Context) extract.Outcome {
		return w.search(ctx, source, task.PartNumber, task.SearchBrand)
	})

	if out.Status == extract.Found {
		entry := &store.CachedPrice{
			PartNumber: task.PartNumber,
			Brand:      task.SearchBrand,
			Source:     source,
			Price:      out.Min(),
			URL:        out.URL,
			CachedAt:   time.Now().UnixMilli(),
		}
		if err := w.store.InsertCachedPrice(ctx, entry); err != nil {
			log.Warn("worker: cache write failed", "error", err)
		}
	}
	return out
}

// recordHistory appends one observation per source that produced a price.
// Duplicate observations within a day are dropped by the store.
func (w *Worker) recordHistory(ctx context.Context, task *store.Task, res *store.TaskResult) {
	now := time.Now().UnixMilli()
	for _, source := range store.Sources {
		price, ok := res.SourceMin[source]
		if !ok {
			continue
		}
		entry := &store.PriceHistoryEntry{
			PartNumber: task.PartNumber,
			Brand:      res.Brand,
			Source:     source,
			Price:      price,
			RecordedAt: now,
		}
		if _, err := w.store.InsertPriceHistory(ctx, entry); err != nil {
			w.log.Warn("worker: history write failed",
				"task_id", task.ID, "source", source, "error", err)
		}
	}
}
