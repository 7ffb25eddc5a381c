package pricer

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"

	"github.com/varibigrich12345-cmyk/ai-purchase-agent/pricer/internal/extract"
	"github.com/varibigrich12345-cmyk/ai-purchase-agent/pricer/internal/session"
	"github.com/varibigrich12345-cmyk/ai-purchase-agent/pricer/internal/store"
)

// Service ties the shared browser, the per-site sessions, and the task
// worker together over one store.
type Service struct {
	cfg   *Config
	store *store.Store
	log   *slog.Logger

	mgr       *session.Manager
	sessions  map[string]*session.Handle
	searchers map[string]*extract.Searcher
	worker    *Worker

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// NewService builds a service over an opened database. Nothing touches the
// browser until Start.
func NewService(cfg *Config, db *sql.DB, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	st := store.NewStore(db)

	mgr := session.NewManager(session.BrowserConfig{
		RemoteURL: cfg.Browser.CDPURL,
		Headless:  cfg.Browser.Headless,
		Logger:    logger,
	})

	policies := sitePolicies(cfg)
	rules := siteRules(cfg)

	sessions := make(map[string]*session.Handle, len(policies))
	searchers := make(map[string]*extract.Searcher, len(rules))
	sources := make([]string, 0, len(rules))
	for _, source := range store.Sources {
		r, ok := rules[source]
		if !ok {
			continue
		}
		sources = append(sources, source)
		searchers[source] = extract.NewSearcher(r, logger)
		sessions[source] = session.New(mgr, policies[source], session.Config{
			CookiesDir:        cfg.CookiesDir,
			KeepAliveInterval: cfg.KeepAliveInterval.Std(),
			Logger:            logger,
		})
	}

	s := &Service{
		cfg:       cfg,
		store:     st,
		log:       logger,
		mgr:       mgr,
		sessions:  sessions,
		searchers: searchers,
	}
	s.worker = NewWorker(st, s.searchSource, WorkerConfig{
		Sources:       sources,
		CacheWindow:   cfg.CacheWindow.Std(),
		SourceTimeout: cfg.SourceTimeout.Std(),
		RetryAttempts: cfg.RetryAttempts,
		PollInterval:  cfg.PollInterval.Std(),
		Logger:        logger,
	})
	return s
}

// ApplySchema creates the agent's tables and indexes if they don't exist.
func ApplySchema(db *sql.DB) error {
	return store.ApplySchema(db)
}

// Store exposes the task store for the HTTP layer.
func (s *Service) Store() *store.Store { return s.store }

// Start launches the browser, connects every site session, and starts the
// worker loop. A site that fails to connect is logged and retried lazily on
// its next search; it never blocks startup.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}

	if _, err := s.mgr.Start(); err != nil {
		return fmt.Errorf("pricer: start browser: %w", err)
	}

	for source, h := range s.sessions {
		if err := s.connectSession(ctx, h); err != nil {
			s.log.Warn("pricer: session connect deferred", "source", source, "error", err)
		}
	}

	workerCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		s.worker.Run(workerCtx)
	}()

	s.started = true
	s.log.Info("pricer: started", "sources", len(s.sessions))
	return nil
}

// Close stops the worker, disconnects every session, and shuts the browser
// down. Safe to call more than once.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}

	s.cancel()
	<-s.done

	for _, h := range s.sessions {
		h.Disconnect()
	}
	s.mgr.Close()
	s.started = false
	s.log.Info("pricer: stopped")
}

func (s *Service) connectSession(ctx context.Context, h *session.Handle) error {
	if err := h.Connect(ctx); err != nil {
		return err
	}
	return h.EnsureAuthenticated(ctx)
}

// searchSource is the worker's SourceSearch. It reconnects a dead session
// before searching so a transient site outage heals without a restart.
func (s *Service) searchSource(ctx context.Context, source, partnumber, brand string) extract.Outcome {
	h, ok := s.sessions[source]
	if !ok {
		return extract.ErrorOutcome(fmt.Errorf("unknown source %q", source), "")
	}

	if !h.Connected() {
		if err := s.connectSession(ctx, h); err != nil {
			return extract.ErrorOutcome(fmt.Errorf("session: %w", err), "")
		}
	}

	return s.searchers[source].Search(ctx, h.Page(), partnumber, brand)
}
