package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// Config tunes session behaviour shared by all sites.
type Config struct {
	// CookiesDir is where per-site cookie blobs are persisted.
	CookiesDir string
	// KeepAliveInterval is the period of the background ping. Default: 20m.
	KeepAliveInterval time.Duration
	// NavigateTimeout bounds every navigation the handle performs itself.
	NavigateTimeout time.Duration

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.KeepAliveInterval <= 0 {
		c.KeepAliveInterval = 20 * time.Minute
	}
	if c.NavigateTimeout <= 0 {
		c.NavigateTimeout = 60 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Handle is the long-lived session bound to one site: one stealth page,
// connection and auth state, and a cancellable keep-alive loop. A Handle is
// used by at most one search at a time.
type Handle struct {
	policy Policy
	cfg    Config
	mgr    *Manager
	log    *slog.Logger

	mu            sync.Mutex
	page          *rod.Page
	connected     bool
	authenticated bool
	stopKeepAlive context.CancelFunc
	keepAliveDone chan struct{}
}

// New creates a Handle for one site. Call Connect before searching.
func New(mgr *Manager, policy Policy, cfg Config) *Handle {
	cfg.defaults()
	return &Handle{
		policy: policy,
		cfg:    cfg,
		mgr:    mgr,
		log:    cfg.Logger.With("site", policy.Site),
	}
}

// Site returns the source identifier this session is bound to.
func (h *Handle) Site() string { return h.policy.Site }

// Connected reports whether the session has a live page.
func (h *Handle) Connected() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.connected
}

// Authenticated reports the last observed auth state.
func (h *Handle) Authenticated() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.authenticated
}

// Page returns the session's page for a search to drive. Nil before Connect.
func (h *Handle) Page() *rod.Page {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.page
}

// Connect opens a stealth page on the shared browser, restores persisted
// cookies, verifies the site is reachable, and starts the keep-alive loop.
// Calling Connect on a connected handle is a no-op.
func (h *Handle) Connect(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.connected {
		return nil
	}

	browser := h.mgr.Browser()
	if browser == nil {
		return fmt.Errorf("session %s: browser not started", h.policy.Site)
	}

	page, err := stealth.Page(browser)
	if err != nil {
		return fmt.Errorf("session %s: open page: %w", h.policy.Site, err)
	}

	if n, err := h.restoreCookies(page); err != nil {
		h.log.Info("session: no cookies restored", "error", err)
	} else if n > 0 {
		h.log.Info("session: cookies restored", "count", n)
	}

	navCtx, cancel := context.WithTimeout(ctx, h.cfg.NavigateTimeout)
	defer cancel()
	if err := page.Context(navCtx).Navigate(h.policy.BaseURL); err != nil {
		page.Close()
		return fmt.Errorf("session %s: reach %s: %w", h.policy.Site, h.policy.BaseURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		h.log.Warn("session: initial load incomplete", "error", err)
	}

	h.page = page
	h.connected = true

	kaCtx, stop := context.WithCancel(context.Background())
	h.stopKeepAlive = stop
	h.keepAliveDone = make(chan struct{})
	go h.keepAliveLoop(kaCtx)

	h.log.Info("session: connected", "base_url", h.policy.BaseURL)
	return nil
}

// EnsureAuthenticated verifies the session is logged in, performing the
// site's login sequence when it is not, and persists cookies on success.
// For Anonymous sites it returns immediately. A login failure on a site
// with TolerateUnauthenticated set degrades instead of failing.
func (h *Handle) EnsureAuthenticated(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.connected {
		return fmt.Errorf("session %s: not connected", h.policy.Site)
	}
	if h.policy.Anonymous {
		h.authenticated = true
		return nil
	}

	pg := h.page.Context(ctx)

	if err := h.gotoBase(ctx); err != nil {
		return err
	}

	switch h.probeAuthState(pg) {
	case authStateLoggedIn:
		h.authenticated = true
		h.log.Info("session: already authenticated")
		return nil
	case authStateUnknown:
		// Neither marker set matched; assume the session is usable.
		h.authenticated = true
		h.log.Info("session: auth state unknown, proceeding")
		return nil
	}

	h.log.Info("session: login required")
	if err := h.login(ctx); err != nil {
		h.authenticated = false
		if h.policy.TolerateUnauthenticated {
			h.log.Warn("session: login failed, degrading to unauthenticated", "error", err)
			return nil
		}
		return fmt.Errorf("session %s: login: %w", h.policy.Site, err)
	}

	h.authenticated = true
	if err := h.persistCookies(); err != nil {
		h.log.Warn("session: cookie persist failed", "error", err)
	}
	h.log.Info("session: authenticated")
	return nil
}

// Disconnect persists cookies, stops the keep-alive loop, and closes the
// page. Safe to call on a disconnected handle.
func (h *Handle) Disconnect() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.connected {
		return
	}

	if err := h.persistCookies(); err != nil {
		h.log.Warn("session: cookie persist on disconnect failed", "error", err)
	}

	if h.stopKeepAlive != nil {
		h.stopKeepAlive()
		<-h.keepAliveDone
		h.stopKeepAlive = nil
	}

	if h.page != nil {
		h.page.Close()
		h.page = nil
	}
	h.connected = false
	h.authenticated = false
	h.log.Info("session: disconnected")
}

type authState int

const (
	authStateLoggedIn authState = iota
	authStateLoggedOut
	authStateUnknown
)

// probeAuthState checks the ordered marker lists: first auth markers, then
// login-form markers. Explicit absence results, no suppressed errors.
func (h *Handle) probeAuthState(pg *rod.Page) authState {
	for _, sel := range h.policy.AuthMarkers {
		if has, _, err := pg.Has(sel); err == nil && has {
			return authStateLoggedIn
		}
	}
	for _, sel := range h.policy.LoginMarkers {
		if has, _, err := pg.Has(sel); err == nil && has {
			return authStateLoggedOut
		}
	}
	return authStateUnknown
}

// login drives the site's login form: navigate, fill, submit, re-check.
func (h *Handle) login(ctx context.Context) error {
	navCtx, cancel := context.WithTimeout(ctx, h.cfg.NavigateTimeout)
	defer cancel()
	pg := h.page.Context(navCtx)

	if err := pg.Navigate(h.policy.LoginURL); err != nil {
		return fmt.Errorf("navigate login page: %w", err)
	}
	if err := pg.WaitLoad(); err != nil {
		h.log.Warn("session: login page load incomplete", "error", err)
	}

	user, err := pg.Timeout(10 * time.Second).Element(h.policy.UserField)
	if err != nil {
		return fmt.Errorf("user field %q: %w", h.policy.UserField, err)
	}
	if err := user.Input(h.policy.Username); err != nil {
		return fmt.Errorf("fill user field: %w", err)
	}

	pass, err := pg.Timeout(10 * time.Second).Element(h.policy.PasswordField)
	if err != nil {
		return fmt.Errorf("password field %q: %w", h.policy.PasswordField, err)
	}
	if err := pass.Input(h.policy.Password); err != nil {
		return fmt.Errorf("fill password field: %w", err)
	}

	submit, err := pg.Timeout(10 * time.Second).Element(h.policy.SubmitSelector)
	if err != nil {
		return fmt.Errorf("submit control %q: %w", h.policy.SubmitSelector, err)
	}
	if err := submit.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("submit login: %w", err)
	}
	if err := pg.WaitLoad(); err != nil {
		h.log.Warn("session: post-login load incomplete", "error", err)
	}
	time.Sleep(2 * time.Second)

	if h.probeAuthState(pg) == authStateLoggedOut {
		return fmt.Errorf("login form still shown after submit")
	}
	return nil
}

func (h *Handle) gotoBase(ctx context.Context) error {
	info, err := h.page.Info()
	if err == nil && info != nil && containsURL(info.URL, h.policy.BaseURL) {
		return nil
	}

	navCtx, cancel := context.WithTimeout(ctx, h.cfg.NavigateTimeout)
	defer cancel()
	pg := h.page.Context(navCtx)
	if err := pg.Navigate(h.policy.BaseURL); err != nil {
		return fmt.Errorf("session %s: navigate home: %w", h.policy.Site, err)
	}
	if err := pg.WaitLoad(); err != nil {
		h.log.Warn("session: home load incomplete", "error", err)
	}
	return nil
}

// keepAliveLoop pings the site from inside the page at the configured
// interval so the server-side session survives idle periods. Failures are
// logged and swallowed; a dead ping is never a task failure.
func (h *Handle) keepAliveLoop(ctx context.Context) {
	defer close(h.keepAliveDone)

	ticker := time.NewTicker(h.cfg.KeepAliveInterval)
	defer ticker.Stop()

	h.log.Info("session: keep-alive started", "interval", h.cfg.KeepAliveInterval)
	for {
		select {
		case <-ctx.Done():
			h.log.Info("session: keep-alive stopped")
			return
		case <-ticker.C:
			if err := h.ping(ctx); err != nil {
				h.log.Warn("session: keep-alive ping failed", "error", err)
			}
		}
	}
}

// ping issues a HEAD fetch from inside the page so it rides the page's
// cookies and TLS session.
func (h *Handle) ping(ctx context.Context) error {
	h.mu.Lock()
	pg := h.page
	h.mu.Unlock()
	if pg == nil {
		return fmt.Errorf("no page")
	}

	_, err := pg.Context(ctx).Timeout(15 * time.Second).Eval(
		`(u) => { fetch(u, {method: "HEAD", credentials: "include"}).catch(() => {}); }`,
		h.policy.BaseURL,
	)
	return err
}

func containsURL(current, base string) bool {
	return base != "" && len(current) >= len(base) && current[:len(base)] == base
}
