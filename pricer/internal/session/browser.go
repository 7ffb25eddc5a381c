// Package session manages the long-lived authenticated browser sessions, one
// per source site: connect, cookie restore, login, keep-alive, disconnect.
package session

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
)

// BrowserConfig controls how the shared Chrome instance is obtained.
type BrowserConfig struct {
	// RemoteURL is the DevTools URL of an already-running Chrome whose
	// profile survives agent restarts. Empty = launch a local Chrome.
	RemoteURL string

	// Headless applies to locally launched Chrome only.
	Headless bool

	Logger *slog.Logger
}

// Manager owns the one Chrome instance every site session attaches to.
// Sessions own their pages; the Manager owns the browser process handle.
type Manager struct {
	cfg BrowserConfig

	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	closed  bool
}

// NewManager creates a browser Manager. Call Start before opening sessions.
func NewManager(cfg BrowserConfig) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Manager{cfg: cfg}
}

// Start connects to the remote Chrome or launches a local one.
func (m *Manager) Start() (*rod.Browser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, fmt.Errorf("session: manager is closed")
	}
	if m.browser != nil {
		return m.browser, nil
	}

	wsURL := m.cfg.RemoteURL
	if wsURL == "" {
		l := launcher.New().Headless(m.cfg.Headless)
		// Sites fingerprint the automation flag; hide it.
		l = l.Set("disable-blink-features", "AutomationControlled")

		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("session: launch chrome: %w", err)
		}
		m.lnch = l
		wsURL = u
		m.cfg.Logger.Info("session: launched local chrome", "url", wsURL, "headless", m.cfg.Headless)
	} else {
		m.cfg.Logger.Info("session: connecting to remote chrome", "url", wsURL)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("session: connect: %w", err)
	}
	m.browser = b
	return b, nil
}

// Browser returns the connected browser handle, or nil before Start.
func (m *Manager) Browser() *rod.Browser {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.browser
}

// Close disconnects from Chrome and, for a locally launched instance, kills
// it. Remote Chrome is left running so its profile persists.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true

	if m.browser != nil {
		m.browser.Close()
		m.browser = nil
	}
	if m.lnch != nil {
		m.lnch.Cleanup()
		m.lnch = nil
	}
	return nil
}
