package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// cookieBlob is the on-disk format of a site's persisted cookies. Each blob
// holds only the cookies scoped to its site's URL.
type cookieBlob struct {
	Site    string                 `json:"site"`
	SavedAt int64                  `json:"saved_at"`
	Cookies []*proto.NetworkCookie `json:"cookies"`
}

func (h *Handle) cookiePath() string {
	return filepath.Join(h.cfg.CookiesDir, h.policy.Site+"_cookies.json")
}

// persistCookies snapshots the cookies the site's URL resolves to. The
// export is page-scoped, not the browser-wide jar, so blobs of different
// sites never mix. Caller holds h.mu.
func (h *Handle) persistCookies() error {
	if h.page == nil {
		return fmt.Errorf("no page")
	}

	cookies, err := h.page.Cookies([]string{h.policy.BaseURL})
	if err != nil {
		return fmt.Errorf("get cookies: %w", err)
	}
	return writeCookieBlob(h.cookiePath(), h.policy.Site, cookies)
}

// restoreCookies loads the site's persisted cookies into the page and
// returns how many were set. A missing file is an error the caller may
// treat as a cold start.
func (h *Handle) restoreCookies(page *rod.Page) (int, error) {
	blob, err := readCookieBlob(h.cookiePath())
	if err != nil {
		return 0, err
	}
	if len(blob.Cookies) == 0 {
		return 0, nil
	}

	params := cookieParams(blob.Cookies)
	if err := page.SetCookies(params); err != nil {
		return 0, fmt.Errorf("set cookies: %w", err)
	}
	return len(params), nil
}

func writeCookieBlob(path, site string, cookies []*proto.NetworkCookie) error {
	blob := cookieBlob{
		Site:    site,
		SavedAt: time.Now().UnixMilli(),
		Cookies: cookies,
	}
	data, err := json.MarshalIndent(blob, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cookies: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cookies dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write cookies: %w", err)
	}
	return nil
}

func readCookieBlob(path string) (*cookieBlob, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var blob cookieBlob
	if err := json.Unmarshal(data, &blob); err != nil {
		return nil, fmt.Errorf("decode cookies: %w", err)
	}
	return &blob, nil
}

func cookieParams(cookies []*proto.NetworkCookie) []*proto.NetworkCookieParam {
	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		params = append(params, &proto.NetworkCookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
			SameSite: c.SameSite,
			Expires:  c.Expires,
		})
	}
	return params
}
