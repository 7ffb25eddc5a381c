package pricer

import (
	"github.com/varibigrich12345-cmyk/ai-purchase-agent/pricer/internal/extract"
	"github.com/varibigrich12345-cmyk/ai-purchase-agent/pricer/internal/session"
)

// siteRules builds the extraction rule set for every enabled site, with any
// per-site band overrides from config applied.
func siteRules(cfg *Config) map[string]*extract.Rules {
	rules := extract.All()
	for site, r := range rules {
		if !cfg.SiteEnabled(site) {
			delete(rules, site)
			continue
		}
		if sc, ok := cfg.Sites[site]; ok {
			if sc.MinPrice > 0 {
				r.MinPrice = sc.MinPrice
			}
			if sc.MaxPrice > 0 {
				r.MaxPrice = sc.MaxPrice
			}
		}
	}
	return rules
}

// sitePolicies builds the session policy for every enabled site. Credentials
// come from config (already merged with the environment).
func sitePolicies(cfg *Config) map[string]session.Policy {
	all := map[string]session.Policy{
		"zzap": {
			Site:      "zzap",
			BaseURL:   "https://www.zzap.ru",
			Anonymous: true,
		},
		"stparts": {
			Site:           "stparts",
			BaseURL:        "https://stparts.ru",
			LoginURL:       "https://stparts.ru/clients",
			UserField:      `input[aria-label="Логин"]`,
			PasswordField:  `input[type="password"]`,
			SubmitSelector: `button[type="submit"]`,
			AuthMarkers:    []string{`[href*="logout"]`, `a[href*="/clients/exit"]`},
			LoginMarkers:   []string{`input[aria-label="Логин"]`, `form[action*="login"]`},
		},
		"trast": {
			Site:                    "trast",
			BaseURL:                 "https://trast-zapchast.ru",
			LoginURL:                "https://trast-zapchast.ru/login/",
			UserField:               `input[name="login"]`,
			PasswordField:           `input[name="password"]`,
			SubmitSelector:          `button[type="submit"]`,
			AuthMarkers:             []string{`[href*="logout"]`, `a[href*="/personal/"]`},
			LoginMarkers:            []string{`input[name="login"]`, `form[action*="login"]`},
			TolerateUnauthenticated: true,
		},
		"autovid": {
			Site:                    "autovid",
			BaseURL:                 "https://auto-vid.com",
			LoginURL:                "https://auto-vid.com/my-account/",
			UserField:               `input[name="username"]`,
			PasswordField:           `input[name="password"]`,
			SubmitSelector:          `button[name="login"]`,
			AuthMarkers:             []string{`[href*="customer-logout"]`, `.woocommerce-MyAccount-navigation`},
			LoginMarkers:            []string{`input[name="username"]`, `form.woocommerce-form-login`},
			TolerateUnauthenticated: true,
		},
		"autotrade": {
			Site:           "autotrade",
			BaseURL:        "https://sklad.autotrade.su",
			LoginURL:       "https://sklad.autotrade.su/login/",
			UserField:      `input[name="login"]`,
			PasswordField:  `input[name="password"]`,
			SubmitSelector: `button[type="submit"]`,
			AuthMarkers:    []string{`[href*="logout"]`},
			LoginMarkers:   []string{`input[name="login"]`, `form[action*="login"]`},
		},
	}

	policies := make(map[string]session.Policy, len(all))
	for site, p := range all {
		if !cfg.SiteEnabled(site) {
			continue
		}
		if sc, ok := cfg.Sites[site]; ok {
			p.Username = sc.Username
			p.Password = sc.Password
		}
		policies[site] = p
	}
	return policies
}
