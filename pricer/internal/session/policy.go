package session

// Policy is a site's authentication contract: which DOM markers mean
// "logged in", which mean "login form shown", and how to drive the login
// sequence. It is injected data; the Handle never branches on site name.
type Policy struct {
	// Site is the source identifier (zzap, stparts, ...).
	Site string
	// BaseURL is the site root used for reachability and auth probes.
	BaseURL string

	// Anonymous sites need no login at all; EnsureAuthenticated is a no-op.
	Anonymous bool
	// TolerateUnauthenticated lets a failed login degrade to anonymous
	// browsing instead of marking the source failed.
	TolerateUnauthenticated bool

	// AuthMarkers are selectors whose presence proves an authenticated
	// session (a logout link, an account menu). Probed in order; the first
	// hit wins.
	AuthMarkers []string
	// LoginMarkers are selectors whose presence proves the login form is
	// being shown instead.
	LoginMarkers []string

	// LoginURL is the page carrying the login form.
	LoginURL string
	// UserField and PasswordField locate the credential inputs;
	// SubmitSelector the form submit control.
	UserField      string
	PasswordField  string
	SubmitSelector string

	// Username and Password come from configuration, never hard-coded.
	Username string
	Password string
}
