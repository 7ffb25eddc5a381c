package store

// Task statuses. Transitions are monotonic: PENDING → RUNNING → {DONE, ERROR}.
const (
	StatusPending = "PENDING"
	StatusRunning = "RUNNING"
	StatusDone    = "DONE"
	StatusError   = "ERROR"
)

// Source identifiers, in fixed priority order. The order decides which
// source's brand label and result URL win when several report one.
var Sources = []string{"zzap", "stparts", "trast", "autovid", "autotrade"}

// Task is one part number lookup unit of work.
type Task struct {
	ID           string             `json:"id"`
	PartNumber   string             `json:"partnumber"`
	SearchBrand  string             `json:"search_brand,omitempty"`
	Status       string             `json:"status"`
	MinPrice     *float64           `json:"min_price,omitempty"`
	AvgPrice     *float64           `json:"avg_price,omitempty"`
	SourceMin    map[string]float64 `json:"source_min_prices,omitempty"`
	Brand        string             `json:"brand,omitempty"`
	ResultURL    string             `json:"result_url,omitempty"`
	ErrorMessage string             `json:"error_message,omitempty"`
	CreatedAt    int64              `json:"created_at"`
	StartedAt    *int64             `json:"started_at,omitempty"`
	CompletedAt  *int64             `json:"completed_at,omitempty"`
}

// TaskResult carries everything a completed task writes back.
type TaskResult struct {
	MinPrice  float64
	AvgPrice  float64
	Brand     string
	ResultURL string
	// SourceMin holds the per-source minimum price, keyed by source
	// identifier. Sources that returned nothing are absent.
	SourceMin map[string]float64
}

// PriceHistoryEntry is an immutable price observation record.
type PriceHistoryEntry struct {
	ID         string  `json:"id"`
	PartNumber string  `json:"partnumber"`
	Brand      string  `json:"brand,omitempty"`
	Source     string  `json:"source"`
	Price      float64 `json:"price"`
	RecordedAt int64   `json:"recorded_at"`
}

// CachedPrice is a memoized extraction result.
type CachedPrice struct {
	PartNumber string  `json:"partnumber"`
	Brand      string  `json:"brand,omitempty"`
	Source     string  `json:"source"`
	Price      float64 `json:"price"`
	URL        string  `json:"url,omitempty"`
	CachedAt   int64   `json:"cached_at"`
}
