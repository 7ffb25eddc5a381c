package store

import "database/sql"

// Schema is the complete agent schema. Timestamps are integer milliseconds
// since epoch. Task status is one of PENDING, RUNNING, DONE, ERROR.
const Schema = `
-- Part number lookup tasks
CREATE TABLE IF NOT EXISTS tasks (
    id                  TEXT PRIMARY KEY,
    partnumber          TEXT NOT NULL,
    search_brand        TEXT NOT NULL DEFAULT '',
    status              TEXT NOT NULL DEFAULT 'PENDING',
    min_price           REAL,
    avg_price           REAL,
    zzap_min_price      REAL,
    stparts_min_price   REAL,
    trast_min_price     REAL,
    autovid_min_price   REAL,
    autotrade_min_price REAL,
    brand               TEXT NOT NULL DEFAULT '',
    result_url          TEXT NOT NULL DEFAULT '',
    error_message       TEXT NOT NULL DEFAULT '',
    created_at          INTEGER NOT NULL,
    started_at          INTEGER,
    completed_at        INTEGER
);
CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status, created_at);

-- Per-source price observations, append-only
CREATE TABLE IF NOT EXISTS price_history (
    id          TEXT PRIMARY KEY,
    partnumber  TEXT NOT NULL,
    brand       TEXT NOT NULL DEFAULT '',
    source      TEXT NOT NULL,
    price       REAL NOT NULL,
    recorded_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_price_history_partnumber ON price_history(partnumber);
CREATE INDEX IF NOT EXISTS idx_price_history_recorded_at ON price_history(recorded_at);

-- Extraction result cache, append-only; freshness is enforced at read time
CREATE TABLE IF NOT EXISTS price_cache (
    id          TEXT PRIMARY KEY,
    partnumber  TEXT NOT NULL,
    brand       TEXT NOT NULL DEFAULT '',
    source      TEXT NOT NULL,
    price       REAL NOT NULL,
    url         TEXT NOT NULL DEFAULT '',
    cached_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_price_cache_lookup ON price_cache(partnumber, brand, source, cached_at);
`

// ApplySchema creates all tables and indexes if they don't exist.
func ApplySchema(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}
