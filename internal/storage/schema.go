package storage

const schema = `
-- 'item_progress' holds the current scheduling state per (learner, item).
-- Counters only ever grow; the row is never deleted while the learner exists.
CREATE TABLE IF NOT EXISTS item_progress (
    learner_id        TEXT NOT NULL,
    item_id           TEXT NOT NULL,
    mastery_level     INTEGER NOT NULL DEFAULT 0,
    correct_count     INTEGER NOT NULL DEFAULT 0,
    wrong_count       INTEGER NOT NULL DEFAULT 0,
    last_practiced_at DATETIME NOT NULL,
    next_due_at       DATETIME NOT NULL,

    PRIMARY KEY (learner_id, item_id)
);

CREATE INDEX IF NOT EXISTS idx_item_progress_due
    ON item_progress (learner_id, next_due_at);

-- 'review_events' is the append-only answer log. Rows are never updated or
-- deleted; analytics reads them back by learner and time window.
CREATE TABLE IF NOT EXISTS review_events (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    learner_id       TEXT NOT NULL,
    item_id          TEXT NOT NULL,
    correct          INTEGER NOT NULL,
    response_time_ms INTEGER,
    rating           TEXT,
    previous_level   INTEGER NOT NULL,
    new_level        INTEGER NOT NULL,
    reviewed_at      DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_review_events_learner_time
    ON review_events (learner_id, reviewed_at);

-- 'catalog_items' mirrors the vocabulary entries found in the registered
-- sources. The scheduler does not consult it; analytics joins on item_id
-- for the category dimension.
CREATE TABLE IF NOT EXISTS catalog_items (
    item_id     TEXT PRIMARY KEY,
    word        TEXT NOT NULL,
    translation TEXT NOT NULL,
    category    TEXT NOT NULL DEFAULT '',
    source_id   INTEGER,

    FOREIGN KEY (source_id) REFERENCES sources(id)
);

-- 'sources' tracks where catalog entries come from, either a local
-- directory or a git repository.
CREATE TABLE IF NOT EXISTS sources (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    path         TEXT NOT NULL UNIQUE,
    kind         TEXT NOT NULL DEFAULT 'local',
    last_scanned DATETIME
);
`
