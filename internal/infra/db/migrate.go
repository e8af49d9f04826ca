package db

import "database/sql"

// MigrateUp creates every table, index, and extension the application
// needs. Every statement is idempotent (CREATE ... IF NOT EXISTS) so this
// can run on every process start.
func MigrateUp(db *sql.DB) error {
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS sources (
    id             SERIAL PRIMARY KEY,
    name           TEXT NOT NULL,
    enabled        BOOLEAN NOT NULL DEFAULT TRUE,
    is_stakeholder BOOLEAN NOT NULL DEFAULT FALSE
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS channels (
    id                SERIAL PRIMARY KEY,
    source_id         INTEGER NOT NULL REFERENCES sources(id) ON DELETE CASCADE,
    kind              VARCHAR(32) NOT NULL,
    config            JSONB NOT NULL DEFAULT '{}',
    enabled           BOOLEAN NOT NULL DEFAULT TRUE,
    poll_interval_min INTEGER NOT NULL DEFAULT 15,
    last_polled_at    TIMESTAMPTZ,
    last_error        TEXT
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
DO $$
BEGIN
    IF NOT EXISTS (
        SELECT 1 FROM pg_constraint WHERE conname = 'chk_channel_kind'
    ) THEN
        ALTER TABLE channels ADD CONSTRAINT chk_channel_kind
        CHECK (kind IN ('feed-style', 'html-page', 'short-post', 'paraphrased-handle',
                        'federated-handle', 'long-post', 'channel-post', 'search-alert',
                        'document-binary'));
    END IF;
END $$`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS items (
    id                    SERIAL PRIMARY KEY,
    channel_id            INTEGER NOT NULL REFERENCES channels(id) ON DELETE CASCADE,
    external_id           TEXT NOT NULL,
    title                 TEXT NOT NULL,
    content               TEXT NOT NULL DEFAULT '',
    url                   TEXT,
    author                TEXT,
    published_at          TIMESTAMPTZ,
    first_seen_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    content_hash          TEXT NOT NULL,
    summary               TEXT NOT NULL DEFAULT '',
    detailed_analysis     TEXT NOT NULL DEFAULT '',
    priority              VARCHAR(16) NOT NULL DEFAULT 'none',
    priority_score        INTEGER NOT NULL DEFAULT 0,
    assigned_groups       JSONB NOT NULL DEFAULT '[]',
    tags                  JSONB NOT NULL DEFAULT '[]',
    is_read               BOOLEAN NOT NULL DEFAULT FALSE,
    is_starred            BOOLEAN NOT NULL DEFAULT FALSE,
    is_archived           BOOLEAN NOT NULL DEFAULT FALSE,
    needs_llm_processing  BOOLEAN NOT NULL DEFAULT TRUE,
    metadata              JSONB NOT NULL DEFAULT '{}',
    similar_to            INTEGER REFERENCES items(id) ON DELETE SET NULL,
    revision              BIGINT NOT NULL DEFAULT 0,
    UNIQUE(channel_id, external_id),
    CONSTRAINT chk_priority_score CHECK (priority_score BETWEEN 0 AND 100)
)`); err != nil {
		return err
	}

	itemIndexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_items_channel_id ON items(channel_id)`,
		`CREATE INDEX IF NOT EXISTS idx_items_content_hash ON items(content_hash)`,
		`CREATE INDEX IF NOT EXISTS idx_items_first_seen_at ON items(first_seen_at)`,
		`CREATE INDEX IF NOT EXISTS idx_items_needs_llm ON items(needs_llm_processing) WHERE needs_llm_processing = TRUE`,
		`CREATE INDEX IF NOT EXISTS idx_items_priority ON items(priority)`,
		`CREATE INDEX IF NOT EXISTS idx_items_similar_to ON items(similar_to) WHERE similar_to IS NOT NULL`,
		// covers the title-similarity Stage B candidate lookup (same channel,
		// recent published_at, case-folded prefix match done in application code)
		`CREATE INDEX IF NOT EXISTS idx_items_channel_published ON items(channel_id, published_at DESC)`,
	}
	for _, idx := range itemIndexes {
		if _, err := db.Exec(idx); err != nil {
			return err
		}
	}

	_, _ = db.Exec(`CREATE EXTENSION IF NOT EXISTS pg_trgm`)
	_, _ = db.Exec(`CREATE INDEX IF NOT EXISTS idx_items_title_gin ON items USING gin(title gin_trgm_ops)`)

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS item_events (
    id         SERIAL PRIMARY KEY,
    item_id    INTEGER NOT NULL REFERENCES items(id) ON DELETE CASCADE,
    kind       VARCHAR(32) NOT NULL,
    detail     TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`); err != nil {
		return err
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_item_events_item_id ON item_events(item_id)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS rules (
    id                     SERIAL PRIMARY KEY,
    name                   TEXT NOT NULL UNIQUE,
    kind                   VARCHAR(16) NOT NULL,
    pattern                TEXT NOT NULL,
    priority_delta         INTEGER NOT NULL DEFAULT 0,
    forced_target_priority VARCHAR(16) NOT NULL DEFAULT '',
    enabled                BOOLEAN NOT NULL DEFAULT TRUE,
    ordering_key           INTEGER NOT NULL DEFAULT 0,
    CONSTRAINT chk_rule_kind CHECK (kind IN ('keyword', 'regex', 'semantic')),
    CONSTRAINT chk_rule_delta CHECK (priority_delta BETWEEN -50 AND 50)
)`); err != nil {
		return err
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_rules_enabled_order ON rules(ordering_key) WHERE enabled = TRUE`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS stakeholders (
    id        SERIAL PRIMARY KEY,
    name      TEXT NOT NULL,
    aliases   JSONB NOT NULL DEFAULT '[]',
    is_member BOOLEAN NOT NULL DEFAULT FALSE,
    source_id INTEGER REFERENCES sources(id) ON DELETE SET NULL
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS housekeeping_config (
    id                     SMALLINT PRIMARY KEY DEFAULT 1,
    retention_days_high    INTEGER NOT NULL DEFAULT 365,
    retention_days_medium  INTEGER NOT NULL DEFAULT 180,
    retention_days_low     INTEGER NOT NULL DEFAULT 90,
    retention_days_none    INTEGER NOT NULL DEFAULT 30,
    auto_purge_enabled     BOOLEAN NOT NULL DEFAULT TRUE,
    exclude_starred        BOOLEAN NOT NULL DEFAULT TRUE,
    CONSTRAINT chk_single_row CHECK (id = 1)
)`); err != nil {
		return err
	}
	if _, err := db.Exec(`
INSERT INTO housekeeping_config (id)
VALUES (1)
ON CONFLICT (id) DO NOTHING`); err != nil {
		return err
	}

	// pgvector: two independent indices, dedupe (paraphrase) and retrieval
	// (semantic search), both 768-dim multilingual models per spec §4.4.
	_, _ = db.Exec(`CREATE EXTENSION IF NOT EXISTS vector`)

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS item_embeddings (
    id         SERIAL PRIMARY KEY,
    item_id    INTEGER NOT NULL REFERENCES items(id) ON DELETE CASCADE,
    kind       VARCHAR(16) NOT NULL,
    provider   VARCHAR(32) NOT NULL,
    model      TEXT NOT NULL,
    dimension  INT NOT NULL,
    embedding  vector(768) NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE(item_id, kind),
    CONSTRAINT chk_embedding_kind CHECK (kind IN ('dedupe', 'retrieval'))
)`); err != nil {
		return err
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_item_embeddings_item_id ON item_embeddings(item_id)`); err != nil {
		return err
	}
	// separate IVFFlat index per kind so the query planner never mixes the
	// two semantic spaces; lists=100 is reasonable below ~1M rows per kind.
	_, _ = db.Exec(`
CREATE INDEX IF NOT EXISTS idx_item_embeddings_dedupe_vector
    ON item_embeddings USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100)
    WHERE kind = 'dedupe'`)
	_, _ = db.Exec(`
CREATE INDEX IF NOT EXISTS idx_item_embeddings_retrieval_vector
    ON item_embeddings USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100)
    WHERE kind = 'retrieval'`)

	return nil
}

// MigrateDown drops every table this package owns, in dependency order.
// Use with caution: this deletes all data.
func MigrateDown(db *sql.DB) error {
	dropStatements := []string{
		`DROP TABLE IF EXISTS item_embeddings CASCADE`,
		`DROP TABLE IF EXISTS item_events CASCADE`,
		`DROP TABLE IF EXISTS rules CASCADE`,
		`DROP TABLE IF EXISTS stakeholders CASCADE`,
		`DROP TABLE IF EXISTS housekeeping_config CASCADE`,
		`DROP TABLE IF EXISTS items CASCADE`,
		`DROP TABLE IF EXISTS channels CASCADE`,
		`DROP TABLE IF EXISTS sources CASCADE`,
	}
	for _, stmt := range dropStatements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
