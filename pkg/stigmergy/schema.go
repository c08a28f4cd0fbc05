package stigmergy

// schema is applied idempotently every time a Store opens its database.
// Modeled on the single embedded const-string schema pattern used by
// other_examples/.../steveyegge-beads__internal-storage-sqlite-schema.go —
// no external migration tool is needed for a schema this small and stable;
// see DESIGN.md for why golang-migrate was dropped along with ent/pgx.
const schema = `
CREATE TABLE IF NOT EXISTS events (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	event_type   TEXT NOT NULL,
	timestamp    TEXT NOT NULL,
	subject      TEXT NOT NULL,
	source       TEXT NOT NULL,
	data_json    TEXT NOT NULL,
	content_hash TEXT NOT NULL UNIQUE
);

CREATE INDEX IF NOT EXISTS idx_events_event_type ON events(event_type);
CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp);
`
