package storage

// Schema creates the keyed-record table backing the engine's persistent
// store. Values are JSON documents; the key space is flat
// ("settings", "recommendations.<provider>").
const Schema = `
CREATE TABLE IF NOT EXISTS records (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`
