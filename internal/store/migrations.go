package store

// migration holds a single schema migration with its target version
// and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations. Each
// migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS triage_log (
	id           TEXT PRIMARY KEY,
	message_id   TEXT NOT NULL,
	subject      TEXT NOT NULL DEFAULT '',
	sender       TEXT NOT NULL DEFAULT '',
	action       TEXT NOT NULL,
	work_item_id TEXT NOT NULL DEFAULT '',
	project_id   TEXT NOT NULL DEFAULT '',
	detail       TEXT NOT NULL DEFAULT '',
	created_at   DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_triage_log_message_id ON triage_log(message_id);
CREATE INDEX IF NOT EXISTS idx_triage_log_action ON triage_log(action);
CREATE INDEX IF NOT EXISTS idx_triage_log_created ON triage_log(created_at);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}
