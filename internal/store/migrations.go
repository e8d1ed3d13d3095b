package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS workspaces (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	partner_name TEXT NOT NULL DEFAULT '',
	created_at   DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	id         TEXT PRIMARY KEY,
	scope_id   TEXT NOT NULL,
	sender_id  TEXT NOT NULL,
	content    TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	status     TEXT NOT NULL DEFAULT 'confirmed'
);

CREATE TABLE IF NOT EXISTS notifications (
	id           TEXT PRIMARY KEY,
	scope_id     TEXT NOT NULL,
	recipient_id TEXT NOT NULL,
	kind         TEXT NOT NULL,
	read_at      DATETIME,
	created_at   DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS approvals (
	id          TEXT PRIMARY KEY,
	scope_id    TEXT NOT NULL,
	approver_id TEXT NOT NULL,
	proposer_id TEXT NOT NULL,
	entity_type TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'pending',
	created_at  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_scope ON messages(scope_id, created_at);
CREATE INDEX IF NOT EXISTS idx_notifications_scope ON notifications(scope_id, created_at);
CREATE INDEX IF NOT EXISTS idx_approvals_scope ON approvals(scope_id);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}
