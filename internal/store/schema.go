// Package store implements the SQLite mapping store: the durable record of
// source → target identifier correspondences and their sync state. The store
// exclusively owns mapping lifecycle; the engine only reads and requests
// upserts. Mappings are additive and never deleted.
package store

// Schema DDL. Tables are created on open if absent; the database file is the
// single source of truth for "already migrated" and must survive restarts.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS task_mappings (
    source_id TEXT PRIMARY KEY,
    target_id INTEGER NOT NULL DEFAULT 0,
    source_updated_at TEXT NOT NULL DEFAULT '',
    sync_status TEXT NOT NULL,
    last_synced_at TEXT NOT NULL DEFAULT '',
    reason TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS comment_mappings (
    source_task_id TEXT NOT NULL,
    source_comment_id TEXT NOT NULL,
    target_id INTEGER NOT NULL DEFAULT 0,
    sync_status TEXT NOT NULL,
    last_synced_at TEXT NOT NULL DEFAULT '',
    reason TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (source_task_id, source_comment_id)
);

CREATE TABLE IF NOT EXISTS attachment_mappings (
    source_task_id TEXT NOT NULL,
    source_attachment_id TEXT NOT NULL,
    target_id INTEGER NOT NULL DEFAULT 0,
    size INTEGER NOT NULL DEFAULT 0,
    sync_status TEXT NOT NULL,
    last_synced_at TEXT NOT NULL DEFAULT '',
    reason TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (source_task_id, source_attachment_id)
);

CREATE TABLE IF NOT EXISTS user_mappings (
    source_id TEXT PRIMARY KEY,
    target_id INTEGER NOT NULL,
    last_synced_at TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS sync_state (
    project_id TEXT PRIMARY KEY,
    last_sync TEXT NOT NULL,
    run_id TEXT NOT NULL DEFAULT ''
);
`
