package sqlinline

// QPGCreateSchema is idempotent and runs at startup against Postgres.
const QPGCreateSchema = `--sql 7feb694f-ee29-4bf0-8212-4f77eecf6bf4
create table if not exists kv_store (
    key text primary key,
    value bytea not null,
    updated_at timestamptz not null default now()
);
create table if not exists entities (
    id uuid primary key,
    content_type text not null,
    fields jsonb not null default '{}'::jsonb,
    created_at timestamptz not null default now()
);
create table if not exists media (
    id uuid primary key,
    storage_key text not null,
    mime text not null,
    bytes bigint not null,
    width int not null default 0,
    height int not null default 0,
    checksum text not null,
    created_at timestamptz not null default now()
);
create table if not exists media_bindings (
    entity_id uuid not null references entities(id) on delete cascade,
    field text not null,
    media_id uuid not null references media(id),
    alt_text text not null default '',
    created_at timestamptz not null default now(),
    primary key (entity_id, field)
);
`

// QLiteCreateSchema mirrors QPGCreateSchema for SQLite.
const QLiteCreateSchema = `--sql d033b3b3-fd4f-49e7-9e2f-cff99aa37f58
CREATE TABLE IF NOT EXISTS kv_store (
    key TEXT PRIMARY KEY,
    value BLOB NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS entities (
    id TEXT PRIMARY KEY,
    content_type TEXT NOT NULL,
    fields TEXT NOT NULL DEFAULT '{}',
    created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS media (
    id TEXT PRIMARY KEY,
    storage_key TEXT NOT NULL,
    mime TEXT NOT NULL,
    bytes INTEGER NOT NULL,
    width INTEGER NOT NULL DEFAULT 0,
    height INTEGER NOT NULL DEFAULT 0,
    checksum TEXT NOT NULL,
    created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS media_bindings (
    entity_id TEXT NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
    field TEXT NOT NULL,
    media_id TEXT NOT NULL REFERENCES media(id),
    alt_text TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL,
    PRIMARY KEY (entity_id, field)
);
CREATE TABLE IF NOT EXISTS pipeline_locks (
    name TEXT PRIMARY KEY,
    owner TEXT NOT NULL,
    expires_at INTEGER NOT NULL
);
`
