package sqlinline

// Advisory locks are session scoped; both queries must run on the same
// connection.
const QTryAdvisoryLock = `--sql c03b59d2-519e-4f8f-af5b-3e83ac6ee3bf
select pg_try_advisory_lock(hashtext($1::text));
`

const QAdvisoryUnlock = `--sql ab85c5e6-f9a3-4fec-b319-b8d144cdb13e
select pg_advisory_unlock(hashtext($1::text));
`

// QLiteAcquireLock claims name when it is free or its lease has expired.
const QLiteAcquireLock = `--sql 77420620-f1e6-49f2-9096-a1ea586dccd6
INSERT INTO pipeline_locks (name, owner, expires_at) VALUES (?, ?, ?)
ON CONFLICT (name) DO UPDATE SET owner = excluded.owner, expires_at = excluded.expires_at
WHERE pipeline_locks.expires_at < ?;
`

const QLiteRefreshLock = `--sql c4783e51-10f8-4dd6-b6a3-524313dca4ed
UPDATE pipeline_locks SET expires_at = ? WHERE name = ? AND owner = ?;
`

const QLiteReleaseLock = `--sql dcd8d995-ac9a-4f7f-a55f-2d3eefb9963e
DELETE FROM pipeline_locks WHERE name = ? AND owner = ?;
`
