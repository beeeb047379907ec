package sqlinline

const QSelectKV = `--sql 2dff70dc-1034-4cb5-96c9-3f0dd2eaf5db
select value
from kv_store
where key = $1::text
limit 1;
`

const QUpsertKV = `--sql 016062d5-4c39-498c-b018-db0c65e25c57
insert into kv_store (key, value, updated_at)
values ($1::text, $2::bytea, now())
on conflict (key) do update set
    value = excluded.value,
    updated_at = now();
`

const QSwapKV = `--sql 7363770a-ea74-4342-9a1d-742c8e0e37fd
update kv_store
set value = $3::bytea,
    updated_at = now()
where key = $1::text
  and value = $2::bytea;
`

const QDeleteKV = `--sql 32a7dc11-89e8-4aec-a5ed-861fc7297a9c
delete from kv_store
where key = $1::text;
`

const QLiteSelectKV = `--sql 10cc8078-bb1f-4a88-9b9e-e96e866a1834
SELECT value FROM kv_store WHERE key = ? LIMIT 1;
`

const QLiteUpsertKV = `--sql 3d2d75ab-0bd9-4432-8533-f50bd10e5c0c
INSERT INTO kv_store (key, value, updated_at)
VALUES (?, ?, ?)
ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at;
`

const QLiteSwapKV = `--sql 3a530618-89a4-45ad-94e3-3724c754ac0d
UPDATE kv_store SET value = ?, updated_at = ? WHERE key = ? AND value = ?;
`

const QLiteDeleteKV = `--sql 5efdf75b-bd6d-44f4-b168-e384b131aa54
DELETE FROM kv_store WHERE key = ?;
`
