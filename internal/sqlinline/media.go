package sqlinline

const QInsertMedia = `--sql 7e1636e6-6147-4f8a-b317-7aa6f0fe4d8e
insert into media (id, storage_key, mime, bytes, width, height, checksum, created_at)
values ($1::uuid, $2::text, $3::text, $4::bigint, $5::int, $6::int, $7::text, $8::timestamptz);
`

const QUpsertMediaBinding = `--sql 30a83b8a-21b7-43f2-a91c-1ef2da23848b
insert into media_bindings (entity_id, field, media_id, alt_text, created_at)
values ($1::uuid, $2::text, $3::uuid, $4::text, now())
on conflict (entity_id, field) do update set
    media_id = excluded.media_id,
    alt_text = excluded.alt_text;
`

const QLiteInsertMedia = `--sql 192f835e-2bcf-4bdd-94e6-4125dbf96dfb
INSERT INTO media (id, storage_key, mime, bytes, width, height, checksum, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?);
`

const QLiteUpsertMediaBinding = `--sql c95fcf90-11dd-4e0c-af9e-ae551959b798
INSERT INTO media_bindings (entity_id, field, media_id, alt_text, created_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (entity_id, field) DO UPDATE SET media_id = excluded.media_id, alt_text = excluded.alt_text;
`
