package sqlinline

const QInsertEntity = `--sql 27f93f71-52b8-4fd4-8f5e-e0ca7e0eb749
insert into entities (id, content_type, fields, created_at)
values ($1::uuid, $2::text, $3::jsonb, now());
`

const QEntityExists = `--sql dee1d6e0-f58f-43ab-9bee-fbd3e9e9b5fb
select exists(select 1 from entities where id = $1::uuid);
`

const QSelectEntity = `--sql 133f5589-1865-4503-8b0b-4894aaa72ee6
select id::text, content_type, fields, created_at
from entities
where id = $1::uuid
limit 1;
`

const QCountEntitiesByType = `--sql c4a23bb3-d7fc-418d-83a8-856cc03aa6ed
select content_type, count(*)
from entities
group by content_type
order by content_type;
`

const QLiteInsertEntity = `--sql 9dd5d223-67fc-4443-ba99-e5c4ec4eb5ec
INSERT INTO entities (id, content_type, fields, created_at) VALUES (?, ?, ?, ?);
`

const QLiteEntityExists = `--sql 9e66fbfb-7da8-4ba7-aa7b-ae0632c98cd6
SELECT EXISTS(SELECT 1 FROM entities WHERE id = ?);
`

const QLiteSelectEntity = `--sql 0449673d-b0c7-4551-88a1-ffa3463c8d45
SELECT id, content_type, fields, created_at FROM entities WHERE id = ? LIMIT 1;
`

const QLiteCountEntitiesByType = `--sql 2e121a1e-672f-454c-a472-62b6379fa266
SELECT content_type, COUNT(*) FROM entities GROUP BY content_type ORDER BY content_type;
`
