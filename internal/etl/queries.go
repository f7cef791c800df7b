package etl

import "github.com/BartekS5/moviesync/pkg/database"

// Column order of every query must match the stream's scan function.

var movieQueries = map[database.Dialect]string{
	database.Postgres: `
SELECT
    fw.id::text,
    fw.title,
    fw.description,
    fw.rating,
    fw.type,
    fw.creation_date,
    fw.modified,
    COALESCE(
        json_agg(
            json_build_object('person_id', p.id, 'person_name', p.full_name, 'person_role', pfw.role)
            ORDER BY pfw.created, p.full_name
        ) FILTER (WHERE p.id IS NOT NULL),
        '[]'
    ) AS persons
FROM content.film_work fw
LEFT JOIN content.person_film_work pfw ON pfw.film_work_id = fw.id
LEFT JOIN content.person p ON p.id = pfw.person_id
WHERE fw.modified > $1
GROUP BY fw.id
ORDER BY fw.modified, fw.id`,
	database.SQLServer: `
SELECT
    CAST(fw.id AS NVARCHAR(36)),
    fw.title,
    fw.description,
    fw.rating,
    fw.type,
    fw.creation_date,
    fw.modified,
    COALESCE((
        SELECT CAST(p.id AS NVARCHAR(36)) AS person_id, p.full_name AS person_name, pfw.role AS person_role
        FROM content.person_film_work pfw
        JOIN content.person p ON p.id = pfw.person_id
        WHERE pfw.film_work_id = fw.id
        ORDER BY pfw.created, p.full_name
        FOR JSON PATH
    ), '[]') AS persons
FROM content.film_work fw
WHERE fw.modified > @p1
ORDER BY fw.modified, fw.id`,
}

var genreQueries = map[database.Dialect]string{
	database.Postgres: `
SELECT g.id::text, g.name, g.description, g.modified
FROM content.genre g
WHERE g.modified > $1
ORDER BY g.modified, g.id`,
	database.SQLServer: `
SELECT CAST(g.id AS NVARCHAR(36)), g.name, g.description, g.modified
FROM content.genre g
WHERE g.modified > @p1
ORDER BY g.modified, g.id`,
}

var personQueries = map[database.Dialect]string{
	database.Postgres: `
SELECT
    p.id::text,
    p.full_name,
    p.modified,
    COALESCE(
        json_agg(DISTINCT jsonb_build_object('fw_id', fw.id, 'fw_title', fw.title, 'fw_rating', fw.rating, 'fw_type', fw.type))
        FILTER (WHERE fw.id IS NOT NULL),
        '[]'
    ) AS films,
    COALESCE(
        json_agg(DISTINCT jsonb_build_object('role', pfw.role)) FILTER (WHERE pfw.role IS NOT NULL),
        '[]'
    ) AS roles
FROM content.person p
LEFT JOIN content.person_film_work pfw ON pfw.person_id = p.id
LEFT JOIN content.film_work fw ON fw.id = pfw.film_work_id
WHERE p.modified > $1
GROUP BY p.id
ORDER BY p.modified, p.id`,
	database.SQLServer: `
SELECT
    CAST(p.id AS NVARCHAR(36)),
    p.full_name,
    p.modified,
    COALESCE((
        SELECT DISTINCT CAST(fw.id AS NVARCHAR(36)) AS fw_id, fw.title AS fw_title, fw.rating AS fw_rating, fw.type AS fw_type
        FROM content.person_film_work pfw
        JOIN content.film_work fw ON fw.id = pfw.film_work_id
        WHERE pfw.person_id = p.id
        FOR JSON PATH
    ), '[]') AS films,
    COALESCE((
        SELECT DISTINCT pfw.role AS role
        FROM content.person_film_work pfw
        WHERE pfw.person_id = p.id
        FOR JSON PATH
    ), '[]') AS roles
FROM content.person p
WHERE p.modified > @p1
ORDER BY p.modified, p.id`,
}
