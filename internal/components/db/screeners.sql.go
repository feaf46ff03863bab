package db

import (
	"context"
)

const createScreener = `-- name: CreateScreener :one
insert into screeners (url, name, is_active, created_at)
values (?, ?, ?, ?)
returning id, url, name, is_active, created_at
`

type CreateScreenerParams struct {
	Url       string
	Name      string
	IsActive  bool
	CreatedAt int64
}

func (q *Queries) CreateScreener(ctx context.Context, arg CreateScreenerParams) (Screener, error) {
	row := q.db.QueryRowContext(ctx, createScreener,
		arg.Url,
		arg.Name,
		arg.IsActive,
		arg.CreatedAt,
	)
	var i Screener
	err := row.Scan(
		&i.ID,
		&i.Url,
		&i.Name,
		&i.IsActive,
		&i.CreatedAt,
	)
	return i, err
}

const getScreener = `-- name: GetScreener :one
select id, url, name, is_active, created_at from screeners
where id = ?
`

func (q *Queries) GetScreener(ctx context.Context, id int64) (Screener, error) {
	row := q.db.QueryRowContext(ctx, getScreener, id)
	var i Screener
	err := row.Scan(
		&i.ID,
		&i.Url,
		&i.Name,
		&i.IsActive,
		&i.CreatedAt,
	)
	return i, err
}

const getScreenerByUrl = `-- name: GetScreenerByUrl :one
select id, url, name, is_active, created_at from screeners
where url = ?
`

func (q *Queries) GetScreenerByUrl(ctx context.Context, url string) (Screener, error) {
	row := q.db.QueryRowContext(ctx, getScreenerByUrl, url)
	var i Screener
	err := row.Scan(
		&i.ID,
		&i.Url,
		&i.Name,
		&i.IsActive,
		&i.CreatedAt,
	)
	return i, err
}

const listScreeners = `-- name: ListScreeners :many
select id, url, name, is_active, created_at from screeners
order by is_active desc, name asc
`

func (q *Queries) ListScreeners(ctx context.Context) ([]Screener, error) {
	return q.queryScreeners(ctx, listScreeners)
}

const listActiveScreeners = `-- name: ListActiveScreeners :many
select id, url, name, is_active, created_at from screeners
where is_active = 1
order by id asc
`

func (q *Queries) ListActiveScreeners(ctx context.Context) ([]Screener, error) {
	return q.queryScreeners(ctx, listActiveScreeners)
}

func (q *Queries) queryScreeners(ctx context.Context, query string, args ...interface{}) ([]Screener, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Screener
	for rows.Next() {
		var i Screener
		if err := rows.Scan(
			&i.ID,
			&i.Url,
			&i.Name,
			&i.IsActive,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateScreener = `-- name: UpdateScreener :execrows
update screeners
set url = ?, name = ?, is_active = ?
where id = ?
`

type UpdateScreenerParams struct {
	Url      string
	Name     string
	IsActive bool
	ID       int64
}

func (q *Queries) UpdateScreener(ctx context.Context, arg UpdateScreenerParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateScreener,
		arg.Url,
		arg.Name,
		arg.IsActive,
		arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteScreener = `-- name: DeleteScreener :execrows
delete from screeners
where id = ?
`

func (q *Queries) DeleteScreener(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteScreener, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const countActiveScreeners = `-- name: CountActiveScreeners :one
select count(*) from screeners
where is_active = 1
`

func (q *Queries) CountActiveScreeners(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countActiveScreeners)
	var count int64
	err := row.Scan(&count)
	return count, err
}
