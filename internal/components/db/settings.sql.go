package db

import (
	"context"
)

const ensureSettings = `-- name: EnsureSettings :exec
insert or ignore into global_settings (id, min_ranking_threshold)
values (1, ?)
`

func (q *Queries) EnsureSettings(ctx context.Context, defaultThreshold int64) error {
	_, err := q.db.ExecContext(ctx, ensureSettings, defaultThreshold)
	return err
}

const getSettings = `-- name: GetSettings :one
select id, min_ranking_threshold from global_settings
where id = 1
`

func (q *Queries) GetSettings(ctx context.Context) (GlobalSetting, error) {
	row := q.db.QueryRowContext(ctx, getSettings)
	var i GlobalSetting
	err := row.Scan(&i.ID, &i.MinRankingThreshold)
	return i, err
}

const updateSettings = `-- name: UpdateSettings :exec
update global_settings
set min_ranking_threshold = ?
where id = 1
`

func (q *Queries) UpdateSettings(ctx context.Context, minRankingThreshold int64) error {
	_, err := q.db.ExecContext(ctx, updateSettings, minRankingThreshold)
	return err
}
