package db

import (
	"context"
)

const createScanJob = `-- name: CreateScanJob :exec
insert into scan_jobs (id, status, progress, created_at)
values (?, 'PENDING', 0, ?)
`

type CreateScanJobParams struct {
	ID        string
	CreatedAt int64
}

func (q *Queries) CreateScanJob(ctx context.Context, arg CreateScanJobParams) error {
	_, err := q.db.ExecContext(ctx, createScanJob, arg.ID, arg.CreatedAt)
	return err
}

const getScanJob = `-- name: GetScanJob :one
select id, status, progress, created_at, started_at, completed_at, log from scan_jobs
where id = ?
`

func (q *Queries) GetScanJob(ctx context.Context, id string) (ScanJob, error) {
	row := q.db.QueryRowContext(ctx, getScanJob, id)
	var i ScanJob
	err := row.Scan(
		&i.ID,
		&i.Status,
		&i.Progress,
		&i.CreatedAt,
		&i.StartedAt,
		&i.CompletedAt,
		&i.Log,
	)
	return i, err
}

const startScanJob = `-- name: StartScanJob :exec
update scan_jobs
set status = 'RUNNING', started_at = ?
where id = ?
`

type StartScanJobParams struct {
	StartedAt int64
	ID        string
}

func (q *Queries) StartScanJob(ctx context.Context, arg StartScanJobParams) error {
	_, err := q.db.ExecContext(ctx, startScanJob, arg.StartedAt, arg.ID)
	return err
}

const setScanJobProgress = `-- name: SetScanJobProgress :exec
update scan_jobs
set progress = ?
where id = ?
`

type SetScanJobProgressParams struct {
	Progress int64
	ID       string
}

func (q *Queries) SetScanJobProgress(ctx context.Context, arg SetScanJobProgressParams) error {
	_, err := q.db.ExecContext(ctx, setScanJobProgress, arg.Progress, arg.ID)
	return err
}

const appendScanJobLog = `-- name: AppendScanJobLog :exec
update scan_jobs
set log = log || ?
where id = ?
`

type AppendScanJobLogParams struct {
	Line string
	ID   string
}

func (q *Queries) AppendScanJobLog(ctx context.Context, arg AppendScanJobLogParams) error {
	_, err := q.db.ExecContext(ctx, appendScanJobLog, arg.Line, arg.ID)
	return err
}

const finishScanJob = `-- name: FinishScanJob :exec
update scan_jobs
set status = ?, progress = ?, completed_at = ?
where id = ?
`

type FinishScanJobParams struct {
	Status      JobStatus
	Progress    int64
	CompletedAt int64
	ID          string
}

func (q *Queries) FinishScanJob(ctx context.Context, arg FinishScanJobParams) error {
	_, err := q.db.ExecContext(ctx, finishScanJob,
		arg.Status,
		arg.Progress,
		arg.CompletedAt,
		arg.ID,
	)
	return err
}

const failScanJob = `-- name: FailScanJob :exec
update scan_jobs
set status = 'FAILED', completed_at = ?
where id = ?
`

type FailScanJobParams struct {
	CompletedAt int64
	ID          string
}

func (q *Queries) FailScanJob(ctx context.Context, arg FailScanJobParams) error {
	_, err := q.db.ExecContext(ctx, failScanJob, arg.CompletedAt, arg.ID)
	return err
}

const countRunningScanJobs = `-- name: CountRunningScanJobs :one
select count(*) from scan_jobs
where status in ('PENDING', 'RUNNING')
`

func (q *Queries) CountRunningScanJobs(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countRunningScanJobs)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const listCompletedScanJobs = `-- name: ListCompletedScanJobs :many
select id, status, progress, created_at, started_at, completed_at, log from scan_jobs
where status = 'COMPLETED'
order by completed_at desc, rowid desc
limit ?
`

func (q *Queries) ListCompletedScanJobs(ctx context.Context, limit int64) ([]ScanJob, error) {
	rows, err := q.db.QueryContext(ctx, listCompletedScanJobs, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ScanJob
	for rows.Next() {
		var i ScanJob
		if err := rows.Scan(
			&i.ID,
			&i.Status,
			&i.Progress,
			&i.CreatedAt,
			&i.StartedAt,
			&i.CompletedAt,
			&i.Log,
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
