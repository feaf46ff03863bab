package db

import (
	"context"
)

const createScanReport = `-- name: CreateScanReport :exec
insert into scan_reports (job_id, csv_file_path, created_at, total_stocks, high_conviction_count)
values (?, ?, ?, ?, ?)
`

type CreateScanReportParams struct {
	JobID               string
	CsvFilePath         string
	CreatedAt           int64
	TotalStocks         int64
	HighConvictionCount int64
}

func (q *Queries) CreateScanReport(ctx context.Context, arg CreateScanReportParams) error {
	_, err := q.db.ExecContext(ctx, createScanReport,
		arg.JobID,
		arg.CsvFilePath,
		arg.CreatedAt,
		arg.TotalStocks,
		arg.HighConvictionCount,
	)
	return err
}

const getScanReport = `-- name: GetScanReport :one
select id, job_id, csv_file_path, created_at, total_stocks, high_conviction_count from scan_reports
where job_id = ?
`

func (q *Queries) GetScanReport(ctx context.Context, jobID string) (ScanReport, error) {
	row := q.db.QueryRowContext(ctx, getScanReport, jobID)
	var i ScanReport
	err := row.Scan(
		&i.ID,
		&i.JobID,
		&i.CsvFilePath,
		&i.CreatedAt,
		&i.TotalStocks,
		&i.HighConvictionCount,
	)
	return i, err
}

const listScanReports = `-- name: ListScanReports :many
select id, job_id, csv_file_path, created_at, total_stocks, high_conviction_count from scan_reports
order by created_at desc
limit ?
`

func (q *Queries) ListScanReports(ctx context.Context, limit int64) ([]ScanReport, error) {
	rows, err := q.db.QueryContext(ctx, listScanReports, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ScanReport
	for rows.Next() {
		var i ScanReport
		if err := rows.Scan(
			&i.ID,
			&i.JobID,
			&i.CsvFilePath,
			&i.CreatedAt,
			&i.TotalStocks,
			&i.HighConvictionCount,
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
