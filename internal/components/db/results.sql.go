package db

import (
	"context"
	"database/sql"
)

const addStockResult = `-- name: AddStockResult :exec
insert into stock_results (
    job_id, screener_id, symbol, name, nse_code, bse_code,
    close_price, volume, is_high_conviction, scraped_at
) values (?, ?, ?, ?, ?, ?, ?, ?, 0, ?)
`

type AddStockResultParams struct {
	JobID      string
	ScreenerID int64
	Symbol     string
	Name       string
	NseCode    sql.NullString
	BseCode    sql.NullString
	ClosePrice sql.NullFloat64
	Volume     sql.NullInt64
	ScrapedAt  int64
}

func (q *Queries) AddStockResult(ctx context.Context, arg AddStockResultParams) error {
	_, err := q.db.ExecContext(ctx, addStockResult,
		arg.JobID,
		arg.ScreenerID,
		arg.Symbol,
		arg.Name,
		arg.NseCode,
		arg.BseCode,
		arg.ClosePrice,
		arg.Volume,
		arg.ScrapedAt,
	)
	return err
}

const markHighConviction = `-- name: MarkHighConviction :exec
update stock_results
set is_high_conviction = 1
where job_id = ? and symbol = ?
`

type MarkHighConvictionParams struct {
	JobID  string
	Symbol string
}

func (q *Queries) MarkHighConviction(ctx context.Context, arg MarkHighConvictionParams) error {
	_, err := q.db.ExecContext(ctx, markHighConviction, arg.JobID, arg.Symbol)
	return err
}

const listStockResultsForJob = `-- name: ListStockResultsForJob :many
select
    r.id, r.job_id, r.screener_id, r.symbol, r.name, r.nse_code, r.bse_code,
    r.close_price, r.volume, r.is_high_conviction, r.scraped_at,
    s.name, s.url
from stock_results r
join screeners s on s.id = r.screener_id
where r.job_id = ?
order by r.screener_id asc, r.id asc
`

type ListStockResultsForJobRow struct {
	StockResult  StockResult
	ScreenerName string
	ScreenerUrl  string
}

func (q *Queries) ListStockResultsForJob(ctx context.Context, jobID string) ([]ListStockResultsForJobRow, error) {
	rows, err := q.db.QueryContext(ctx, listStockResultsForJob, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListStockResultsForJobRow
	for rows.Next() {
		var i ListStockResultsForJobRow
		if err := rows.Scan(
			&i.StockResult.ID,
			&i.StockResult.JobID,
			&i.StockResult.ScreenerID,
			&i.StockResult.Symbol,
			&i.StockResult.Name,
			&i.StockResult.NseCode,
			&i.StockResult.BseCode,
			&i.StockResult.ClosePrice,
			&i.StockResult.Volume,
			&i.StockResult.IsHighConviction,
			&i.StockResult.ScrapedAt,
			&i.ScreenerName,
			&i.ScreenerUrl,
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

const listJobSymbols = `-- name: ListJobSymbols :many
select distinct symbol from stock_results
where job_id = ?
order by symbol asc
`

func (q *Queries) ListJobSymbols(ctx context.Context, jobID string) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listJobSymbols, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, err
		}
		items = append(items, symbol)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const rankJobSymbols = `-- name: RankJobSymbols :many
select
    symbol,
    count(distinct screener_id) as screener_count,
    max(close_price) as close_price,
    max(volume) as volume
from stock_results
where job_id = ? and symbol != 'Unknown'
group by symbol
having count(distinct screener_id) >= ?
order by screener_count desc, symbol asc
limit ?
`

type RankJobSymbolsParams struct {
	JobID       string
	MinScreener int64
	Limit       int64
}

type RankJobSymbolsRow struct {
	Symbol        string
	ScreenerCount int64
	ClosePrice    sql.NullFloat64
	Volume        sql.NullInt64
}

func (q *Queries) RankJobSymbols(ctx context.Context, arg RankJobSymbolsParams) ([]RankJobSymbolsRow, error) {
	rows, err := q.db.QueryContext(ctx, rankJobSymbols, arg.JobID, arg.MinScreener, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []RankJobSymbolsRow
	for rows.Next() {
		var i RankJobSymbolsRow
		if err := rows.Scan(
			&i.Symbol,
			&i.ScreenerCount,
			&i.ClosePrice,
			&i.Volume,
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
