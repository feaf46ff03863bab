package service

import (
	"context"
	"fmt"
	"screener-backend/internal/components/db"
	"sort"
)

const dashboardTopStocks = 10

type RankedStock struct {
	Symbol        string  `json:"symbol"`
	ScreenerCount int64   `json:"screener_count"`
	ClosePrice    float64 `json:"close_price"`
	Volume        int64   `json:"volume"`
}

type Dashboard struct {
	LatestJob       *Job          `json:"latest_job"`
	ActiveScreeners int64         `json:"active_screeners"`
	Threshold       int64         `json:"threshold"`
	TopStocks       []RankedStock `json:"top_stocks"`
	// HighConvictionCount counts every symbol of the latest job found by
	// more than one screener, TopStocks only holds the first few.
	HighConvictionCount int `json:"high_conviction_count"`
}

func (s *Service) latestCompletedJobs(ctx context.Context, n int64) ([]db.ScanJob, error) {
	jobs, err := s.qry.ListCompletedScanJobs(ctx, n)
	if err != nil {
		s.tel.ReportBroken(report_db_query, fmt.Errorf("ListCompletedScanJobs: %w", err))
		return nil, err
	}
	return jobs, nil
}

func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	active, err := s.qry.CountActiveScreeners(ctx)
	if err != nil {
		s.tel.ReportBroken(report_db_query, fmt.Errorf("CountActiveScreeners: %w", err))
		return Dashboard{}, err
	}
	settings, err := s.GetSettings(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	out := Dashboard{
		ActiveScreeners: active,
		Threshold:       settings.MinRankingThreshold,
		TopStocks:       []RankedStock{},
	}

	jobs, err := s.latestCompletedJobs(ctx, 1)
	if err != nil {
		return Dashboard{}, err
	}
	if len(jobs) == 0 {
		return out, nil
	}
	latest := jobFromRow(jobs[0])
	out.LatestJob = &latest

	ranked, err := s.qry.RankJobSymbols(ctx, db.RankJobSymbolsParams{
		JobID:       latest.ID,
		MinScreener: 2,
		Limit:       -1,
	})
	if err != nil {
		s.tel.ReportBroken(report_db_query, fmt.Errorf("RankJobSymbols: %w", err))
		return Dashboard{}, err
	}
	out.HighConvictionCount = len(ranked)
	if len(ranked) > dashboardTopStocks {
		ranked = ranked[:dashboardTopStocks]
	}
	for _, r := range ranked {
		out.TopStocks = append(out.TopStocks, RankedStock{
			Symbol:        r.Symbol,
			ScreenerCount: r.ScreenerCount,
			ClosePrice:    r.ClosePrice.Float64,
			Volume:        r.Volume.Int64,
		})
	}
	return out, nil
}

type StockRow struct {
	Symbol         string  `json:"symbol"`
	Name           string  `json:"name"`
	NseCode        string  `json:"nse_code,omitempty"`
	BseCode        string  `json:"bse_code,omitempty"`
	ClosePrice     float64 `json:"close_price"`
	Volume         int64   `json:"volume"`
	HighConviction bool    `json:"high_conviction"`
	ScrapedAt      int64   `json:"scraped_at"`
}

type ScreenerResults struct {
	ScreenerID   int64      `json:"screener_id"`
	ScreenerName string     `json:"screener_name"`
	ScreenerUrl  string     `json:"screener_url"`
	Stocks       []StockRow `json:"stocks"`
}

type JobResults struct {
	Job            Job               `json:"job"`
	Screeners      []ScreenerResults `json:"screeners"`
	HighConviction []string          `json:"high_conviction"`
}

// JobResults groups the stored rows of a job per screener.
func (s *Service) JobResults(ctx context.Context, jobID string) (JobResults, error) {
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return JobResults{}, err
	}
	rows, err := s.qry.ListStockResultsForJob(ctx, jobID)
	if err != nil {
		s.tel.ReportBroken(report_db_query, fmt.Errorf("ListStockResultsForJob: %w", err))
		return JobResults{}, err
	}

	out := JobResults{
		Job:            job,
		Screeners:      []ScreenerResults{},
		HighConviction: []string{},
	}
	index := map[int64]int{}
	highConviction := map[string]struct{}{}
	for _, row := range rows {
		r := row.StockResult
		i, ok := index[r.ScreenerID]
		if !ok {
			i = len(out.Screeners)
			index[r.ScreenerID] = i
			out.Screeners = append(out.Screeners, ScreenerResults{
				ScreenerID:   r.ScreenerID,
				ScreenerName: row.ScreenerName,
				ScreenerUrl:  row.ScreenerUrl,
			})
		}
		out.Screeners[i].Stocks = append(out.Screeners[i].Stocks, StockRow{
			Symbol:         r.Symbol,
			Name:           r.Name,
			NseCode:        r.NseCode.String,
			BseCode:        r.BseCode.String,
			ClosePrice:     r.ClosePrice.Float64,
			Volume:         r.Volume.Int64,
			HighConviction: r.IsHighConviction,
			ScrapedAt:      r.ScrapedAt,
		})
		if r.IsHighConviction {
			highConviction[r.Symbol] = struct{}{}
		}
	}
	for symbol := range highConviction {
		out.HighConviction = append(out.HighConviction, symbol)
	}
	sort.Strings(out.HighConviction)
	return out, nil
}

type NewStocks struct {
	LatestJobID   string   `json:"latest_job_id"`
	PreviousJobID string   `json:"previous_job_id,omitempty"`
	Symbols       []string `json:"symbols"`
}

// NewStocks lists symbols of the latest completed job that the completed
// job before it did not have. With a single completed job every symbol is
// new.
func (s *Service) NewStocks(ctx context.Context) (NewStocks, error) {
	jobs, err := s.latestCompletedJobs(ctx, 2)
	if err != nil {
		return NewStocks{}, err
	}
	out := NewStocks{Symbols: []string{}}
	if len(jobs) == 0 {
		return out, nil
	}
	out.LatestJobID = jobs[0].ID

	latest, err := s.qry.ListJobSymbols(ctx, jobs[0].ID)
	if err != nil {
		s.tel.ReportBroken(report_db_query, fmt.Errorf("ListJobSymbols: %w", err))
		return NewStocks{}, err
	}
	previous := map[string]struct{}{}
	if len(jobs) > 1 {
		out.PreviousJobID = jobs[1].ID
		symbols, err := s.qry.ListJobSymbols(ctx, jobs[1].ID)
		if err != nil {
			s.tel.ReportBroken(report_db_query, fmt.Errorf("ListJobSymbols: %w", err))
			return NewStocks{}, err
		}
		for _, symbol := range symbols {
			previous[symbol] = struct{}{}
		}
	}
	for _, symbol := range latest {
		if _, ok := previous[symbol]; !ok {
			out.Symbols = append(out.Symbols, symbol)
		}
	}
	return out, nil
}
