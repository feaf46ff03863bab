package service

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"screener-backend/internal/components/db"
	"screener-backend/internal/scan"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

var (
	ErrReportsDisabled = errors.New("reports directory is not configured")
	ErrReportNotFound  = errors.New("report not found")
)

var reportHeader = []string{
	"symbol",
	"name",
	"close",
	"volume",
	"source_screener",
	"high_conviction",
	"scraped_at",
}

type Report struct {
	JobID               string `json:"job_id"`
	Path                string `json:"path"`
	CreatedAt           int64  `json:"created_at"`
	TotalStocks         int64  `json:"total_stocks"`
	HighConvictionCount int64  `json:"high_conviction_count"`
}

func reportFromRow(row db.ScanReport) Report {
	return Report{
		JobID:               row.JobID,
		Path:                row.CsvFilePath,
		CreatedAt:           row.CreatedAt,
		TotalStocks:         row.TotalStocks,
		HighConvictionCount: row.HighConvictionCount,
	}
}

// ReportFilename is scan_<YYYYMMDD_HHMMSS>_<first 8 chars of the job id>.csv
func ReportFilename(now time.Time, jobID string) string {
	short := jobID
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("scan_%s_%s.csv", now.Format("20060102_150405"), short)
}

// WriteReport writes every stored row of a job to a csv file under the
// reports directory and records it.
func (s *Service) WriteReport(ctx context.Context, jobID string) (Report, error) {
	ctx, span := tracer.Start(ctx, "WriteReport")
	defer span.End()

	if s.opts.ReportsDir == "" {
		return Report{}, ErrReportsDisabled
	}

	rows, err := s.qry.ListStockResultsForJob(ctx, jobID)
	if err != nil {
		return Report{}, fmt.Errorf("list results: %w", err)
	}

	err = os.MkdirAll(s.opts.ReportsDir, 0755)
	if err != nil {
		return Report{}, err
	}
	now := s.time.Now()
	path := filepath.Join(s.opts.ReportsDir, ReportFilename(now, jobID))

	total, highConviction, err := writeReportCsv(path, rows, s.time.Location())
	if err != nil {
		return Report{}, err
	}

	report := Report{
		JobID:               jobID,
		Path:                path,
		CreatedAt:           now.Unix(),
		TotalStocks:         total,
		HighConvictionCount: highConviction,
	}
	err = s.qry.CreateScanReport(ctx, db.CreateScanReportParams{
		JobID:               report.JobID,
		CsvFilePath:         report.Path,
		CreatedAt:           report.CreatedAt,
		TotalStocks:         report.TotalStocks,
		HighConvictionCount: report.HighConvictionCount,
	})
	if err != nil {
		return Report{}, fmt.Errorf("record report: %w", err)
	}
	span.SetAttributes(attribute.String("path", path))
	return report, nil
}

// writeReportCsv returns the number of distinct symbols and of distinct
// high conviction symbols written.
func writeReportCsv(path string, rows []db.ListStockResultsForJobRow, loc *time.Location) (int64, int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	err = w.Write(reportHeader)
	if err != nil {
		return 0, 0, err
	}

	symbols := map[string]struct{}{}
	highConviction := map[string]struct{}{}
	for _, row := range rows {
		r := row.StockResult
		symbols[r.Symbol] = struct{}{}
		if r.IsHighConviction {
			highConviction[r.Symbol] = struct{}{}
		}
		err = w.Write([]string{
			r.Symbol,
			r.Name,
			formatNullFloat(r.ClosePrice),
			formatNullInt(r.Volume),
			row.ScreenerName,
			strconv.FormatBool(r.IsHighConviction),
			time.Unix(r.ScrapedAt, 0).In(loc).Format(time.RFC3339),
		})
		if err != nil {
			return 0, 0, err
		}
	}
	w.Flush()
	err = w.Error()
	if err != nil {
		return 0, 0, err
	}
	return int64(len(symbols)), int64(len(highConviction)), f.Close()
}

// WriteBatchCsv writes a batch that was never stored in the report
// format. Symbols found by at least threshold screeners are high
// conviction.
func WriteBatchCsv(w io.Writer, batch scan.Batch, scrapedAt time.Time, threshold int) error {
	out := csv.NewWriter(w)
	err := out.Write(reportHeader)
	if err != nil {
		return err
	}
	for _, outcome := range batch.Outcomes {
		for _, r := range outcome.Rows {
			err = out.Write([]string{
				r.Symbol,
				r.Name,
				strconv.FormatFloat(r.ClosePrice, 'f', -1, 64),
				strconv.FormatInt(int64(r.Volume), 10),
				outcome.Target.Name,
				strconv.FormatBool(batch.Tally[r.Symbol] >= threshold),
				scrapedAt.Format(time.RFC3339),
			})
			if err != nil {
				return err
			}
		}
	}
	out.Flush()
	return out.Error()
}

func formatNullFloat(v sql.NullFloat64) string {
	if !v.Valid {
		return ""
	}
	return strconv.FormatFloat(v.Float64, 'f', -1, 64)
}

func formatNullInt(v sql.NullInt64) string {
	if !v.Valid {
		return ""
	}
	return strconv.FormatInt(v.Int64, 10)
}

func (s *Service) GetReport(ctx context.Context, jobID string) (Report, error) {
	row, err := s.qry.GetScanReport(ctx, jobID)
	if errors.Is(err, sql.ErrNoRows) {
		return Report{}, ErrReportNotFound
	}
	if err != nil {
		s.tel.ReportBroken(report_db_query, fmt.Errorf("GetScanReport: %w", err))
		return Report{}, err
	}
	return reportFromRow(row), nil
}

func (s *Service) ListReports(ctx context.Context, limit int64) ([]Report, error) {
	rows, err := s.qry.ListScanReports(ctx, limit)
	if err != nil {
		s.tel.ReportBroken(report_db_query, fmt.Errorf("ListScanReports: %w", err))
		return nil, err
	}
	out := make([]Report, len(rows))
	for i, r := range rows {
		out[i] = reportFromRow(r)
	}
	return out, nil
}
