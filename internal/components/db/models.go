package db

import "database/sql"

type Screener struct {
	ID        int64
	Url       string
	Name      string
	IsActive  bool
	CreatedAt int64
}

type ScanJob struct {
	ID          string
	Status      JobStatus
	Progress    int64
	CreatedAt   int64
	StartedAt   sql.NullInt64
	CompletedAt sql.NullInt64
	Log         string
}

type StockResult struct {
	ID               int64
	JobID            string
	ScreenerID       int64
	Symbol           string
	Name             string
	NseCode          sql.NullString
	BseCode          sql.NullString
	ClosePrice       sql.NullFloat64
	Volume           sql.NullInt64
	IsHighConviction bool
	ScrapedAt        int64
}

type GlobalSetting struct {
	ID                  int64
	MinRankingThreshold int64
}

type ScanReport struct {
	ID                  int64
	JobID               string
	CsvFilePath         string
	CreatedAt           int64
	TotalStocks         int64
	HighConvictionCount int64
}
