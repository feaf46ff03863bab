package service

import (
	"context"
	"errors"
	"fmt"
	"screener-backend/internal/components/db"
)

var ErrInvalidThreshold = errors.New("threshold must be at least 1")

type Settings struct {
	MinRankingThreshold int64 `json:"min_ranking_threshold"`
}

// GetSettings returns the global settings, creating them with defaults on
// first use.
func (s *Service) GetSettings(ctx context.Context) (Settings, error) {
	err := s.qry.EnsureSettings(ctx, db.DefaultRankingThreshold)
	if err != nil {
		s.tel.ReportBroken(report_db_query, fmt.Errorf("EnsureSettings: %w", err))
		return Settings{}, err
	}
	row, err := s.qry.GetSettings(ctx)
	if err != nil {
		s.tel.ReportBroken(report_db_query, fmt.Errorf("GetSettings: %w", err))
		return Settings{}, err
	}
	return Settings{MinRankingThreshold: row.MinRankingThreshold}, nil
}

func (s *Service) UpdateSettings(ctx context.Context, settings Settings) (Settings, error) {
	if settings.MinRankingThreshold < 1 {
		return Settings{}, ErrInvalidThreshold
	}
	err := s.qry.EnsureSettings(ctx, db.DefaultRankingThreshold)
	if err != nil {
		s.tel.ReportBroken(report_db_query, fmt.Errorf("EnsureSettings: %w", err))
		return Settings{}, err
	}
	err = s.qry.UpdateSettings(ctx, settings.MinRankingThreshold)
	if err != nil {
		s.tel.ReportBroken(report_db_query, fmt.Errorf("UpdateSettings: %w", err))
		return Settings{}, err
	}
	return settings, nil
}
