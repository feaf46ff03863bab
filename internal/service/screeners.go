package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"screener-backend/internal/components/db"
	"screener-backend/lib/configutil"
	"strings"

	"github.com/PuerkitoBio/purell"
	"go.opentelemetry.io/otel/codes"
)

var (
	ErrInvalidScreenerUrl  = errors.New("invalid screener url")
	ErrScreenerExists      = errors.New("screener already exists")
	ErrScreenerNotFound    = errors.New("screener not found")
	ErrInvalidScreenerFile = errors.New("invalid screener file")
)

type Screener struct {
	ID        int64  `json:"id"`
	Url       string `json:"url"`
	Name      string `json:"name"`
	Active    bool   `json:"active"`
	CreatedAt int64  `json:"created_at"`
}

func screenerFromRow(row db.Screener) Screener {
	return Screener{
		ID:        row.ID,
		Url:       row.Url,
		Name:      row.Name,
		Active:    row.IsActive,
		CreatedAt: row.CreatedAt,
	}
}

// CanonicalScreenerUrl normalizes a screener url so that trivially
// different spellings of the same screener collapse to one row.
func CanonicalScreenerUrl(raw string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidScreenerUrl, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" || parsed.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidScreenerUrl, raw)
	}
	normalized := purell.NormalizeURL(
		parsed,
		purell.FlagsSafe|
			purell.FlagsUsuallySafeGreedy|
			purell.FlagRemoveDirectoryIndex|
			purell.FlagRemoveFragment|
			purell.FlagSortQuery,
	)
	return normalized, nil
}

// ScreenerNameFromUrl turns the last path segment of a screener url into a
// title, `hm-weekly-crossover` becomes `Hm Weekly Crossover`.
func ScreenerNameFromUrl(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	slug := segments[len(segments)-1]
	if slug == "" {
		return parsed.Host
	}
	words := strings.FieldsFunc(slug, func(r rune) bool {
		return r == '-' || r == '_'
	})
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

func (s *Service) ListScreeners(ctx context.Context) ([]Screener, error) {
	rows, err := s.qry.ListScreeners(ctx)
	if err != nil {
		s.tel.ReportBroken(report_db_query, fmt.Errorf("ListScreeners: %w", err))
		return nil, err
	}
	out := make([]Screener, len(rows))
	for i, r := range rows {
		out[i] = screenerFromRow(r)
	}
	return out, nil
}

// AddScreener registers a screener, an empty name is derived from the url.
func (s *Service) AddScreener(ctx context.Context, rawUrl, name string, active bool) (Screener, error) {
	ctx, span := tracer.Start(ctx, "AddScreener")
	defer span.End()

	canonical, err := CanonicalScreenerUrl(rawUrl)
	if err != nil {
		return Screener{}, err
	}
	_, err = s.qry.GetScreenerByUrl(ctx, canonical)
	if err == nil {
		return Screener{}, fmt.Errorf("%w: %s", ErrScreenerExists, canonical)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		s.tel.ReportBroken(report_db_query, fmt.Errorf("GetScreenerByUrl: %w", err))
		return Screener{}, err
	}

	if strings.TrimSpace(name) == "" {
		name = ScreenerNameFromUrl(canonical)
	}
	row, err := s.qry.CreateScreener(ctx, db.CreateScreenerParams{
		Url:       canonical,
		Name:      strings.TrimSpace(name),
		IsActive:  active,
		CreatedAt: s.time.Now().Unix(),
	})
	if err != nil {
		s.tel.ReportBroken(report_screener_add, err, canonical)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create screener")
		return Screener{}, err
	}
	return screenerFromRow(row), nil
}

type ScreenerUpdate struct {
	Url    *string `json:"url"`
	Name   *string `json:"name"`
	Active *bool   `json:"active"`
}

func (s *Service) UpdateScreener(ctx context.Context, id int64, update ScreenerUpdate) (Screener, error) {
	current, err := s.qry.GetScreener(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Screener{}, ErrScreenerNotFound
	}
	if err != nil {
		s.tel.ReportBroken(report_db_query, fmt.Errorf("GetScreener: %w", err))
		return Screener{}, err
	}

	params := db.UpdateScreenerParams{
		ID:       id,
		Url:      current.Url,
		Name:     current.Name,
		IsActive: current.IsActive,
	}
	if update.Url != nil {
		canonical, err := CanonicalScreenerUrl(*update.Url)
		if err != nil {
			return Screener{}, err
		}
		if canonical != current.Url {
			_, err = s.qry.GetScreenerByUrl(ctx, canonical)
			if err == nil {
				return Screener{}, fmt.Errorf("%w: %s", ErrScreenerExists, canonical)
			}
		}
		params.Url = canonical
	}
	if update.Name != nil {
		params.Name = strings.TrimSpace(*update.Name)
	}
	if update.Active != nil {
		params.IsActive = *update.Active
	}

	_, err = s.qry.UpdateScreener(ctx, params)
	if err != nil {
		s.tel.ReportBroken(report_db_query, fmt.Errorf("UpdateScreener: %w", err))
		return Screener{}, err
	}
	return Screener{
		ID:        id,
		Url:       params.Url,
		Name:      params.Name,
		Active:    params.IsActive,
		CreatedAt: current.CreatedAt,
	}, nil
}

func (s *Service) DeleteScreener(ctx context.Context, id int64) error {
	n, err := s.qry.DeleteScreener(ctx, id)
	if err != nil {
		s.tel.ReportBroken(report_db_query, fmt.Errorf("DeleteScreener: %w", err))
		return err
	}
	if n == 0 {
		return ErrScreenerNotFound
	}
	return nil
}

// ScreenerFile is the format accepted by ImportScreeners, in json, json5
// or yaml.
type ScreenerFile struct {
	Screeners []string `json:"screeners" yaml:"screeners"`
}

type ImportResult struct {
	Added   []Screener `json:"added"`
	Skipped []string   `json:"skipped"`
	Invalid []string   `json:"invalid"`
}

// ImportScreeners adds every url in the file that is not registered yet.
// format is a file extension (json, json5, yaml, yml).
func (s *Service) ImportScreeners(ctx context.Context, format string, data []byte) (ImportResult, error) {
	var file ScreenerFile
	err := configutil.Unmarshal(strings.TrimPrefix(format, "."), data, &file)
	if err != nil {
		return ImportResult{}, fmt.Errorf("%w: %v", ErrInvalidScreenerFile, err)
	}

	result := ImportResult{}
	for _, raw := range file.Screeners {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		added, err := s.AddScreener(ctx, raw, "", true)
		if errors.Is(err, ErrScreenerExists) {
			result.Skipped = append(result.Skipped, raw)
			continue
		}
		if errors.Is(err, ErrInvalidScreenerUrl) {
			result.Invalid = append(result.Invalid, raw)
			continue
		}
		if err != nil {
			return result, err
		}
		result.Added = append(result.Added, added)
	}
	return result, nil
}

// ImportScreenersFile is ImportScreeners reading from a path, the format
// comes from the file extension.
func (s *Service) ImportScreenersFile(ctx context.Context, path string) (ImportResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ImportResult{}, err
	}
	return s.ImportScreeners(ctx, filepath.Ext(path), data)
}
