package commands

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	devenv "screener-backend/dev/env"
	"screener-backend/internal/components/chrono"
	"screener-backend/internal/components/db"
	"screener-backend/internal/components/telemetry"
	"screener-backend/internal/scan"
	"screener-backend/internal/scrapers/screener"
	"screener-backend/internal/service"
	"screener-backend/lib/configutil"
	configsqlite "screener-backend/lib/configutil/sqlite"
	"time"
)

type HttpConfig struct {
	Port        int    `json:"port"`
	AccessToken string `json:"access_token"`
}

type BrowserConfig struct {
	Bin       string `json:"bin"`
	RemoteUrl string `json:"remote_url"`
	// Headless defaults to true.
	Headless               *bool `json:"headless"`
	NoSandbox              bool  `json:"no_sandbox"`
	Stealth                bool  `json:"stealth"`
	PageLoadTimeoutSeconds int   `json:"page_load_timeout_seconds"`
}

type CaptureConfig struct {
	Attempts   int `json:"attempts"`
	IntervalMs int `json:"interval_ms"`
	SettleMs   int `json:"settle_ms"`
}

type ReplayConfig struct {
	Endpoint          string  `json:"endpoint"`
	UserAgent         string  `json:"user_agent"`
	TimeoutSeconds    int     `json:"timeout_seconds"`
	RequestsPerSecond float64 `json:"requests_per_second"`
}

type Config struct {
	Database   configsqlite.Struct `json:"database"`
	Http       HttpConfig          `json:"http"`
	Schedule   string              `json:"schedule"`
	Timezone   string              `json:"timezone"`
	ReportsDir string              `json:"reports_dir"`
	Browser    BrowserConfig       `json:"browser"`
	Capture    CaptureConfig       `json:"capture"`
	Replay     ReplayConfig        `json:"replay"`
	PacingMs   *int                `json:"pacing_ms"`
	Smtp       service.SmtpConfig  `json:"smtp"`
	Notify     []string            `json:"notify"`
	// Screeners are queried by `run` without touching the database.
	Screeners []string `json:"screeners"`
}

// LoadConfig reads the config at path, a missing file leaves every
// setting at its default. Paths may start with <dev_state>.
func LoadConfig(path string) (Config, error) {
	config, err := configutil.ReadConfig[Config](path)
	if errors.Is(err, os.ErrNotExist) {
		slog.Debug("no config file found, using defaults", "path", path)
		err = nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	config = config.withDefaults()

	config.Database.File, err = devenv.ResolvePath(config.Database.File)
	if err != nil {
		return Config{}, fmt.Errorf("resolve database.file: %w", err)
	}
	config.ReportsDir, err = devenv.ResolvePath(config.ReportsDir)
	if err != nil {
		return Config{}, fmt.Errorf("resolve reports_dir: %w", err)
	}
	return config, nil
}

func (c Config) withDefaults() Config {
	if c.Database.File == "" {
		c.Database.File = "screener.db"
	}
	if c.Http.Port == 0 {
		c.Http.Port = 8080
	}
	if c.Browser.Headless == nil {
		headless := true
		c.Browser.Headless = &headless
	}
	if c.PacingMs == nil {
		pacing := int(scan.DefaultPacing / time.Millisecond)
		c.PacingMs = &pacing
	}
	if c.Smtp.Port == 0 {
		c.Smtp.Port = 587
	}
	return c
}

func (c Config) rodOptions() screener.RodOptions {
	return screener.RodOptions{
		Bin:             c.Browser.Bin,
		RemoteURL:       c.Browser.RemoteUrl,
		Headless:        *c.Browser.Headless,
		NoSandbox:       c.Browser.NoSandbox,
		Stealth:         c.Browser.Stealth,
		PageLoadTimeout: time.Duration(c.Browser.PageLoadTimeoutSeconds) * time.Second,
	}
}

func (c Config) engineOptions() screener.Options {
	return screener.Options{
		CaptureAttempts: c.Capture.Attempts,
		CaptureInterval: time.Duration(c.Capture.IntervalMs) * time.Millisecond,
		SettleDelay:     time.Duration(c.Capture.SettleMs) * time.Millisecond,
	}
}

func (c Config) replayOptions() screener.ReplayOptions {
	return screener.ReplayOptions{
		Endpoint:          c.Replay.Endpoint,
		UserAgent:         c.Replay.UserAgent,
		Timeout:           time.Duration(c.Replay.TimeoutSeconds) * time.Second,
		RequestsPerSecond: c.Replay.RequestsPerSecond,
	}
}

func (c Config) scanOptions() scan.Options {
	return scan.Options{Pacing: time.Duration(*c.PacingMs) * time.Millisecond}
}

func (c Config) timeAPI() (chrono.StandardTime, error) {
	tz, err := chrono.NewStandardTime(c.Timezone)
	if err != nil {
		return chrono.StandardTime{}, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return tz, nil
}

func newEngine(c Config, tel telemetry.API) (*screener.Engine, error) {
	replay, err := screener.NewReplayClient(c.replayOptions(), tel)
	if err != nil {
		return nil, err
	}
	browser := screener.NewRodBrowser(c.rodOptions())
	return screener.NewEngine(browser, replay, c.engineOptions(), tel), nil
}

func newOrchestrator(c Config, tel telemetry.API) (scan.Orchestrator, error) {
	engine, err := newEngine(c, tel)
	if err != nil {
		return scan.Orchestrator{}, err
	}
	return scan.NewOrchestrator(engine, c.scanOptions(), tel), nil
}

// newService opens the database and wires the service with the scan
// pipeline described by c.
func newService(ctx context.Context, c Config, tel telemetry.API) (*service.Service, *sql.DB, error) {
	database, err := c.Database.OpenDB(db.Schema)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	orchestrator, err := newOrchestrator(c, tel)
	if err != nil {
		database.Close()
		return nil, nil, err
	}
	tz, err := c.timeAPI()
	if err != nil {
		database.Close()
		return nil, nil, err
	}

	options := []service.ServiceOption{
		service.WithCustomTelemetryAPI(tel),
		service.WithCustomTimeAPI(tz),
	}
	if c.Smtp.Server != "" && len(c.Notify) > 0 {
		options = append(options, service.WithMailer(service.SmtpMailer{Config: c.Smtp}))
	}
	s := service.NewService(
		ctx,
		database,
		orchestrator,
		service.Options{ReportsDir: c.ReportsDir, Notify: c.Notify},
		options...,
	)
	return s, database, nil
}
