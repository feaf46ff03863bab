package main

import (
	"fmt"
	"log/slog"
	"os"
	devenv "screener-backend/dev/env"
	"screener-backend/internal/components/db"
	configsqlite "screener-backend/lib/configutil/sqlite"
)

func CreateDevDB() error {
	path, err := devenv.ResolvePath(devenv.StatePrefix + "/screener.db")
	if err != nil {
		return err
	}
	_, err = os.Stat(path)
	if err == nil {
		fmt.Println("database already created at", path)
		return nil
	}

	fmt.Println("creating database at", path)
	database, err := configsqlite.Struct{File: path}.OpenDB(db.Schema)
	if err != nil {
		return err
	}
	return database.Close()
}

const localConfig = `// machine specific overrides of config.json5
{
  browser: {
    // bin: "/usr/bin/chromium",
  },
}
`

func CreateLocalConfig() error {
	_, err := os.Stat("config.local.json5")
	if err == nil {
		return nil
	}
	fmt.Println("writing config.local.json5")
	return os.WriteFile("config.local.json5", []byte(localConfig), 0644)
}

func PrintNextSteps() {
	slog.Info("import some screeners with `go run ./cmd/screener screeners import screeners.example.yaml`, then `go run ./cmd/screener run`.")
}
