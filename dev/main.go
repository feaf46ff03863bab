package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
)

// steps run in order, each one is idempotent
var steps = []struct {
	name string
	run  func() error
}{
	{name: "database", run: CreateDevDB},
	{name: "local config", run: CreateLocalConfig},
}

func create(recreate bool) error {
	_, err := os.Stat("go.mod")
	if os.IsNotExist(err) {
		return fmt.Errorf("run this from the repository root (the directory holding go.mod)")
	}

	if recreate {
		err = os.RemoveAll("dev/.state")
		if err != nil {
			return err
		}
	}
	err = os.MkdirAll("dev/.state", 0777)
	if err != nil {
		return err
	}

	for _, step := range steps {
		err = step.run()
		if err != nil {
			return fmt.Errorf("%s: %w", step.name, err)
		}
	}
	PrintNextSteps()
	return nil
}

func main() {
	recreate := flag.Bool("recreate", false, "delete dev/.state before creating it again")
	flag.Parse()

	err := create(*recreate)
	if err != nil {
		slog.Error("failed to create dev environment", "err", err.Error())
		os.Exit(1)
	}
	slog.Info("dev environment ready")
}
