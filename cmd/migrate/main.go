package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Jahb/WedDataManagement/internal/config"
	"github.com/Jahb/WedDataManagement/internal/repository"
)

func main() {
	flag.Parse()
	args := flag.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: migrate <command>")
		fmt.Fprintln(os.Stderr, "commands: up, down, status, redo")
		os.Exit(2)
	}
	command := args[0]

	cfg, err := config.New()
	if err != nil {
		slog.Error("migrate: config failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	slog.Info("migrate: running", "command", command)
	if err := repository.RunMigrations(ctx, cfg.DSN(), command); err != nil {
		slog.Error("migrate: failed", "command", command, "error", err)
		os.Exit(1)
	}
	slog.Info("migrate: finished", "command", command)
}
