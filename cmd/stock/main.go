package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Jahb/WedDataManagement/internal/infrastructure"
	"github.com/Jahb/WedDataManagement/internal/model"
	"github.com/Jahb/WedDataManagement/internal/repository"
	transportHTTP "github.com/Jahb/WedDataManagement/internal/transport/http"
	transportNATS "github.com/Jahb/WedDataManagement/internal/transport/nats"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := infrastructure.Connect(ctx, true)
	if err != nil {
		slog.Error("stock: bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer deps.Close()

	repo := repository.NewStockRepo(deps.DB, deps.Redis)

	responder := transportNATS.NewResponder(deps.Nats, model.StockChannel, "stock-service")
	transportNATS.RegisterStockOps(responder, repo)

	app := infrastructure.NewApp([]infrastructure.Server{
		responder,
		transportHTTP.NewServer(deps.Cfg.HTTPAddr(), transportHTTP.NewStockHandler(repo)),
	})

	slog.Info("stock service starting", "http", deps.Cfg.HTTPAddr())
	if err := app.Run(ctx); err != nil {
		slog.Error("stock service stopped", "error", err)
		os.Exit(1)
	}
}
