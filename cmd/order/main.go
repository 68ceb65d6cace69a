package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Jahb/WedDataManagement/internal/infrastructure"
	"github.com/Jahb/WedDataManagement/internal/repository"
	"github.com/Jahb/WedDataManagement/internal/service"
	transportHTTP "github.com/Jahb/WedDataManagement/internal/transport/http"
	transportNATS "github.com/Jahb/WedDataManagement/internal/transport/nats"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := infrastructure.Connect(ctx, false)
	if err != nil {
		slog.Error("order: bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer deps.Close()

	dispatcher, err := transportNATS.NewDispatcher(deps.Nats, deps.Cfg.RPCTimeout())
	if err != nil {
		slog.Error("order: dispatcher setup failed", "error", err)
		os.Exit(1)
	}
	defer dispatcher.Close()

	payments := transportNATS.NewPaymentClient(dispatcher)
	stocks := transportNATS.NewStockClient(dispatcher)
	saga := service.NewCheckoutSaga(payments, stocks)
	orders := service.NewOrderService(repository.NewOrderRepo(deps.DB), payments, stocks, saga)

	app := infrastructure.NewApp([]infrastructure.Server{
		transportHTTP.NewServer(deps.Cfg.HTTPAddr(), transportHTTP.NewOrderHandler(orders)),
	})

	slog.Info("order service starting", "http", deps.Cfg.HTTPAddr())
	if err := app.Run(ctx); err != nil {
		slog.Error("order service stopped", "error", err)
		os.Exit(1)
	}
}
