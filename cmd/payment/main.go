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
	"github.com/Jahb/WedDataManagement/internal/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := infrastructure.Connect(ctx, false)
	if err != nil {
		slog.Error("payment: bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer deps.Close()

	repo := repository.NewPaymentRepo(deps.DB, transportNATS.NewBus(deps.Nats))

	responder := transportNATS.NewResponder(deps.Nats, model.CreditChannel, "payment-service")
	transportNATS.RegisterPaymentOps(responder, repo)

	app := infrastructure.NewApp([]infrastructure.Server{
		responder,
		worker.NewPaymentRecorder(repo, deps.Nats),
		transportHTTP.NewServer(deps.Cfg.HTTPAddr(), transportHTTP.NewPaymentHandler(repo)),
	})

	slog.Info("payment service starting", "http", deps.Cfg.HTTPAddr())
	if err := app.Run(ctx); err != nil {
		slog.Error("payment service stopped", "error", err)
		os.Exit(1)
	}
}
