package infrastructure

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Server is anything the app supervises: HTTP servers, RPC responders, event
// recorders. Start blocks until the server stops or ctx is cancelled.
type Server interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type App struct {
	servers []Server
}

func NewApp(servers []Server) *App {
	return &App{servers: servers}
}

// Run starts all servers and blocks until the context is cancelled or one of
// them fails, then stops the rest.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, srv := range a.servers {
		s := srv
		g.Go(func() error {
			return s.Start(ctx)
		})
	}

	<-ctx.Done()

	for _, srv := range a.servers {
		_ = srv.Stop(context.Background())
	}

	return g.Wait()
}
