package infrastructure

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/Jahb/WedDataManagement/internal/config"
)

// Deps bundles the infrastructure connections a service runs on. Redis is nil
// unless requested and configured.
type Deps struct {
	Cfg   *config.Config
	DB    *pgxpool.Pool
	Nats  *nats.Conn
	Redis *redis.Client

	cleanupFns []func()
}

// Connect loads config and opens the shared connections. Callers must Close
// the returned Deps; cleanup runs in reverse connection order.
func Connect(ctx context.Context, withRedis bool) (*Deps, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, err
	}

	d := &Deps{Cfg: cfg}

	db, err := connectPostgres(cfg.DSN())
	if err != nil {
		return nil, err
	}
	d.DB = db
	d.cleanupFns = append(d.cleanupFns, db.Close)

	nc, err := connectNats(cfg.NatsAddr())
	if err != nil {
		d.Close()
		return nil, err
	}
	d.Nats = nc
	d.cleanupFns = append(d.cleanupFns, nc.Close)

	if withRedis {
		addr, err := cfg.RedisAddr()
		if err != nil {
			d.Close()
			return nil, err
		}
		rdb, err := connectRedis(addr)
		if err != nil {
			d.Close()
			return nil, err
		}
		d.Redis = rdb
		d.cleanupFns = append(d.cleanupFns, func() { _ = rdb.Close() })
	}

	return d, nil
}

// Close releases all connections in reverse order.
func (d *Deps) Close() {
	for i := len(d.cleanupFns) - 1; i >= 0; i-- {
		d.cleanupFns[i]()
	}
	d.cleanupFns = nil
}
