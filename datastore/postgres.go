package datastore

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/OliverPistillo/Doflow-PaaS-sub003/internal/config"
)

const (
	poolMaxConns    = 10
	poolMinConns    = 1
	poolMaxIdleTime = 5 * time.Minute
	pingTimeout     = 2 * time.Second
)

// NewPostgresOpener returns an OpenFunc that establishes a pgx pool
// with search_path pinned to the tenant schema, so every query through
// the handle is isolated to that schema.
func NewPostgresOpener(cfg config.DatabaseConfig) OpenFunc {
	return func(ctx context.Context, schema string) (*Handle, error) {
		poolCfg, err := pgxpool.ParseConfig(cfg.GetDatabaseURL())
		if err != nil {
			return nil, errors.Wrap(err, "[NewPostgresOpener] parse database url")
		}
		if poolCfg.ConnConfig.RuntimeParams == nil {
			poolCfg.ConnConfig.RuntimeParams = map[string]string{}
		}
		poolCfg.ConnConfig.RuntimeParams["search_path"] = schema
		poolCfg.MaxConns = poolMaxConns
		poolCfg.MinConns = poolMinConns
		poolCfg.MaxConnIdleTime = poolMaxIdleTime

		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return nil, errors.Wrapf(err, "[NewPostgresOpener] create pool for schema %q", schema)
		}

		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		if err := pool.Ping(pingCtx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("[NewPostgresOpener] ping schema %q: %w", schema, err)
		}

		return &Handle{Schema: schema, Pool: pool}, nil
	}
}
