package health

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres returns a readiness checker that pings the database pool.
func Postgres(pool *pgxpool.Pool) Checker {
	return Checker{
		Name: "postgres",
		Check: func(ctx context.Context) error {
			if pool == nil {
				return errors.New("pool is not configured")
			}
			return pool.Ping(ctx)
		},
	}
}

// LLM returns a readiness checker that reports whether a model provider was
// configured. It does not call the provider; remote quota should not gate
// readiness.
func LLM(configured bool) Checker {
	return Checker{
		Name: "llm",
		Check: func(context.Context) error {
			if !configured {
				return errors.New("no provider configured")
			}
			return nil
		},
	}
}
