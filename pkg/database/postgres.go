package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// TxQuerier is implemented by both pgxpool.Pool and pgx.Tx.
// Repository methods that need transaction support should accept TxQuerier.
type TxQuerier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// ApplicationName is reported to PostgreSQL for every pooled connection.
const ApplicationName = "checkout-core"

// Options tune how NewPool connects.
type Options struct {
	// MaxRetries is the number of connection attempts. Values below 1 mean one attempt.
	MaxRetries int
	// BaseBackoff is the wait after the first failure; it doubles per attempt.
	BaseBackoff time.Duration
	// MaxBackoff caps the wait between attempts.
	MaxBackoff time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxRetries < 1 {
		o.MaxRetries = 1
	}
	if o.BaseBackoff <= 0 {
		o.BaseBackoff = time.Second
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = 16 * time.Second
	}
	return o
}

// backoff returns the wait before retrying after the given zero-based attempt.
func (o Options) backoff(attempt int) time.Duration {
	if attempt >= 32 {
		return o.MaxBackoff
	}
	d := o.BaseBackoff << attempt
	if d <= 0 || d > o.MaxBackoff {
		return o.MaxBackoff
	}
	return d
}

// ParseConfig parses dsn and pins session settings the repositories rely on:
// timestamps are exchanged in UTC.
func ParseConfig(dsn string) (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.ConnConfig.RuntimeParams["application_name"] = ApplicationName
	cfg.ConnConfig.RuntimeParams["timezone"] = "UTC"
	return cfg, nil
}

// NewPool creates a PostgreSQL connection pool with retry logic.
// Retries with exponential backoff (1s, 2s, 4s, 8s, 16s by default).
func NewPool(ctx context.Context, dsn string, opts Options) (*pgxpool.Pool, error) {
	cfg, err := ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	for attempt := 0; attempt < opts.MaxRetries; attempt++ {
		var pool *pgxpool.Pool
		pool, err = pgxpool.NewWithConfig(ctx, cfg)
		if err == nil {
			pingErr := pool.Ping(ctx)
			if pingErr == nil {
				log.Info().Str("host", cfg.ConnConfig.Host).Msg("database connection established")
				return pool, nil
			}
			pool.Close()
			err = fmt.Errorf("ping failed: %w", pingErr)
		}

		if attempt == opts.MaxRetries-1 {
			break
		}

		wait := opts.backoff(attempt)
		log.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Int("max_retries", opts.MaxRetries).
			Dur("next_retry_in", wait).
			Msg("database connection failed, retrying")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("failed to connect after %d attempts: %w", opts.MaxRetries, ctxErr)
	}
	return nil, fmt.Errorf("failed to connect after %d attempts: %w", opts.MaxRetries, err)
}

// Open connects with NewPool and applies the embedded schema.
func Open(ctx context.Context, dsn string, opts Options) (*pgxpool.Pool, error) {
	pool, err := NewPool(ctx, dsn, opts)
	if err != nil {
		return nil, err
	}
	if err := EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	log.Info().Msg("database schema ensured")
	return pool, nil
}
