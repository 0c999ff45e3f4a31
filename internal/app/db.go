package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"

	"github.com/playpulse/playpulse/internal/config"
)

const (
	dbConnectTimeout  = 10 * time.Second
	dbMaxOpenConns    = 8
	dbConnMaxLifetime = 30 * time.Minute
)

// openAnalysisDB connects to postgres through the otel-instrumented sqlx
// wrapper so every archive query carries a span with the normalized statement.
func openAnalysisDB(ctx context.Context, cfg config.Config) (*sqlx.DB, error) {
	opts := []otelsql.Option{
		otelsql.WithDBSystem("postgresql"),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	}
	if name := dbNameFromURL(cfg.DBURL); name != "" {
		opts = append(opts, otelsql.WithDBName(name))
	}

	connectCtx, cancel := context.WithTimeout(ctx, dbConnectTimeout)
	defer cancel()

	db, err := otelsqlx.ConnectContext(connectCtx, "postgres", normalizeDBURL(cfg.DBURL, cfg.DBDisablePreparedBinary), opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to analysis database: %w", err)
	}

	db.SetMaxOpenConns(dbMaxOpenConns)
	db.SetMaxIdleConns(dbMaxOpenConns)
	db.SetConnMaxLifetime(dbConnMaxLifetime)

	return db, nil
}
