package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	// registers the "pgx" database/sql driver
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/phrazzld/apiview/internal/redact"
)

// DriverName is the database/sql driver registered by pgx.
const DriverName = "pgx"

// Open connects to dsn, configures the pool and pings the server.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database url is empty")
	}
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %s", redact.Error(err))
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %s", redact.Error(err))
	}

	logger.Info("database connection established", slog.String("url", redact.String(dsn)))
	return db, nil
}
