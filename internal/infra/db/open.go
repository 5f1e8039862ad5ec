package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bryanwahyu/copyguard/internal/config"
	"github.com/bryanwahyu/copyguard/internal/infra/db/mysql"
	"github.com/bryanwahyu/copyguard/internal/infra/db/postgres"
	"github.com/bryanwahyu/copyguard/internal/infra/db/sqlite"
	"github.com/bryanwahyu/copyguard/internal/infra/db/sqlstore"
)

// Open connects to the configured database and wraps it in a Store.
func Open(ctx context.Context, cfg *config.Config) (*sqlstore.Store, error) {
	d, err := sqlstore.ParseDialect(cfg.Database.Driver)
	if err != nil {
		return nil, err
	}

	var conn *sql.DB
	switch d {
	case sqlstore.MySQL:
		conn, err = mysql.Connect(ctx, cfg.MySQLDSN())
	case sqlstore.Postgres:
		conn, err = postgres.Connect(ctx, cfg.PostgresDSN())
	case sqlstore.SQLite:
		conn, err = sqlite.Open(ctx, cfg.Database.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", d, err)
	}
	return sqlstore.New(conn, d), nil
}
