package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v4/stdlib"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/yuzvak/pdv-service/internal/config"
)

const (
	DriverPQ  = "postgres"
	DriverPGX = "pgx"
)

type Connection struct {
	db *sql.DB
}

// NewConnection opens the pool for the configured driver and verifies it
// with a ping bounded by ctx.
func NewConnection(ctx context.Context, cfg config.DatabaseConfig) (*Connection, error) {
	driver, dsn, err := dataSource(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime.Duration)
	db.SetConnMaxIdleTime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "ping database")
	}

	return &Connection{db: db}, nil
}

// dataSource picks the connection string form each driver parses: lib/pq
// takes key=value conninfo, pgx takes the URL.
func dataSource(cfg config.DatabaseConfig) (driver, dsn string, err error) {
	switch cfg.Driver {
	case "", DriverPQ:
		return DriverPQ, cfg.GetDSN(), nil
	case DriverPGX:
		return DriverPGX, cfg.GetURL(), nil
	default:
		return "", "", fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func NewConnectionFromDB(db *sql.DB) *Connection {
	return &Connection{db: db}
}

func (c *Connection) Close() error {
	return c.db.Close()
}

func (c *Connection) GetDB() *sql.DB {
	return c.db
}

func (c *Connection) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *Connection) Version(ctx context.Context) (string, error) {
	var version string
	if err := c.db.QueryRowContext(ctx, "SELECT version()").Scan(&version); err != nil {
		return "", errors.Wrap(err, "query server version")
	}
	return version, nil
}
