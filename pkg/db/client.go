// Package db opens the relational store behind votes, the waitlist, and
// orders: Postgres in deployed environments, a SQLite file locally.
package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/wecr8/damp-backend/pkg/config"
	"github.com/wecr8/damp-backend/pkg/logger"
)

const (
	slowQuery      = 500 * time.Millisecond
	connectTimeout = 5 * time.Second
)

type Client struct {
	conn *gorm.DB
}

// New opens the pool and pings it before returning.
func New(ctx context.Context, cfg config.DBConfig, useSQLite bool, logg *logger.Logger) (*Client, error) {
	dialector, err := dialectorFor(cfg, useSQLite)
	if err != nil {
		return nil, err
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 &queryLogger{logg: logg, slow: slowQuery},
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialector.Name(), err)
	}

	pool, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("unwrap pool: %w", err)
	}
	// zero values keep database/sql defaults
	if cfg.MaxOpenConns > 0 {
		pool.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		pool.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	pool.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	pool.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	client := &Client{conn: conn}
	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("ping %s: %w", dialector.Name(), err)
	}

	logg.Info(logg.WithField(ctx, "dialect", dialector.Name()), "database ready")
	return client, nil
}

func dialectorFor(cfg config.DBConfig, useSQLite bool) (gorm.Dialector, error) {
	if useSQLite {
		path := cfg.SQLitePath
		if path == "" {
			path = "damp.db"
		}
		return sqlite.Open(path), nil
	}
	if cfg.DSN == "" {
		return nil, errors.New("db: DSN is required for postgres")
	}
	// simple protocol keeps pgx usable behind pgbouncer in transaction mode
	return postgres.New(postgres.Config{DSN: cfg.DSN, PreferSimpleProtocol: true}), nil
}

// Dialect is "postgres" or "sqlite"; empty on a nil client.
func (c *Client) Dialect() string {
	if c == nil || c.conn == nil {
		return ""
	}
	return c.conn.Dialector.Name()
}

func (c *Client) DB() *gorm.DB {
	return c.conn
}

func (c *Client) Ping(ctx context.Context) error {
	pool, err := c.conn.DB()
	if err != nil {
		return err
	}
	return pool.PingContext(ctx)
}

func (c *Client) Close() error {
	pool, err := c.conn.DB()
	if err != nil {
		return err
	}
	return pool.Close()
}

// IsNotFound reports gorm's record-not-found sentinel anywhere in err.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
