package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"jetstore/internal/config"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

var log = config.InitLogger()

var ErrDisabled = errors.New("postgres is disabled")

// Postgres is the process-wide pool handle. It is opened once in main, injected into
// every repository and closed once at shutdown. A handle built by Disabled has no pool:
// repositories then serve defaults for reads and refuse mutations.
type Postgres struct {
	Db             *sqlx.DB
	commandTimeout time.Duration
}

func NewPostgres(cfg *config.PostgresConfig) (*Postgres, error) {
	dsn := cfg.DSN()
	if dsn == "" {
		return nil, errors.New("DATABASE_URL or DB_HOST is not set")
	}

	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		log.Error("Failed to open database: ", err)
		return nil, err
	}
	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetMaxIdleConns(1)
	db.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.CommandTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		log.Error("Failed to ping database: ", err)
		_ = db.Close()
		return nil, err
	}

	return &Postgres{
		Db:             db,
		commandTimeout: cfg.CommandTimeout,
	}, nil
}

func Disabled() *Postgres {
	return &Postgres{commandTimeout: config.DefaultCommandTimeout}
}

// Open connects and migrates, degrading to the disabled handle when the store is
// unreachable. The warning is logged here once instead of on every call.
func Open(cfg *config.PostgresConfig) *Postgres {
	psql, err := NewPostgres(cfg)
	if err != nil {
		log.Warn("PostgreSQL is unavailable, balances and referrals are disabled: ", err)
		return Disabled()
	}
	if err := Migrate(cfg.DSN()); err != nil {
		log.Warn("PostgreSQL migration failed, balances and referrals are disabled: ", err)
		_ = psql.Close()
		return Disabled()
	}
	log.Infoln("PostgreSQL connected")
	return psql
}

func (p *Postgres) Available() bool {
	return p != nil && p.Db != nil
}

func (p *Postgres) CommandTimeout() time.Duration {
	if p == nil || p.commandTimeout <= 0 {
		return config.DefaultCommandTimeout
	}
	return p.commandTimeout
}

func (p *Postgres) Close() error {
	if !p.Available() {
		return nil
	}
	err := p.Db.Close()
	if err != nil {
		log.Error("Error closing database: ", err)
		return err
	}
	p.Db = nil
	log.Infoln("PostgreSQL disconnected")
	return nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	if !p.Available() {
		return ErrDisabled
	}
	return p.Db.PingContext(ctx)
}

// InTx runs fn inside one transaction. It commits when fn returns nil and rolls back
// otherwise, so callers needing joint atomicity across tables get all-or-nothing.
func (p *Postgres) InTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	if !p.Available() {
		return ErrDisabled
	}

	tx, err := p.Db.BeginTxx(ctx, nil)
	if err != nil {
		log.Error("Failed to begin transaction: ", err)
		return err
	}

	if err := fn(tx); err != nil {
		if er := tx.Rollback(); er != nil {
			log.Error("Failed to rollback transaction: ", er)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		log.Error("Failed to commit transaction: ", err)
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
