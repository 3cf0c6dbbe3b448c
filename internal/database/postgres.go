package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"demantive/internal/config"

	_ "github.com/lib/pq"
	"go.uber.org/fx"
)

// PostgresDB holds the relational store for tenants, connections and normalized CRM data.
type PostgresDB struct {
	DB *sql.DB
}

// NewPostgres opens the Postgres pool, applies the schema and closes the pool on shutdown.
func NewPostgres(lc fx.Lifecycle, cfg *config.Config) (*PostgresDB, error) {
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	if err := InitSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	log.Println("Connected to Postgres!")

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Println("Closing Postgres pool...")
			return db.Close()
		},
	})

	return &PostgresDB{DB: db}, nil
}

// Ping runs the same probe the health endpoint exposes.
func (p *PostgresDB) Ping(ctx context.Context) error {
	var one int
	return p.DB.QueryRowContext(ctx, "SELECT 1").Scan(&one)
}

// WithTx runs fn inside a transaction, rolling back when fn fails.
func (p *PostgresDB) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := p.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	return tx.Commit()
}
