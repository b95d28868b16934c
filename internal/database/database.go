package database

import (
	"context"
	"log"
	"time"

	"podsync-backend/internal/config"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens the PostgreSQL pool and verifies the connection. Exits the
// process on failure; the server cannot run without its database.
func Connect(cfg *config.Config) *pgxpool.Pool {
	poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		log.Fatalf("[Database] Invalid database URL: %v", err)
	}
	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		log.Fatalf("[Database] Failed to create connection pool: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("[Database] Failed to reach database: %v", err)
	}

	log.Printf("[Database] Connected to %s", poolCfg.ConnConfig.Host)
	return pool
}
