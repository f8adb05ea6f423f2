package main

import (
	"context"
	"flag"
	"log"

	"blockdocs/internal/config"
	"blockdocs/internal/repository/postgres"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	direction := flag.String("direction", "up", "migration direction: up or down")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, closeLog, err := config.NewLogger(cfg, "migrate")
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer closeLog()

	pool, err := postgres.CreateConnectionPool(context.Background(), cfg.DatabaseURL, postgres.PoolConfig{
		MaxConns: 2,
		MinConns: 1,
	})
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()

	tables := postgres.NewTableNames(cfg.TablePrefix)
	if err := postgres.RunMigrations(pool, tables, postgres.MigrateDirection(*direction), logger); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
}
