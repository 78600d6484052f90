// Command migrate applies or rolls back the orders schema.
//
//	migrate up
//	migrate down [steps]
//	migrate version
package main

import (
	"database/sql"
	"fmt"
	"os"
	"strconv"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/tm-acme-shop/clubhouse-orders-service/internal/config"
	"github.com/tm-acme-shop/clubhouse-orders-service/internal/logging"
	"github.com/tm-acme-shop/clubhouse-orders-service/internal/migrations"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: migrate up | down [steps] | version")
		os.Exit(2)
	}

	cfg := config.Load()
	logging.Init(cfg.Env)
	defer logging.Sync()
	logger := logging.Named("migrate")

	db, err := sql.Open("postgres", cfg.Database.ConnectionString())
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close()

	switch os.Args[1] {
	case "up":
		err = migrations.Up(db, logger)
	case "down":
		steps := 1
		if len(os.Args) > 2 {
			if steps, err = strconv.Atoi(os.Args[2]); err != nil || steps < 1 {
				logger.Fatal("steps must be a positive number", zap.String("steps", os.Args[2]))
			}
		}
		err = migrations.Down(db, steps, logger)
	case "version":
		var (
			v     uint
			dirty bool
		)
		if v, dirty, err = migrations.Version(db); err == nil {
			logger.Info("schema version", zap.Uint("version", v), zap.Bool("dirty", dirty))
		}
	default:
		logger.Fatal("unknown command", zap.String("command", os.Args[1]))
	}

	if err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}
}
