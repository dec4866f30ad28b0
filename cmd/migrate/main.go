// cmd/migrate runs schema maintenance outside the API process.
package main

import (
	"flag"
	"log"

	"github.com/your-org/storefront/internal/config"
	"github.com/your-org/storefront/internal/infrastructure/database/postgres"
	"github.com/your-org/storefront/internal/pkg/logger"
)

func main() {
	reset := flag.Bool("reset", false, "drop every table before migrating")
	seed := flag.Bool("seed", false, "insert the demo catalog and accounts")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logg := logger.New(cfg)

	if *reset && cfg.IsProduction() {
		logg.Fatal("Refusing to drop tables in production")
	}

	db, err := postgres.NewConnection(cfg, logg)
	if err != nil {
		logg.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	m := postgres.NewMigration(db.GetDB(), logg)
	if *reset {
		if err := m.DropAllTables(); err != nil {
			logg.WithError(err).Fatal("Failed to drop tables")
		}
	}
	if err := m.RunAutoMigrations(); err != nil {
		logg.WithError(err).Fatal("Database migration failed")
	}
	if err := m.CreateIndexes(); err != nil {
		logg.WithError(err).Warn("Index creation failed")
	}
	if *seed {
		if err := m.SeedInitialData(); err != nil {
			logg.WithError(err).Fatal("Data seeding failed")
		}
	}
	if err := m.GetTableInfo(); err != nil {
		logg.WithError(err).Warn("Failed to read table info")
	}
}
