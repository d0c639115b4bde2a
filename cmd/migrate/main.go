package main

import (
	"flag"
	"os"

	"github.com/Iron-Cow/MonoProject/internal/logger"
	"github.com/Iron-Cow/MonoProject/internal/storage/postgres"
)

func main() {
	databaseURL := flag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string (or set DATABASE_URL env)")
	flag.Parse()

	log := logger.New()

	if *databaseURL == "" {
		log.Fatal().Msg("database URL is required")
	}

	if err := postgres.Migrate(*databaseURL); err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}

	log.Info().Msg("Migrations applied")
}
