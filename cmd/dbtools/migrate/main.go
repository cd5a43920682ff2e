// cmd/dbtools/migrate/main.go
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/codr1/hostdash/internal/config"
	"github.com/codr1/hostdash/internal/db"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	var (
		configPath = flag.String("config", "", "Path to config.yaml (used when -db is empty)")
		dbPath     = flag.String("db", "", "Path to SQLite database")
		command    = flag.String("command", "", "Command to run (up, down, version, force)")
		version    = flag.Int("version", -1, "Version for the force command")
	)
	flag.Parse()

	path := *dbPath
	if path == "" && *configPath != "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load configuration")
		}
		path = cfg.Database.Filename
	}
	if path == "" || *command == "" {
		flag.Usage()
		os.Exit(1)
	}

	sqlDB, err := db.OpenRaw(path)
	if err != nil {
		log.Fatal().Err(err).Str("db", path).Msg("Failed to open database")
	}
	defer sqlDB.Close()

	m, err := db.NewMigrator(sqlDB)
	if err != nil {
		log.Fatal().Err(err).Msg("Migration init failed")
	}

	switch *command {
	case "up":
		if err := m.Up(); err != nil && err != migrate.ErrNoChange {
			log.Fatal().Err(err).Msg("Migration up failed")
		}
	case "down":
		if err := m.Down(); err != nil && err != migrate.ErrNoChange {
			log.Fatal().Err(err).Msg("Migration down failed")
		}
	case "force":
		if *version < 0 {
			log.Fatal().Msg("force requires -version")
		}
		if err := m.Force(*version); err != nil {
			log.Fatal().Err(err).Int("version", *version).Msg("Migration force failed")
		}
	case "version":
		v, dirty, err := m.Version()
		if err != nil && err != migrate.ErrNilVersion {
			log.Fatal().Err(err).Msg("Get version failed")
		}
		fmt.Printf("Version: %d, Dirty: %v\n", v, dirty)
		return
	default:
		log.Fatal().Str("command", *command).Msg("Unknown command")
	}
	log.Info().Str("command", *command).Str("db", path).Msg("Migration command completed")
}
