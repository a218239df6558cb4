package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/pressly/goose/v3"
	gormlogger "gorm.io/gorm/logger"

	"github.com/denizblog/blog/internal/config"
	"github.com/denizblog/blog/internal/db"
	"github.com/denizblog/blog/internal/log"
)

var flags = flag.NewFlagSet("migrate", flag.ExitOnError)

func main() {
	flags.Parse(os.Args[1:])
	args := flags.Args()

	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: migrate COMMAND\n\nCommands:\n  up\n  down\n  status")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := log.NewSugar(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	database, err := db.Open(cfg.Database.Driver, cfg.Database.DSN, gormlogger.Silent)
	if err != nil {
		logger.Fatalw("Failed to connect to database", "error", err)
	}
	defer database.Close()

	if err := database.PrepareMigrations(logger); err != nil {
		logger.Fatalw("Failed to set dialect", "error", err)
	}

	ctx := context.Background()
	dir := database.MigrationDir()

	command := args[0]
	switch command {
	case "up":
		if err := goose.UpContext(ctx, database.SQL, dir); err != nil {
			logger.Fatalw("Migration up failed", "error", err)
		}
	case "down":
		if err := goose.DownContext(ctx, database.SQL, dir); err != nil {
			logger.Fatalw("Migration down failed", "error", err)
		}
	case "status":
		if err := goose.StatusContext(ctx, database.SQL, dir); err != nil {
			logger.Fatalw("Migration status failed", "error", err)
		}
	default:
		logger.Fatalw("Unknown command", "command", command)
	}
}
