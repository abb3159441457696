package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/apex/log"
	"github.com/apex/log/handlers/text"
	"github.com/jackc/pgx/v5"

	"github.com/crcsteel/Fire-Extinguisher-Inspection-System/internal/config"
)

func main() {
	configPath := flag.String("config", "", "optional config file")
	dir := flag.String("dir", "migrations", "directory holding *.up.sql files")
	flag.Parse()
	log.SetHandler(text.New(os.Stderr))

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Fatal("loading config")
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	ctx := context.Background()
	conn, err := pgx.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("unable to connect to database")
	}
	defer conn.Close(ctx)

	files, err := filepath.Glob(filepath.Join(*dir, "*.up.sql"))
	if err != nil {
		log.WithError(err).Fatal("failed to glob migrations")
	}
	sort.Strings(files)

	for _, file := range files {
		logger := log.WithField("file", file)
		logger.Info("applying migration")
		content, err := os.ReadFile(file)
		if err != nil {
			logger.WithError(err).Fatal("failed to read migration")
		}

		if _, err := conn.Exec(ctx, string(content)); err != nil {
			if strings.Contains(err.Error(), "already exists") {
				logger.WithError(err).Warn("migration already applied, skipping")
				continue
			}
			logger.WithError(err).Fatal("failed to execute migration")
		}
	}

	log.WithField("count", len(files)).Info("migrations applied")
}
