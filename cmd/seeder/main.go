//cmd/seeder/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/unclebandit/voicecampaign-backend/internal/config"
	"github.com/unclebandit/voicecampaign-backend/internal/db"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx := context.Background()
	conn, err := db.Open(ctx, cfg.DSN(), logger)
	if err != nil {
		logger.Fatal("failed to connect to DB", zap.Error(err))
	}
	defer conn.Close()

	if err := db.ApplyMigrations(ctx, conn, cfg.MigrationsDir, logger); err != nil {
		logger.Fatal("failed to apply migrations", zap.Error(err))
	}

	seedDir := "db/seed"
	if len(os.Args) > 1 {
		seedDir = os.Args[1]
	}
	seedFiles := []string{
		filepath.Join(seedDir, "tenant_credentials.sql"),
		filepath.Join(seedDir, "campaigns.sql"),
	}

	for _, file := range seedFiles {
		content, err := os.ReadFile(file)
		if err != nil {
			logger.Fatal("failed to read seed file", zap.String("file", file), zap.Error(err))
		}

		if _, err := conn.ExecContext(ctx, string(content)); err != nil {
			logger.Fatal("failed to execute seed file", zap.String("file", file), zap.Error(err))
		}
		fmt.Printf("Seeded: %s\n", file)
	}

	fmt.Println("Database seeding completed successfully!")
}
