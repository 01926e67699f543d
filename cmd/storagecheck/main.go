package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/echosys/storagecheck/configs"
	"github.com/echosys/storagecheck/internal/application/services"
	"github.com/echosys/storagecheck/internal/core/domain/probe"
	"github.com/echosys/storagecheck/internal/core/ports"
	"github.com/echosys/storagecheck/internal/infrastructure/db"
	infraRedis "github.com/echosys/storagecheck/internal/infrastructure/redis"
	"github.com/echosys/storagecheck/internal/infrastructure/repositories"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Load configuration
	cfg, err := configs.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Setup logger
	logger := logrus.New()
	if cfg.Log.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(level)
	}

	openStore := func(ctx context.Context) (ports.UserStore, error) {
		database, err := db.NewDatabase(&cfg.Database)
		if err != nil {
			return nil, err
		}
		return repositories.NewUserRepository(database, logger), nil
	}

	openCache := func(ctx context.Context) (ports.Cache, error) {
		client, err := infraRedis.NewRedisClient(&cfg.Redis)
		if err != nil {
			return nil, err
		}
		return infraRedis.NewRedisCache(client, ""), nil
	}

	// Optionally bootstrap the schema before probing
	if cfg.Check.RunMigrations {
		if database, err := db.NewDatabase(&cfg.Database); err != nil {
			logger.Warn("Failed to connect for migrations:", err)
		} else {
			if err := database.Migrate(cfg.Check.MigrationsPath); err != nil {
				logger.Warn("Failed to run migrations:", err)
			}
			database.Close()
		}
	}

	fmt.Println("🚀 Running storage connectivity checks...")
	fmt.Println()

	checker := services.NewCheckerService(openStore, openCache, logger)
	report := checker.Run(context.Background())

	for _, res := range report {
		fmt.Println(formatResult(res))
	}

	fmt.Println()
	fmt.Println("==================================================")
	fmt.Println("📊 Check summary:")
	for _, res := range report {
		fmt.Printf("  %s: %s\n", res.Name, statusGlyph(res.Passed))
	}

	if !report.Passed() {
		fmt.Println()
		fmt.Println("⚠️  Some checks failed, inspect the services above.")
		return 1
	}

	fmt.Println()
	fmt.Println("🎉 All storage checks passed.")
	return 0
}

func formatResult(res probe.Result) string {
	return fmt.Sprintf("%s %s (%s): %s", statusGlyph(res.Passed), res.Name, res.Elapsed.Round(time.Millisecond), res.Detail)
}

func statusGlyph(passed bool) string {
	if passed {
		return "✅"
	}
	return "❌"
}
