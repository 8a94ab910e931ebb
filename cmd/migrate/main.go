package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/angelmondragon/baystatus/internal/catalog"
	"github.com/angelmondragon/baystatus/pkg/config"
	"github.com/angelmondragon/baystatus/pkg/db"
	"github.com/angelmondragon/baystatus/pkg/logger"
	"github.com/angelmondragon/baystatus/pkg/enums"
	"github.com/angelmondragon/baystatus/pkg/migrate"
	"github.com/angelmondragon/baystatus/pkg/redis"
	"github.com/joho/godotenv"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "migrate"})

	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", "migration command: up|down|status|version|create|validate|automigrate|seed")
	dir := flag.String("dir", "", "goose migrations directory (default: embedded; create writes to "+migrate.DefaultDir+")")

	name := flag.String("name", "", "migration name (for create)")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	seedFile := flag.String("file", "", "catalog snapshot JSON (for seed)")

	flag.Parse()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx = logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": *cmd,
		"dir": *dir,
	})

	switch *cmd {
	case "create":
		if *name == "" {
			fmt.Fprintln(os.Stderr, "missing -name for create")
			os.Exit(1)
		}
		logg.Info(ctx, "migrate ready")
		target := *dir
		if target == "" {
			target = migrate.DefaultDir
		}
		path, err := migrate.CreateSQLMigration(target, *name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create migration: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("created migration:", path)
		return

	case "validate":
		logg.Info(ctx, "migrate ready")
		if err := migrate.ValidateDir(*dir); err != nil {
			fmt.Fprintf(os.Stderr, "migration validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("migration validation passed")
		return
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	if *cmd == "seed" {
		if *seedFile == "" {
			fmt.Fprintln(os.Stderr, "missing -file for seed")
			os.Exit(1)
		}
		evict, closeCache := cacheEvictor(ctx, cfg, logg)
		defer closeCache()
		count, err := seedCatalog(ctx, catalog.NewRepository(dbClient.DB()), *seedFile, evict)
		if err != nil {
			fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("seeded %d part groups\n", count)
		return
	}

	if *cmd == "automigrate" {
		if err := migrate.AutoMigrateModels(ctx, dbClient); err != nil {
			fmt.Fprintf(os.Stderr, "automigrate failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("catalog models migrated")
		return
	}
	if dbClient.Driver() != db.DriverPostgres {
		fmt.Fprintf(os.Stderr, "goose migrations target postgres; use -cmd=automigrate for %s\n", dbClient.Driver())
		os.Exit(1)
	}

	sqlDB, err := dbClient.DB().DB()
	requireResource(ctx, logg, "sql database", err)

	logg.Info(ctx, "migrate ready")

	switch *cmd {
	case "up", "down", "status":
		if err := migrate.Run(ctx, sqlDB, *dir, *cmd); err != nil {
			fmt.Fprintf(os.Stderr, "goose %s failed: %v\n", *cmd, err)
			os.Exit(1)
		}

	case "version":
		if *version == "" {
			fmt.Fprintln(os.Stderr, "missing -version for version command")
			os.Exit(1)
		}
		if err := migrate.MigrateToVersion(ctx, sqlDB, *dir, *version); err != nil {
			fmt.Fprintf(os.Stderr, "goose version migrate failed: %v\n", err)
			os.Exit(1)
		}

	default:
		fmt.Fprintln(os.Stderr, "unknown -cmd value:", *cmd)
		os.Exit(1)
	}
}

// cacheEvictor drops cached parts for seeded groups when Redis is configured.
// Eviction failures only warn since cache entries expire on their own.
func cacheEvictor(ctx context.Context, cfg *config.Config, logg *logger.Logger) (evictFunc, func()) {
	noop := func() {}
	if !cfg.Redis.Enabled() {
		return nil, noop
	}
	client, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.WarnErr(ctx, "redis unavailable, cached parts will expire by ttl", err)
		return nil, noop
	}
	evict := func(ctx context.Context, id int, partType enums.PartType) {
		if err := catalog.InvalidateParts(ctx, client, strconv.Itoa(id), partType); err != nil {
			logg.WarnErr(logg.WithField(ctx, "vehicle_to_engine_config_id", id), "evict cached parts failed", err)
		}
	}
	return evict, func() { _ = client.Close() }
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
