package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/olegbarsky/techstock-bot/pkg/config"
	"github.com/olegbarsky/techstock-bot/pkg/db"
	"github.com/olegbarsky/techstock-bot/pkg/logger"
	"github.com/olegbarsky/techstock-bot/pkg/migrate"
)

func main() {
	dir := flag.String("dir", migrate.DefaultDir, "migrations directory")
	toVersion := flag.String("to", "", "migrate up or down to this version")
	flag.Parse()

	command := flag.Arg(0)
	if command == "" && *toVersion == "" {
		fmt.Fprintln(os.Stderr, "usage: migrate [-dir path] [-to version] <up|down|status|version|redo> [args]")
		os.Exit(2)
	}

	_ = godotenv.Load()

	// Only the datasource slice of the configuration is needed here,
	// so bot-only required variables do not block migrations.
	var cfg struct {
		App          config.AppConfig
		DB           config.DBConfig
		FeatureFlags config.FeatureFlagsConfig
	}
	if err := envconfig.Process(config.EnvPrefix, &cfg); err != nil {
		fatal(err)
	}

	logg := logger.New(logger.Options{
		ServiceName: "techstock-migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
	})

	ctx := context.Background()
	client, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		fatal(err)
	}
	defer client.Close()

	sqlDB, err := client.DB().DB()
	if err != nil {
		fatal(err)
	}

	dialect := migrate.DialectPostgres
	if cfg.FeatureFlags.UseSQLite {
		dialect = migrate.DialectSQLite
	}

	if *toVersion != "" {
		if err := migrate.MigrateToVersion(ctx, sqlDB, *dir, dialect, *toVersion); err != nil {
			fatal(err)
		}
		return
	}
	if err := migrate.Run(ctx, sqlDB, *dir, dialect, command, flag.Args()[1:]...); err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
