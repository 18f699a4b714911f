package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MarcoPoloResearchLab/catalog-seeder/internal/cache"
	"github.com/MarcoPoloResearchLab/catalog-seeder/internal/config"
	"github.com/MarcoPoloResearchLab/catalog-seeder/internal/database"
	"github.com/MarcoPoloResearchLab/catalog-seeder/internal/logging"
	"github.com/MarcoPoloResearchLab/catalog-seeder/internal/mongostore"
	"github.com/MarcoPoloResearchLab/catalog-seeder/internal/pipeline"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile      string
	skipCache    bool
	errAuditFail = errors.New("audit found violations")
)

type seedStore interface {
	pipeline.Store
	Close() error
}

func main() {
	rootCmd := newRootCommand()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "catalog-seeder",
		Short:        "Seeds the library catalog store and availability cache",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
	}

	setupFlags(rootCmd)

	rootCmd.AddCommand(
		stageCommand("seed", "Run every stage in order, then audit", true, func(ctx context.Context, runner *pipeline.Runner) (pipeline.Report, error) {
			return runner.Seed(ctx)
		}),
		stageCommand("authors", "Resolve author identities and write authors and books", false, func(ctx context.Context, runner *pipeline.Runner) (pipeline.Report, error) {
			result, err := runner.Authors(ctx)
			return pipeline.Report{Authors: &result}, err
		}),
		stageCommand("branches", "Write branches and assign them to books", false, func(ctx context.Context, runner *pipeline.Runner) (pipeline.Report, error) {
			result, err := runner.Branches(ctx)
			return pipeline.Report{Branches: &result}, err
		}),
		stageCommand("activity", "Synthesize user readings and saved books", false, func(ctx context.Context, runner *pipeline.Runner) (pipeline.Report, error) {
			result, err := runner.Activity(ctx)
			return pipeline.Report{Activity: &result}, err
		}),
		stageCommand("availability", "Project copy counts into the cache", true, func(ctx context.Context, runner *pipeline.Runner) (pipeline.Report, error) {
			result, err := runner.Availability(ctx)
			return pipeline.Report{Availability: &result}, err
		}),
		newAuditCommand(),
	)
	return rootCmd
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-format", defaults.GetString("log.format"), "Log format (json, console)")
	cmd.PersistentFlags().String("store-driver", defaults.GetString("store.driver"), "Document store (sqlite, postgres, mysql, mongo)")
	cmd.PersistentFlags().String("sqlite-path", defaults.GetString("store.sqlite_path"), "SQLite database path")
	cmd.PersistentFlags().String("store-dsn", defaults.GetString("store.dsn"), "PostgreSQL or MySQL DSN")
	cmd.PersistentFlags().String("mongo-uri", defaults.GetString("mongo.uri"), "MongoDB connection URI")
	cmd.PersistentFlags().String("mongo-database", defaults.GetString("mongo.database"), "MongoDB database name")
	cmd.PersistentFlags().String("redis-address", defaults.GetString("redis.address"), "Redis address")
	cmd.PersistentFlags().Int("redis-db", defaults.GetInt("redis.db"), "Redis database index")
	cmd.PersistentFlags().String("books", defaults.GetString("dataset.books"), "Books JSON collection")
	cmd.PersistentFlags().String("branches", defaults.GetString("dataset.branches"), "Branches JSON collection")
	cmd.PersistentFlags().String("users", defaults.GetString("dataset.users"), "Users JSON collection")
	cmd.PersistentFlags().Uint64("seed", defaults.GetUint64("seed.random"), "Random seed, 0 derives one from the clock")

	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "log.format", "log-format")
	bindFlag(cmd, "store.driver", "store-driver")
	bindFlag(cmd, "store.sqlite_path", "sqlite-path")
	bindFlag(cmd, "store.dsn", "store-dsn")
	bindFlag(cmd, "mongo.uri", "mongo-uri")
	bindFlag(cmd, "mongo.database", "mongo-database")
	bindFlag(cmd, "redis.address", "redis-address")
	bindFlag(cmd, "redis.db", "redis-db")
	bindFlag(cmd, "dataset.books", "books")
	bindFlag(cmd, "dataset.branches", "branches")
	bindFlag(cmd, "dataset.users", "users")
	bindFlag(cmd, "seed.random", "seed")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

type stageFunc func(ctx context.Context, runner *pipeline.Runner) (pipeline.Report, error)

func stageCommand(use, short string, needsCache bool, stage stageFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunner(cmd.Context(), needsCache, func(ctx context.Context, runner *pipeline.Runner) error {
				report, err := stage(ctx, runner)
				if err != nil {
					return err
				}
				return writeReport(cmd.OutOrStdout(), report)
			})
		},
	}
}

func newAuditCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Check the store and cache for broken invariants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunner(cmd.Context(), !skipCache, func(ctx context.Context, runner *pipeline.Runner) error {
				report, err := runner.Audit(ctx)
				if err != nil {
					return err
				}
				return writeReport(cmd.OutOrStdout(), pipeline.Report{Audit: &report})
			})
		},
	}
	cmd.Flags().BoolVar(&skipCache, "skip-cache", false, "Audit the store only")
	return cmd
}

// writeReport prints the report and fails when it carries audit violations.
func writeReport(out io.Writer, report pipeline.Report) error {
	if err := report.WriteYAML(out); err != nil {
		return err
	}
	if report.Audit != nil && !report.Audit.OK() {
		return errAuditFail
	}
	return nil
}

func withRunner(ctx context.Context, needsCache bool, run func(context.Context, *pipeline.Runner) error) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel, appConfig.LogFormat)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(signalCtx, appConfig, logger)
	if err != nil {
		logger.Error("store open failed", zap.String("driver", appConfig.StoreDriver), zap.Error(err))
		return err
	}
	defer store.Close() //nolint:errcheck

	var availabilityCache pipeline.Cache
	if needsCache {
		redisCache, err := cache.NewRedisCache(signalCtx, cache.Config{
			Address:  appConfig.RedisAddress,
			Password: appConfig.RedisPassword,
			DB:       appConfig.RedisDB,
		}, logger)
		if err != nil {
			logger.Error("cache open failed", zap.String("address", appConfig.RedisAddress), zap.Error(err))
			return err
		}
		defer redisCache.Close() //nolint:errcheck
		availabilityCache = redisCache
	}

	seed := appConfig.RandomSeed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	runner, err := pipeline.NewRunner(pipeline.RunnerConfig{
		Store: store,
		Cache: availabilityCache,
		Sources: pipeline.Sources{
			Books:    appConfig.BooksPath,
			Branches: appConfig.BranchesPath,
			Users:    appConfig.UsersPath,
		},
		Seed:   seed,
		Logger: logger,
	})
	if err != nil {
		return err
	}
	return run(signalCtx, runner)
}

func openStore(ctx context.Context, appConfig config.AppConfig, logger *zap.Logger) (seedStore, error) {
	if appConfig.StoreDriver == config.DriverMongo {
		store, err := mongostore.Open(ctx, mongostore.Config{URI: appConfig.MongoURI, Database: appConfig.MongoDatabase}, logger)
		if err != nil {
			return nil, fmt.Errorf("open mongo store: %w", err)
		}
		return store, nil
	}
	store, err := database.Open(database.OpenConfig{
		Driver:     appConfig.StoreDriver,
		SQLitePath: appConfig.SQLitePath,
		DSN:        appConfig.StoreDSN,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", appConfig.StoreDriver, err)
	}
	return store, nil
}
