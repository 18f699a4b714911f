package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	envPrefix            = "CATALOG_SEEDER"
	defaultLogLevel      = "info"
	defaultLogFormat     = "json"
	defaultStoreDriver   = "sqlite"
	defaultSQLitePath    = "catalog.db"
	defaultMongoURI      = "mongodb://localhost:27017/"
	defaultMongoDatabase = "library"
	defaultRedisAddress  = "127.0.0.1:6379"
	defaultBooksPath     = "datasets/final_dataset.json"
	defaultBranchesPath  = "datasets/branches_dataset.json"
	defaultUsersPath     = "datasets/users_dataset.json"

	// DriverMongo selects the MongoDB document store; every other driver is gorm-backed.
	DriverMongo = "mongo"
)

var knownDrivers = map[string]struct{}{
	"sqlite":    {},
	"postgres":  {},
	"mysql":     {},
	DriverMongo: {},
}

// AppConfig captures runtime configuration for the seeder.
type AppConfig struct {
	LogLevel      string
	LogFormat     string
	StoreDriver   string
	SQLitePath    string
	StoreDSN      string
	MongoURI      string
	MongoDatabase string
	RedisAddress  string
	RedisPassword string
	RedisDB       int
	BooksPath     string
	BranchesPath  string
	UsersPath     string
	RandomSeed    uint64
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("log.format", defaultLogFormat)
	configViper.SetDefault("store.driver", defaultStoreDriver)
	configViper.SetDefault("store.sqlite_path", defaultSQLitePath)
	configViper.SetDefault("store.dsn", "")
	configViper.SetDefault("mongo.uri", defaultMongoURI)
	configViper.SetDefault("mongo.database", defaultMongoDatabase)
	configViper.SetDefault("redis.address", defaultRedisAddress)
	configViper.SetDefault("redis.password", "")
	configViper.SetDefault("redis.db", 0)
	configViper.SetDefault("dataset.books", defaultBooksPath)
	configViper.SetDefault("dataset.branches", defaultBranchesPath)
	configViper.SetDefault("dataset.users", defaultUsersPath)
	configViper.SetDefault("seed.random", 0)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		LogLevel:      configViper.GetString("log.level"),
		LogFormat:     configViper.GetString("log.format"),
		StoreDriver:   strings.ToLower(strings.TrimSpace(configViper.GetString("store.driver"))),
		SQLitePath:    configViper.GetString("store.sqlite_path"),
		StoreDSN:      configViper.GetString("store.dsn"),
		MongoURI:      configViper.GetString("mongo.uri"),
		MongoDatabase: configViper.GetString("mongo.database"),
		RedisAddress:  configViper.GetString("redis.address"),
		RedisPassword: configViper.GetString("redis.password"),
		RedisDB:       configViper.GetInt("redis.db"),
		BooksPath:     configViper.GetString("dataset.books"),
		BranchesPath:  configViper.GetString("dataset.branches"),
		UsersPath:     configViper.GetString("dataset.users"),
		RandomSeed:    configViper.GetUint64("seed.random"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if _, ok := knownDrivers[c.StoreDriver]; !ok {
		return fmt.Errorf("store.driver %q is not one of sqlite, postgres, mysql, mongo", c.StoreDriver)
	}
	switch c.StoreDriver {
	case "sqlite":
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("store.sqlite_path is required")
		}
	case DriverMongo:
		if strings.TrimSpace(c.MongoURI) == "" {
			return fmt.Errorf("mongo.uri is required")
		}
		if strings.TrimSpace(c.MongoDatabase) == "" {
			return fmt.Errorf("mongo.database is required")
		}
	default:
		if strings.TrimSpace(c.StoreDSN) == "" {
			return fmt.Errorf("store.dsn is required for %s", c.StoreDriver)
		}
	}
	if strings.TrimSpace(c.RedisAddress) == "" {
		return fmt.Errorf("redis.address is required")
	}
	if strings.TrimSpace(c.BooksPath) == "" {
		return fmt.Errorf("dataset.books is required")
	}
	if strings.TrimSpace(c.BranchesPath) == "" {
		return fmt.Errorf("dataset.branches is required")
	}
	if strings.TrimSpace(c.UsersPath) == "" {
		return fmt.Errorf("dataset.users is required")
	}
	return nil
}
