// Package config provides Viper-based configuration loading for the battle server.
package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	// Enabled turns player persistence on. When false players start fresh
	// from the player template on every join.
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	// HealthInterval is how often the running server checks that the
	// database answers and the players schema is present.
	HealthInterval time.Duration `mapstructure:"health_interval"`
	// MigrationsDir holds the golang-migrate SQL files.
	MigrationsDir string `mapstructure:"migrations_dir"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// GameServerConfig holds game server gRPC settings.
type GameServerConfig struct {
	// GRPCHost is the bind address for the gRPC service.
	GRPCHost string `mapstructure:"grpc_host"`
	// GRPCPort is the TCP port for the gRPC service.
	GRPCPort int `mapstructure:"grpc_port"`
	// TickInterval is how often respawns and autosaves are checked.
	TickInterval time.Duration `mapstructure:"tick_interval"`
	// AutosaveInterval is how often connected players are persisted. Zero disables autosave.
	AutosaveInterval time.Duration `mapstructure:"autosave_interval"`
}

// Addr returns the "host:port" gRPC address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (g GameServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", g.GRPCHost, g.GRPCPort)
}

// BattleConfig holds battle engine policy.
type BattleConfig struct {
	// InitiatorBonus is added to the initiator's seeded speed at battle start.
	InitiatorBonus float64 `mapstructure:"initiator_bonus"`
	// MaxEat caps the units consumed by one eat command.
	MaxEat int `mapstructure:"max_eat"`
	// ExchangeLimit caps the automatic steps run after one command.
	ExchangeLimit int `mapstructure:"exchange_limit"`
	// Seed seeds the shared random source; zero selects a crypto source.
	Seed uint64 `mapstructure:"seed"`
}

// ContentConfig locates the game data files.
type ContentConfig struct {
	GamedataFile   string `mapstructure:"gamedata_file"`
	ItemsDir       string `mapstructure:"items_dir"`
	AbilitiesDir   string `mapstructure:"abilities_dir"`
	MobsDir        string `mapstructure:"mobs_dir"`
	ScriptsDir     string `mapstructure:"scripts_dir"`
	PlayerTemplate string `mapstructure:"player_template"`
	// ScriptInstructionLimit caps opcodes per Lua call; zero uses the default.
	ScriptInstructionLimit int `mapstructure:"script_instruction_limit"`
}

// Config is the top-level application configuration.
type Config struct {
	Database   DatabaseConfig   `mapstructure:"database"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	GameServer GameServerConfig `mapstructure:"gameserver"`
	Battle     BattleConfig     `mapstructure:"battle"`
	Content    ContentConfig    `mapstructure:"content"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if c.Database.Enabled {
		if err := validateDatabase(c.Database); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateGameServer(c.GameServer); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateBattle(c.Battle); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateContent(c.Content); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if d.HealthInterval <= 0 {
		errs = append(errs, fmt.Sprintf("database.health_interval must be > 0, got %s", d.HealthInterval))
	}
	if d.MigrationsDir == "" {
		errs = append(errs, "database.migrations_dir must not be empty")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateGameServer(g GameServerConfig) error {
	var errs []string
	if g.GRPCHost == "" {
		errs = append(errs, "gameserver.grpc_host must not be empty")
	}
	if g.GRPCPort < 0 || g.GRPCPort > 65535 {
		errs = append(errs, fmt.Sprintf("gameserver.grpc_port must be 0-65535, got %d", g.GRPCPort))
	}
	if g.TickInterval <= 0 {
		errs = append(errs, fmt.Sprintf("gameserver.tick_interval must be > 0, got %s", g.TickInterval))
	}
	if g.AutosaveInterval < 0 {
		errs = append(errs, "gameserver.autosave_interval must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateBattle(b BattleConfig) error {
	var errs []string
	if b.InitiatorBonus < 0 {
		errs = append(errs, fmt.Sprintf("battle.initiator_bonus must be >= 0, got %v", b.InitiatorBonus))
	}
	if b.MaxEat < 1 {
		errs = append(errs, fmt.Sprintf("battle.max_eat must be >= 1, got %d", b.MaxEat))
	}
	if b.ExchangeLimit < 1 {
		errs = append(errs, fmt.Sprintf("battle.exchange_limit must be >= 1, got %d", b.ExchangeLimit))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateContent(c ContentConfig) error {
	var errs []string
	for key, v := range map[string]string{
		"content.gamedata_file":   c.GamedataFile,
		"content.items_dir":       c.ItemsDir,
		"content.abilities_dir":   c.AbilitiesDir,
		"content.mobs_dir":        c.MobsDir,
		"content.player_template": c.PlayerTemplate,
	} {
		if v == "" {
			errs = append(errs, key+" must not be empty")
		}
	}
	if c.ScriptInstructionLimit < 0 {
		errs = append(errs, "content.script_instruction_limit must not be negative")
	}
	if len(errs) > 0 {
		sort.Strings(errs)
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with SKIRMISH_ prefix
	v.SetEnvPrefix("SKIRMISH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Defaults returns a Viper instance holding only the default values.
func Defaults() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "skirmish")
	v.SetDefault("database.password", "skirmish")
	v.SetDefault("database.name", "skirmish")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.health_interval", "30s")
	v.SetDefault("database.migrations_dir", "migrations")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("gameserver.grpc_host", "127.0.0.1")
	v.SetDefault("gameserver.grpc_port", 50051)
	v.SetDefault("gameserver.tick_interval", "1s")
	v.SetDefault("gameserver.autosave_interval", "5m")

	v.SetDefault("battle.initiator_bonus", 0)
	v.SetDefault("battle.max_eat", 10)
	v.SetDefault("battle.exchange_limit", 100)
	v.SetDefault("battle.seed", 0)

	v.SetDefault("content.gamedata_file", "content/gamedata.yaml")
	v.SetDefault("content.items_dir", "content/items")
	v.SetDefault("content.abilities_dir", "content/abilities")
	v.SetDefault("content.mobs_dir", "content/mobs")
	v.SetDefault("content.scripts_dir", "content/scripts")
	v.SetDefault("content.player_template", "content/player.yaml")
	v.SetDefault("content.script_instruction_limit", 0)
}
