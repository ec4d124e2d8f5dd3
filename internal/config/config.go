// Package config provides Viper-based configuration loading for the spellcaster binary.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/cory-johannsen/spelledmobs/internal/game/ability"
)

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// EngineConfig holds ability engine settings.
type EngineConfig struct {
	// CatalogDir holds one ability record per .yaml, .yml, or .json file.
	CatalogDir string `mapstructure:"catalog_dir"`
	// DefaultNamespace qualifies ability ids written without one.
	DefaultNamespace string        `mapstructure:"default_namespace"`
	SearchRadius     float64       `mapstructure:"search_radius"`
	MaxLevel         int           `mapstructure:"max_level"`
	TickInterval     time.Duration `mapstructure:"tick_interval"`
	DebugLogging     bool          `mapstructure:"debug_logging"`
	ShowEffects      bool          `mapstructure:"show_effects"`
	// Seed selects a deterministic random source; 0 uses crypto/rand.
	Seed uint64 `mapstructure:"seed"`
	// ScriptDir holds Lua condition hooks; empty disables script conditions.
	ScriptDir string `mapstructure:"script_dir"`
	// InstructionLimit caps Lua opcodes per hook call; 0 uses the scripting default.
	InstructionLimit int `mapstructure:"instruction_limit"`
}

// SimulationConfig holds settings for the in-memory reference world.
type SimulationConfig struct {
	PopulationFile string `mapstructure:"population_file"`
	// StartTimeOfDay is the clock value at startup, in [0, 24000).
	StartTimeOfDay int64  `mapstructure:"start_time_of_day"`
	Weather        string `mapstructure:"weather"`
}

// Config is the top-level application configuration.
type Config struct {
	Logging    LoggingConfig    `mapstructure:"logging"`
	Engine     EngineConfig     `mapstructure:"engine"`
	Simulation SimulationConfig `mapstructure:"simulation"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateEngine(c.Engine); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateSimulation(c.Simulation); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
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

func validateEngine(e EngineConfig) error {
	var errs []string
	if e.CatalogDir == "" {
		errs = append(errs, "engine.catalog_dir must not be empty")
	}
	if e.DefaultNamespace == "" || strings.Contains(e.DefaultNamespace, ":") ||
		ability.ValidateID(e.DefaultNamespace+":probe") != nil {
		errs = append(errs, fmt.Sprintf("engine.default_namespace must be a bare identifier, got %q", e.DefaultNamespace))
	}
	if e.SearchRadius <= 0 {
		errs = append(errs, fmt.Sprintf("engine.search_radius must be > 0, got %v", e.SearchRadius))
	}
	if e.MaxLevel < 1 {
		errs = append(errs, fmt.Sprintf("engine.max_level must be >= 1, got %d", e.MaxLevel))
	}
	if e.TickInterval <= 0 {
		errs = append(errs, fmt.Sprintf("engine.tick_interval must be > 0, got %s", e.TickInterval))
	}
	if e.InstructionLimit < 0 {
		errs = append(errs, fmt.Sprintf("engine.instruction_limit must be >= 0, got %d", e.InstructionLimit))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateSimulation(s SimulationConfig) error {
	var errs []string
	if s.PopulationFile == "" {
		errs = append(errs, "simulation.population_file must not be empty")
	}
	if s.StartTimeOfDay < 0 || s.StartTimeOfDay >= 24000 {
		errs = append(errs, fmt.Sprintf("simulation.start_time_of_day must be in [0, 24000), got %d", s.StartTimeOfDay))
	}
	validWeather := map[string]bool{"clear": true, "rain": true, "thunder": true, "storm": true}
	if !validWeather[strings.ToLower(s.Weather)] {
		errs = append(errs, fmt.Sprintf("simulation.weather must be one of [clear, rain, thunder], got %q", s.Weather))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result. An empty path loads defaults and
// environment overrides only.
//
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()

	// Environment variable overrides with SPELLCAST_ prefix
	v.SetEnvPrefix("SPELLCAST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
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
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("engine.catalog_dir", "content/abilities")
	v.SetDefault("engine.default_namespace", "spelledmobs")
	v.SetDefault("engine.search_radius", 16.0)
	v.SetDefault("engine.max_level", 10)
	v.SetDefault("engine.tick_interval", "50ms")
	v.SetDefault("engine.debug_logging", false)
	v.SetDefault("engine.show_effects", false)
	v.SetDefault("engine.seed", 0)
	v.SetDefault("engine.script_dir", "")
	v.SetDefault("engine.instruction_limit", 0)

	v.SetDefault("simulation.population_file", "content/population.yaml")
	v.SetDefault("simulation.start_time_of_day", 0)
	v.SetDefault("simulation.weather", "clear")
}
