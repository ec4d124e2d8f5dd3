package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func validConfig() Config {
	return Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Engine: EngineConfig{
			CatalogDir:       "content/abilities",
			DefaultNamespace: "spelledmobs",
			SearchRadius:     16,
			MaxLevel:         10,
			TickInterval:     50 * time.Millisecond,
		},
		Simulation: SimulationConfig{
			PopulationFile: "content/population.yaml",
			Weather:        "clear",
		},
	}
}

func TestValidConfig(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.Validate())
}

func TestDefaultsAreValid(t *testing.T) {
	cfg, err := LoadFromViper(Defaults())
	require.NoError(t, err)
	assert.Equal(t, 50*time.Millisecond, cfg.Engine.TickInterval)
	assert.Equal(t, 16.0, cfg.Engine.SearchRadius)
	assert.Equal(t, "spelledmobs", cfg.Engine.DefaultNamespace)
	assert.Equal(t, "clear", cfg.Simulation.Weather)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	err := os.WriteFile(path, []byte(`
logging:
  level: debug
  format: console
engine:
  catalog_dir: /srv/abilities
  default_namespace: mymod
  search_radius: 24
  tick_interval: 100ms
  debug_logging: true
  seed: 7
  script_dir: /srv/scripts
simulation:
  population_file: /srv/population.yaml
  start_time_of_day: 13000
  weather: rain
`), 0644)
	require.NoError(t, err)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "/srv/abilities", cfg.Engine.CatalogDir)
	assert.Equal(t, "mymod", cfg.Engine.DefaultNamespace)
	assert.Equal(t, 24.0, cfg.Engine.SearchRadius)
	assert.Equal(t, 100*time.Millisecond, cfg.Engine.TickInterval)
	assert.True(t, cfg.Engine.DebugLogging)
	assert.Equal(t, uint64(7), cfg.Engine.Seed)
	assert.Equal(t, 10, cfg.Engine.MaxLevel, "unset keys keep defaults")
	assert.Equal(t, int64(13000), cfg.Simulation.StartTimeOfDay)
	assert.Equal(t, "rain", cfg.Simulation.Weather)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("SPELLCAST_ENGINE_MAX_LEVEL", "4")
	t.Setenv("SPELLCAST_LOGGING_LEVEL", "warn")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Engine.MaxLevel)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadInvalidPath(t *testing.T) {
	_, err := Load("/nonexistent/path.yaml")
	assert.Error(t, err)
}

func TestValidateAggregatesViolations(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Level = "trace"
	cfg.Engine.MaxLevel = 0
	cfg.Simulation.Weather = "hail"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logging.level")
	assert.Contains(t, err.Error(), "engine.max_level")
	assert.Contains(t, err.Error(), "simulation.weather")
}

func TestValidateLoggingLevel(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		cfg := validConfig()
		cfg.Logging.Level = level
		assert.NoError(t, cfg.Validate(), "level %q should be valid", level)
	}
	cfg := validConfig()
	cfg.Logging.Level = "trace"
	assert.Error(t, cfg.Validate())
}

func TestValidateLoggingFormat(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		cfg := validConfig()
		cfg.Logging.Format = format
		assert.NoError(t, cfg.Validate(), "format %q should be valid", format)
	}
	cfg := validConfig()
	cfg.Logging.Format = "xml"
	assert.Error(t, cfg.Validate())
}

func TestValidateEngine(t *testing.T) {
	cases := map[string]func(*EngineConfig){
		"empty catalog dir":     func(e *EngineConfig) { e.CatalogDir = "" },
		"empty namespace":       func(e *EngineConfig) { e.DefaultNamespace = "" },
		"namespaced namespace":  func(e *EngineConfig) { e.DefaultNamespace = "a:b" },
		"bad namespace chars":   func(e *EngineConfig) { e.DefaultNamespace = "my mod" },
		"zero radius":           func(e *EngineConfig) { e.SearchRadius = 0 },
		"zero max level":        func(e *EngineConfig) { e.MaxLevel = 0 },
		"zero tick interval":    func(e *EngineConfig) { e.TickInterval = 0 },
		"negative instr. limit": func(e *EngineConfig) { e.InstructionLimit = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig()
			mutate(&cfg.Engine)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidateSimulationWeather(t *testing.T) {
	for _, w := range []string{"clear", "rain", "thunder", "storm", "RAIN"} {
		cfg := validConfig()
		cfg.Simulation.Weather = w
		assert.NoError(t, cfg.Validate(), "weather %q should be valid", w)
	}
}

// Property-based tests

func TestPropertyStartTimeOfDayRange(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		start := rapid.Int64Range(-50000, 50000).Draw(t, "start")
		cfg := validConfig()
		cfg.Simulation.StartTimeOfDay = start
		err := cfg.Validate()
		valid := start >= 0 && start < 24000
		if valid && err != nil {
			t.Fatalf("valid start %d rejected: %v", start, err)
		}
		if !valid && err == nil {
			t.Fatalf("invalid start %d accepted", start)
		}
	})
}

func TestPropertyPositiveSearchRadiusAccepted(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		r := rapid.Float64Range(0.001, 1000).Draw(t, "radius")
		cfg := validConfig()
		cfg.Engine.SearchRadius = r
		if err := cfg.Validate(); err != nil {
			t.Fatalf("radius %v rejected: %v", r, err)
		}
	})
}
