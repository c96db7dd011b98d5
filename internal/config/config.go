// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	FrontendURL string
	DBPath      string
	ProfilePath string
	Experiment  Experiment
}

// Experiment holds the per-session experiment parameters that drive puzzle
// generation and pacing. Loaded and validated once at startup, never re-read
// per message.
type Experiment struct {
	Variant       string
	TrialDelay    time.Duration
	RetryDelay    time.Duration
	ForceSolve    bool
	AllowSkip     bool
	NumIterations int // 0 = unlimited
	MatrixWidth   int
	MatrixHeight  int
	GameDuration  time.Duration
	Seed          int64 // 0 = time-derived
}

// experimentProfile is the on-disk YAML shape. Delays are seconds and the game
// duration is minutes, matching the session-config conventions this replaces.
type experimentProfile struct {
	Variant       string  `yaml:"variant"`
	TrialDelay    float64 `yaml:"trial_delay"`
	RetryDelay    float64 `yaml:"retry_delay"`
	ForceSolve    bool    `yaml:"force_solve"`
	AllowSkip     bool    `yaml:"allow_skip"`
	NumIterations int     `yaml:"num_iterations"`
	MatrixWidth   int     `yaml:"matrix_width"`
	MatrixHeight  int     `yaml:"matrix_height"`
	GameDuration  float64 `yaml:"game_duration"`
	Seed          int64   `yaml:"seed"`
}

// Load reads configuration from environment variables and, if set, the
// experiment profile file named by EXPERIMENT_PROFILE.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", ""),
		DBPath:      getEnv("DB_PATH", "./data/trials.db"),
		ProfilePath: getEnv("EXPERIMENT_PROFILE", ""),
		Experiment:  DefaultExperiment(),
	}

	if cfg.ProfilePath != "" {
		exp, err := LoadExperiment(cfg.ProfilePath)
		if err != nil {
			return nil, fmt.Errorf("load experiment profile: %w", err)
		}
		cfg.Experiment = exp
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// DefaultExperiment returns the experiment parameters used when no profile
// file is configured. Values mirror the original session defaults.
func DefaultExperiment() Experiment {
	return Experiment{
		Variant:      "counting",
		TrialDelay:   time.Second,
		RetryDelay:   time.Second,
		MatrixWidth:  10,
		MatrixHeight: 5,
		GameDuration: 5 * time.Minute,
	}
}

// LoadExperiment parses an experiment profile from a YAML file. Fields absent
// from the file keep their defaults.
func LoadExperiment(path string) (Experiment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Experiment{}, fmt.Errorf("read profile file: %w", err)
	}

	def := DefaultExperiment()
	profile := experimentProfile{
		Variant:      def.Variant,
		TrialDelay:   def.TrialDelay.Seconds(),
		RetryDelay:   def.RetryDelay.Seconds(),
		MatrixWidth:  def.MatrixWidth,
		MatrixHeight: def.MatrixHeight,
		GameDuration: def.GameDuration.Minutes(),
	}
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return Experiment{}, fmt.Errorf("parse profile: %w", err)
	}

	return Experiment{
		Variant:       profile.Variant,
		TrialDelay:    secondsToDuration(profile.TrialDelay),
		RetryDelay:    secondsToDuration(profile.RetryDelay),
		ForceSolve:    profile.ForceSolve,
		AllowSkip:     profile.AllowSkip,
		NumIterations: profile.NumIterations,
		MatrixWidth:   profile.MatrixWidth,
		MatrixHeight:  profile.MatrixHeight,
		GameDuration:  time.Duration(profile.GameDuration * float64(time.Minute)),
		Seed:          profile.Seed,
	}, nil
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	return c.Experiment.Validate()
}

// Validate checks the experiment parameters.
func (e Experiment) Validate() error {
	switch e.Variant {
	case "counting", "stroop":
	default:
		return fmt.Errorf("unknown variant %q", e.Variant)
	}
	if e.TrialDelay < 0 {
		return fmt.Errorf("trial_delay must be >= 0")
	}
	if e.RetryDelay < 0 {
		return fmt.Errorf("retry_delay must be >= 0")
	}
	if e.NumIterations < 0 {
		return fmt.Errorf("num_iterations must be >= 0")
	}
	if e.MatrixWidth <= 0 || e.MatrixHeight <= 0 {
		return fmt.Errorf("matrix dimensions must be positive: %dx%d", e.MatrixWidth, e.MatrixHeight)
	}
	if e.GameDuration <= 0 {
		return fmt.Errorf("game_duration must be positive")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
