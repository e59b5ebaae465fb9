// Package config loads runtime settings from HIPCHECK_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"

	"github.com/ayusman/hipcheck/internal/motion"
)

// Config is the process configuration.
type Config struct {
	Addr      string `env:"HIPCHECK_ADDR" envDefault:":8080"`
	DataDir   string `env:"HIPCHECK_DATA_DIR"`
	StaticDir string `env:"HIPCHECK_STATIC_DIR"`

	CameraID int `env:"HIPCHECK_CAMERA_ID" envDefault:"0"`
	FPS      int `env:"HIPCHECK_FPS" envDefault:"15"`

	// ReferenceJoint names the tracked joint fed to the session.
	ReferenceJoint string `env:"HIPCHECK_REFERENCE_JOINT" envDefault:"hip_center"`

	TargetDistance float64 `env:"HIPCHECK_TARGET_DISTANCE" envDefault:"0.10"`
	RelativeError  float64 `env:"HIPCHECK_RELATIVE_ERROR" envDefault:"0.05"`
	LateralSlack   float64 `env:"HIPCHECK_LATERAL_SLACK" envDefault:"0.02"`

	Tray bool `env:"HIPCHECK_TRAY" envDefault:"false"`
}

// Load parses the process environment.
func Load() (Config, error) {
	return parse(env.Options{})
}

// LoadFrom parses the given variables instead of the process environment.
func LoadFrom(vars map[string]string) (Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values the environment parser cannot.
func (c Config) Validate() error {
	if c.FPS <= 0 {
		return fmt.Errorf("HIPCHECK_FPS must be positive, got %d", c.FPS)
	}
	if c.CameraID < 0 {
		return fmt.Errorf("HIPCHECK_CAMERA_ID must not be negative, got %d", c.CameraID)
	}
	if err := c.Tolerance().Validate(); err != nil {
		return fmt.Errorf("tolerance: %w", err)
	}
	return nil
}

// Tolerance returns the session bands configured by the environment.
func (c Config) Tolerance() motion.Tolerance {
	return motion.Tolerance{
		TargetDistance: c.TargetDistance,
		RelativeError:  c.RelativeError,
		LateralSlack:   c.LateralSlack,
	}
}

// ResolveDataDir returns DataDir, defaulting to ~/.hipcheck, and creates it.
func (c Config) ResolveDataDir() (string, error) {
	dir := c.DataDir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("get home directory: %w", err)
		}
		dir = filepath.Join(home, ".hipcheck")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create data directory: %w", err)
	}
	return dir, nil
}
