// Package config handles animtool configuration loading and management.
package config

import (
	"errors"
	"fmt"

	"github.com/Faultbox/midgard-anim/internal/engine/animation"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all tool settings.
type Config struct {
	Playback PlaybackConfig `yaml:"playback"`
	Data     DataConfig     `yaml:"data"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// PlaybackConfig holds simulation settings.
type PlaybackConfig struct {
	FPS         float64 `yaml:"fps"`          // fixed simulation rate
	Frames      int     `yaml:"frames"`       // frames to simulate
	Speed       float32 `yaml:"speed"`        // multiplier applied to every state
	DefaultWrap string  `yaml:"default_wrap"` // wrap mode for states the rig leaves unset
	Crossfade   float32 `yaml:"crossfade"`    // seconds, for cross-fades given without a duration
	Workers     int     `yaml:"workers"`      // parallel update goroutines, 0 = GOMAXPROCS
}

// DataConfig holds asset search paths.
type DataConfig struct {
	RigPaths []string `yaml:"rig_paths"` // Directories searched for relative rig paths, later entries first
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Playback: PlaybackConfig{
			FPS:         30,
			Frames:      90,
			Speed:       1,
			DefaultWrap: "loop",
			Crossfade:   animation.DefaultTransitionDuration,
			Workers:     0,
		},
		Data: DataConfig{
			RigPaths: []string{"assets/rigs"},
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// DeltaTime returns the fixed frame step in seconds.
func (c *Config) DeltaTime() float32 {
	return float32(1 / c.Playback.FPS)
}

// WrapMode returns the parsed default wrap mode.
func (c *Config) WrapMode() animation.WrapMode {
	mode, _ := animation.ParseWrapMode(c.Playback.DefaultWrap)
	return mode
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	p := c.Playback
	switch {
	case p.FPS <= 0:
		return fmt.Errorf("playback.fps must be positive, got %v: %w", p.FPS, ErrInvalidConfig)
	case p.Frames < 0:
		return fmt.Errorf("playback.frames must not be negative, got %d: %w", p.Frames, ErrInvalidConfig)
	case p.Crossfade < 0:
		return fmt.Errorf("playback.crossfade must not be negative, got %v: %w", p.Crossfade, ErrInvalidConfig)
	case p.Workers < 0:
		return fmt.Errorf("playback.workers must not be negative, got %d: %w", p.Workers, ErrInvalidConfig)
	}
	if _, err := animation.ParseWrapMode(p.DefaultWrap); err != nil {
		return fmt.Errorf("playback.default_wrap: %v: %w", err, ErrInvalidConfig)
	}
	return nil
}
