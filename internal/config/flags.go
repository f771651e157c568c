package config

import "flag"

// Flag values shared by every subcommand. They stay at their zero values
// until RegisterFlags binds them to a flag set.
var (
	flagConfig  = new(string)
	flagDebug   = new(bool)
	flagFPS     = new(float64)
	flagFrames  = new(int)
	flagSpeed   = new(float64)
	flagWorkers = new(int)
	flagLogFile = new(string)
)

// RegisterFlags adds the shared flags to fs. Call it on each subcommand's
// flag set before parsing.
func RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(flagConfig, "config", "", "Path to config file")
	fs.BoolVar(flagDebug, "debug", false, "Enable debug logging")
	fs.Float64Var(flagFPS, "fps", 0, "Simulation frames per second")
	fs.IntVar(flagFrames, "frames", 0, "Number of frames to simulate")
	fs.Float64Var(flagSpeed, "speed", 0, "Playback speed multiplier")
	fs.IntVar(flagWorkers, "workers", 0, "Parallel update goroutines")
	fs.StringVar(flagLogFile, "log", "", "Also write logs to this file")
}

// ConfigPath returns the explicit config path if provided via -config.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagFPS > 0 {
		cfg.Playback.FPS = *flagFPS
	}
	if *flagFrames > 0 {
		cfg.Playback.Frames = *flagFrames
	}
	if *flagSpeed != 0 {
		cfg.Playback.Speed = float32(*flagSpeed)
	}
	if *flagWorkers > 0 {
		cfg.Playback.Workers = *flagWorkers
	}
	if *flagLogFile != "" {
		cfg.Logging.LogFile = *flagLogFile
	}
}
