package config

import "flag"

var (
	flagConfig      = flag.String("config", "", "Path to config file")
	flagDebug       = flag.Bool("debug", false, "Enable debug logging")
	flagLogFile     = flag.String("log-file", "", "Write logs to this file (rotated)")
	flagThreshold   = flag.Float64("threshold", 0, "Overhang threshold in degrees from vertical")
	flagSamples     = flag.Int("samples", 0, "Auto-orient direction samples")
	flagMaxDuration = flag.Duration("max-duration", 0, "Auto-orient time budget")
	flagNoWorker    = flag.Bool("no-worker", false, "Analyze on the calling goroutine")
	flagStore       = flag.String("store", "", "Orientation store file")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// Args returns the positional arguments left after flag parsing.
func Args() []string {
	return flag.Args()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagLogFile != "" {
		cfg.Logging.File.Path = *flagLogFile
		if cfg.Logging.File.MaxSizeMB == 0 {
			cfg.Logging.File.MaxSizeMB = 20
		}
	}
	if *flagThreshold > 0 {
		cfg.Analysis.ThresholdDeg = *flagThreshold
	}
	if *flagSamples > 0 {
		cfg.AutoOrient.DirectionSamples = *flagSamples
		cfg.AutoOrient.LargeDirectionSamples = *flagSamples
	}
	if *flagMaxDuration > 0 {
		cfg.AutoOrient.MaxDuration = *flagMaxDuration
	}
	if *flagNoWorker {
		cfg.Worker.Enabled = false
	}
	if *flagStore != "" {
		cfg.Store.Path = *flagStore
	}
}
