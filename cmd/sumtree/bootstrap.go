package main

import (
	"github.com/jamesainslie/sumtree/pkg/sumtree/config"
	"github.com/jamesainslie/sumtree/pkg/sumtree/logging"
	"github.com/jamesainslie/sumtree/pkg/sumtree/types"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// configured is set once initConfig has prepared the global viper.
	configured bool

	// appConfig is the decoded configuration for this invocation.
	appConfig *config.Config
)

// loadConfig reads and decodes the configuration once per process.
func loadConfig() (*config.Config, error) {
	if appConfig != nil {
		return appConfig, nil
	}
	if !configured {
		initConfig()
	}

	v := viper.GetViper()
	if err := config.Read(v); err != nil {
		return nil, err
	}
	cfg, err := config.Decode(v)
	if err != nil {
		return nil, err
	}
	appConfig = cfg
	return cfg, nil
}

// parseRotationConfig converts the config file's rotation settings, which
// use human-readable sizes, to logging's byte counts. An empty or invalid
// size falls back to the logging default.
func parseRotationConfig(rc config.RotationConfig) logging.RotationConfig {
	out := logging.RotationConfig{
		MaxSize:    logging.DefaultRotationConfig().MaxSize,
		MaxAge:     rc.MaxAge,
		MaxBackups: rc.MaxBackups,
		Daily:      rc.Daily,
	}
	if rc.MaxSize != "" {
		if size, err := types.ParseSize(rc.MaxSize); err == nil && size > 0 {
			out.MaxSize = size
		}
	}
	return out
}

// initializeLogging is the root PersistentPreRunE: it loads the config,
// creates the state directory and starts file logging. Console output
// shows warnings by default, debug with --verbose and nothing with --quiet.
func initializeLogging(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := config.EnsureStateDir(); err != nil {
		return err
	}

	level := cfg.Logging.Level
	console := "warn"
	switch {
	case getQuiet():
		console = ""
	case getVerbose():
		level = "debug"
		console = "debug"
	}

	return logging.Init(logging.Config{
		Level:        level,
		Path:         cfg.Logging.Path,
		Rotation:     parseRotationConfig(cfg.Logging.Rotation),
		Components:   cfg.Logging.Components,
		ConsoleLevel: console,
	})
}
