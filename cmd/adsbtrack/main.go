package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"adsbtrack/internal/app"
	"adsbtrack/internal/config"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// flagValues mirrors the command line. Values only override the config file
// when the flag was given explicitly.
type flagValues struct {
	config   string
	source   string
	input    string
	speed    float64
	realtime bool
	record   string
	logDir   string
	utc      bool
	stdout   bool
	registry string
	verbose  bool
	version  bool
}

func newRootCommand() *cobra.Command {
	var flags flagValues
	defaults := config.Default()

	rootCmd := &cobra.Command{
		Use:   "adsbtrack",
		Short: "Mode S / ADS-B decoder and aircraft tracker",
		Long: `Mode S / ADS-B decoder and aircraft tracker.

Reads 20 MS/s 12-bit receiver samples, a frame recording or a Beast feed,
decodes extended squitter messages, tracks aircraft positions and writes
BaseStation (SBS) lines to a daily rotated log.

Example usage:
  adsbtrack --source samples --input capture.iq
  adsbtrack --source recording --input flight.bin.zst --realtime --speed 4
  adsbtrack --source beast --input tcp://localhost:30005 --stdout`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.version {
				app.ShowVersion()
				return nil
			}

			cfg, err := buildConfig(cmd, flags)
			if err != nil {
				return err
			}
			return app.NewApplication(cfg).Start()
		},
	}

	f := rootCmd.Flags()
	f.StringVarP(&flags.config, "config", "c", "", "YAML configuration file")
	f.StringVarP(&flags.source, "source", "s", defaults.Source.Kind, "Input kind: samples, recording or beast")
	f.StringVarP(&flags.input, "input", "i", defaults.Source.Path, "Input file, - for stdin or tcp://host:port for beast")
	f.Float64Var(&flags.speed, "speed", defaults.Replay.Speed, "Replay speed factor")
	f.BoolVar(&flags.realtime, "realtime", defaults.Replay.Realtime, "Pace recording replay by frame timestamps")
	f.StringVarP(&flags.record, "record", "r", "", "Record valid frames to this file (.zst compresses)")
	f.StringVarP(&flags.logDir, "log-dir", "l", defaults.Output.LogDir, "Log directory")
	f.BoolVarP(&flags.utc, "utc", "u", defaults.Output.UTC, "Use UTC for log rotation")
	f.BoolVar(&flags.stdout, "stdout", defaults.Output.Stdout, "Also write SBS lines to stdout")
	f.StringVar(&flags.registry, "registry", "", "Aircraft registry zip archive")
	f.BoolVarP(&flags.verbose, "verbose", "v", false, "Verbose logging")
	f.BoolVar(&flags.version, "version", false, "Show version information")

	return rootCmd
}

// buildConfig loads the config file, applies explicitly set flags and
// validates the result.
func buildConfig(cmd *cobra.Command, flags flagValues) (app.Config, error) {
	cfg := app.DefaultConfig()
	if flags.config != "" {
		loaded, err := config.Load(flags.config)
		if err != nil {
			return app.Config{}, err
		}
		cfg.Config = loaded
		cfg.ConfigPath = flags.config
	}

	changed := cmd.Flags().Changed
	if changed("source") {
		cfg.Source.Kind = flags.source
	}
	if changed("input") {
		cfg.Source.Path = flags.input
	}
	if changed("speed") {
		cfg.Replay.Speed = flags.speed
	}
	if changed("realtime") {
		cfg.Replay.Realtime = flags.realtime
	}
	if changed("record") {
		cfg.Record.Path = flags.record
	}
	if changed("log-dir") {
		cfg.Output.LogDir = flags.logDir
	}
	if changed("utc") {
		cfg.Output.UTC = flags.utc
	}
	if changed("stdout") {
		cfg.Output.Stdout = flags.stdout
	}
	if changed("registry") {
		cfg.Registry.Path = flags.registry
	}
	if changed("verbose") {
		cfg.Verbose = flags.verbose
	}

	if err := cfg.Validate(); err != nil {
		return app.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
