package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/mvkit/mvkit"
	"github.com/mvkit/mvkit/internal/config"
	"github.com/mvkit/mvkit/internal/logging"
	"github.com/mvkit/mvkit/internal/reporter"
)

// globalFlags are the persistent flags shared by every subcommand.
type globalFlags struct {
	configPath string
	mode       string
	hardware   bool
	ffmpeg     string
	ffprobe    string
	timeout    time.Duration
	retries    int
	workers    int
	logDir     string
	verbose    bool
	json       bool
	events     string
}

type commandContext struct {
	flags  *globalFlags
	stdout io.Writer
	stderr io.Writer

	once       sync.Once
	kit        *mvkit.Toolkit
	logFile    *logging.File
	eventsFile *os.File
	err        error
}

func newRootCommand() *cobra.Command {
	return newRootCommandWithWriters(os.Stdout, os.Stderr)
}

func newRootCommandWithWriters(stdout, stderr io.Writer) *cobra.Command {
	flags := &globalFlags{}
	ctx := &commandContext{flags: flags, stdout: stdout, stderr: stderr}

	rootCmd := &cobra.Command{
		Use:           appName,
		Short:         "Build and run ffmpeg commands for video editing pipelines",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return ctx.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.SetOut(ctx.stdout)
	rootCmd.SetErr(ctx.stderr)

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "Configuration file path (TOML)")
	pf.StringVar(&flags.mode, "mode", "", "Tool host mode: native or wsl")
	pf.BoolVar(&flags.hardware, "hardware", false, "Use GPU decode, encode and filters")
	pf.StringVar(&flags.ffmpeg, "ffmpeg", "", "ffmpeg binary")
	pf.StringVar(&flags.ffprobe, "ffprobe", "", "ffprobe binary")
	pf.DurationVar(&flags.timeout, "timeout", 0, "Per-invocation timeout (0 keeps the configured value)")
	pf.IntVar(&flags.retries, "retries", -1, "Guarded retry attempts (-1 keeps the configured value)")
	pf.IntVar(&flags.workers, "workers", 0, "Parallel segment encodes for job runs (0 keeps the configured value)")
	pf.StringVarP(&flags.logDir, "log-dir", "l", "", "Write a run log into this directory")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "Enable verbose output")
	pf.BoolVar(&flags.json, "json", false, "Emit machine-readable JSON")
	pf.StringVar(&flags.events, "events", "", "Also append job events as JSON lines to this file")

	rootCmd.AddCommand(newExtractAudioCommand(ctx))
	rootCmd.AddCommand(newConvertAudioCommand(ctx))
	rootCmd.AddCommand(newSegmentCommand(ctx))
	rootCmd.AddCommand(newConcatCommand(ctx))
	rootCmd.AddCommand(newMuxCommand(ctx))
	rootCmd.AddCommand(newProbeCommand(ctx))
	rootCmd.AddCommand(newVerifyCommand(ctx))
	rootCmd.AddCommand(newRunCommand(ctx))
	rootCmd.AddCommand(newCheckCommand(ctx))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

// loadConfig reads the configuration file and applies flag overrides.
func (c *commandContext) loadConfig() (*config.Config, error) {
	cfg, _, err := config.Load(strings.TrimSpace(c.flags.configPath))
	if err != nil {
		return nil, err
	}

	f := c.flags
	if f.mode != "" {
		cfg.Environment.Mode = strings.ToLower(f.mode)
	}
	if f.hardware {
		cfg.Encoding.Hardware = true
	}
	if f.ffmpeg != "" {
		cfg.Tools.FFmpeg = f.ffmpeg
	}
	if f.ffprobe != "" {
		cfg.Tools.FFprobe = f.ffprobe
	}
	if f.timeout > 0 {
		cfg.SetTimeout(f.timeout)
	}
	if f.retries >= 0 {
		cfg.Execution.RetryAttempts = f.retries
	}
	if f.workers > 0 {
		cfg.Execution.Workers = f.workers
	}
	if f.logDir != "" {
		cfg.Logging.Dir = f.logDir
	}
	if f.verbose {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// toolkit builds the toolkit on first use.
func (c *commandContext) toolkit() (*mvkit.Toolkit, error) {
	c.once.Do(func() {
		cfg, err := c.loadConfig()
		if err != nil {
			c.err = err
			return
		}

		logger, err := c.setupLogging(cfg)
		if err != nil {
			c.err = err
			return
		}

		rep, err := c.reporter()
		if err != nil {
			c.err = err
			return
		}

		c.kit, c.err = mvkit.New(
			mvkit.WithConfig(*cfg),
			mvkit.WithLogger(logger),
			mvkit.WithReporter(rep),
		)
	})
	return c.kit, c.err
}

func (c *commandContext) setupLogging(cfg *config.Config) (*logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}

	var out io.Writer = c.stderr
	if cfg.Logging.Dir != "" {
		file, err := logging.OpenFile(cfg.Logging.Dir)
		if err != nil {
			return nil, err
		}
		c.logFile = file
		out = file.Tee(out)
	}

	logger := logging.New(logging.Config{
		Level:   level,
		Format:  cfg.Logging.Format,
		Output:  out,
		Enabled: true,
	})
	logging.SetGlobal(logger)
	if c.logFile != nil {
		logger.Info("logging to file", "path", c.logFile.Path())
	}
	return logger, nil
}

func (c *commandContext) reporter() (reporter.Reporter, error) {
	var base reporter.Reporter
	switch {
	case c.flags.json:
		base = reporter.NewJSONReporterWithWriter(c.stdout)
	case c.stdout == os.Stdout:
		base = reporter.NewTerminalReporter(c.flags.verbose)
	default:
		base = reporter.NewTerminalReporterWithWriters(c.stdout, c.stderr, c.flags.verbose)
	}
	if c.flags.events == "" {
		return base, nil
	}

	f, err := os.OpenFile(c.flags.events, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open events file: %w", err)
	}
	c.eventsFile = f
	return reporter.NewCompositeReporter(base, reporter.NewJSONReporterWithWriter(f)), nil
}

func (c *commandContext) close() error {
	var err error
	if c.logFile != nil {
		err = c.logFile.Close()
		c.logFile = nil
	}
	if c.eventsFile != nil {
		if cerr := c.eventsFile.Close(); err == nil {
			err = cerr
		}
		c.eventsFile = nil
	}
	return err
}
