package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/raoulx24/folder-archiver/internal/backuperr"
	"github.com/raoulx24/folder-archiver/internal/config"
	"github.com/raoulx24/folder-archiver/internal/logging"
)

const envPrefix = "FOLDER_ARCHIVER"

// app carries what every subcommand needs.
type app struct {
	v      *viper.Viper
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	store *config.Store
	log   *logging.SlogLogger
}

func newRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	a := &app{v: viper.New(), stdin: stdin, stdout: stdout, stderr: stderr}

	rootCmd := &cobra.Command{
		Use:           "folder-archiver",
		Short:         "Periodic folder-to-zip backups with rotation",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initialize()
		},
	}
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	if err := setupFlags(rootCmd.PersistentFlags(), a.v); err != nil {
		// Flag names are static; a binding failure is a programming error.
		panic(err)
	}

	rootCmd.AddCommand(
		runCommand(a),
		onceCommand(a),
		listCommand(a),
		configCommand(a),
	)
	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
// and binds them, together with FOLDER_ARCHIVER_* environment variables.
func setupFlags(flags *pflag.FlagSet, v *viper.Viper) error {
	flags.String("config", defaultConfigPath(), "Path to the YAML config file")
	flags.String("log-level", "", "Diagnostic log level: debug, info, warn, error")
	flags.String("log-format", "", "Diagnostic log format: text or json")

	flags.String("source", "", "Folder to back up")
	flags.String("dest", "", "Folder receiving the snapshots")
	flags.Int("interval", 0, fmt.Sprintf("Minutes between backups (%d-%d)", config.MinIntervalMinutes, config.MaxIntervalMinutes))
	flags.Int("max-backups", 0, fmt.Sprintf("Snapshots to keep (%d-%d)", config.MinBackups, config.MaxBackups))
	flags.Bool("rotate", true, "Delete the oldest snapshots beyond --max-backups")
	flags.String("compression", "", "Optimal, Fastest, NoCompression or SmallestSize")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(flags); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}

// defaultConfigPath places the config file next to the executable.
func defaultConfigPath() string {
	exe, err := os.Executable()
	if err != nil {
		return config.DefaultFileName
	}
	return filepath.Join(filepath.Dir(exe), config.DefaultFileName)
}

// initialize is called before any subcommand runs.
func (a *app) initialize() error {
	a.store = config.NewStore(a.v.GetString("config"))

	log, err := logging.New(a.stderr, a.v.GetString("log-level"), a.v.GetString("log-format"))
	if err != nil {
		return err
	}
	a.log = log
	return nil
}

// loadSettings reads the config file and applies flag and environment
// overrides. A broken config file is reported and replaced by defaults.
func (a *app) loadSettings() (config.Settings, error) {
	s, err := a.store.Load()
	if err != nil {
		if !backuperr.IsCode(err, backuperr.ConfigLoadFailed) {
			return s, err
		}
		a.log.Warn("using default settings", "error", err)
	}

	a.applyOverrides(&s)
	if err := s.Validate(); err != nil {
		return s, fmt.Errorf("invalid settings: %w", err)
	}

	// Flags already won in applyOverrides.
	log, err := logging.New(a.stderr, s.Logging.Level, s.Logging.Format)
	if err != nil {
		return s, err
	}
	a.log = log
	return s, nil
}

func (a *app) applyOverrides(s *config.Settings) {
	if a.v.IsSet("source") {
		s.SourceFolder = a.v.GetString("source")
	}
	if a.v.IsSet("dest") {
		s.DestFolder = a.v.GetString("dest")
	}
	if a.v.IsSet("interval") {
		s.IntervalMinutes = a.v.GetInt("interval")
	}
	if a.v.IsSet("max-backups") {
		s.MaxBackups = a.v.GetInt("max-backups")
	}
	if a.v.IsSet("rotate") {
		s.RotationEnabled = a.v.GetBool("rotate")
	}
	if a.v.IsSet("compression") {
		s.Compression = a.v.GetString("compression")
	}
	if a.v.IsSet("log-level") {
		s.Logging.Level = a.v.GetString("log-level")
	}
	if a.v.IsSet("log-format") {
		s.Logging.Format = a.v.GetString("log-format")
	}
}

// saveSettings persists s. Failures are logged and never block.
func (a *app) saveSettings(s config.Settings) {
	if err := a.store.Save(s); err != nil {
		a.log.Warn("could not save config", "error", err)
		fmt.Fprintf(a.stderr, "%s  Could not save config: %v\n", backuperr.Glyph(err), err)
	}
}
