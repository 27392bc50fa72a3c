// Package config holds the persisted folder-archiver settings and the YAML
// store that loads and saves them.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/raoulx24/folder-archiver/internal/archive"
	"github.com/raoulx24/folder-archiver/internal/logging"
)

// Ranges accepted for the numeric backup fields.
const (
	MinIntervalMinutes = 1
	MaxIntervalMinutes = 1440
	MinBackups         = 1
	MaxBackups         = 1000
)

// Confirmation modes.
const (
	ConfirmPrompt  = "prompt"
	ConfirmAccept  = "accept"
	ConfirmDecline = "decline"
)

// Settings is the root of the config file.
type Settings struct {
	SourceFolder    string `yaml:"sourceFolder"`
	DestFolder      string `yaml:"destFolder"`
	IntervalMinutes int    `yaml:"intervalMinutes"`
	RotationEnabled bool   `yaml:"rotationEnabled"`
	MaxBackups      int    `yaml:"maxBackups"`
	Compression     string `yaml:"compression"`

	// LogFile is the durable event log. A relative path is resolved
	// against the config file's directory.
	LogFile string `yaml:"logFile"`

	Confirmation ConfirmationConfig `yaml:"confirmation"`
	ConfigReload ReloadConfig       `yaml:"configReload"`
	Logging      LoggingConfig      `yaml:"logging"`
}

type ConfirmationConfig struct {
	Mode    string        `yaml:"mode"`    // "prompt", "accept", "decline"
	Timeout time.Duration `yaml:"timeout"` // no answer in time is a decline
}

type ReloadConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Mode           string        `yaml:"mode"`           // "auto", "poll", "fsnotify"
	PollInterval   time.Duration `yaml:"pollInterval"`   // e.g. 5s
	DebounceWindow time.Duration `yaml:"debounceWindow"` // e.g. 500ms
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // "info", "debug", etc.
	Format string `yaml:"format"` // "json", "text"
}

// BackupConfig is the part of the settings a scheduler run works from.
type BackupConfig struct {
	SourceFolder    string
	DestFolder      string
	IntervalMinutes int
	RotationEnabled bool
	MaxBackups      int
	Compression     archive.Level
}

// Interval returns the timer period.
func (b BackupConfig) Interval() time.Duration {
	return time.Duration(b.IntervalMinutes) * time.Minute
}

// Defaults returns the settings used when nothing is persisted.
func Defaults() Settings {
	return Settings{
		IntervalMinutes: 5,
		RotationEnabled: true,
		MaxBackups:      10,
		Compression:     archive.Optimal.String(),
		LogFile:         "backup.log",
		Confirmation: ConfirmationConfig{
			Mode:    ConfirmPrompt,
			Timeout: 2 * time.Minute,
		},
		ConfigReload: ReloadConfig{
			Enabled:        true,
			Mode:           "auto",
			PollInterval:   5 * time.Second,
			DebounceWindow: 500 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Level returns the compression level; unknown names select Optimal.
func (s Settings) Level() archive.Level {
	l, err := archive.ParseLevel(s.Compression)
	if err != nil {
		return archive.Optimal
	}
	return l
}

// Backup extracts the scheduler's view of the settings.
func (s Settings) Backup() BackupConfig {
	return BackupConfig{
		SourceFolder:    s.SourceFolder,
		DestFolder:      s.DestFolder,
		IntervalMinutes: s.IntervalMinutes,
		RotationEnabled: s.RotationEnabled,
		MaxBackups:      s.MaxBackups,
		Compression:     s.Level(),
	}
}

// Expanded returns a copy with $(VAR) placeholders in the folder and log
// paths replaced by environment values. Loaded settings keep the
// placeholders so saving writes them back unchanged.
func (s Settings) Expanded() Settings {
	s.SourceFolder = expandEnvVars(s.SourceFolder)
	s.DestFolder = expandEnvVars(s.DestFolder)
	s.LogFile = expandEnvVars(s.LogFile)
	return s
}

// Validate reports every field outside its accepted range.
func (s Settings) Validate() error {
	var errs []error
	if s.IntervalMinutes < MinIntervalMinutes || s.IntervalMinutes > MaxIntervalMinutes {
		errs = append(errs, fmt.Errorf("intervalMinutes %d out of range [%d, %d]", s.IntervalMinutes, MinIntervalMinutes, MaxIntervalMinutes))
	}
	if s.MaxBackups < MinBackups || s.MaxBackups > MaxBackups {
		errs = append(errs, fmt.Errorf("maxBackups %d out of range [%d, %d]", s.MaxBackups, MinBackups, MaxBackups))
	}
	if _, err := archive.ParseLevel(s.Compression); err != nil {
		errs = append(errs, err)
	}
	if s.LogFile == "" {
		errs = append(errs, errors.New("logFile must not be empty"))
	}
	switch s.Confirmation.Mode {
	case ConfirmPrompt, ConfirmAccept, ConfirmDecline:
	default:
		errs = append(errs, fmt.Errorf("unknown confirmation mode %q", s.Confirmation.Mode))
	}
	if s.Confirmation.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("confirmation timeout must be positive"))
	}
	switch s.ConfigReload.Mode {
	case "auto", "poll", "fsnotify":
	default:
		errs = append(errs, fmt.Errorf("unknown configReload mode %q", s.ConfigReload.Mode))
	}
	if s.ConfigReload.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("configReload pollInterval must be positive"))
	}
	if s.ConfigReload.DebounceWindow < 0 {
		errs = append(errs, fmt.Errorf("configReload debounceWindow must not be negative"))
	}
	if !validLogLevel(s.Logging.Level) {
		errs = append(errs, fmt.Errorf("unknown logging level %q", s.Logging.Level))
	}
	if !validLogFormat(s.Logging.Format) {
		errs = append(errs, fmt.Errorf("unknown logging format %q", s.Logging.Format))
	}
	return errors.Join(errs...)
}

// sanitize replaces every invalid field with its default.
func (s Settings) sanitize() Settings {
	d := Defaults()
	if s.IntervalMinutes < MinIntervalMinutes || s.IntervalMinutes > MaxIntervalMinutes {
		s.IntervalMinutes = d.IntervalMinutes
	}
	if s.MaxBackups < MinBackups || s.MaxBackups > MaxBackups {
		s.MaxBackups = d.MaxBackups
	}
	s.Compression = s.Level().String()
	if s.LogFile == "" {
		s.LogFile = d.LogFile
	}
	switch s.Confirmation.Mode {
	case ConfirmPrompt, ConfirmAccept, ConfirmDecline:
	default:
		s.Confirmation.Mode = d.Confirmation.Mode
	}
	if s.Confirmation.Timeout <= 0 {
		s.Confirmation.Timeout = d.Confirmation.Timeout
	}
	switch s.ConfigReload.Mode {
	case "auto", "poll", "fsnotify":
	default:
		s.ConfigReload.Mode = d.ConfigReload.Mode
	}
	if s.ConfigReload.PollInterval <= 0 {
		s.ConfigReload.PollInterval = d.ConfigReload.PollInterval
	}
	if s.ConfigReload.DebounceWindow < 0 {
		s.ConfigReload.DebounceWindow = d.ConfigReload.DebounceWindow
	}
	if !validLogLevel(s.Logging.Level) {
		s.Logging.Level = d.Logging.Level
	}
	if !validLogFormat(s.Logging.Format) {
		s.Logging.Format = d.Logging.Format
	}
	return s
}

func validLogLevel(level string) bool {
	if level == "" {
		return false
	}
	_, err := logging.ParseLevel(level)
	return err == nil
}

func validLogFormat(format string) bool {
	switch strings.ToLower(format) {
	case "text", "json":
		return true
	}
	return false
}
