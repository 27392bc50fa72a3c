package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raoulx24/folder-archiver/internal/archive"
	"github.com/raoulx24/folder-archiver/internal/backuperr"
)

func storeIn(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), DefaultFileName))
}

func TestLoadMissingReturnsDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := storeIn(t).Load()
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
	assert.Equal(t, 5, cfg.IntervalMinutes)
	assert.True(t, cfg.RotationEnabled)
	assert.Equal(t, 10, cfg.MaxBackups)
	assert.Equal(t, archive.Optimal, cfg.Level())
	require.NoError(t, cfg.Validate())
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	base := Defaults()
	base.SourceFolder = "/home/me/saves"
	base.DestFolder = `$(HOME)/backups`

	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"defaults", func(*Settings) {}},
		{"minimums", func(s *Settings) {
			s.IntervalMinutes = MinIntervalMinutes
			s.MaxBackups = MinBackups
		}},
		{"maximums", func(s *Settings) {
			s.IntervalMinutes = MaxIntervalMinutes
			s.MaxBackups = MaxBackups
		}},
		{"rotation off", func(s *Settings) { s.RotationEnabled = false }},
		{"no compression", func(s *Settings) { s.Compression = archive.NoCompression.String() }},
		{"smallest", func(s *Settings) { s.Compression = archive.SmallestSize.String() }},
		{"reload off", func(s *Settings) {
			s.ConfigReload.Enabled = false
			s.ConfigReload.Mode = "poll"
			s.ConfigReload.DebounceWindow = 0
		}},
		{"decline", func(s *Settings) {
			s.Confirmation = ConfirmationConfig{Mode: ConfirmDecline, Timeout: 90 * time.Second}
		}},
		{"json debug", func(s *Settings) { s.Logging = LoggingConfig{Level: "DEBUG", Format: "JSON"} }},
		{"log file", func(s *Settings) { s.LogFile = `$(HOME)/archiver.log` }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			want := base
			tt.mutate(&want)
			require.NoError(t, want.Validate())

			store := storeIn(t)
			require.NoError(t, store.Save(want))
			got, err := store.Load()
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestLoadSanitizesFields(t *testing.T) {
	t.Parallel()

	store := storeIn(t)
	require.NoError(t, os.WriteFile(store.Path, []byte(`
sourceFolder: /src
destFolder: /dst
intervalMinutes: 0
maxBackups: 5000
compression: Ultra
rotationEnabled: false
confirmation:
  mode: maybe
  timeout: -1s
configReload:
  mode: inotify
`), 0o644))

	cfg, err := store.Load()
	require.NoError(t, err)

	assert.Equal(t, "/src", cfg.SourceFolder)
	assert.Equal(t, "/dst", cfg.DestFolder)
	assert.Equal(t, 5, cfg.IntervalMinutes)
	assert.Equal(t, 10, cfg.MaxBackups)
	assert.Equal(t, "Optimal", cfg.Compression)
	assert.False(t, cfg.RotationEnabled)
	assert.Equal(t, ConfirmPrompt, cfg.Confirmation.Mode)
	assert.Equal(t, 2*time.Minute, cfg.Confirmation.Timeout)
	assert.Equal(t, "auto", cfg.ConfigReload.Mode)
	assert.Equal(t, 5*time.Second, cfg.ConfigReload.PollInterval)
	require.NoError(t, cfg.Validate())
}

func TestLoadCorruptFallsBack(t *testing.T) {
	t.Parallel()

	store := storeIn(t)
	require.NoError(t, os.WriteFile(store.Path, []byte("sourceFolder: [unterminated"), 0o644))

	cfg, err := store.Load()
	require.Error(t, err)
	assert.True(t, backuperr.IsCode(err, backuperr.ConfigLoadFailed))
	assert.Equal(t, Defaults(), cfg)
}

func TestLoadUnreadableFallsBack(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := NewStore(dir)

	cfg, err := store.Load()
	require.Error(t, err)
	assert.True(t, backuperr.IsCode(err, backuperr.ConfigLoadFailed))
	assert.Equal(t, Defaults(), cfg)
}

func TestSaveFailure(t *testing.T) {
	t.Parallel()

	store := NewStore(filepath.Join(t.TempDir(), "missing", DefaultFileName))
	err := store.Save(Defaults())
	require.Error(t, err)
	assert.True(t, backuperr.IsCode(err, backuperr.ConfigSaveFailed))
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	t.Parallel()

	store := storeIn(t)
	require.NoError(t, store.Save(Defaults()))
	require.NoError(t, store.Save(Defaults()))

	entries, err := os.ReadDir(filepath.Dir(store.Path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, DefaultFileName, entries[0].Name())
}

func TestValidate(t *testing.T) {
	t.Parallel()

	s := Defaults()
	s.IntervalMinutes = 1441
	s.MaxBackups = 0
	s.Compression = "zstd"
	err := s.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "intervalMinutes 1441")
	assert.Contains(t, err.Error(), "maxBackups 0")
	assert.Contains(t, err.Error(), `"zstd"`)
}

func TestExpanded(t *testing.T) {
	t.Setenv("FA_TEST_ROOT", "/mnt/data")

	s := Defaults()
	s.SourceFolder = "$(FA_TEST_ROOT)/saves"
	s.DestFolder = "$(FA_TEST_UNSET_VAR)/backups"

	got := s.Expanded()
	assert.Equal(t, "/mnt/data/saves", got.SourceFolder)
	assert.Equal(t, "/backups", got.DestFolder)
	assert.Equal(t, "$(FA_TEST_ROOT)/saves", s.SourceFolder, "receiver is not modified")
}

func TestBackup(t *testing.T) {
	t.Parallel()

	s := Defaults()
	s.SourceFolder, s.DestFolder = "/a", "/b"
	s.Compression = "Fastest"
	s.IntervalMinutes = 15

	b := s.Backup()
	assert.Equal(t, BackupConfig{
		SourceFolder:    "/a",
		DestFolder:      "/b",
		IntervalMinutes: 15,
		RotationEnabled: true,
		MaxBackups:      10,
		Compression:     archive.Fastest,
	}, b)
	assert.Equal(t, 15*time.Minute, b.Interval())
}

func TestResolvePath(t *testing.T) {
	t.Parallel()

	store := NewStore(filepath.Join("/etc", "folder-archiver", DefaultFileName))
	assert.Equal(t, filepath.Join("/etc", "folder-archiver", "backup.log"), store.ResolvePath("backup.log"))
	abs := filepath.Join(string(filepath.Separator), "var", "log", "backup.log")
	assert.Equal(t, abs, store.ResolvePath(abs))
	assert.Empty(t, store.ResolvePath(""))
}

func TestValidateRejectsWhatLoadWouldRewrite(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Settings)
		want   string
	}{
		{"empty log file", func(s *Settings) { s.LogFile = "" }, "logFile"},
		{"empty level", func(s *Settings) { s.Logging.Level = "" }, "logging level"},
		{"unknown level", func(s *Settings) { s.Logging.Level = "verbose" }, "logging level"},
		{"empty format", func(s *Settings) { s.Logging.Format = "" }, "logging format"},
		{"unknown format", func(s *Settings) { s.Logging.Format = "xml" }, "logging format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := Defaults()
			tt.mutate(&s)
			err := s.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)

			store := storeIn(t)
			require.NoError(t, store.Save(s))
			got, err := store.Load()
			require.NoError(t, err)
			assert.NotEqual(t, s, got, "load replaces the invalid field")
			require.NoError(t, got.Validate())
		})
	}
}
