// Package scheduler owns the backup timer and the lifecycle of the worker
// that runs passes. A Scheduler is created idle, started with an immutable
// copy of the settings, stopped, and finally disposed.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/raoulx24/folder-archiver/internal/backuperr"
	"github.com/raoulx24/folder-archiver/internal/config"
	"github.com/raoulx24/folder-archiver/internal/eventlog"
	"github.com/raoulx24/folder-archiver/internal/fs"
	"github.com/raoulx24/folder-archiver/internal/logging"
	"github.com/raoulx24/folder-archiver/internal/mailbox"
	"github.com/raoulx24/folder-archiver/internal/metrics"
	"github.com/raoulx24/folder-archiver/internal/retention"
	"github.com/raoulx24/folder-archiver/internal/worker"
)

// State is the lifecycle state of a Scheduler.
type State int

const (
	Idle State = iota
	Running
	Disposed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Disposed:
		return "disposed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

var (
	ErrDisposed   = errors.New("scheduler is disposed")
	ErrRunning    = errors.New("scheduler is already running")
	ErrNotRunning = errors.New("scheduler is not running")
)

// Config is the immutable copy of the settings a run works from.
type Config struct {
	Backup config.BackupConfig
	// LogFile is the durable event log opened for the duration of the run.
	// Empty disables it.
	LogFile        string
	ConfirmTimeout time.Duration
}

// ConfigFrom expands s and extracts the scheduler config.
func ConfigFrom(s config.Settings) Config {
	e := s.Expanded()
	return Config{
		Backup:         e.Backup(),
		LogFile:        e.LogFile,
		ConfirmTimeout: e.Confirmation.Timeout,
	}
}

// Options are the collaborators shared by every run.
type Options struct {
	FS        fs.FS
	Confirmer retention.Confirmer
	Events    *eventlog.Logger
	Metrics   *metrics.BackupMetrics
	Log       logging.Logger
}

type run struct {
	cron   *cron.Cron
	mb     *mailbox.Mailbox[worker.Job]
	cancel context.CancelFunc
	done   chan struct{}
	sink   *eventlog.FileSink
}

// Scheduler arms a timer that queues passes for a single worker goroutine.
// At most one pass runs at a time and at most one more is pending.
type Scheduler struct {
	lifecycle sync.Mutex // serializes Start, Stop, RunOnce and Dispose

	mu    sync.RWMutex
	state State
	run   *run

	opts     Options
	now      func() time.Time
	interval func(config.BackupConfig) time.Duration
}

// New creates an idle scheduler.
func New(opts Options) *Scheduler {
	if opts.FS == nil {
		opts.FS = fs.New()
	}
	if opts.Events == nil {
		opts.Events = eventlog.New()
	}
	if opts.Log == nil {
		opts.Log = logging.Discard()
	}
	return &Scheduler{
		opts:     opts,
		now:      time.Now,
		interval: config.BackupConfig.Interval,
	}
}

// State returns the current lifecycle state.
func (s *Scheduler) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Start validates the folders, opens the durable log, arms the timer and
// queues an immediate pass. Invalid folders fail with InvalidPaths and the
// scheduler stays idle.
func (s *Scheduler) Start(cfg Config) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if err := s.checkState(Idle); err != nil {
		return err
	}
	if err := s.validate(cfg.Backup); err != nil {
		s.opts.Log.Warn("refusing to start", "error", err)
		return err
	}

	sink := s.openSink(cfg.LogFile)
	mb := mailbox.New[worker.Job]()
	w := s.newWorker(cfg, mb)

	cl := cronLogger{log: s.opts.Log}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	every := s.interval(cfg.Backup)
	c.Schedule(cron.Every(every), cron.FuncJob(func() {
		if mb.HasJob() {
			s.opts.Log.Debug("replacing pending pass")
		}
		if mb.Put(worker.NewJob(worker.TriggerTimer, s.now())) {
			s.opts.Log.Debug("timer fired", "interval", every.String())
		}
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Start(ctx)
	}()
	c.Start()

	s.mu.Lock()
	s.run = &run{cron: c, mb: mb, cancel: cancel, done: done, sink: sink}
	s.state = Running
	s.mu.Unlock()

	s.opts.Events.Infof("Backup timer started (%d min).", cfg.Backup.IntervalMinutes)
	s.opts.Log.Info("scheduler started",
		"source", cfg.Backup.SourceFolder,
		"dest", cfg.Backup.DestFolder,
		"interval", every.String(),
		"rotation", cfg.Backup.RotationEnabled,
		"maxBackups", cfg.Backup.MaxBackups,
		"compression", cfg.Backup.Compression.String())

	mb.Put(worker.NewJob(worker.TriggerStart, s.now()))
	return nil
}

// Stop disarms the timer, drops any pending pass and waits for the pass in
// progress before closing the durable log. A snapshot being written is
// finished; a confirmation still waiting for an answer counts as declined.
// Stopping an idle scheduler is a no-op.
func (s *Scheduler) Stop() error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	return s.stopLocked()
}

func (s *Scheduler) stopLocked() error {
	s.mu.RLock()
	r := s.run
	s.mu.RUnlock()
	if r == nil {
		return nil
	}

	<-r.cron.Stop().Done()
	r.mb.Close()
	r.cancel()
	<-r.done

	s.mu.Lock()
	s.run = nil
	if s.state == Running {
		s.state = Idle
	}
	s.mu.Unlock()

	s.opts.Events.Infof("Backup timer stopped.")
	s.opts.Log.Info("scheduler stopped")
	return s.closeSink(r.sink)
}

// Dispose stops the scheduler and makes it unusable.
func (s *Scheduler) Dispose() error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if s.State() == Disposed {
		return nil
	}
	err := s.stopLocked()

	s.mu.Lock()
	s.state = Disposed
	s.mu.Unlock()
	return err
}

// RunNow queues a pass on the running scheduler. If a pass is already
// pending it is replaced, so requests never pile up.
func (s *Scheduler) RunNow() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.state != Running || s.run == nil {
		return ErrNotRunning
	}
	if !s.run.mb.Put(worker.NewJob(worker.TriggerManual, s.now())) {
		return ErrNotRunning
	}
	return nil
}

// RunOnce performs a single pass synchronously without arming the timer.
// It returns the snapshot error, if any; rotation problems are only logged.
func (s *Scheduler) RunOnce(ctx context.Context, cfg Config) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if err := s.checkState(Idle); err != nil {
		return err
	}
	if err := s.validate(cfg.Backup); err != nil {
		return err
	}

	sink := s.openSink(cfg.LogFile)
	defer func() {
		_ = s.closeSink(sink)
	}()

	out := s.newWorker(cfg, nil).Handle(ctx, worker.NewJob(worker.TriggerManual, s.now()))
	return out.Err
}

func (s *Scheduler) checkState(want State) error {
	switch st := s.State(); {
	case st == want:
		return nil
	case st == Disposed:
		return ErrDisposed
	case st == Running:
		return ErrRunning
	default:
		return ErrNotRunning
	}
}

func (s *Scheduler) newWorker(cfg Config, mb *mailbox.Mailbox[worker.Job]) *worker.Worker {
	return worker.New(worker.Config{
		Backup:         cfg.Backup,
		ConfirmTimeout: cfg.ConfirmTimeout,
	}, mb, worker.Deps{
		FS:        s.opts.FS,
		Confirmer: s.opts.Confirmer,
		Events:    s.opts.Events,
		Metrics:   s.opts.Metrics,
		Log:       s.opts.Log,
	})
}

// openSink attaches the durable log. A log file that cannot be opened is
// reported but does not prevent backups.
func (s *Scheduler) openSink(path string) *eventlog.FileSink {
	if path == "" {
		return nil
	}
	sink := eventlog.NewFileSink(path)
	if err := sink.Open(); err != nil {
		s.opts.Log.Warn("durable event log unavailable", "path", sink.Path(), "error", err)
		return nil
	}
	s.opts.Events.Attach(sink)
	return sink
}

func (s *Scheduler) closeSink(sink *eventlog.FileSink) error {
	if sink == nil {
		return nil
	}
	s.opts.Events.Detach(sink)
	return sink.Close()
}

func (s *Scheduler) validate(b config.BackupConfig) error {
	for _, dir := range []struct{ what, path string }{
		{"source folder", b.SourceFolder},
		{"destination folder", b.DestFolder},
	} {
		st, err := s.opts.FS.Stat(dir.path)
		if err != nil {
			return backuperr.New(backuperr.InvalidPaths, dir.what+" does not exist:", dir.path, err)
		}
		if !st.IsDir() {
			return backuperr.New(backuperr.InvalidPaths, dir.what+" is not a directory:", dir.path, nil)
		}
	}
	if b.IntervalMinutes < config.MinIntervalMinutes || b.IntervalMinutes > config.MaxIntervalMinutes {
		return fmt.Errorf("interval %d min out of range [%d, %d]", b.IntervalMinutes, config.MinIntervalMinutes, config.MaxIntervalMinutes)
	}
	if b.MaxBackups < config.MinBackups || b.MaxBackups > config.MaxBackups {
		return fmt.Errorf("max backups %d out of range [%d, %d]", b.MaxBackups, config.MinBackups, config.MaxBackups)
	}
	return nil
}
