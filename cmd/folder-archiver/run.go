package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/raoulx24/folder-archiver/internal/config"
	"github.com/raoulx24/folder-archiver/internal/eventlog"
	"github.com/raoulx24/folder-archiver/internal/logging"
	"github.com/raoulx24/folder-archiver/internal/metrics"
	"github.com/raoulx24/folder-archiver/internal/scheduler"
	"github.com/raoulx24/folder-archiver/internal/watcher"
)

type runOptions struct {
	metricsAddr string
	save        bool
}

func runCommand(a *app) *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the backup timer and run until interrupted",
		Long: `Run takes a snapshot immediately and then every interval. Rotation keeps
the newest --max-backups snapshots; deleting more than one at a time asks
for confirmation. The config file is reloaded on change or SIGHUP, and
SIGUSR1 queues an extra backup right away.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.run(ctx, opts)
		},
	}
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9110")
	cmd.Flags().BoolVar(&opts.save, "save", false, "Persist the effective settings to the config file on start and stop")
	return cmd
}

func (a *app) run(ctx context.Context, opts runOptions) error {
	settings, err := a.loadSettings()
	if err != nil {
		return err
	}

	history := eventlog.NewMemorySink(eventlog.DefaultHistory)
	events := eventlog.New(history)
	events.OnSinkError(func(_ eventlog.Sink, err error) {
		a.log.Warn("event sink write failed", "error", err)
	})
	stopDisplay := a.display(history)
	defer stopDisplay()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.NewBackupMetrics(registry)
	if err != nil {
		return fmt.Errorf("registering metrics: %w", err)
	}
	if opts.metricsAddr != "" {
		shutdown := a.serveMetrics(opts.metricsAddr, registry, history)
		defer shutdown()
	}

	confirmer := &modeConfirmer{prompt: newPromptConfirmer(a.stdin, a.stdout)}
	sched := scheduler.New(scheduler.Options{
		Confirmer: confirmer,
		Events:    events,
		Metrics:   m,
		Log:       a.log.With("module", "scheduler"),
	})
	defer func() {
		if err := sched.Dispose(); err != nil {
			a.log.Warn("closing event log", "error", err)
		}
	}()

	reloadCh := make(chan struct{}, 1)
	requestReload := func() {
		select {
		case reloadCh <- struct{}{}:
		default:
		}
	}

	cw := &configWatch{ctx: ctx, path: a.store.Path, log: a.log.With("module", "watcher"), onChange: requestReload}
	cw.apply(settings.ConfigReload)
	defer cw.stop()

	start := func(s config.Settings) error {
		cfg := scheduler.ConfigFrom(s)
		cfg.LogFile = a.store.ResolvePath(cfg.LogFile)
		confirmer.SetMode(s.Confirmation.Mode)
		if err := sched.Start(cfg); err != nil {
			events.Errorf("✗  ERROR: %v", err)
			return err
		}
		if opts.save {
			a.saveSettings(s)
			cw.acknowledge()
		}
		return nil
	}

	if err := start(settings); err != nil {
		return err
	}

	hupCh := make(chan os.Signal, 1)
	signal.Notify(hupCh, syscall.SIGHUP)
	defer signal.Stop(hupCh)

	nowCh := make(chan os.Signal, 1)
	if len(runNowSignals) > 0 {
		signal.Notify(nowCh, runNowSignals...)
		defer signal.Stop(nowCh)
	}

	for {
		select {
		case <-ctx.Done():
			if err := sched.Stop(); err != nil {
				a.log.Warn("closing event log", "error", err)
			}
			if opts.save && sched.State() == scheduler.Idle {
				a.saveSettings(settings)
			}
			return nil

		case <-hupCh:
			a.log.Info("reloading config", "reason", "SIGHUP")
			settings = a.restart(sched, settings, start, cw)

		case <-reloadCh:
			a.log.Info("reloading config", "reason", "file changed")
			settings = a.restart(sched, settings, start, cw)

		case sig := <-nowCh:
			if err := sched.RunNow(); err != nil {
				a.log.Warn("backup not queued", "signal", sig.String(), "error", err)
			} else {
				a.log.Info("backup queued", "signal", sig.String())
			}
		}
	}
}

// restart stops the scheduler and starts it again with freshly loaded
// settings. If those are unusable the scheduler stays idle until the next
// change and the previous settings are kept.
func (a *app) restart(sched *scheduler.Scheduler, current config.Settings, start func(config.Settings) error, cw *configWatch) config.Settings {
	next, err := a.loadSettings()
	if err != nil {
		a.log.Error("config reload rejected", "error", err)
		return current
	}
	if next.ConfigReload != current.ConfigReload {
		cw.apply(next.ConfigReload)
	}
	if err := sched.Stop(); err != nil {
		a.log.Warn("closing event log", "error", err)
	}
	if err := start(next); err != nil {
		a.log.Error("scheduler not restarted", "error", err)
	}
	return next
}

// display copies events to stdout as they are logged. The returned function
// flushes what is left and stops copying.
func (a *app) display(history *eventlog.MemorySink) func() {
	ch, cancel := history.Subscribe(eventlog.DefaultHistory)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range ch {
			if _, err := io.WriteString(a.stdout, ev.Line()+"\n"); err != nil {
				a.log.Warn("writing event to stdout", "error", err)
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

// eventsHandler serves the retained event history as plain log lines.
func eventsHandler(history *eventlog.MemorySink) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		for _, ev := range history.Events() {
			if _, err := io.WriteString(w, ev.Line()+"\n"); err != nil {
				return
			}
		}
	})
}

func (a *app) serveMetrics(addr string, registry *prometheus.Registry, history *eventlog.MemorySink) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.Handle("/events", eventsHandler(history))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		a.log.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("metrics server failed", "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

// configWatch runs the config file watcher with the current reload settings.
type configWatch struct {
	ctx      context.Context
	path     string
	log      logging.Logger
	onChange func()

	w      *watcher.Watcher
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// apply starts, retunes or stops watching to match cfg.
func (c *configWatch) apply(cfg config.ReloadConfig) {
	c.stop()
	if !cfg.Enabled {
		return
	}
	if c.w == nil {
		c.w = watcher.New(c.path, cfg, c.log, c.onChange)
	} else {
		c.w.UpdateConfig(cfg)
	}

	ctx, cancel := context.WithCancel(c.ctx)
	c.cancel = cancel
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := c.w.Start(ctx); err != nil {
			c.log.Error("config watcher stopped", "error", err)
		}
	}()
}

func (c *configWatch) stop() {
	if c.cancel == nil {
		return
	}
	c.cancel()
	c.wg.Wait()
	c.cancel = nil
}

func (c *configWatch) acknowledge() {
	if c.w != nil {
		c.w.Acknowledge()
	}
}
