// Package worker runs backup passes: write a snapshot, then rotate old ones.
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/raoulx24/folder-archiver/internal/archive"
	"github.com/raoulx24/folder-archiver/internal/backuperr"
	"github.com/raoulx24/folder-archiver/internal/config"
	"github.com/raoulx24/folder-archiver/internal/eventlog"
	"github.com/raoulx24/folder-archiver/internal/fs"
	"github.com/raoulx24/folder-archiver/internal/logging"
	"github.com/raoulx24/folder-archiver/internal/mailbox"
	"github.com/raoulx24/folder-archiver/internal/metrics"
	"github.com/raoulx24/folder-archiver/internal/retention"
	"github.com/raoulx24/folder-archiver/internal/snapshot"
)

// Config is the immutable input of a pass.
type Config struct {
	Backup         config.BackupConfig
	ConfirmTimeout time.Duration
}

// Deps are the collaborators of a worker. Nil fields get working defaults,
// except Confirmer: without one every bulk deletion is declined.
type Deps struct {
	FS        fs.FS
	Confirmer retention.Confirmer
	Events    *eventlog.Logger
	Metrics   *metrics.BackupMetrics
	Log       logging.Logger
}

// Worker executes passes one at a time. Its config is fixed for its
// lifetime; a new config means a new worker.
type Worker struct {
	cfg Config

	fs        fs.FS
	archiver  *archive.Archiver
	confirmer retention.Confirmer
	events    *eventlog.Logger
	metrics   *metrics.BackupMetrics
	log       logging.Logger
	mb        *mailbox.Mailbox[Job]
	now       func() time.Time
}

// Outcome summarizes a pass for callers and tests.
type Outcome struct {
	Snapshot *archive.Result
	// Err is the snapshot failure, if any. Rotation problems never set it.
	Err       error
	Suspect   []string
	Decision  retention.Decision
	Confirmed bool
	Applied   retention.ApplyResult
}

// New creates a worker using the pass config and mailbox.
func New(cfg Config, mb *mailbox.Mailbox[Job], d Deps) *Worker {
	if d.FS == nil {
		d.FS = fs.New()
	}
	if d.Log == nil {
		d.Log = logging.Discard()
	}
	if d.Events == nil {
		d.Events = eventlog.New()
	}
	d.Log.Debug("creating worker")
	return &Worker{
		cfg:       cfg,
		fs:        d.FS,
		archiver:  archive.New(d.FS, d.Log),
		confirmer: d.Confirmer,
		events:    d.Events,
		metrics:   d.Metrics,
		log:       d.Log,
		mb:        mb,
		now:       time.Now,
	}
}

// Start runs the worker loop using mailbox semantics. It returns once the
// mailbox is closed; a pass in progress is always completed first. Cancelling
// ctx declines a confirmation the pass is waiting for.
func (w *Worker) Start(ctx context.Context) {
	w.log.Debug("starting worker")
	for {
		job, ok := w.mb.Take()
		if !ok {
			w.log.Debug("worker stopped")
			return
		}
		w.Handle(ctx, job)
	}
}

// Handle runs one pass. Every failure is reported through the event log;
// nothing escapes the pass.
func (w *Worker) Handle(ctx context.Context, job Job) Outcome {
	start := w.now()
	cfg := w.cfg
	b := cfg.Backup
	w.log.Debug("pass started", "job", job.ID.String(), "trigger", string(job.Trigger))

	var out Outcome
	// A snapshot that was started is always finished; ctx only cuts short
	// waiting for a confirmation.
	res, err := w.archiver.CreateSnapshot(context.WithoutCancel(ctx), b.SourceFolder, b.DestFolder, b.Compression, start)
	if err != nil {
		out.Err = err
		w.events.Errorf("✗  ERROR: %v", err)
		w.log.Error("snapshot failed", "job", job.ID.String(), "error", err)
		w.metrics.RecordArchiveError(backuperr.CodeOf(err).String())
		w.metrics.RecordPass(metrics.ResultFailed, w.now().Sub(start))
		return out
	}
	out.Snapshot = &res
	w.events.Successf("✓  %s created.", res.Name)
	for _, name := range res.Changed {
		w.events.Warnf("⚠  %s changed while it was being archived.", name)
	}
	w.metrics.RecordSnapshot(start, res.Bytes)

	result := metrics.ResultSuccess
	if b.RotationEnabled && !w.rotate(ctx, cfg, &out) {
		result = metrics.ResultCancelled
	}
	w.metrics.RecordPass(result, w.now().Sub(start))
	w.log.Debug("pass finished", "job", job.ID.String(), "files", res.Files, "bytes", res.Bytes)
	return out
}

// rotate classifies the destination and removes snapshots beyond the
// maximum. It reports false when a bulk deletion was not confirmed.
func (w *Worker) rotate(ctx context.Context, cfg Config, out *Outcome) bool {
	b := cfg.Backup

	set, err := snapshot.Classify(b.DestFolder)
	if err != nil {
		w.events.Errorf("✗  ERROR: %v", err)
		return true
	}
	out.Suspect = set.Suspect
	w.metrics.RecordScan(len(set.Valid), len(set.Suspect))
	if n := len(set.Suspect); n > 0 {
		w.events.Warnf("⚠  Found %d file(s) with the %s prefix but unexpected length; not touched.", n, snapshot.Prefix)
		for _, name := range set.Suspect {
			w.events.Warnf("   %s", name)
		}
	}

	d := retention.Enforce(set.Valid, b.MaxBackups)
	out.Decision = d
	if d.Empty() {
		return true
	}

	ok, err := retention.Gate(ctx, d, w.confirmer, cfg.ConfirmTimeout)
	if err != nil {
		w.log.Warn("deletion not confirmed", "count", len(d.Deletable), "error", err)
	}
	if !ok {
		w.events.Infof("Rotation cancelled.")
		w.metrics.RecordDeclined()
		return false
	}
	out.Confirmed = true

	applied := retention.Apply(context.WithoutCancel(ctx), w.fs, d)
	out.Applied = applied
	for _, name := range applied.Deleted {
		w.events.Infof("␡  Deleted old backup: %s", name)
	}
	for _, ferr := range applied.Failures {
		name, cause := failureDetail(ferr)
		w.events.Warnf("⚠  Could not delete %s: %v", name, cause)
	}
	w.metrics.RecordDeletions(len(applied.Deleted), len(applied.Failures))
	return true
}

func failureDetail(err error) (string, error) {
	var be *backuperr.Error
	if errors.As(err, &be) && be.Err != nil {
		return be.Path, be.Err
	}
	return "", err
}
