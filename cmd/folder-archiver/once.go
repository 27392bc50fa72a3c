package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/raoulx24/folder-archiver/internal/eventlog"
	"github.com/raoulx24/folder-archiver/internal/retention"
	"github.com/raoulx24/folder-archiver/internal/scheduler"
)

func onceCommand(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "once",
		Short: "Take a single snapshot, apply rotation and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			settings, err := a.loadSettings()
			if err != nil {
				return err
			}

			confirmer := &modeConfirmer{prompt: newPromptConfirmer(a.stdin, a.stdout)}
			confirmer.SetMode(settings.Confirmation.Mode)
			var c retention.Confirmer = confirmer
			if yes {
				c = retention.AlwaysConfirm
			}

			sched := scheduler.New(scheduler.Options{
				Confirmer: c,
				Events:    eventlog.New(eventlog.NewWriterSink(a.stdout)),
				Log:       a.log.With("module", "scheduler"),
			})
			defer sched.Dispose()

			cfg := scheduler.ConfigFrom(settings)
			cfg.LogFile = a.store.ResolvePath(cfg.LogFile)
			return sched.RunOnce(ctx, cfg)
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Approve bulk deletions without asking")
	return cmd
}
