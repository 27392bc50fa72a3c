package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/raoulx24/folder-archiver/internal/eventlog"
	"github.com/raoulx24/folder-archiver/internal/retention"
	"github.com/raoulx24/folder-archiver/internal/snapshot"
)

func listCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the snapshots in the destination folder",
		Long: `List shows trusted snapshots oldest first, marks those the next rotation
would delete, and reports files with the Backup_ prefix that do not match
the snapshot name format. Nothing is modified.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := a.loadSettings()
			if err != nil {
				return err
			}
			dest := settings.Expanded().DestFolder
			if dest == "" {
				return errors.New("no destination folder configured")
			}

			set, err := snapshot.Classify(dest)
			if err != nil {
				return err
			}

			// The next pass adds one snapshot before rotating.
			doomed := map[string]bool{}
			if settings.RotationEnabled {
				for _, s := range retention.Enforce(set.Valid, settings.MaxBackups-1).Deletable {
					doomed[s.Name] = true
				}
			}

			tw := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tTAKEN\tSIZE\t")
			for _, s := range set.Valid {
				note := ""
				if doomed[s.Name] {
					note = "rotates next"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.Name, s.Timestamp.Format(eventlog.TimeLayout), humanBytes(s.Size), note)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			fmt.Fprintf(a.stdout, "\n%d snapshot(s), keeping %d\n", len(set.Valid), settings.MaxBackups)
			if n := len(set.Suspect); n > 0 {
				fmt.Fprintf(a.stdout, "⚠  Found %d file(s) with the %s prefix but unexpected length; not touched.\n", n, snapshot.Prefix)
				for _, name := range set.Suspect {
					fmt.Fprintf(a.stdout, "   %s\n", name)
				}
			}
			return nil
		},
	}
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
