package main

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"ariacut/internal/config"
	"ariacut/internal/deps"
	"ariacut/internal/logging"
	"ariacut/internal/queue"
	"ariacut/internal/staging"
	"ariacut/internal/workflow"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show job store, dependency and stage status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				c := cmd.Context()

				for _, line := range renderSectionHeader("Job store", colorize) {
					fmt.Fprintln(out, line)
				}
				health, err := store.CheckHealth(c)
				if err != nil {
					return err
				}
				dbKind, dbMsg := statusOK, health.DBPath
				if !health.IntegrityCheck || len(health.MissingColumns) > 0 || health.Error != "" {
					dbKind = statusError
					if health.Error != "" {
						dbMsg = health.Error
					}
				}
				fmt.Fprintln(out, renderStatusLine("Database", dbKind, dbMsg, colorize))
				fmt.Fprintln(out, renderStatusLine("Schema", statusInfo, fmt.Sprintf("version %d", health.SchemaVersion), colorize))
				fmt.Fprintln(out, renderStatusLine("Lyric bank", statusInfo, fmt.Sprintf("%d lyrics", health.TotalLyrics), colorize))

				stats, err := store.Stats(c)
				if err != nil {
					return err
				}
				fmt.Fprint(out, renderTable([]string{"Status", "Editions"}, buildStatsRows(stats),
					[]columnAlignment{alignLeft, alignRight}))

				for _, line := range renderSectionHeader("Dependencies", colorize) {
					fmt.Fprintln(out, line)
				}
				depStatuses := deps.CheckBinaries(deps.MediaRequirements(cfg.Media))
				for _, dep := range depStatuses {
					kind, msg := statusOK, dep.Path
					if !dep.Available {
						kind, msg = statusError, dep.Detail
						if dep.Optional {
							kind = statusWarn
						}
					}
					fmt.Fprintln(out, renderStatusLine(dep.Name, kind, msg, colorize))
				}
				if missing := deps.MissingRequired(depStatuses); len(missing) > 0 {
					fmt.Fprintf(out, "%s%d required tools missing; 'ariacut run' will refuse to start\n", statusIndent, len(missing))
				}

				for _, line := range renderSectionHeader("Stages", colorize) {
					fmt.Fprintln(out, line)
				}
				manager := workflow.NewManager(cfg, store, logging.NewNop())
				manager.ConfigureStages(buildStages(cfg, store, logging.NewNop()))
				summary := manager.Status(c)
				names := make([]string, 0, len(summary.StageHealth))
				for name := range summary.StageHealth {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, name := range names {
					h := summary.StageHealth[name]
					kind, msg := statusOK, "ready"
					if !h.Ready {
						kind, msg = statusError, h.Detail
					}
					fmt.Fprintln(out, renderStatusLine(name, kind, msg, colorize))
				}

				for _, line := range renderSectionHeader("Working files", colorize) {
					fmt.Fprintln(out, line)
				}
				dirs, err := staging.ListDirectories(filepath.Join(cfg.Paths.StorageDir, "editions"))
				if err != nil {
					return err
				}
				var total int64
				for _, d := range dirs {
					total += d.Size
				}
				fmt.Fprintln(out, renderStatusLine("Edition dirs", statusInfo,
					fmt.Sprintf("%d (%s)", len(dirs), humanize.IBytes(uint64(total))), colorize))
				return nil
			})
		},
	}
}

func buildStatsRows(stats map[queue.Status]int) [][]string {
	rows := make([][]string, 0, len(stats))
	for _, status := range queue.AllStatuses() {
		count, ok := stats[status]
		if !ok || count == 0 {
			continue
		}
		rows = append(rows, []string{string(status), strconv.Itoa(count)})
	}
	if len(rows) == 0 {
		rows = append(rows, []string{"(empty)", "0"})
	}
	return rows
}
