package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"subsync/internal/api"
	"subsync/internal/deps"
	"subsync/internal/queue"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(client *api.Client, store *queue.Store) error {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)

				if client != nil {
					status, err := client.Status(cmd.Context())
					if err != nil {
						return err
					}
					renderDaemonStatus(out, status, colorize)
					return nil
				}

				// Daemon unreachable: report what the queue database says.
				printLines(out, renderSectionHeader("Daemon", colorize))
				fmt.Fprintln(out, renderStatusLine("Daemon", statusWarn, "not running", colorize))

				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				renderQueueStats(out, toStringStats(stats), colorize)
				renderDependencies(out, depStatuses(ctx), colorize)
				return nil
			})
		},
	}
}

func renderDaemonStatus(out io.Writer, status *api.DaemonStatus, colorize bool) {
	printLines(out, renderSectionHeader("Daemon", colorize))
	kind := statusOK
	message := fmt.Sprintf("pid %d", status.PID)
	if !status.Workflow.Running {
		kind = statusWarn
		message = "workflow stopped"
	}
	fmt.Fprintln(out, renderStatusLine("Daemon", kind, message, colorize))
	if status.Version != "" {
		fmt.Fprintln(out, renderStatusLine("Version", statusInfo, status.Version, colorize))
	}
	fmt.Fprintln(out, renderStatusLine("Queue database", statusInfo, status.QueueDBPath, colorize))
	if status.Workflow.LastError != "" {
		fmt.Fprintln(out, renderStatusLine("Last error", statusError, status.Workflow.LastError, colorize))
	}
	for _, stage := range status.Workflow.StageHealth {
		kind := statusOK
		message := "ready"
		if !stage.Ready {
			kind = statusError
			message = stage.Detail
		}
		fmt.Fprintln(out, renderStatusLine("Stage "+stage.Name, kind, message, colorize))
	}

	renderQueueStats(out, status.Workflow.QueueStats, colorize)

	apiDeps := make([]deps.Status, 0, len(status.Dependencies))
	for _, dep := range status.Dependencies {
		apiDeps = append(apiDeps, deps.Status{
			Name:      dep.Name,
			Command:   dep.Command,
			Optional:  dep.Optional,
			Available: dep.Available,
			Detail:    dep.Detail,
		})
	}
	renderDependencies(out, apiDeps, colorize)
}

func renderQueueStats(out io.Writer, stats map[string]int, colorize bool) {
	printLines(out, renderSectionHeader("Queue", colorize))
	if len(stats) == 0 {
		fmt.Fprintln(out, renderStatusLine("Queue", statusInfo, "empty", colorize))
		return
	}
	keys := make([]string, 0, len(stats))
	for key := range stats {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		kind := statusInfo
		if key == string(queue.StatusFailed) && stats[key] > 0 {
			kind = statusWarn
		}
		fmt.Fprintln(out, renderStatusLine(key, kind, fmt.Sprintf("%d", stats[key]), colorize))
	}
}

func renderDependencies(out io.Writer, statuses []deps.Status, colorize bool) {
	printLines(out, renderSectionHeader("Dependencies", colorize))
	for _, dep := range statuses {
		kind := statusOK
		message := dep.Command
		if !dep.Available {
			message = dep.Detail
			if dep.Optional {
				kind = statusWarn
			} else {
				kind = statusError
			}
		}
		fmt.Fprintln(out, renderStatusLine(dep.Name, kind, message, colorize))
	}
}

func depStatuses(ctx *commandContext) []deps.Status {
	cfg := ctx.configValue()
	if cfg == nil {
		return nil
	}
	return deps.CheckBinaries(deps.Requirements(cfg))
}

func toStringStats(stats map[queue.Status]int) map[string]int {
	out := make(map[string]int, len(stats))
	for status, count := range stats {
		out[string(status)] = count
	}
	return out
}

func printLines(out io.Writer, lines []string) {
	for _, line := range lines {
		fmt.Fprintln(out, line)
	}
}
