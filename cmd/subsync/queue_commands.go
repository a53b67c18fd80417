package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"subsync/internal/api"
	"subsync/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the sync queue",
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueShowCommand(ctx))
	queueCmd.AddCommand(newQueueStatsCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueRemoveCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	queueCmd.AddCommand(newQueueResetCommand(ctx))

	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var statusFilter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queue jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			var statuses []queue.Status
			for _, raw := range splitCommaList(statusFilter) {
				status, ok := queue.ParseStatus(raw)
				if !ok {
					return fmt.Errorf("unknown status %q", raw)
				}
				statuses = append(statuses, status)
			}

			return ctx.withStore(cmd.Context(), func(client *api.Client, store *queue.Store) error {
				var jobs []api.SyncJob
				if client != nil {
					names := make([]string, 0, len(statuses))
					for _, status := range statuses {
						names = append(names, string(status))
					}
					resp, err := client.QueueList(cmd.Context(), names...)
					if err != nil {
						return err
					}
					jobs = resp.Jobs
				} else {
					stored, err := store.List(cmd.Context(), statuses...)
					if err != nil {
						return err
					}
					jobs = api.FromJobs(stored)
				}

				out := cmd.OutOrStdout()
				if len(jobs) == 0 {
					fmt.Fprintln(out, "Queue is empty")
					return nil
				}

				rows := make([][]string, 0, len(jobs))
				for _, job := range jobs {
					rows = append(rows, []string{
						strconv.FormatInt(job.ID, 10),
						job.CacheKey,
						job.Status,
						strconv.Itoa(job.Attempts),
						firstNonEmpty(job.ErrorMessage, job.Progress),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Title", "Status", "Attempts", "Detail"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&statusFilter, "status", "", "Filter by status (comma separated)")
	return cmd
}

func newQueueShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a single queue job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseJobID(args[0])
			if err != nil {
				return err
			}

			return ctx.withStore(cmd.Context(), func(client *api.Client, store *queue.Store) error {
				var job api.SyncJob
				if client != nil {
					resp, err := client.QueueShow(cmd.Context(), id)
					if err != nil {
						return err
					}
					job = resp.Job
				} else {
					stored, err := store.GetByID(cmd.Context(), id)
					if err != nil {
						return err
					}
					if stored == nil {
						return fmt.Errorf("job %d not found", id)
					}
					job = api.FromJob(stored)
				}

				printJobDetails(cmd, job)
				return nil
			})
		},
	}
}

func printJobDetails(cmd *cobra.Command, job api.SyncJob) {
	out := cmd.OutOrStdout()
	rows := [][]string{
		{"ID", strconv.FormatInt(job.ID, 10)},
		{"IMDB id", job.IMDBID},
		{"Title key", job.CacheKey},
		{"Status", job.Status},
		{"Languages", fmt.Sprintf("%s -> %s", job.ReferenceLanguage, job.TargetLanguage)},
		{"Attempts", strconv.Itoa(job.Attempts)},
	}
	if job.Season > 0 {
		rows = append(rows, []string{"Episode", fmt.Sprintf("S%dE%d", job.Season, job.Episode)})
	}
	if job.Progress != "" {
		rows = append(rows, []string{"Progress", job.Progress})
	}
	if job.ErrorMessage != "" {
		rows = append(rows, []string{"Error", job.ErrorMessage})
	}
	if job.ResultPath != "" {
		rows = append(rows, []string{"Result", job.ResultPath})
	}
	if job.CreatedAt != "" {
		rows = append(rows, []string{"Created", job.CreatedAt})
	}
	if job.UpdatedAt != "" {
		rows = append(rows, []string{"Updated", job.UpdatedAt})
	}
	if job.LastHeartbeat != "" {
		rows = append(rows, []string{"Heartbeat", job.LastHeartbeat})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Field", "Value"},
		rows,
		[]columnAlignment{alignLeft, alignLeft},
	))
}

func newQueueStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show per-status job counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(client *api.Client, store *queue.Store) error {
				counts := map[string]int{}
				if client != nil {
					resp, err := client.QueueStats(cmd.Context())
					if err != nil {
						return err
					}
					counts = resp.Counts
				} else {
					stats, err := store.Stats(cmd.Context())
					if err != nil {
						return err
					}
					counts = toStringStats(stats)
				}

				out := cmd.OutOrStdout()
				total := 0
				rows := make([][]string, 0, len(queue.AllStatuses()))
				for _, status := range queue.AllStatuses() {
					count := counts[string(status)]
					total += count
					rows = append(rows, []string{string(status), strconv.Itoa(count)})
				}
				rows = append(rows, []string{"total", strconv.Itoa(total)})
				fmt.Fprintln(out, renderTable(
					[]string{"Status", "Jobs"},
					rows,
					[]columnAlignment{alignLeft, alignRight},
				))
				return nil
			})
		},
	}
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [id...]",
		Short: "Retry failed jobs",
		Long:  "Retry failed jobs. With no arguments every failed job is retried.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := parseJobID(arg)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}

			return ctx.withStore(cmd.Context(), func(client *api.Client, store *queue.Store) error {
				var affected int64
				if client != nil {
					resp, err := client.QueueRetry(cmd.Context(), ids...)
					if err != nil {
						return err
					}
					affected = resp.Affected
				} else {
					count, err := store.RetryFailed(cmd.Context(), ids...)
					if err != nil {
						return err
					}
					affected = count
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Requeued %d job(s)\n", affected)
				return nil
			})
		},
	}
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a job from the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseJobID(args[0])
			if err != nil {
				return err
			}

			return ctx.withStore(cmd.Context(), func(client *api.Client, store *queue.Store) error {
				if client != nil {
					if _, err := client.QueueRemove(cmd.Context(), id); err != nil {
						return err
					}
				} else {
					removed, err := store.Remove(cmd.Context(), id)
					if err != nil {
						return err
					}
					if !removed {
						return fmt.Errorf("job %d not found", id)
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed job %d\n", id)
				return nil
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var clearCompleted bool
	var clearFailed bool
	var clearAll bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear jobs from the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := clearScope(clearCompleted, clearFailed, clearAll)
			if err != nil {
				return err
			}

			return ctx.withStore(cmd.Context(), func(client *api.Client, store *queue.Store) error {
				var affected int64
				if client != nil {
					resp, err := client.QueueClear(cmd.Context(), scope)
					if err != nil {
						return err
					}
					affected = resp.Affected
				} else {
					var count int64
					var err error
					switch scope {
					case "completed":
						count, err = store.ClearCompleted(cmd.Context())
					case "failed":
						count, err = store.ClearFailed(cmd.Context())
					default:
						count, err = store.Clear(cmd.Context())
					}
					if err != nil {
						return err
					}
					affected = count
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d job(s)\n", affected)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&clearCompleted, "completed", false, "Clear completed jobs")
	cmd.Flags().BoolVar(&clearFailed, "failed", false, "Clear failed jobs")
	cmd.Flags().BoolVar(&clearAll, "all", false, "Clear every job")
	return cmd
}

func clearScope(completed, failed, all bool) (string, error) {
	set := 0
	scope := ""
	if completed {
		set++
		scope = "completed"
	}
	if failed {
		set++
		scope = "failed"
	}
	if all {
		set++
		scope = "all"
	}
	if set == 0 {
		return "", fmt.Errorf("specify --completed, --failed, or --all")
	}
	if set > 1 {
		return "", fmt.Errorf("only one of --completed, --failed, or --all may be set")
	}
	return scope, nil
}

func newQueueResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-stuck",
		Short: "Return stuck processing jobs to pending",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(client *api.Client, store *queue.Store) error {
				var affected int64
				if client != nil {
					resp, err := client.QueueReset(cmd.Context())
					if err != nil {
						return err
					}
					affected = resp.Affected
				} else {
					count, err := store.ResetStuckProcessing(cmd.Context())
					if err != nil {
						return err
					}
					affected = count
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reset %d job(s) to pending\n", affected)
				return nil
			})
		},
	}
}

func parseJobID(value string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid job id %q", value)
	}
	return id, nil
}

func splitCommaList(value string) []string {
	var parts []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
