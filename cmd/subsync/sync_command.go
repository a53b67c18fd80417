package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"subsync/internal/api"
	"subsync/internal/queue"
	"subsync/internal/subtitles"
)

func newSyncCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sync <content-id>",
		Short: "Schedule a subtitle sync job",
		Long: `Schedule a subtitle sync job for a Stremio content identifier.

Movies use the bare IMDB id ("tt0133093"); episodes append season and
episode numbers ("tt0903747:1:2").`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			imdbID, season, episode, err := subtitles.ParseStremioID(args[0])
			if err != nil {
				return err
			}

			return ctx.withStore(cmd.Context(), func(client *api.Client, store *queue.Store) error {
				out := cmd.OutOrStdout()

				if client != nil {
					resp, err := client.Enqueue(cmd.Context(), api.EnqueueRequest{
						IMDBID:  imdbID,
						Season:  season,
						Episode: episode,
					})
					if err != nil {
						return err
					}
					printEnqueueResult(cmd, resp.Job, resp.Created)
					return nil
				}

				cfg := ctx.configValue()
				job, created, err := store.Enqueue(cmd.Context(), queue.EnqueueRequest{
					IMDBID:            imdbID,
					Season:            season,
					Episode:           episode,
					ReferenceLanguage: cfg.OpenSubtitles.ReferenceLanguage,
					TargetLanguage:    cfg.OpenSubtitles.TargetLanguage,
					CacheKey:          subtitles.CacheKey(imdbID, season, episode),
				})
				if err != nil {
					return err
				}
				printEnqueueResult(cmd, api.FromJob(job), created)
				fmt.Fprintln(out, "Daemon is not running; the job will start once it does.")
				return nil
			})
		},
	}
}

func printEnqueueResult(cmd *cobra.Command, job api.SyncJob, created bool) {
	out := cmd.OutOrStdout()
	if created {
		fmt.Fprintf(out, "Scheduled sync job %d for %s (%s -> %s)\n",
			job.ID, job.CacheKey, job.ReferenceLanguage, job.TargetLanguage)
		return
	}
	fmt.Fprintf(out, "Job %d for %s already exists (status: %s)\n", job.ID, job.CacheKey, job.Status)
}
