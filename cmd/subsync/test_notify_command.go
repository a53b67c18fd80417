package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"subsync/internal/notifications"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.Notifications.NtfyTopic == "" {
				return fmt.Errorf("no ntfy topic configured")
			}

			// Prefer the daemon so the notification reflects its config,
			// but send directly when it is not running.
			client := ctx.client()
			if err := client.TestNotification(cmd.Context()); err == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "Test notification sent via daemon")
				return nil
			} else if !isConnectionError(err) {
				return err
			}

			service := notifications.NewService(cfg)
			if err := service.TestNotification(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Test notification sent")
			return nil
		},
	}
}
