package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Verify mailbox and Plane connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(false)
			if err != nil {
				return err
			}
			defer app.Close()

			ctx := cmd.Context()

			username, err := app.imap.ValidateConnection(
				ctx, app.cfg.Mailbox.Folder,
			)
			if err != nil {
				return fmt.Errorf("mailbox check failed: %w", err)
			}
			fmt.Printf("mailbox ok: %s (%s)\n", username, app.cfg.Mailbox.Folder)

			project, err := app.service.ResolveProject(ctx, app.cfg.Plane.Project)
			if err != nil {
				return fmt.Errorf("plane check failed: %w", err)
			}
			fmt.Printf("plane ok: project %s (%s)\n", project.Name, project.Identifier)

			return nil
		},
	}
}
