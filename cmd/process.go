package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/nvkha/mailplane/internal/model"
	"github.com/nvkha/mailplane/internal/rules"
	"github.com/nvkha/mailplane/internal/watch"
)

func newProcessCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "process",
		Short: "Run a single triage pass over unseen email and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(true)
			if err != nil {
				return err
			}
			defer app.Close()

			var processed int
			triageRule := rules.Rule{
				Name:       "triage",
				Conditions: []rules.Condition{rules.All(true)},
				Handler: func(ctx context.Context, msg model.Message) error {
					res := app.runner.Handle(ctx, msg)
					processed++
					fmt.Printf("%-8s %s", res.Action, msg.Subject)
					if res.WorkItemKey != "" {
						fmt.Printf("  [%s]", res.WorkItemKey)
					}
					if res.Reason != "" {
						fmt.Printf("  (%s)", res.Reason)
					}
					if res.Message != "" {
						fmt.Printf("  error: %s", res.Message)
					}
					fmt.Println()
					return nil
				},
			}

			watch.RunOnce(app.imap, app.seen, watch.Config{
				Folder: app.cfg.Mailbox.Folder,
				Rules:  []rules.Rule{triageRule},
				OnError: func(err error) {
					slog.Error("triage pass error", "error", err)
				},
			})

			fmt.Printf("processed %d message(s)\n", processed)
			return nil
		},
	}
}
