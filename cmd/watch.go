package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nvkha/mailplane/internal/model"
	"github.com/nvkha/mailplane/internal/rules"
	"github.com/nvkha/mailplane/internal/watch"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch the inbox and triage matching email continuously",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(true)
			if err != nil {
				return err
			}
			defer app.Close()

			triageRule := rules.Rule{
				Name:       "triage",
				Conditions: []rules.Condition{rules.All(true)},
				Handler: func(ctx context.Context, msg model.Message) error {
					return app.runner.HandleMessage(ctx, msg)
				},
			}

			watcher := watch.Start(app.imap, app.seen, watch.Config{
				Folder:   app.cfg.Mailbox.Folder,
				Interval: app.cfg.PollInterval(),
				Rules:    []rules.Rule{triageRule},
				OnStart: func() {
					slog.Info("watching mailbox",
						"folder", app.cfg.Mailbox.Folder,
						"username", app.cfg.Mailbox.Username,
					)
				},
			})

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			sig := <-sigCh

			slog.Info("shutting down", "signal", sig.String())
			watcher.Stop()
			return nil
		},
	}
}
