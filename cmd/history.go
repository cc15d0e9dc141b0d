package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent triage outcomes",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(true)
			if err != nil {
				return err
			}
			defer app.Close()

			records, err := app.history.RecentTriage(cmd.Context(), limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "WHEN\tACTION\tSUBJECT\tWORK ITEM\tDETAIL")
			for _, rec := range records {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					rec.CreatedAt.Format("2006-01-02 15:04"),
					rec.Action,
					rec.Subject,
					rec.WorkItemID,
					rec.Detail,
				)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "number of records to show")
	return cmd
}
