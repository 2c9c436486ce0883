package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sreeramp-official/solana-token-app/internal/tokenops"
)

func newHistoryCmd(r *root) *cobra.Command {
	var (
		before string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "history [owner]",
		Short: "List recent transactions",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, owner, err := r.owner(cmd, args)
			if err != nil {
				return err
			}
			defer e.cleanup()

			page, err := e.svc.History(cmd.Context(), owner, before, limit)
			if err != nil {
				return failed(tokenops.ActionHistory, err)
			}

			w := cmd.OutOrStdout()
			if r.jsonOut {
				return printJSON(w, page)
			}
			if len(page.Transactions) == 0 {
				_, _ = fmt.Fprintln(w, "No transactions found")
				return nil
			}

			tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "TIME\tSTATUS\tSIGNATURE")
			for _, tx := range page.Transactions {
				ts := "-"
				if tx.BlockTime != nil {
					ts = time.Unix(*tx.BlockTime, 0).UTC().Format(time.RFC3339)
				}
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", ts, tx.Status, tx.Signature)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if page.HasMore {
				_, _ = fmt.Fprintf(w, "More: --before %s\n", page.Next)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&before, "before", "", "Start after this signature")
	cmd.Flags().IntVar(&limit, "limit", tokenops.HistoryPageSize, "Page size")
	return cmd
}
