package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sreeramp-official/solana-token-app/internal/tokenops"
)

func newBalancesCmd(r *root) *cobra.Command {
	return &cobra.Command{
		Use:   "balances [owner]",
		Short: "Show SOL and token balances",
		Long:  "Shows the SOL balance and every token account of owner, or of the configured keypair when owner is omitted.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, owner, err := r.owner(cmd, args)
			if err != nil {
				return err
			}
			defer e.cleanup()

			d, err := e.svc.Dashboard(cmd.Context(), owner)
			if err != nil {
				return failed(tokenops.ActionDashboard, err)
			}

			w := cmd.OutOrStdout()
			if r.jsonOut {
				return printJSON(w, d)
			}
			_, _ = fmt.Fprintf(w, "Wallet: %s\n", d.Owner)
			_, _ = fmt.Fprintf(w, "SOL:    %s\n", d.SOL)
			if len(d.Tokens) == 0 {
				_, _ = fmt.Fprintln(w, "No tokens found")
				return nil
			}

			tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "SYMBOL\tNAME\tAMOUNT\tMINT")
			for _, t := range d.Tokens {
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.Symbol, t.Name, t.Amount, t.Mint)
			}
			return tw.Flush()
		},
	}
}
