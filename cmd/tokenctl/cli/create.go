package cli

import (
	"github.com/spf13/cobra"

	"github.com/sreeramp-official/solana-token-app/internal/tokenops"
)

func newCreateCmd(r *root) *cobra.Command {
	var req tokenops.CreateRequest

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new token mint",
		Long:  "Creates a mint with the connected keypair as mint and freeze authority and mints the initial supply to its associated token account.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := r.open(cmd, true)
			if err != nil {
				return err
			}
			defer e.cleanup()

			receipt, err := e.svc.CreateToken(cmd.Context(), req)
			if err != nil {
				return failed(tokenops.ActionCreate, err)
			}
			return r.printReceipt(cmd, tokenops.ActionCreate, receipt)
		},
	}

	cmd.Flags().StringVar(&req.Name, "name", "", "Token name")
	cmd.Flags().StringVar(&req.Symbol, "symbol", "", "Token symbol")
	cmd.Flags().IntVar(&req.Decimals, "decimals", 9, "Decimal places (0-9)")
	cmd.Flags().StringVar(&req.InitialSupply, "supply", "", "Initial supply in display units")
	return cmd
}
