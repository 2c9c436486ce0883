package cli

import (
	"github.com/spf13/cobra"

	"github.com/sreeramp-official/solana-token-app/internal/tokenops"
)

func newMintCmd(r *root) *cobra.Command {
	return &cobra.Command{
		Use:   "mint <mint> <amount>",
		Short: "Mint tokens to the connected wallet",
		Long:  "Verifies that the keypair is the mint authority of <mint>, then mints <amount> display units to its associated token account.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := r.open(cmd, true)
			if err != nil {
				return err
			}
			defer e.cleanup()

			ctx := cmd.Context()
			if _, err := e.svc.VerifyMint(ctx, args[0]); err != nil {
				return failed(tokenops.ActionVerifyMint, err)
			}
			receipt, err := e.svc.MintTokens(ctx, tokenops.MintRequest{Amount: args[1]})
			if err != nil {
				return failed(tokenops.ActionMint, err)
			}
			return r.printReceipt(cmd, tokenops.ActionMint, receipt)
		},
	}
}
