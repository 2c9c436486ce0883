package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sreeramp-official/solana-token-app/internal/tokenops"
)

func newSendCmd(r *root) *cobra.Command {
	return &cobra.Command{
		Use:   "send <mint> <recipient> <amount>",
		Short: "Send tokens to another wallet",
		Long:  "Checks the keypair's balance of <mint>, then transfers <amount> display units to the associated token account of <recipient>, creating it when missing.",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := r.open(cmd, true)
			if err != nil {
				return err
			}
			defer e.cleanup()

			ctx := cmd.Context()
			info, err := e.svc.VerifySend(ctx, args[0])
			if err != nil {
				return failed(tokenops.ActionVerifySend, err)
			}
			if !r.jsonOut {
				_, _ = fmt.Fprintln(cmd.ErrOrStderr(), tokenops.VerifiedTokenNotice(info.DisplayBalance).Description)
			}

			receipt, err := e.svc.SendTokens(ctx, tokenops.SendRequest{Recipient: args[1], Amount: args[2]})
			if err != nil {
				return failed(tokenops.ActionSend, err)
			}
			return r.printReceipt(cmd, tokenops.ActionSend, receipt)
		},
	}
}
