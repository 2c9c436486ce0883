package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sreeramp-official/solana-token-app/internal/reporting"
	"github.com/sreeramp-official/solana-token-app/internal/tokenops"
)

func newReportCmd(r *root) *cobra.Command {
	var (
		since  time.Duration
		wallet string
		format string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize recorded operations",
		Long:  "Summarizes the operation log: totals, success rate and confirmation latency per operation kind, and recent failures. Only meaningful with a persistent storage backend.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if r.jsonOut {
				format = "json"
			}
			switch format {
			case "markdown", "csv", "json":
			default:
				return fmt.Errorf("unknown format %q: use markdown, csv or json", format)
			}

			e, err := r.open(cmd, false)
			if err != nil {
				return err
			}
			defer e.cleanup()

			to := time.Now().UnixMilli()
			report, err := reporting.NewGenerator(e.operations).Generate(cmd.Context(), to-since.Milliseconds(), to, wallet)
			if err != nil {
				return failed(tokenops.ActionReport, err)
			}

			w := cmd.OutOrStdout()
			switch format {
			case "json":
				return printJSON(w, report)
			case "csv":
				_, err = fmt.Fprint(w, reporting.RenderCSV(report.Kinds))
			default:
				_, err = fmt.Fprint(w, reporting.RenderMarkdown(report))
			}
			return err
		},
	}

	cmd.Flags().DurationVar(&since, "since", 24*time.Hour, "Report window ending now")
	cmd.Flags().StringVar(&wallet, "wallet", "", "Only operations signed by this wallet")
	cmd.Flags().StringVar(&format, "format", "markdown", "Output format: markdown, csv or json")
	return cmd
}
