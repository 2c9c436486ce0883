package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Operations Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Window: %s to %s\n\n", formatMs(r.From), formatMs(r.To)))
	if r.Wallet != "" {
		sb.WriteString(fmt.Sprintf("Wallet: %s\n\n", r.Wallet))
	}

	// Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Operations | %d |\n", r.Summary.Total))
	sb.WriteString(fmt.Sprintf("| Confirmed | %d |\n", r.Summary.Confirmed))
	sb.WriteString(fmt.Sprintf("| Failed | %d |\n", r.Summary.Failed))
	sb.WriteString(fmt.Sprintf("| Success Rate | %.2f%% |\n", r.Summary.SuccessRate*100))
	sb.WriteString(fmt.Sprintf("| Wallets | %d |\n", r.Summary.Wallets))
	sb.WriteString(fmt.Sprintf("| Mints | %d |\n", r.Summary.Mints))
	sb.WriteString("\n")

	// Per kind
	sb.WriteString("## Operations by Kind\n\n")
	if len(r.Kinds) > 0 {
		sb.WriteString("| Kind | Total | Confirmed | Failed | Success | Mean ms | Median ms | P90 ms | Max ms |\n")
		sb.WriteString("|------|-------|-----------|--------|---------|---------|-----------|--------|--------|\n")
		for _, k := range r.Kinds {
			sb.WriteString(fmt.Sprintf("| %s | %d | %d | %d | %.2f%% | %.1f | %.1f | %.1f | %d |\n",
				k.Kind, k.Total, k.Confirmed, k.Failed, k.SuccessRate*100,
				k.LatencyMean, k.LatencyMedian, k.LatencyP90, k.LatencyMax))
		}
	} else {
		sb.WriteString("No operations in this window.\n")
	}
	sb.WriteString("\n")

	// Failures
	sb.WriteString("## Failures\n\n")
	if len(r.Failures) > 0 {
		sb.WriteString("| Kind | Error | Count |\n")
		sb.WriteString("|------|-------|-------|\n")
		for _, f := range r.Failures {
			sb.WriteString(fmt.Sprintf("| %s | %s | %d |\n", f.Kind, f.ErrorKind, f.Count))
		}
		sb.WriteString("\n")

		sb.WriteString("### Recent Failures\n\n")
		sb.WriteString("| Time | Kind | Mint | Error |\n")
		sb.WriteString("|------|------|------|-------|\n")
		for _, op := range r.RecentFailures {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
				formatMs(op.Timestamp), op.Kind, op.Mint, op.ErrorKind))
		}
	} else {
		sb.WriteString("No failed operations.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}

func formatMs(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}
