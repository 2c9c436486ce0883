package reporting

import (
	"fmt"
	"strings"
)

// RenderCSV renders per-kind rows as CSV string.
func RenderCSV(rows []KindRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("kind,total,confirmed,failed,success_rate,")
	sb.WriteString("latency_mean_ms,latency_median_ms,latency_p90_ms,latency_max_ms\n")

	// Rows
	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%s,%d,%d,%d,%.6f,%.2f,%.2f,%.2f,%d\n",
			r.Kind,
			r.Total,
			r.Confirmed,
			r.Failed,
			r.SuccessRate,
			r.LatencyMean,
			r.LatencyMedian,
			r.LatencyP90,
			r.LatencyMax,
		))
	}

	return sb.String()
}
