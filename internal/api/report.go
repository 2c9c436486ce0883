package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/sreeramp-official/solana-token-app/internal/reporting"
	"github.com/sreeramp-official/solana-token-app/internal/tokenops"
)

// DefaultReportWindow is the report window when ?from is omitted.
const DefaultReportWindow = 24 * time.Hour

// HandleReport summarizes the operation log.
//
// Query: from and to (Unix ms, inclusive; when omitted, the last 24h), wallet (default the
// connected wallet; "all" for every wallet), format (json, markdown, csv).
func (h *Handler) HandleReport(w http.ResponseWriter, r *http.Request) {
	if h.reporter == nil {
		h.respondError(w, r, tokenops.ActionReport, fmt.Errorf("%w: no operation log configured", tokenops.ErrInvalidInput))
		return
	}

	q := r.URL.Query()
	to, ok, err := queryInt64(r, "to")
	if err != nil {
		h.respondError(w, r, tokenops.ActionReport, err)
		return
	}
	if !ok {
		to = time.Now().UnixMilli()
	}
	from, ok, err := queryInt64(r, "from")
	if err != nil {
		h.respondError(w, r, tokenops.ActionReport, err)
		return
	}
	if !ok {
		from = to - DefaultReportWindow.Milliseconds()
	}

	wallet := q.Get("wallet")
	switch wallet {
	case "all":
		wallet = ""
	case "":
		signer, err := h.session.Current()
		if err != nil {
			h.respondError(w, r, tokenops.ActionReport, err)
			return
		}
		wallet = signer.PublicKey()
	}

	report, err := h.reporter.Generate(r.Context(), from, to, wallet)
	if errors.Is(err, reporting.ErrInvalidRange) {
		err = fmt.Errorf("%w: %v", tokenops.ErrInvalidInput, err)
	}
	if err != nil {
		h.respondError(w, r, tokenops.ActionReport, err)
		return
	}

	switch format := q.Get("format"); format {
	case "", "json":
		h.respondJSON(w, http.StatusOK, report)
	case "markdown", "md":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		_, _ = w.Write([]byte(reporting.RenderMarkdown(report)))
	case "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		_, _ = w.Write([]byte(reporting.RenderCSV(report.Kinds)))
	default:
		h.respondError(w, r, tokenops.ActionReport, fmt.Errorf("%w: unknown format %q", tokenops.ErrInvalidInput, format))
	}
}

// queryInt64 parses an integer query parameter. ok is false when the
// parameter is absent or empty.
func queryInt64(r *http.Request, name string) (n int64, ok bool, err error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return 0, false, nil
	}
	n, err = strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %s must be an integer", tokenops.ErrInvalidInput, name)
	}
	return n, true, nil
}
