// Package api exposes the token forms over HTTP.
//
// Every form call answers with a JSON body carrying a Notice. Failures use
// the destructive variant and a status derived from the error kind.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sreeramp-official/solana-token-app/internal/observability"
)

// NewRouter builds the HTTP routes for h.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(h.RequestIDMiddleware)
	r.Use(middleware.RealIP)
	r.Use(h.LoggingMiddleware)
	r.Use(h.RecoverMiddleware)

	r.Get("/health", h.HandleHealth)
	r.Handle("/metrics", observability.Handler())
	r.Get("/status", h.HandleStatus)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(h.requestTimeout))

		r.Get("/wallet", h.HandleWalletStatus)
		r.Post("/wallet", h.HandleWalletConnect)
		r.Delete("/wallet", h.HandleWalletDisconnect)

		r.Get("/dashboard", h.HandleDashboard)
		r.Post("/create", h.HandleCreate)
		r.Post("/mint/verify", h.HandleVerifyMint)
		r.Post("/mint", h.HandleMint)
		r.Post("/send/verify", h.HandleVerifySend)
		r.Post("/send", h.HandleSend)
		r.Get("/history", h.HandleHistory)

		r.Get("/forms", h.HandleForms)
		r.Get("/operations", h.HandleOperations)
		r.Get("/report", h.HandleReport)
	})

	return r
}

// DefaultRequestTimeout bounds one API call. It is longer than the default
// confirmation timeout so a confirm timeout is reported as such.
const DefaultRequestTimeout = 90 * time.Second
