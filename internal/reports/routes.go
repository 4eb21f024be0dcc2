package reports

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

// MountRoutes registers reporting routes. Reads are rate limited since
// uncached reports aggregate the full entry store.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(httprate.LimitByIP(60, time.Minute))
		r.Get("/reports/trial-balance", h.TrialBalance)
		r.Get("/reports/pl", h.ProfitAndLoss)
		r.Get("/reports/balance-sheet", h.BalanceSheet)
		r.Get("/reports/accounts/{code}/statement", h.Statement)
	})
}
