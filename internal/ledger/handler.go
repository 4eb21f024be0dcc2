package ledger

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/harborerp/ledger-core/internal/platform/httpx"
	"github.com/harborerp/ledger-core/internal/shared"
)

// Handler exposes read access to vouchers and the reversal operation.
// There is no generic "post anything" endpoint; postings flow in through
// the journal, settlement and depreciation surfaces.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers voucher routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/vouchers/{voucherNo}", h.GetVoucher)
	r.Post("/vouchers/{voucherNo}/reverse", h.Reverse)
}

type entryResponse struct {
	ID          int64     `json:"id"`
	PostingDate time.Time `json:"posting_date"`
	VoucherType string    `json:"voucher_type"`
	VoucherNo   string    `json:"voucher_no"`
	AccountID   int64     `json:"account_id"`
	Debit       float64   `json:"debit"`
	Credit      float64   `json:"credit"`
	Remark      string    `json:"remark,omitempty"`
	Cancelled   bool      `json:"cancelled"`
}

func toEntryResponses(entries []Entry) []entryResponse {
	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryResponse{
			ID:          e.ID,
			PostingDate: e.PostingDate,
			VoucherType: string(e.VoucherType),
			VoucherNo:   e.VoucherNo,
			AccountID:   e.AccountID,
			Debit:       e.Debit,
			Credit:      e.Credit,
			Remark:      e.Remark,
			Cancelled:   e.Cancelled,
		})
	}
	return out
}

func (h *Handler) GetVoucher(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.GetVoucher(r.Context(), chi.URLParam(r, "voucherNo"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"voucher_no": chi.URLParam(r, "voucherNo"),
		"entries":    toEntryResponses(entries),
	})
}

func (h *Handler) Reverse(w http.ResponseWriter, r *http.Request) {
	voucherNo := chi.URLParam(r, "voucherNo")
	voucher, err := h.service.Reverse(r.Context(), voucherNo, shared.ActorFromContext(r.Context()))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"voucher_no":  voucherNo,
		"reversal_no": voucher.VoucherNo,
		"entries":     toEntryResponses(voucher.Entries),
	})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrVoucherNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrAlreadyCancelled), errors.Is(err, ErrDuplicateVoucher):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrUnbalancedPosting), errors.Is(err, ErrInvalidPostingTarget):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Unprocessable", err.Error())
	case errors.Is(err, ErrConcurrencyConflict):
		httpx.Problem(w, http.StatusConflict, "Concurrency Conflict", err.Error())
	default:
		h.logger.Error("voucher request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
