package depreciation

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/harborerp/ledger-core/internal/ledger"
	"github.com/harborerp/ledger-core/internal/platform/httpx"
	"github.com/harborerp/ledger-core/internal/shared"
)

// Handler wires depreciation endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers depreciation routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/assets/{id}/schedule", h.Generate)
	r.Get("/assets/{id}/schedule", h.ListSchedule)
	r.Post("/assets/{id}/schedule/post", h.PostPeriod)
	r.Get("/depreciation/due", h.ListDue)
}

type postPeriodRequest struct {
	Date string `json:"date" validate:"required"`
}

type scheduleEntryResponse struct {
	ID           int64     `json:"id"`
	AssetID      int64     `json:"asset_id"`
	ScheduleDate time.Time `json:"schedule_date"`
	Amount       float64   `json:"amount"`
	Accumulated  float64   `json:"accumulated"`
	BookValue    float64   `json:"book_value"`
	Status       string    `json:"status"`
	VoucherNo    string    `json:"voucher_no,omitempty"`
}

func toScheduleResponses(entries []ScheduleEntry) []scheduleEntryResponse {
	out := make([]scheduleEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, scheduleEntryResponse{
			ID:           e.ID,
			AssetID:      e.AssetID,
			ScheduleDate: e.ScheduleDate,
			Amount:       e.Amount,
			Accumulated:  e.Accumulated,
			BookValue:    e.BookValue,
			Status:       string(e.Status),
			VoucherNo:    e.VoucherNo,
		})
	}
	return out
}

func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	assetID, ok := h.assetID(w, r)
	if !ok {
		return
	}
	entries, err := h.service.GenerateSchedule(r.Context(), assetID, shared.ActorFromContext(r.Context()))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toScheduleResponses(entries))
}

func (h *Handler) ListSchedule(w http.ResponseWriter, r *http.Request) {
	assetID, ok := h.assetID(w, r)
	if !ok {
		return
	}
	entries, err := h.service.ListSchedule(r.Context(), assetID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toScheduleResponses(entries))
}

func (h *Handler) PostPeriod(w http.ResponseWriter, r *http.Request) {
	assetID, ok := h.assetID(w, r)
	if !ok {
		return
	}
	var req postPeriodRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Date", err.Error())
		return
	}
	voucherNo, err := h.service.PostPeriod(r.Context(), assetID, date, shared.ActorFromContext(r.Context()))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"voucher_no": voucherNo})
}

func (h *Handler) ListDue(w http.ResponseWriter, r *http.Request) {
	asOf := time.Time{}
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Date", err.Error())
			return
		}
		asOf = parsed
	}
	entries, err := h.service.ListDuePending(r.Context(), asOf)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toScheduleResponses(entries))
}

func (h *Handler) assetID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "asset id must be numeric")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrAssetNotFound), errors.Is(err, ErrScheduleEntryNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrAlreadyPosted), errors.Is(err, ErrScheduleExists):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrInvalidAsset):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Invalid Asset", err.Error())
	case errors.Is(err, ledger.ErrInvalidPostingTarget):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Unprocessable", err.Error())
	default:
		h.logger.Error("depreciation request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
