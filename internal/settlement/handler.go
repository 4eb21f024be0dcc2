package settlement

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/harborerp/ledger-core/internal/platform/httpx"
	"github.com/harborerp/ledger-core/internal/shared"
)

// Handler wires settlement endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers settlement routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/settlements", h.Allocate)
	r.Get("/settlements/{paymentID}", h.ListByPayment)
	r.Delete("/settlements/{paymentID}", h.Unallocate)
}

type allocateRequest struct {
	// PaymentID is optional; one is minted when the caller has no
	// upstream payment reference.
	PaymentID string  `json:"payment_id" validate:"omitempty,max=64"`
	PartyID   int64   `json:"party_id" validate:"required"`
	Amount    float64 `json:"amount" validate:"required,gt=0"`
}

type allocationResponse struct {
	ID          int64     `json:"id"`
	PaymentID   string    `json:"payment_id"`
	InvoiceID   int64     `json:"invoice_id"`
	Amount      float64   `json:"amount"`
	AllocatedAt time.Time `json:"allocated_at"`
}

func toAllocationResponses(allocations []Allocation) []allocationResponse {
	out := make([]allocationResponse, 0, len(allocations))
	for _, a := range allocations {
		out = append(out, allocationResponse{
			ID:          a.ID,
			PaymentID:   a.PaymentID,
			InvoiceID:   a.InvoiceID,
			Amount:      a.Amount,
			AllocatedAt: a.AllocatedAt,
		})
	}
	return out
}

func (h *Handler) Allocate(w http.ResponseWriter, r *http.Request) {
	var req allocateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if req.PaymentID == "" {
		req.PaymentID = uuid.NewString()
	}
	result, err := h.service.Allocate(r.Context(), req.PaymentID, req.PartyID, req.Amount, shared.ActorFromContext(r.Context()))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"payment_id":  req.PaymentID,
		"allocations": toAllocationResponses(result.Allocations),
		"unallocated": result.UnallocatedAmount,
	})
}

func (h *Handler) ListByPayment(w http.ResponseWriter, r *http.Request) {
	allocations, err := h.service.ListByPayment(r.Context(), chi.URLParam(r, "paymentID"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toAllocationResponses(allocations))
}

func (h *Handler) Unallocate(w http.ResponseWriter, r *http.Request) {
	paymentID := chi.URLParam(r, "paymentID")
	if err := h.service.Unallocate(r.Context(), paymentID, shared.ActorFromContext(r.Context())); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"unallocated": paymentID})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotAllocated):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrAlreadyAllocated):
		httpx.Problem(w, http.StatusConflict, "Already Allocated", err.Error())
	case errors.Is(err, ErrInsufficientOutstanding):
		httpx.Problem(w, http.StatusConflict, "Insufficient Outstanding", err.Error())
	case errors.Is(err, ErrInvalidAmount):
		httpx.Problem(w, http.StatusBadRequest, "Invalid Amount", err.Error())
	default:
		h.logger.Error("settlement request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
