package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/denizyurt/takas/models"
	"github.com/denizyurt/takas/pkg"
	"github.com/denizyurt/takas/services"
)

// ReceiptHandler, okuma watermark'ı endpoint'lerini yöneten struct.
type ReceiptHandler struct {
	receiptService services.ReceiptService
}

// NewReceiptHandler, constructor.
func NewReceiptHandler(receiptService services.ReceiptService) *ReceiptHandler {
	return &ReceiptHandler{receiptService: receiptService}
}

// MarkSeen godoc
// PUT /api/threads/{id}/receipt
// "Buraya kadar gördüm" watermark'ını ilerletir.
// Gate kilitliyken 200 + marked:false döner (sessiz no-op).
func (h *ReceiptHandler) MarkSeen(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	var req models.MarkSeenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.receiptService.MarkSeen(r.Context(), user.ID, r.PathValue("id"), &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, result)
}

// GetForThread godoc
// GET /api/threads/{id}/receipts
// Konuşmanın watermark'ları — karşı tarafın "gördü" rozeti bundan hesaplanır.
func (h *ReceiptHandler) GetForThread(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	receipts, err := h.receiptService.GetForThread(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, receipts)
}
