package handlers

import (
	"net/http"

	"github.com/denizyurt/takas/models"
	"github.com/denizyurt/takas/pkg"
	"github.com/denizyurt/takas/services"
)

// InterestHandler, takas isteği endpoint'lerini yöneten struct.
type InterestHandler struct {
	interestService services.InterestService
}

// NewInterestHandler, constructor.
func NewInterestHandler(interestService services.InterestService) *InterestHandler {
	return &InterestHandler{interestService: interestService}
}

// Create godoc
// POST /api/listings/{id}/interests
// Bir ilana takas isteği gönderir.
func (h *InterestHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	interest, err := h.interestService.Create(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusCreated, interest)
}

// ListIncoming godoc
// GET /api/interests/incoming
// İlan sahibine gelen istekler.
func (h *InterestHandler) ListIncoming(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	interests, err := h.interestService.ListIncoming(r.Context(), user.ID)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, interests)
}

// ListSent godoc
// GET /api/interests/sent
// Kullanıcının gönderdiği istekler.
func (h *InterestHandler) ListSent(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	interests, err := h.interestService.ListSent(r.Context(), user.ID)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, interests)
}

// Accept godoc
// POST /api/interests/{id}/accept
// İsteği kabul eder ve konuşmayı açar. Yeni thread döner.
func (h *InterestHandler) Accept(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	thread, err := h.interestService.Accept(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusCreated, thread)
}

// ConfirmPickup godoc
// POST /api/interests/{id}/confirm
// Teslim onayı: accepted → confirmed, composer kilidi açılır.
// İkinci onay denemesi 409 alır.
func (h *InterestHandler) ConfirmPickup(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	interest, err := h.interestService.ConfirmPickup(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, interest)
}
