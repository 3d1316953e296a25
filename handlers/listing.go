package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/denizyurt/takas/models"
	"github.com/denizyurt/takas/pkg"
	"github.com/denizyurt/takas/services"
)

// ListingHandler, ilan endpoint'lerini yöneten struct.
type ListingHandler struct {
	listingService services.ListingService
}

// NewListingHandler, constructor.
func NewListingHandler(listingService services.ListingService) *ListingHandler {
	return &ListingHandler{listingService: listingService}
}

// List godoc
// GET /api/listings
func (h *ListingHandler) List(w http.ResponseWriter, r *http.Request) {
	listings, err := h.listingService.List(r.Context())
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, listings)
}

// ListMine godoc
// GET /api/listings/mine
func (h *ListingHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	listings, err := h.listingService.ListByOwner(r.Context(), user.ID)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, listings)
}

// Get godoc
// GET /api/listings/{id}
func (h *ListingHandler) Get(w http.ResponseWriter, r *http.Request) {
	listing, err := h.listingService.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, listing)
}

// Create godoc
// POST /api/listings
func (h *ListingHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	var req models.CreateListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	listing, err := h.listingService.Create(r.Context(), user.ID, &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusCreated, listing)
}

// Delete godoc
// DELETE /api/listings/{id}
func (h *ListingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	if err := h.listingService.Delete(r.Context(), user.ID, r.PathValue("id")); err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
