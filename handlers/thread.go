package handlers

import (
	"net/http"

	"github.com/denizyurt/takas/models"
	"github.com/denizyurt/takas/pkg"
	"github.com/denizyurt/takas/services"
)

// ThreadHandler, konuşma endpoint'lerini yöneten struct.
type ThreadHandler struct {
	threadService services.ThreadService
}

// NewThreadHandler, constructor.
func NewThreadHandler(threadService services.ThreadService) *ThreadHandler {
	return &ThreadHandler{threadService: threadService}
}

// List godoc
// GET /api/threads
// Kullanıcının konuşma listesi: son mesaj önizlemesi + okunmamış sayıları.
func (h *ThreadHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	threads, err := h.threadService.List(r.Context(), user.ID)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, threads)
}

// Get godoc
// GET /api/threads/{id}
// Konuşma detayı: karşı taraf, ilan, istek durumu ve composer kilidi.
func (h *ThreadHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	view, err := h.threadService.Resolve(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, view)
}
