package handlers

import (
	"net/http"

	"github.com/denizyurt/takas/models"
	"github.com/denizyurt/takas/pkg"
	"github.com/denizyurt/takas/services"
)

// UploadHandler, mesaj eki yükleme ve servis endpoint'lerini yöneten struct.
type UploadHandler struct {
	uploadService services.UploadService
	maxSize       int64
}

// NewUploadHandler, constructor.
func NewUploadHandler(uploadService services.UploadService, maxSize int64) *UploadHandler {
	return &UploadHandler{
		uploadService: uploadService,
		maxSize:       maxSize,
	}
}

// Upload godoc
// POST /api/threads/{id}/upload
// Multipart form'dan "file" alanını okur, diske kaydeder ve ekin public
// URL'ini döner. Client bu URL'i mesajın attachment alanına koyar.
// Composer kilitliyken yükleme de reddedilir.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	// Multipart body'yi maxSize + form overhead ile sınırla —
	// devasa istekler daha header aşamasında kesilir.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxSize+1<<20)

	file, header, err := r.FormFile("file")
	if err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	result, err := h.uploadService.Save(
		r.Context(),
		user.ID,
		r.PathValue("id"),
		header.Filename,
		header.Header.Get("Content-Type"),
		file,
	)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusCreated, result)
}

// Serve godoc
// GET /api/uploads/{name}
// Kaydedilmiş bir eki servis eder. İsim doğrulaması (path traversal)
// service katmanında yapılır.
func (h *UploadHandler) Serve(w http.ResponseWriter, r *http.Request) {
	f, err := h.uploadService.Open(r.PathValue("name"))
	if err != nil {
		pkg.Error(w, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		pkg.ErrorWithMessage(w, http.StatusInternalServerError, "failed to stat file")
		return
	}

	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}
