package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/denizyurt/takas/models"
	"github.com/denizyurt/takas/pkg"
	"github.com/denizyurt/takas/pkg/ratelimit"
	"github.com/denizyurt/takas/services"
)

// MessageHandler, mesaj endpoint'lerini yöneten struct.
type MessageHandler struct {
	messageService services.MessageService
	limiter        *ratelimit.MessageRateLimiter
}

// NewMessageHandler, constructor.
func NewMessageHandler(messageService services.MessageService, limiter *ratelimit.MessageRateLimiter) *MessageHandler {
	return &MessageHandler{
		messageService: messageService,
		limiter:        limiter,
	}
}

// List godoc
// GET /api/threads/{id}/messages?before=&limit=
// Mesaj geçmişini kronolojik sırada sayfalar.
//
// before: RFC3339Nano — bu andan ESKİ mesajlar döner. Boşsa en yeni sayfa.
// limit: varsayılan 30, max 100.
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	var before time.Time
	if raw := r.URL.Query().Get("before"); raw != "" {
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid before timestamp, use RFC3339")
			return
		}
		before = parsed
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	page, err := h.messageService.ListPage(r.Context(), user.ID, r.PathValue("id"), before, limit)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, page)
}

// Send godoc
// POST /api/threads/{id}/messages
// Yeni mesaj gönderir. Rate limit aşımında 429 + Retry-After döner.
//
// Aynı client_key ile tekrarlanan istek 201 yerine 200 ve MEVCUT mesajı
// döner — client timeout sonrası güvenle retry edebilir.
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	if !h.limiter.Allow(user.ID) {
		w.Header().Set("Retry-After", strconv.Itoa(h.limiter.CooldownSeconds(user.ID)))
		pkg.ErrorWithMessage(w, http.StatusTooManyRequests, "too many messages, slow down")
		return
	}

	var req models.CreateMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	msg, created, err := h.messageService.Send(r.Context(), user.ID, r.PathValue("id"), &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	status := http.StatusCreated
	if !created {
		// Duplicate collapse — mevcut mesaj döner
		status = http.StatusOK
	}

	pkg.JSON(w, status, msg)
}

// Edit godoc
// PATCH /api/messages/{id}
func (h *MessageHandler) Edit(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	var req models.UpdateMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	msg, err := h.messageService.Edit(r.Context(), user.ID, r.PathValue("id"), &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, msg)
}

// Delete godoc
// DELETE /api/messages/{id}
// Soft delete — mesaj tombstone'a döner, satır silinmez.
func (h *MessageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	msg, err := h.messageService.Delete(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, msg)
}
