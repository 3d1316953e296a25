package ws

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/denizyurt/takas/models"
)

// TokenValidator, WS handler'ın JWT doğrulaması için kullandığı interface.
//
// services.AuthService'in tamamı yerine tek metodluk bir interface:
// ws paketi services'i import etseydi services → ws → services döngüsü
// oluşurdu. main.go'da authService bu interface'i implicit karşılar.
type TokenValidator interface {
	ValidateAccessToken(tokenString string) (*models.TokenClaims, error)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// CheckOrigin: production'da domain kontrolü yapılmalı.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler, WebSocket bağlantı isteklerini işleyen HTTP handler'ı.
type Handler struct {
	hub            *Hub
	tokenValidator TokenValidator
}

// NewHandler, yeni bir WebSocket handler oluşturur.
func NewHandler(hub *Hub, tokenValidator TokenValidator) *Handler {
	return &Handler{
		hub:            hub,
		tokenValidator: tokenValidator,
	}
}

// HandleConnection, HTTP bağlantısını WebSocket'e yükseltir ve client'ı
// Hub'a kaydeder.
//
// Token query parameter ile gelir (tarayıcı WS bağlantısında özel header
// gönderemez):
//
//	ws://server/ws?token=JWT_TOKEN
func (h *Handler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	claims, err := h.tokenValidator.ValidateAccessToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed for user %s: %v", claims.UserID, err)
		return
	}

	client := &Client{
		hub:      h.hub,
		conn:     conn,
		userID:   claims.UserID,
		send:     make(chan []byte, sendBufferSize),
		threads:  make(map[string]bool),
		typingIn: make(map[string]bool),
	}

	h.hub.setUsername(claims.UserID, claims.Username)
	h.hub.register <- client

	// İlk event: ready. register'dan hemen sonra gönderilir ki client
	// subscribe etmeye başlayabilsin.
	client.sendEvent(Event{Op: OpReady, Data: ReadyData{
		UserID:   claims.UserID,
		Username: claims.Username,
	}})

	// WritePump ayrı goroutine'de; ReadPump bu goroutine'de bloklar —
	// handler dönerse bağlantı kapanır.
	go client.WritePump()
	client.ReadPump()
}
