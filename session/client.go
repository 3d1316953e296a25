package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/denizyurt/takas/models"
	"github.com/denizyurt/takas/pkg"
	"github.com/denizyurt/takas/ws"
)

// Client, API ve Feed interface'lerinin gerçek HTTP + WebSocket
// implementasyonu. Session'ı çalışan bir sunucuya bağlar; testlerde
// yerini fake'ler alır.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient, constructor.
//
// baseURL: sunucunun kökü (ör: "http://localhost:8085").
// token: Bearer olarak gönderilen JWT access token; websocket
// bağlantısında query parameter olur.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// ─── API implementasyonu ───

func (c *Client) ResolveThread(ctx context.Context, threadID string) (*models.ThreadView, error) {
	var view models.ThreadView
	if err := c.do(ctx, http.MethodGet, "/api/threads/"+threadID, nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (c *Client) LoadPage(ctx context.Context, threadID string, before time.Time, limit int) (*models.MessagePage, error) {
	path := "/api/threads/" + threadID + "/messages"
	query := url.Values{}
	if !before.IsZero() {
		query.Set("before", before.Format(time.RFC3339Nano))
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var page models.MessagePage
	if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) SendMessage(ctx context.Context, threadID string, req *models.CreateMessageRequest) (*models.Message, error) {
	var msg models.Message
	if err := c.do(ctx, http.MethodPost, "/api/threads/"+threadID+"/messages", req, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *Client) EditMessage(ctx context.Context, messageID string, req *models.UpdateMessageRequest) (*models.Message, error) {
	var msg models.Message
	if err := c.do(ctx, http.MethodPatch, "/api/messages/"+messageID, req, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *Client) DeleteMessage(ctx context.Context, messageID string) (*models.Message, error) {
	var msg models.Message
	if err := c.do(ctx, http.MethodDelete, "/api/messages/"+messageID, nil, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *Client) ToggleReaction(ctx context.Context, messageID, emoji string) ([]models.ReactionGroup, error) {
	req := models.ToggleReactionRequest{Emoji: emoji}
	var groups []models.ReactionGroup
	if err := c.do(ctx, http.MethodPost, "/api/messages/"+messageID+"/reactions", req, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

func (c *Client) MarkSeen(ctx context.Context, threadID string, at time.Time) (bool, error) {
	req := models.MarkSeenRequest{LastSeenAt: at}
	var result struct {
		Marked bool `json:"marked"`
	}
	if err := c.do(ctx, http.MethodPut, "/api/threads/"+threadID+"/receipt", req, &result); err != nil {
		return false, err
	}
	return result.Marked, nil
}

func (c *Client) Receipts(ctx context.Context, threadID string) ([]models.Receipt, error) {
	var receipts []models.Receipt
	if err := c.do(ctx, http.MethodGet, "/api/threads/"+threadID+"/receipts", nil, &receipts); err != nil {
		return nil, err
	}
	return receipts, nil
}

func (c *Client) ConfirmPickup(ctx context.Context, interestID string) error {
	return c.do(ctx, http.MethodPost, "/api/interests/"+interestID+"/confirm", nil, nil)
}

// do, envelope'lı bir API isteği yapar: body'yi JSON'lar, Bearer header
// ekler, yanıt zarfını çözer ve hata durumunda status code'u domain
// error'a geri çevirir (sunucunun mapErrorToStatus'unun tersi).
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return statusError(resp.StatusCode, envelope.Error)
	}

	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("decode response data: %w", err)
		}
	}
	return nil
}

// statusError, HTTP status'u sentinel domain error'a eşler.
func statusError(status int, message string) error {
	var base error
	switch status {
	case http.StatusNotFound:
		base = pkg.ErrNotFound
	case http.StatusUnauthorized:
		base = pkg.ErrUnauthorized
	case http.StatusForbidden:
		base = pkg.ErrForbidden
	case http.StatusConflict:
		base = pkg.ErrConflict
	case http.StatusBadRequest:
		base = pkg.ErrBadRequest
	default:
		base = pkg.ErrInternal
	}
	if message == "" {
		message = http.StatusText(status)
	}
	return fmt.Errorf("%w: %s", base, message)
}

// ─── Feed implementasyonu ───

// heartbeatInterval, sunucunun 90sn pong deadline'ının güvenli altında.
const heartbeatInterval = 30 * time.Second

// Subscribe, sunucuya websocket ile bağlanır, verilen konuşmaya abone
// olur ve gelen event'leri doğrulayıp handler'a iletir. Dönen handle
// konuşma görünümünün ömrü boyunca tutulur; Close bağlantıyı
// deterministik kapatır.
func (c *Client) Subscribe(threadID string, handler func(Event)) (Handle, error) {
	wsURL := strings.Replace(c.baseURL, "http", "ws", 1) + "/ws?token=" + url.QueryEscape(c.token)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial feed: %w", err)
	}

	h := &feedHandle{
		conn:     conn,
		threadID: threadID,
		done:     make(chan struct{}),
	}

	if err := h.send(ws.Event{Op: ws.OpSubscribe, Data: ws.SubscribeData{ThreadID: threadID}}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	go h.readLoop(handler)
	go h.heartbeatLoop()

	return h, nil
}

// feedHandle, tek bir konuşmanın canlı feed aboneliği.
type feedHandle struct {
	conn     *websocket.Conn
	threadID string

	writeMu sync.Mutex // gorilla: tek eşzamanlı yazar kuralı

	closeOnce sync.Once
	done      chan struct{}
}

func (h *feedHandle) Typing(typing bool) error {
	return h.send(ws.Event{
		Op:   ws.OpTyping,
		Data: ws.TypingData{ThreadID: h.threadID, Typing: typing},
	})
}

func (h *feedHandle) Close() error {
	var err error
	h.closeOnce.Do(func() {
		close(h.done)
		// Best effort — bağlantı zaten kopmuşsa unsubscribe gitmez.
		_ = h.send(ws.Event{Op: ws.OpUnsubscribe, Data: ws.SubscribeData{ThreadID: h.threadID}})
		err = h.conn.Close()
	})
	return err
}

func (h *feedHandle) send(event ws.Event) error {
	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	return h.conn.WriteJSON(event)
}

// readLoop, bağlantıdan event okur, boundary'de doğrulayıp tagged
// union'a çevirir ve handler'a verir. Bağlantı kopunca sessizce biter —
// yeniden bağlanma çağıranın kararıdır (session yeniden kurulur).
func (h *feedHandle) readLoop(handler func(Event)) {
	defer h.Close()

	for {
		var wire struct {
			Op   string          `json:"op"`
			Data json.RawMessage `json:"d"`
			Seq  int64           `json:"seq"`
		}
		if err := h.conn.ReadJSON(&wire); err != nil {
			return
		}

		ev, ok := decodeFeedEvent(wire.Op, wire.Data)
		if !ok {
			continue // ready, heartbeat_ack, subscribed veya bozuk payload
		}
		handler(ev)
	}
}

// heartbeatLoop, sunucunun bağlantıyı canlı sayması için periyodik
// heartbeat gönderir.
func (h *feedHandle) heartbeatLoop() {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := h.send(ws.Event{Op: ws.OpHeartbeat}); err != nil {
				return
			}
		case <-h.done:
			return
		}
	}
}

// decodeFeedEvent, wire op + payload'ı doğrulanmış Event'e çevirir.
// Tanımadığı op'lar ve çözülemeyen payload'lar elenir.
func decodeFeedEvent(op string, data json.RawMessage) (Event, bool) {
	switch op {
	case ws.OpMessageInsert, ws.OpMessageUpdate:
		var msg models.Message
		if json.Unmarshal(data, &msg) != nil || msg.ID == "" {
			return Event{}, false
		}
		kind := EventMessageInserted
		if op == ws.OpMessageUpdate {
			kind = EventMessageUpdated
		}
		return Event{Kind: kind, Message: &msg}, true

	case ws.OpReactionUpdate:
		var payload ws.ReactionUpdateData
		if json.Unmarshal(data, &payload) != nil || payload.MessageID == "" {
			return Event{}, false
		}
		return Event{Kind: EventReactionChanged, Reaction: &ReactionChange{
			ThreadID:  payload.ThreadID,
			MessageID: payload.MessageID,
			Groups:    payload.Groups,
		}}, true

	case ws.OpReceiptUpdate:
		var payload ws.ReceiptUpdateData
		if json.Unmarshal(data, &payload) != nil || payload.UserID == "" {
			return Event{}, false
		}
		return Event{Kind: EventReceiptChanged, Receipt: &models.Receipt{
			ThreadID:   payload.ThreadID,
			UserID:     payload.UserID,
			LastSeenAt: payload.LastSeenAt,
		}}, true

	case ws.OpTypingEvent:
		var payload ws.TypingEventData
		if json.Unmarshal(data, &payload) != nil || payload.UserID == "" {
			return Event{}, false
		}
		return Event{Kind: EventTyping, Typing: &TypingChange{
			ThreadID: payload.ThreadID,
			UserID:   payload.UserID,
			Typing:   payload.Typing,
		}}, true
	}
	return Event{}, false
}
