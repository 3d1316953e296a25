package ws

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeWait: bir mesajı yazmak için maksimum bekleme süresi.
	writeWait = 10 * time.Second

	// pongWait: heartbeat gelmezse bağlantı kopmuş sayılır (3 kaçırma = 30s × 3).
	pongWait = 90 * time.Second

	// maxMessageSize: client'ın gönderebileceği maksimum frame boyutu (byte).
	// WS frame'leri küçüktür — mesaj içeriği HTTP ile gider.
	maxMessageSize = 4096

	// sendBufferSize: client başına outbound buffer. Dolarsa client yavaş
	// demektir, bağlantı kapatılır.
	sendBufferSize = 256
)

// Client, tek bir WebSocket bağlantısını temsil eder.
//
// Her bağlantı için iki goroutine çalışır:
// - ReadPump: client'dan gelen op'ları okur ve işler
// - WritePump: send channel'ından okuyup WS'e yazar
// gorilla/websocket aynı anda tek okuma + tek yazma destekler; iki ayrı
// goroutine ile okuma ve yazma birbirini bloklamaz.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID string
	send   chan []byte
	mu     sync.Mutex // conn.WriteMessage çağrılarını korur

	// threads: abone olunan konuşmalar. typingIn: hangi konuşmalarda
	// "yazıyor" durumunda olduğu (disconnect temizliği için).
	// Her ikisi de hub.mu altında okunup yazılır.
	threads  map[string]bool
	typingIn map[string]bool
}

// ReadPump, bağlantıdan gelen event'leri okur ve işler.
// Bağlantı kapanana kadar bloklar; kapanınca Hub'dan çıkış yapar.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		log.Printf("[ws] failed to set read deadline for user %s: %v", c.userID, err)
		return
	}

	for {
		_, rawMessage, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[ws] unexpected close for user %s: %v", c.userID, err)
			}
			return
		}

		var event Event
		if err := json.Unmarshal(rawMessage, &event); err != nil {
			log.Printf("[ws] invalid message from user %s: %v", c.userID, err)
			continue
		}

		c.handleEvent(event)
	}
}

// handleEvent, client'dan gelen event'leri op'a göre işler.
func (c *Client) handleEvent(event Event) {
	switch event.Op {
	case OpHeartbeat:
		// Deadline'ı yenile ve ack gönder.
		if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			log.Printf("[ws] failed to set read deadline for user %s: %v", c.userID, err)
			return
		}
		c.sendEvent(Event{Op: OpHeartbeatAck})

	case OpSubscribe:
		c.handleSubscribe(event)

	case OpUnsubscribe:
		c.handleUnsubscribe(event)

	case OpTyping:
		c.handleTyping(event)

	default:
		log.Printf("[ws] unknown op from user %s: %s", c.userID, event.Op)
	}
}

// handleSubscribe, bir konuşmaya abonelik isteğini işler.
//
// Üyelik kontrolü zorunludur: kullanıcı tarafı olmadığı bir konuşmaya
// abone olamaz (event sızıntısı). Kontrol, hub mutex'i dışında yapılır —
// callback DB'ye gidebilir, mutex altında tutulamaz.
func (c *Client) handleSubscribe(event Event) {
	data, ok := decodeData[SubscribeData](event)
	if !ok || data.ThreadID == "" {
		return
	}

	if c.hub.checkMembership == nil || !c.hub.checkMembership(c.userID, data.ThreadID) {
		log.Printf("[ws] subscribe rejected: user=%s thread=%s", c.userID, data.ThreadID)
		return
	}

	c.hub.subscribe(c, data.ThreadID)
	c.sendEvent(Event{Op: OpSubscribed, Data: SubscribedData{ThreadID: data.ThreadID}})
}

// handleUnsubscribe, aboneliği bırakır. Abone olunmayan thread için no-op.
func (c *Client) handleUnsubscribe(event Event) {
	data, ok := decodeData[SubscribeData](event)
	if !ok || data.ThreadID == "" {
		return
	}

	c.hub.unsubscribe(c, data.ThreadID)
}

// handleTyping, typing bildirimini karşı tarafa relay eder.
// Sadece abone olunan thread'ler için geçerlidir — abonelik yoksa
// üyelik de doğrulanmamış demektir, relay yapılmaz.
func (c *Client) handleTyping(event Event) {
	data, ok := decodeData[TypingData](event)
	if !ok || data.ThreadID == "" {
		return
	}

	if !c.hub.setTyping(c, data.ThreadID, data.Typing) {
		return
	}

	c.hub.BroadcastToThreadExcept(data.ThreadID, c.userID, Event{
		Op: OpTypingEvent,
		Data: TypingEventData{
			ThreadID: data.ThreadID,
			UserID:   c.userID,
			Username: c.hub.getUsername(c.userID),
			Typing:   data.Typing,
		},
	})
}

// decodeData, event.Data'yı (any) concrete payload struct'ına çevirir.
// Data tipi `any` olduğundan doğrudan cast edilemez; JSON round-trip
// en güvenli yöntem.
func decodeData[T any](event Event) (T, bool) {
	var data T

	raw, err := json.Marshal(event.Data)
	if err != nil {
		return data, false
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return data, false
	}
	return data, true
}

// sendEvent, client'a tek bir event gönderir.
func (c *Client) sendEvent(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("[ws] failed to marshal event for user %s: %v", c.userID, err)
		return
	}

	select {
	case c.send <- data:
	default:
		// Buffer dolu — client muhtemelen donmuş, bağlantıyı kapat
		log.Printf("[ws] send buffer full for user %s, dropping connection", c.userID)
		c.hub.unregister <- c
	}
}

// WritePump, send channel'ından okuyup WebSocket'e yazar.
func (c *Client) WritePump() {
	defer c.conn.Close()

	for {
		message, ok := <-c.send
		if !ok {
			// Channel kapatıldı — Hub client'ı çıkardı
			c.writeMessage(websocket.CloseMessage, nil)
			return
		}

		if err := c.writeMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
}

// writeMessage, WS'e mutex koruması altında yazar — gorilla/websocket
// conn'a eşzamanlı yazmayı desteklemez.
func (c *Client) writeMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}
