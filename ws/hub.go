package ws

import (
	"encoding/json"
	"log"
	"sync"
	"sync/atomic"
)

// EventPublisher, service katmanının event broadcast etmek için kullandığı
// interface.
//
// Dependency Inversion: service'ler Hub'ın concrete struct'ına değil bu
// interface'e bağımlıdır — testlerde mock publisher kullanılabilir.
type EventPublisher interface {
	BroadcastToThread(threadID string, event Event)
	BroadcastToThreadExcept(threadID, excludeUserID string, event Event)
	BroadcastToUser(userID string, event Event)
	IsUserOnline(userID string) bool
}

// MembershipChecker, "bu kullanıcı bu konuşmanın tarafı mı?" sorusunu yanıtlar.
// Hub DB'ye doğrudan erişmez; kontrol main.go'da wire edilen bu callback
// üzerinden yapılır (ws → services yönünde import olmadan).
type MembershipChecker func(userID, threadID string) bool

// Hub, tüm WebSocket bağlantılarını ve thread aboneliklerini yöneten
// merkezi yapı.
//
// İki ayrı kayıt tutulur:
//   - clients: userID → Client set (bir kullanıcının birden fazla tab'ı olabilir)
//   - subs: threadID → Client set (o konuşmanın event'lerini almak isteyenler)
//
// Bir event, abone OLMAYAN client'a gitmez; konuşma açık değilken gelen
// mesajların bildirimi unseen count üzerinden (HTTP) görünür.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]bool
	subs    map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client

	// seq: her outbound event'e verilen artan sayaç.
	// atomic.Int64 — birden fazla goroutine güvenle artırabilir.
	seq atomic.Int64

	// usernames: userID → username cache (typing relay için).
	usernames map[string]string
	userMu    sync.RWMutex

	checkMembership MembershipChecker
}

// NewHub, yeni bir Hub oluşturur.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		subs:       make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		usernames:  make(map[string]string),
	}
}

// SetMembershipChecker, üyelik kontrol callback'ini bağlar.
// main.go'daki wire-up sırasında, Run başlamadan önce çağrılmalıdır.
func (h *Hub) SetMembershipChecker(fn MembershipChecker) {
	h.checkMembership = fn
}

// Run, Hub'ın ana event loop'u. main.go'da `go hub.Run()` ile başlatılır.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.userID]; !ok {
		h.clients[client.userID] = make(map[*Client]bool)
	}
	h.clients[client.userID][client] = true

	log.Printf("[ws] client connected: user=%s (connections: %d)",
		client.userID, len(h.clients[client.userID]))
}

// removeClient, client'ı Hub'dan ve tüm aboneliklerinden çıkarır.
//
// Bağlantı koparken client hâlâ "yazıyor" durumundaysa ilgili thread'lere
// typing:false relay edilir — karşı tarafta gösterge asılı kalmaz
// (presence ömrü = bağlantı ömrü).
func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()

	var staleTyping []string
	if clients, ok := h.clients[client.userID]; ok {
		if _, exists := clients[client]; exists {
			delete(clients, client)
			close(client.send)

			if len(clients) == 0 {
				delete(h.clients, client.userID)
			}

			for threadID := range client.threads {
				h.dropSubscription(client, threadID)
			}
			for threadID, typing := range client.typingIn {
				if typing {
					staleTyping = append(staleTyping, threadID)
				}
			}

			log.Printf("[ws] client disconnected: user=%s", client.userID)
		}
	}
	h.mu.Unlock()

	// Mutex bırakıldıktan sonra relay — broadcast kendi RLock'unu alır.
	for _, threadID := range staleTyping {
		h.BroadcastToThreadExcept(threadID, client.userID, Event{
			Op: OpTypingEvent,
			Data: TypingEventData{
				ThreadID: threadID,
				UserID:   client.userID,
				Username: h.getUsername(client.userID),
				Typing:   false,
			},
		})
	}
}

// subscribe, client'ı bir thread'in abone set'ine ekler.
// Üyelik kontrolü caller'da (Client.handleSubscribe) yapılmıştır.
func (h *Hub) subscribe(client *Client, threadID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[threadID]; !ok {
		h.subs[threadID] = make(map[*Client]bool)
	}
	h.subs[threadID][client] = true
	client.threads[threadID] = true
}

// unsubscribe, aboneliği bırakır.
func (h *Hub) unsubscribe(client *Client, threadID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.dropSubscription(client, threadID)
	delete(client.threads, threadID)
	delete(client.typingIn, threadID)
}

// setTyping, client'ın bir thread'deki typing durumunu kaydeder.
// Abone olunmayan thread için false döner — relay yapılmaz.
func (h *Hub) setTyping(client *Client, threadID string, typing bool) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !client.threads[threadID] {
		return false
	}

	if typing {
		client.typingIn[threadID] = true
	} else {
		delete(client.typingIn, threadID)
	}
	return true
}

// dropSubscription, abone set'inden düşürür. Caller h.mu tutuyor olmalı.
func (h *Hub) dropSubscription(client *Client, threadID string) {
	if set, ok := h.subs[threadID]; ok {
		delete(set, client)
		if len(set) == 0 {
			delete(h.subs, threadID)
		}
	}
}

// BroadcastToThread, bir konuşmaya abone tüm client'lara event gönderir.
func (h *Hub) BroadcastToThread(threadID string, event Event) {
	h.broadcastToThread(threadID, "", event)
}

// BroadcastToThreadExcept, gönderen kullanıcı hariç abone client'lara gönderir.
// Typing relay'de kullanılır — kendi typing event'i kendine dönmez.
func (h *Hub) BroadcastToThreadExcept(threadID, excludeUserID string, event Event) {
	h.broadcastToThread(threadID, excludeUserID, event)
}

func (h *Hub) broadcastToThread(threadID, excludeUserID string, event Event) {
	event.Seq = h.seq.Add(1)

	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("[ws] failed to marshal thread event: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.subs[threadID] {
		if excludeUserID != "" && client.userID == excludeUserID {
			continue
		}
		select {
		case client.send <- data:
		default:
			// Buffer dolu — bu client yavaş, kapat
			go func(c *Client) { h.unregister <- c }(client)
		}
	}
}

// BroadcastToUser, bir kullanıcının tüm bağlantılarına event gönderir
// (abonelikten bağımsız — "yeni konuşma açıldı" gibi kullanıcı bazlı event'ler).
func (h *Hub) BroadcastToUser(userID string, event Event) {
	event.Seq = h.seq.Add(1)

	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("[ws] failed to marshal user event: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[userID] {
		select {
		case client.send <- data:
		default:
			go func(c *Client) { h.unregister <- c }(client)
		}
	}
}

// IsUserOnline, kullanıcının en az bir açık bağlantısı olup olmadığını döner.
// Offline mail bildirimi kararında kullanılır.
func (h *Hub) IsUserOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients[userID]) > 0
}

// setUsername, bağlantı açılırken username cache'ini günceller.
func (h *Hub) setUsername(userID, username string) {
	h.userMu.Lock()
	defer h.userMu.Unlock()
	h.usernames[userID] = username
}

func (h *Hub) getUsername(userID string) string {
	h.userMu.RLock()
	defer h.userMu.RUnlock()
	return h.usernames[userID]
}

// Shutdown, tüm bağlantıları kapatır (graceful shutdown).
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, clients := range h.clients {
		for client := range clients {
			close(client.send)
		}
	}
	h.clients = make(map[string]map[*Client]bool)
	h.subs = make(map[string]map[*Client]bool)
	log.Println("[ws] hub shut down, all connections closed")
}
