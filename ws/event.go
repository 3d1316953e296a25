// Package ws, WebSocket bağlantı yönetimi ve gerçek zamanlı event dağıtımını sağlar.
//
// Mimari:
// - Hub: bağlantıları ve thread aboneliklerini yöneten merkezi yapı
// - Client: her WebSocket bağlantısını temsil eder
// - Event: client-server arası iletilen mesaj formatı
//
// Akış:
// 1. Kullanıcı mesaj gönderir → HTTP POST → Service → DB kayıt
// 2. Service, Hub'ın BroadcastToThread metodunu çağırır
// 3. Hub, event'i o thread'e abone client'lara iletir
// 4. Her client'ın WritePump'ı event'i WebSocket'e yazar
//
// Aboneliğe dayalı dağıtım: bir client yalnızca subscribe ettiği
// konuşmaların event'lerini alır. Abonelik üyelik kontrolünden geçer
// (callback ile — main.go'da wire edilir).
package ws

import (
	"time"

	"github.com/denizyurt/takas/models"
)

// Event, WebSocket üzerinden iletilen bir mesajı temsil eder.
//
// Op: event türü — tagged union'ın etiketi.
// Data: op'a özgü payload (aşağıdaki concrete struct'lardan biri).
// Seq: her outbound event'e verilen artan sayı. Client eksik event
// tespiti için takip eder (seq 5'ten sonra 7 gelirse 6 kaybolmuştur).
type Event struct {
	Op   string `json:"op"`
	Data any    `json:"d,omitempty"`
	Seq  int64  `json:"seq,omitempty"`
}

// Client → Server operasyonları
const (
	OpHeartbeat   = "heartbeat"   // "hâlâ bağlıyım" sinyali
	OpSubscribe   = "subscribe"   // bir konuşmanın event'lerini almaya başla
	OpUnsubscribe = "unsubscribe" // aboneliği bırak
	OpTyping      = "typing"      // yazıyor / yazmayı bıraktı
)

// Server → Client operasyonları
const (
	OpReady          = "ready"           // bağlantı kurulduğunda ilk event
	OpHeartbeatAck   = "heartbeat_ack"   // heartbeat'e yanıt
	OpSubscribed     = "subscribed"      // abonelik onayı
	OpMessageInsert  = "message_insert"  // yeni mesaj (kullanıcı veya sistem)
	OpMessageUpdate  = "message_update"  // düzenleme veya tombstone
	OpReactionUpdate = "reaction_update" // mesajın tüm reaksiyon özeti değişti
	OpReceiptUpdate  = "receipt_update"  // bir tarafın watermark'ı ilerledi
	OpTypingEvent    = "typing"          // karşı taraf yazıyor (relay)
)

// ─── Client → Server payload'ları ───

// SubscribeData, subscribe/unsubscribe isteklerinin payload'ı.
type SubscribeData struct {
	ThreadID string `json:"thread_id"`
}

// TypingData, client'ın typing bildirimi.
type TypingData struct {
	ThreadID string `json:"thread_id"`
	Typing   bool   `json:"typing"`
}

// ─── Server → Client payload'ları ───

// ReadyData, bağlantı açıldığında gönderilen ilk payload.
type ReadyData struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// SubscribedData, abonelik onayının payload'ı.
type SubscribedData struct {
	ThreadID string `json:"thread_id"`
}

// ReactionUpdateData, bir mesajın reaksiyon özetinin TAMAMI.
// Delta yerine tam özet gönderilir — client birleştirme yapmaz,
// olduğu gibi üzerine yazar. message_insert ve message_update event'leri
// payload olarak doğrudan models.Message taşır.
type ReactionUpdateData struct {
	ThreadID  string                 `json:"thread_id"`
	MessageID string                 `json:"message_id"`
	Groups    []models.ReactionGroup `json:"groups"`
}

// ReceiptUpdateData, bir tarafın okuma watermark'ının yeni değeri.
type ReceiptUpdateData struct {
	ThreadID   string    `json:"thread_id"`
	UserID     string    `json:"user_id"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

// TypingEventData, relay edilen typing bildirimi.
type TypingEventData struct {
	ThreadID string `json:"thread_id"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Typing   bool   `json:"typing"`
}
