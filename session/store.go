package session

import (
	"sort"
	"strings"

	"github.com/denizyurt/takas/models"
)

// LocalIDPrefix, geçici (henüz sunucuda kalıcılaşmamış) mesaj ID'lerinin
// ayırt edici ön eki. Sunucu ID'leri UUID'dir, bu prefix'le asla çakışmaz.
const LocalIDPrefix = "local-"

// Item, store'daki bir mesaj: sunucu alanları + yerel durum bayrakları.
//
// Pending: optimistic olarak eklendi, sunucu onayı bekleniyor.
// Failed: kalıcılaştırma başarısız oldu — içerik kaybolmaz, kullanıcı
// retry edene ya da vazgeçene kadar görünür kalır.
type Item struct {
	models.Message
	Pending bool
	Failed  bool
}

// IsLocal, entry'nin henüz sunucu ID'si almadığını döner.
func (i *Item) IsLocal() bool {
	return strings.HasPrefix(i.ID, LocalIDPrefix)
}

// Store, tek bir açık konuşmanın sıralı mesaj koleksiyonu — render için
// tek doğruluk kaynağı.
//
// Sıralama invariant'ı: her mutasyondan sonra dizi created_at'e göre
// artan sıralıdır; eşitliklerde ekleme sırası korunur (stable).
// Dedup invariant'ı: iki entry aynı sunucu ID'sini paylaşamaz; geçici
// entry ile sunucu onaylı karşılığı AYNI mantıksal mesajdır ve
// client_key üzerinden tek entry'ye çöker.
//
// Store kendi başına goroutine-safe değildir — tüm erişim Session
// mutex'inin altından geçer.
type Store struct {
	items []Item
}

// NewStore, boş bir store döner.
func NewStore() *Store {
	return &Store{}
}

// Snapshot, mevcut timeline'ın kopyasını döner. Çağıran kopyayı
// dilediği gibi kullanabilir; store'un iç dizisi sızmaz.
func (s *Store) Snapshot() []Item {
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

// Len, mesaj sayısını döner.
func (s *Store) Len() int {
	return len(s.items)
}

// Get, ID'ye göre entry'nin kopyasını döner.
func (s *Store) Get(id string) (Item, bool) {
	if idx := s.indexByID(id); idx >= 0 {
		return s.items[idx], true
	}
	return Item{}, false
}

// Insert, geçici (optimistic) entry'yi timeline'a ekler ve yeniden sıralar.
func (s *Store) Insert(item Item) {
	s.items = append(s.items, item)
	s.resort()
}

// Merge, sunucu kaynaklı bir mesajı timeline'a işler:
//
//  1. client_key bir geçici entry ile eşleşiyorsa → o entry sunucu
//     kopyasıyla değiştirilir (correlation collapse).
//  2. ID zaten mevcutsa → yok sayılır (idempotent reconciliation;
//     at-least-once delivery'nin dedup tarafı).
//  3. Aksi halde → eklenir ve yeniden sıralanır.
//
// Dönüş değeri, store'un değişip değişmediğidir.
func (s *Store) Merge(msg models.Message) bool {
	if msg.ClientKey != nil {
		if idx := s.indexByClientKey(*msg.ClientKey); idx >= 0 && s.items[idx].IsLocal() {
			s.items[idx] = Item{Message: msg}
			s.resort()
			return true
		}
	}
	if s.indexByID(msg.ID) >= 0 {
		return false
	}
	s.items = append(s.items, Item{Message: msg})
	s.resort()
	return true
}

// Replace, client_key ile eşleşen geçici entry'yi sunucu kopyasıyla
// değiştirir. Feed echo'su direkt yanıttan önce geldiyse geçici entry
// çoktan değiştirilmiştir — o durumda no-op (false döner).
func (s *Store) Replace(clientKey string, msg models.Message) bool {
	idx := s.indexByClientKey(clientKey)
	if idx < 0 || !s.items[idx].IsLocal() {
		return false
	}
	s.items[idx] = Item{Message: msg}
	s.resort()
	return true
}

// Patch, ID ile eşleşen entry'nin sunucu alanlarını günceller
// (edit / soft delete). Sunucu payload'ında olmayan yerel alanlar
// korunur: reaksiyon özeti, tombstone olmadığı sürece yerinde kalır.
func (s *Store) Patch(id string, msg models.Message) bool {
	idx := s.indexByID(id)
	if idx < 0 {
		return false
	}
	if msg.Reactions == nil && msg.DeletedAt == nil {
		msg.Reactions = s.items[idx].Reactions
	}
	if msg.Sender == nil {
		msg.Sender = s.items[idx].Sender
	}
	s.items[idx] = Item{Message: msg}
	s.resort()
	return true
}

// SetReactions, bir mesajın reaksiyon özetini olduğu gibi üzerine yazar.
func (s *Store) SetReactions(id string, groups []models.ReactionGroup) bool {
	idx := s.indexByID(id)
	if idx < 0 {
		return false
	}
	s.items[idx].Reactions = groups
	return true
}

// MarkFailed, geçici entry'yi başarısız olarak işaretler.
// İçerik silinmez — retry edilene kadar görünür kalır.
func (s *Store) MarkFailed(clientKey string) bool {
	idx := s.indexByClientKey(clientKey)
	if idx < 0 || !s.items[idx].IsLocal() {
		return false
	}
	s.items[idx].Pending = false
	s.items[idx].Failed = true
	return true
}

// Remove, client_key ile eşleşen geçici entry'yi kaldırır.
// Retry yeni bir geçici entry kuyruğa koyduktan sonra eskisini bununla
// temizler.
func (s *Store) Remove(clientKey string) bool {
	idx := s.indexByClientKey(clientKey)
	if idx < 0 {
		return false
	}
	s.items = append(s.items[:idx], s.items[idx+1:]...)
	return true
}

// indexByID, sunucu/geçici ID'ye göre entry arar. Yoksa -1.
func (s *Store) indexByID(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

// indexByClientKey, correlation anahtarına göre entry arar. Yoksa -1.
func (s *Store) indexByClientKey(clientKey string) int {
	for i := range s.items {
		if s.items[i].ClientKey != nil && *s.items[i].ClientKey == clientKey {
			return i
		}
	}
	return -1
}

// resort, created_at'e göre artan stable sıralama uygular.
// Eşit timestamp'lerde mevcut sıra korunur.
func (s *Store) resort() {
	sort.SliceStable(s.items, func(a, b int) bool {
		return s.items[a].CreatedAt.Before(s.items[b].CreatedAt)
	})
}
