package models

import "time"

// Thread, bir ilan etrafındaki iki kişilik konuşmayı temsil eder.
//
// owner = ilan sahibi, sender = takas isteğini gönderen. Bir (listing, sender)
// çifti için en fazla bir thread olabilir; UNIQUE constraint bunu garanti eder.
type Thread struct {
	ID            string     `json:"id"`
	ListingID     *string    `json:"listing_id"` // ilan silinirse NULL'a düşer
	InterestID    string     `json:"interest_id"`
	OwnerID       string     `json:"owner_id"`
	SenderID      string     `json:"sender_id"`
	CreatedAt     time.Time  `json:"created_at"`
	LastMessageAt *time.Time `json:"last_message_at"`
}

// HasParticipant, verilen kullanıcının bu konuşmanın tarafı olup olmadığını döner.
func (t *Thread) HasParticipant(userID string) bool {
	return t.OwnerID == userID || t.SenderID == userID
}

// OtherParticipant, konuşmanın karşı tarafının ID'sini döner.
func (t *Thread) OtherParticipant(userID string) string {
	if t.OwnerID == userID {
		return t.SenderID
	}
	return t.OwnerID
}

// ThreadView, thread detay response'u: konuşma + bağlam + composer durumu.
//
// Locked alanı composer kilidini belirler: istek accepted durumundayken
// istek sahibi mesaj yazamaz, teslim onayıyla (confirmed) kilit açılır.
// İlan sahibi hiçbir zaman kilitlenmez.
type ThreadView struct {
	Thread
	Listing        *Listing `json:"listing"`
	OtherUser      *User    `json:"other_user"`
	InterestStatus string   `json:"interest_status"`
	Locked         bool     `json:"locked"`
}

// ThreadListItem, konuşma listesindeki bir satır: önizleme + okunmamış sayısı.
type ThreadListItem struct {
	ThreadView
	LastMessage *Message `json:"last_message"`
	UnseenCount int      `json:"unseen_count"`
}
