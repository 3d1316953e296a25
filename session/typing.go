package session

import "log"

// Typing yayını — kalıcı olmayan, bağlantı ömrüne bağlı sinyal.
//
// Debounce sözleşmesi: bir tuş vuruşu serisi boyunca EN FAZLA bir
// typing:true yayınlanır; son vuruştan typingIdle (900ms) sonra
// typing:false gider. Kayıt tutulmaz, geçmişi yoktur; bağlantı kopunca
// sunucu tarafı zaten typing:false relay'ler.

// NotifyTyping, her tuş vuruşunda çağrılır. Gate kilitliyken ve session
// kapalıyken no-op. Yayın mutex tutulmadan yapılır.
func (s *Session) NotifyTyping() {
	s.mu.Lock()
	if s.closed || s.view.Locked {
		s.mu.Unlock()
		return
	}

	if s.typingActive {
		// Seri devam ediyor — sadece sayacı ileri at, yeni yayın yok.
		if s.typingTimer != nil {
			s.typingTimer.Reset(s.typingIdle)
		}
		s.mu.Unlock()
		return
	}

	s.typingActive = true
	s.typingTimer = s.clock.AfterFunc(s.typingIdle, s.typingIdleElapsed)
	handle := s.handle
	s.mu.Unlock()

	if err := handle.Typing(true); err != nil {
		log.Printf("[session] typing broadcast failed: %v", err)
	}
}

// typingIdleElapsed, sessizlik süresi dolunca timer'dan çağrılır.
func (s *Session) typingIdleElapsed() {
	s.mu.Lock()
	if s.closed || !s.typingActive {
		s.mu.Unlock()
		return
	}
	s.typingActive = false
	s.typingTimer = nil
	handle := s.handle
	s.mu.Unlock()

	if err := handle.Typing(false); err != nil {
		log.Printf("[session] typing broadcast failed: %v", err)
	}
}
