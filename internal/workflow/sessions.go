package workflow

import (
	"crypto/subtle"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrInvalidPasscode: введён неверный код агентства
	ErrInvalidPasscode = errors.New("invalid passcode")
	// ErrUnknownSession: сессия не найдена или истекла
	ErrUnknownSession = errors.New("unknown or expired session")
)

type session struct {
	ctrl     *Controller
	lastSeen time.Time
}

// Sessions выдаёт идентификаторы сессий по коду агентства.
// У каждой сессии свой Controller и свой снимок списка.
type Sessions struct {
	passcode []byte
	ttl      time.Duration
	svc      CaseService
	now      func() time.Time

	mu    sync.Mutex
	items map[string]*session
}

// NewSessions создаёт реестр сессий. ttl <= 0 отключает истечение по простою.
func NewSessions(passcode string, ttl time.Duration, svc CaseService) *Sessions {
	return &Sessions{
		passcode: []byte(passcode),
		ttl:      ttl,
		svc:      svc,
		now:      time.Now,
		items:    make(map[string]*session),
	}
}

// Open сверяет код и открывает новую сессию
func (s *Sessions) Open(passcode string) (string, error) {
	if len(s.passcode) == 0 || subtle.ConstantTimeCompare([]byte(passcode), s.passcode) != 1 {
		return "", ErrInvalidPasscode
	}
	id := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictLocked()
	s.items[id] = &session{ctrl: NewController(s.svc), lastSeen: s.now()}
	return id, nil
}

// Get возвращает контроллер сессии и продлевает её
func (s *Sessions) Get(id string) (*Controller, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictLocked()
	sess, ok := s.items[id]
	if !ok {
		return nil, ErrUnknownSession
	}
	sess.lastSeen = s.now()
	return sess.ctrl, nil
}

// Close закрывает сессию; закрытие неизвестной сессии не ошибка
func (s *Sessions) Close(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
}

// Len возвращает число активных сессий
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictLocked()
	return len(s.items)
}

func (s *Sessions) evictLocked() {
	if s.ttl <= 0 {
		return
	}
	deadline := s.now().Add(-s.ttl)
	for id, sess := range s.items {
		if sess.lastSeen.Before(deadline) {
			delete(s.items, id)
		}
	}
}
