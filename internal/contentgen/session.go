package contentgen

import (
	"container/list"
	"sync"
	"time"

	"github.com/abhisek/lexiz/internal/lang"
)

// SessionConfig bounds the per-learner generation history.
type SessionConfig struct {
	// Capacity is the number of sessions kept; the least recently used
	// session is evicted beyond it.
	Capacity int `mapstructure:"capacity"`
	// TTL expires a session that has not been touched for this long.
	TTL time.Duration `mapstructure:"ttl"`
	// MaxTurns is the number of prompts remembered per session; older
	// prompts fall off the front.
	MaxTurns int `mapstructure:"max_turns"`
}

// SessionStore remembers recently generated prompts per owner and modality
// so that new batches can avoid repeating them. It is bounded by capacity,
// turn count and idle time, and safe for concurrent use.
type SessionStore struct {
	cfg SessionConfig
	now func() time.Time

	mu    sync.Mutex
	items map[string]*session
	order *list.List // front = most recently used
}

type session struct {
	key       string
	turns     []string
	expiresAt time.Time
	element   *list.Element
}

// NewSessionStore creates a store. Non-positive limits fall back to
// 256 sessions, one hour and 50 turns.
func NewSessionStore(cfg SessionConfig) *SessionStore {
	if cfg.Capacity <= 0 {
		cfg.Capacity = 256
	}
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = 50
	}
	return &SessionStore{
		cfg:   cfg,
		now:   time.Now,
		items: make(map[string]*session),
		order: list.New(),
	}
}

// SessionKey identifies the session for owner practicing modality.
func SessionKey(owner string, m lang.Modality) string {
	return owner + "/" + string(m)
}

// Turns returns a copy of the remembered prompts for key, oldest first.
func (s *SessionStore) Turns(key string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookup(key)
	if !ok {
		return nil
	}
	s.order.MoveToFront(e.element)
	return append([]string(nil), e.turns...)
}

// Append records prompts for key, trimming to MaxTurns and refreshing the
// session's expiry.
func (s *SessionStore) Append(key string, prompts ...string) {
	if len(prompts) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookup(key)
	if !ok {
		for len(s.items) >= s.cfg.Capacity {
			s.evictOldest()
		}
		e = &session{key: key}
		e.element = s.order.PushFront(e)
		s.items[key] = e
	} else {
		s.order.MoveToFront(e.element)
	}

	e.turns = append(e.turns, prompts...)
	if over := len(e.turns) - s.cfg.MaxTurns; over > 0 {
		e.turns = append([]string(nil), e.turns[over:]...)
	}
	e.expiresAt = s.now().Add(s.cfg.TTL)
}

// End forgets the session for key. It reports whether one existed.
func (s *SessionStore) End(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.items[key]
	if !ok {
		return false
	}
	s.remove(e)
	return true
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// lookup returns the live session for key, dropping it if expired.
// Must be called with the lock held.
func (s *SessionStore) lookup(key string) (*session, bool) {
	e, ok := s.items[key]
	if !ok {
		return nil, false
	}
	if s.now().After(e.expiresAt) {
		s.remove(e)
		return nil, false
	}
	return e, true
}

func (s *SessionStore) evictOldest() {
	if oldest := s.order.Back(); oldest != nil {
		s.remove(oldest.Value.(*session))
	}
}

func (s *SessionStore) remove(e *session) {
	s.order.Remove(e.element)
	delete(s.items, e.key)
}
