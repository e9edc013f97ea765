package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bryanwahyu/alphatrend/internal/domain/analysis"
	"github.com/bryanwahyu/alphatrend/internal/domain/quote"
	domain "github.com/bryanwahyu/alphatrend/internal/domain/session"
)

// MemoryStore keeps sessions in process memory. Idle sessions older than ttl are swept.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[domain.ID]*domain.Session
	ttl      time.Duration
	now      func() time.Time
	stop     chan struct{}
	once     sync.Once
}

var _ domain.Store = (*MemoryStore)(nil)

// NewMemoryStore starts the sweeper when ttl > 0. Call Close to stop it.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	s := &MemoryStore{
		sessions: make(map[domain.ID]*domain.Session),
		ttl:      ttl,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	if ttl > 0 {
		go s.cleanup(sweepInterval(ttl))
	}
	return s
}

func sweepInterval(ttl time.Duration) time.Duration {
	iv := ttl / 2
	if iv > 5*time.Minute {
		iv = 5 * time.Minute
	}
	if iv < time.Second {
		iv = time.Second
	}
	return iv
}

func (s *MemoryStore) Close() {
	s.once.Do(func() { close(s.stop) })
}

func (s *MemoryStore) Create(_ context.Context) (*domain.Session, error) {
	sess := &domain.Session{
		ID:        domain.ID(uuid.NewString()),
		State:     domain.StateIdle,
		UpdatedAt: s.now(),
	}
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return sess.Clone(), nil
}

func (s *MemoryStore) Get(_ context.Context, id domain.ID) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return sess.Clone(), nil
}

func (s *MemoryStore) Begin(_ context.Context, id domain.ID, req *analysis.Request) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return 0, domain.ErrNotFound
	}
	if sess.State == domain.StateAnalyzing {
		return 0, domain.ErrBusy
	}
	sess.Attempt++
	sess.State = domain.StateAnalyzing
	sess.Request = req
	sess.Report = nil
	sess.Prices = nil
	sess.Error = ""
	sess.UpdatedAt = s.now()
	return sess.Attempt, nil
}

func (s *MemoryStore) Complete(_ context.Context, id domain.ID, attempt int, r *analysis.Report, prices []quote.Slot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.running(id, attempt)
	if err != nil {
		return err
	}
	sess.State = domain.StateCompleted
	sess.Report = r
	sess.Prices = append([]quote.Slot(nil), prices...)
	sess.UpdatedAt = s.now()
	return nil
}

func (s *MemoryStore) Fail(_ context.Context, id domain.ID, attempt int, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.running(id, attempt)
	if err != nil {
		return err
	}
	sess.State = domain.StateError
	sess.Error = message
	sess.UpdatedAt = s.now()
	return nil
}

// running must be called with mu held.
func (s *MemoryStore) running(id domain.ID, attempt int) (*domain.Session, error) {
	sess, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if sess.State != domain.StateAnalyzing || sess.Attempt != attempt {
		return nil, domain.ErrNotAnalyzing
	}
	return sess, nil
}

// Reset returns the session to idle. A run still in flight is orphaned: its attempt no longer matches.
func (s *MemoryStore) Reset(_ context.Context, id domain.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return domain.ErrNotFound
	}
	if sess.State == domain.StateAnalyzing {
		sess.Attempt++
	}
	sess.State = domain.StateIdle
	sess.Request = nil
	sess.Report = nil
	sess.Prices = nil
	sess.Error = ""
	sess.UpdatedAt = s.now()
	return nil
}

func (s *MemoryStore) SetPrice(_ context.Context, id domain.ID, reportID analysis.ReportID, idx int, slot quote.Slot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return domain.ErrNotFound
	}
	// the report was reset or replaced while the lookup ran
	if sess.Report == nil || sess.Report.ID != reportID || idx < 0 || idx >= len(sess.Prices) {
		return nil
	}
	sess.Prices[idx] = slot
	return nil
}

// Len reports how many sessions are held.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *MemoryStore) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

// sweep drops sessions untouched for longer than ttl, except running ones.
func (s *MemoryStore) sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for id, sess := range s.sessions {
		if sess.State == domain.StateAnalyzing {
			continue
		}
		if now.Sub(sess.UpdatedAt) > s.ttl {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}
