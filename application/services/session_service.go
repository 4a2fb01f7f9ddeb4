package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"kujisan/domain/core/valueobjects"
	pkgerrors "kujisan/pkg/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionService keeps one TreeController per mounted tree view. Sessions
// share nothing but the stateless collaborators in TreeDependencies.
type SessionService struct {
	deps        TreeDependencies
	ttl         time.Duration
	maxSessions int
	logger      *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*TreeController

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	now      func() time.Time
}

// NewSessionService creates a session registry. A positive ttl starts a
// janitor goroutine that closes idle sessions; call Stop to end it.
func NewSessionService(deps TreeDependencies, ttl time.Duration, maxSessions int) *SessionService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	s := &SessionService{
		deps:        deps,
		ttl:         ttl,
		maxSessions: maxSessions,
		logger:      deps.Logger,
		sessions:    make(map[string]*TreeController),
		stopCh:      make(chan struct{}),
		now:         time.Now,
	}

	if ttl > 0 {
		s.wg.Add(1)
		go s.janitor(janitorInterval(ttl))
	}
	return s
}

func janitorInterval(ttl time.Duration) time.Duration {
	interval := ttl / 4
	if interval < time.Second {
		interval = time.Second
	}
	if interval > time.Minute {
		interval = time.Minute
	}
	return interval
}

// Create opens a session and loads the root generation into it
func (s *SessionService) Create(ctx context.Context) (*TreeView, error) {
	s.mu.Lock()
	if s.maxSessions > 0 && len(s.sessions) >= s.maxSessions {
		s.mu.Unlock()
		return nil, pkgerrors.NewRateLimitError(
			fmt.Sprintf("too many open tree sessions (max %d)", s.maxSessions))
	}
	id := uuid.New().String()
	controller := NewTreeController(id, s.deps)
	s.sessions[id] = controller
	count := len(s.sessions)
	s.mu.Unlock()

	s.deps.Metrics.SetActiveSessions(count)

	view, err := controller.Init(ctx)
	if err != nil {
		_ = s.Close(id)
		return nil, err
	}

	s.logger.Info("Tree session created", zap.String("sessionID", id))
	return view, nil
}

// Get returns a session's controller
func (s *SessionService) Get(id string) (*TreeController, error) {
	s.mu.RLock()
	controller, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, pkgerrors.NewNotFoundError("tree session")
	}
	return controller, nil
}

// View returns a session's current projection
func (s *SessionService) View(ctx context.Context, id string) (*TreeView, error) {
	controller, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	return controller.View(ctx), nil
}

// Toggle expands or collapses one person in a session
func (s *SessionService) Toggle(ctx context.Context, id string, personID string) (*TreeView, error) {
	controller, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	pid, err := valueobjects.NewPersonID(personID)
	if err != nil {
		return nil, err
	}
	return controller.Toggle(ctx, pid)
}

// Reload resets a session and loads the root generation again
func (s *SessionService) Reload(ctx context.Context, id string) (*TreeView, error) {
	controller, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	return controller.Reload(ctx)
}

// Close discards a session; unknown ids are a NOT_FOUND error
func (s *SessionService) Close(id string) error {
	s.mu.Lock()
	if _, ok := s.sessions[id]; !ok {
		s.mu.Unlock()
		return pkgerrors.NewNotFoundError("tree session")
	}
	delete(s.sessions, id)
	count := len(s.sessions)
	s.mu.Unlock()

	s.deps.Metrics.SetActiveSessions(count)
	return nil
}

// Count returns the number of open sessions
func (s *SessionService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Stop ends the janitor goroutine
func (s *SessionService) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	s.wg.Wait()
}

func (s *SessionService) janitor(interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			if n := s.evictIdle(); n > 0 {
				s.logger.Info("Evicted idle tree sessions", zap.Int("count", n))
			}
		}
	}
}

// evictIdle closes sessions unused for longer than the ttl
func (s *SessionService) evictIdle() int {
	cutoff := s.now().Add(-s.ttl)

	s.mu.Lock()
	evicted := 0
	for id, controller := range s.sessions {
		if controller.LastUsed().Before(cutoff) {
			delete(s.sessions, id)
			evicted++
		}
	}
	count := len(s.sessions)
	s.mu.Unlock()

	if evicted > 0 {
		s.deps.Metrics.SetActiveSessions(count)
	}
	return evicted
}
