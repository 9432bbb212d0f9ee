package wizard

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/Priya8975/event-console/internal/clock"
	"github.com/Priya8975/event-console/internal/domain"
	"github.com/google/uuid"
)

// SubmitFunc receives the validated form and creates the resource.
type SubmitFunc func(ctx context.Context, form any) (any, error)

const saveTimeout = 5 * time.Second

type live struct {
	mu       sync.Mutex
	session  *Session
	debounce *Debouncer
	closed   bool
	seen     time.Time
}

// Manager holds the live wizard sessions of every user, autosaves drafts
// after edits settle and restores them when a wizard is reopened.
type Manager struct {
	defs   map[string]*Definition
	drafts DraftStore
	clock  clock.Clock
	maxAge time.Duration
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*live
	owners   map[string]string
}

func NewManager(drafts DraftStore, clk clock.Clock, maxAge time.Duration, logger *slog.Logger) *Manager {
	return &Manager{
		defs:     Definitions(),
		drafts:   drafts,
		clock:    clk,
		maxAge:   maxAge,
		logger:   logger,
		sessions: make(map[string]*live),
		owners:   make(map[string]string),
	}
}

func ownerKey(kind, userID string) string {
	return kind + ":" + userID
}

// Open returns the user's live session for kind, or starts one, restoring a
// draft saved less than maxAge ago. Older drafts are discarded.
func (m *Manager) Open(ctx context.Context, kind, userID string) (State, error) {
	def, ok := m.defs[kind]
	if !ok {
		return State{}, ErrUnknownKind
	}
	m.evictIdle()

	m.mu.Lock()
	if id, ok := m.owners[ownerKey(kind, userID)]; ok {
		if l := m.sessions[id]; l != nil {
			m.mu.Unlock()
			l.mu.Lock()
			defer l.mu.Unlock()
			if !l.closed {
				l.seen = m.clock.Now()
				return l.session.State(), nil
			}
			return m.start(ctx, def, userID)
		}
	}
	m.mu.Unlock()
	return m.start(ctx, def, userID)
}

func (m *Manager) start(ctx context.Context, def *Definition, userID string) (State, error) {
	kind := def.Kind

	s := NewSession(def, uuid.NewString(), userID)
	s.UpdatedAt = m.clock.Now()

	draft, err := m.drafts.Load(ctx, kind, userID)
	if err != nil {
		return State{}, err
	}
	if draft != nil {
		if m.clock.Now().Sub(draft.SavedAt) < m.maxAge {
			if err := s.Restore(*draft); err != nil {
				m.logger.Warn("discarding unreadable wizard draft", "error", err, "kind", kind, "user_id", userID)
				s = NewSession(def, s.ID, userID)
				_ = m.drafts.Delete(ctx, kind, userID)
			} else {
				s.UpdatedAt = draft.SavedAt
			}
		} else {
			if err := m.drafts.Delete(ctx, kind, userID); err != nil {
				m.logger.Warn("failed to delete stale wizard draft", "error", err, "kind", kind, "user_id", userID)
			}
		}
	}

	l := &live{session: s, debounce: NewDebouncer(def.AutosaveDelay), seen: m.clock.Now()}

	m.mu.Lock()
	m.sessions[s.ID] = l
	m.owners[ownerKey(kind, userID)] = s.ID
	m.mu.Unlock()

	return s.State(), nil
}

func (m *Manager) lookup(kind, id, userID string) (*live, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.sessions[id]
	if !ok || l.session.UserID != userID || l.session.Kind != kind {
		return nil, ErrSessionNotFound
	}
	return l, nil
}

// with runs fn on a locked live session.
func (m *Manager) with(kind, id, userID string, fn func(l *live) error) (State, error) {
	l, err := m.lookup(kind, id, userID)
	if err != nil {
		return State{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return State{}, ErrSessionNotFound
	}
	l.seen = m.clock.Now()
	err = fn(l)
	return l.session.State(), err
}

func (m *Manager) Get(kind, id, userID string) (State, error) {
	return m.with(kind, id, userID, func(*live) error { return nil })
}

// Update merges field values and schedules an autosave.
func (m *Manager) Update(kind, id, userID string, patch json.RawMessage) (State, error) {
	return m.with(kind, id, userID, func(l *live) error {
		if err := l.session.Apply(patch); err != nil {
			return err
		}
		l.session.UpdatedAt = m.clock.Now()
		m.scheduleSave(l)
		return nil
	})
}

// Next validates the current step and advances. On failure the returned
// state carries the field errors and the error is a *domain.ValidationError.
func (m *Manager) Next(kind, id, userID string) (State, error) {
	var verr *domain.ValidationError
	st, err := m.with(kind, id, userID, func(l *live) error {
		if verr = l.session.Next(); verr != nil {
			return nil
		}
		m.scheduleSave(l)
		return nil
	})
	if err != nil {
		return st, err
	}
	if verr != nil {
		st.Errors = verr.Fields
		return st, verr
	}
	return st, nil
}

func (m *Manager) Back(kind, id, userID string) (State, error) {
	return m.with(kind, id, userID, func(l *live) error {
		l.session.Back()
		m.scheduleSave(l)
		return nil
	})
}

func (m *Manager) GoTo(kind, id, userID string, step int) (State, error) {
	return m.with(kind, id, userID, func(l *live) error {
		if err := l.session.GoTo(step); err != nil {
			return err
		}
		m.scheduleSave(l)
		return nil
	})
}

// Submit validates the whole form and hands it to fn. Only a session on its
// last step can be submitted. On success the draft and the session are
// dropped.
func (m *Manager) Submit(ctx context.Context, kind, id, userID string, fn SubmitFunc) (any, State, error) {
	l, err := m.lookup(kind, id, userID)
	if err != nil {
		return nil, State{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, State{}, ErrSessionNotFound
	}
	if !l.session.OnLastStep() {
		return nil, l.session.State(), ErrNotOnLastStep
	}

	if v := l.session.Validate(); v != nil {
		st := l.session.State()
		st.Errors = v.Fields
		return nil, st, v
	}

	result, err := fn(ctx, l.session.Form)
	if err != nil {
		return nil, l.session.State(), err
	}

	l.debounce.Stop()
	l.closed = true
	if err := m.drafts.Delete(ctx, kind, userID); err != nil {
		m.logger.Warn("failed to clear wizard draft", "error", err, "kind", kind, "user_id", userID)
	}
	m.forget(l.session)
	return result, l.session.State(), nil
}

// Discard abandons the session and its draft.
func (m *Manager) Discard(ctx context.Context, kind, id, userID string) error {
	l, err := m.lookup(kind, id, userID)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.debounce.Stop()
	l.closed = true
	m.forget(l.session)
	return m.drafts.Delete(ctx, kind, userID)
}

// evictIdle drops live sessions nobody has touched for maxAge. Their drafts
// stay in the store and expire on their own.
func (m *Manager) evictIdle() {
	if m.maxAge <= 0 {
		return
	}
	m.mu.Lock()
	lives := make([]*live, 0, len(m.sessions))
	for _, l := range m.sessions {
		lives = append(lives, l)
	}
	m.mu.Unlock()

	now := m.clock.Now()
	for _, l := range lives {
		l.mu.Lock()
		if !l.closed && now.Sub(l.seen) >= m.maxAge {
			l.debounce.Stop()
			l.closed = true
			m.forget(l.session)
			m.logger.Debug("evicted idle wizard session", "kind", l.session.Kind, "user_id", l.session.UserID)
		}
		l.mu.Unlock()
	}
}

func (m *Manager) forget(s *Session) {
	m.mu.Lock()
	delete(m.sessions, s.ID)
	if m.owners[ownerKey(s.Kind, s.UserID)] == s.ID {
		delete(m.owners, ownerKey(s.Kind, s.UserID))
	}
	m.mu.Unlock()
}

// Flush saves every pending draft immediately. Called on shutdown.
func (m *Manager) Flush() {
	m.mu.Lock()
	lives := make([]*live, 0, len(m.sessions))
	for _, l := range m.sessions {
		lives = append(lives, l)
	}
	m.mu.Unlock()

	for _, l := range lives {
		l.debounce.Flush()
	}
}

// scheduleSave must be called with l.mu held.
func (m *Manager) scheduleSave(l *live) {
	l.debounce.Trigger(func() { m.save(l) })
}

func (m *Manager) save(l *live) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}

	draft, err := l.session.Draft(m.clock.Now())
	if err != nil {
		m.logger.Error("failed to snapshot wizard draft", "error", err, "kind", l.session.Kind)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := m.drafts.Save(ctx, draft); err != nil {
		m.logger.Error("failed to autosave wizard draft", "error", err, "kind", draft.Kind, "user_id", draft.UserID)
		return
	}
	m.logger.Debug("wizard draft saved", "kind", draft.Kind, "user_id", draft.UserID, "step", draft.CurrentStep)
}
