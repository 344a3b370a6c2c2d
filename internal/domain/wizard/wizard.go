// Package wizard keeps the short lived state of the event creation dialog.
// A session belongs to one user in one conversation and expires on its own.
package wizard

import (
	"fmt"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/huddle-bot/huddle/internal/clock"
	"github.com/huddle-bot/huddle/internal/domain/errs"
	"github.com/huddle-bot/huddle/internal/domain/events"
)

type Step string

const (
	StepDetails Step = "details"
	StepConfirm Step = "confirm"
	// StepCreating holds a confirmed draft while the event is stored.
	StepCreating Step = "creating"
	StepDone    Step = "done"
	StepAborted Step = "aborted"
)

type Key struct {
	UserID         snowflake.ID
	ConversationID string
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s", k.UserID, k.ConversationID)
}

// Draft is the event being assembled.
type Draft struct {
	GuildID     snowflake.ID
	Name        string
	Description string
	Zone        string
	Slots       []events.SlotProposal
	Open        bool
}

type Session struct {
	Key       Key
	Step      Step
	Draft     Draft
	ExpiresAt time.Time
}

type sessionError struct {
	msg  string
	kind errs.Kind
}

func (e *sessionError) Error() string       { return e.msg }
func (e *sessionError) Kind() errs.Kind     { return e.kind }
func (e *sessionError) UserMessage() string { return e.msg }

var (
	ErrNoSession = &sessionError{msg: "There is no event being created here. Start again with `/event create`.", kind: errs.KindNotFound}
	ErrExpired   = &sessionError{msg: "This event draft expired. Start again with `/event create`.", kind: errs.KindValidation}
)

// StepError is returned when an action does not fit the session's step.
type StepError struct {
	Want Step
	Got  Step
}

func (e *StepError) Error() string {
	return fmt.Sprintf("wizard is at step %s, expected %s", e.Got, e.Want)
}

func (e *StepError) Kind() errs.Kind { return errs.KindStateConflict }

func (e *StepError) UserMessage() string {
	return "That step of the event draft is already done."
}

type Manager struct {
	mu       sync.Mutex
	sessions map[Key]*Session
	ttl      time.Duration
	clock    clock.Clock
}

func NewManager(ttl time.Duration, clk clock.Clock) *Manager {
	return &Manager{
		sessions: make(map[Key]*Session),
		ttl:      ttl,
		clock:    clk,
	}
}

// Begin starts a session, replacing any previous one for key.
func (m *Manager) Begin(key Key, guildID snowflake.ID) Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := &Session{
		Key:       key,
		Step:      StepDetails,
		Draft:     Draft{GuildID: guildID},
		ExpiresAt: m.clock.Now().Add(m.ttl),
	}
	m.sessions[key] = s
	return *s
}

// SubmitDetails stores the draft and moves the session to confirmation.
func (m *Manager) SubmitDetails(key Key, draft Draft) (Session, error) {
	return m.advance(key, StepDetails, func(s *Session) {
		guildID := s.Draft.GuildID
		s.Draft = draft
		if draft.GuildID == 0 {
			s.Draft.GuildID = guildID
		}
		s.Step = StepConfirm
		s.ExpiresAt = m.clock.Now().Add(m.ttl)
	})
}

// Confirm claims the draft for creation. The session stays until Complete
// drops it or Reopen hands it back for another attempt.
func (m *Manager) Confirm(key Key) (Draft, error) {
	s, err := m.advance(key, StepConfirm, func(s *Session) {
		s.Step = StepCreating
	})
	if err != nil {
		return Draft{}, err
	}
	return s.Draft, nil
}

// Complete ends a session whose event was created.
func (m *Manager) Complete(key Key) error {
	_, err := m.finish(key, StepCreating, StepDone)
	return err
}

// Reopen returns a claimed draft to confirmation after a failed create.
func (m *Manager) Reopen(key Key) error {
	_, err := m.advance(key, StepCreating, func(s *Session) {
		s.Step = StepConfirm
		s.ExpiresAt = m.clock.Now().Add(m.ttl)
	})
	return err
}

// Abort drops the session from any step.
func (m *Manager) Abort(key Key) error {
	_, err := m.finish(key, "", StepAborted)
	return err
}

func (m *Manager) Get(key Key) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.live(key)
	if err != nil {
		return Session{}, err
	}
	return *s, nil
}

func (m *Manager) advance(key Key, want Step, fn func(*Session)) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.live(key)
	if err != nil {
		return Session{}, err
	}
	if s.Step != want {
		return Session{}, &StepError{Want: want, Got: s.Step}
	}
	fn(s)
	return *s, nil
}

func (m *Manager) finish(key Key, want, final Step) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.live(key)
	if err != nil {
		return Session{}, err
	}
	if want != "" && s.Step != want {
		return Session{}, &StepError{Want: want, Got: s.Step}
	}
	s.Step = final
	delete(m.sessions, key)
	return *s, nil
}

// live returns the session for key, dropping it when expired. m.mu is held.
func (m *Manager) live(key Key) (*Session, error) {
	s, ok := m.sessions[key]
	if !ok {
		return nil, ErrNoSession
	}
	if !m.clock.Now().Before(s.ExpiresAt) {
		delete(m.sessions, key)
		return nil, ErrExpired
	}
	return s, nil
}

// Cleanup removes expired sessions and returns how many were dropped.
func (m *Manager) Cleanup() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	removed := 0
	for key, s := range m.sessions {
		if !now.Before(s.ExpiresAt) {
			delete(m.sessions, key)
			removed++
		}
	}
	return removed
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
