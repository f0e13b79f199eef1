// Package memory implements the repository interfaces in process memory.
// It backs local development without Postgres and the service tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Dheeraj-Reddy-07/StackUp/internal/domain"
	"github.com/Dheeraj-Reddy-07/StackUp/internal/repository"
)

// Store is a mutex guarded in-memory repository.Store. Transactions take the
// store lock for their whole duration. Before a transaction first writes a
// table it copies that table, and a failed transaction restores the copies,
// so rollback cost follows the tables written rather than the whole store.
type Store struct {
	mu   *sync.Mutex
	st   *state
	inTx bool
	undo *undoLog
	now  func() time.Time
}

var _ repository.Store = (*Store)(nil)

// New constructs an empty Store.
func New() *Store {
	return &Store{mu: &sync.Mutex{}, st: newState(), now: time.Now}
}

type state struct {
	users             map[string]domain.User
	openings          map[string]domain.Opening
	applications      map[string]domain.Application
	applicationOrder  []string
	teams             map[string]domain.Team
	teamOrder         []string
	messages          map[string][]domain.Message
	notifications     map[string]domain.Notification
	notificationOrder []string
}

func newState() *state {
	return &state{
		users:         make(map[string]domain.User),
		openings:      make(map[string]domain.Opening),
		applications:  make(map[string]domain.Application),
		teams:         make(map[string]domain.Team),
		messages:      make(map[string][]domain.Message),
		notifications: make(map[string]domain.Notification),
	}
}

type table int

const (
	tableUsers table = iota
	tableOpenings
	tableApplications
	tableTeams
	tableMessages
	tableNotifications
)

// copyTable deep copies one table of s into dst.
func (s *state) copyTable(t table, dst *state) {
	switch t {
	case tableUsers:
		dst.users = make(map[string]domain.User, len(s.users))
		for k, v := range s.users {
			dst.users[k] = v
		}
	case tableOpenings:
		dst.openings = make(map[string]domain.Opening, len(s.openings))
		for k, v := range s.openings {
			dst.openings[k] = v
		}
	case tableApplications:
		dst.applications = make(map[string]domain.Application, len(s.applications))
		for k, v := range s.applications {
			dst.applications[k] = v
		}
		dst.applicationOrder = append([]string(nil), s.applicationOrder...)
	case tableTeams:
		dst.teams = make(map[string]domain.Team, len(s.teams))
		for k, v := range s.teams {
			dst.teams[k] = copyTeam(v)
		}
		dst.teamOrder = append([]string(nil), s.teamOrder...)
	case tableMessages:
		dst.messages = make(map[string][]domain.Message, len(s.messages))
		for k, msgs := range s.messages {
			cp := make([]domain.Message, len(msgs))
			for i, m := range msgs {
				cp[i] = copyMessage(m)
			}
			dst.messages[k] = cp
		}
	case tableNotifications:
		dst.notifications = make(map[string]domain.Notification, len(s.notifications))
		for k, v := range s.notifications {
			dst.notifications[k] = copyNotification(v)
		}
		dst.notificationOrder = append([]string(nil), s.notificationOrder...)
	}
}

// undoLog holds the pre-transaction copy of every table a transaction wrote.
type undoLog struct {
	saved map[table]bool
	snap  *state
}

func newUndoLog() *undoLog {
	return &undoLog{saved: make(map[table]bool), snap: &state{}}
}

// rollback puts the saved tables back into st.
func (u *undoLog) rollback(st *state) {
	for t := range u.saved {
		u.snap.copyTable(t, st)
	}
}

// save records t before its first write inside a transaction.
func (s *Store) save(t table) {
	if s.undo == nil || s.undo.saved[t] {
		return
	}
	s.undo.saved[t] = true
	s.st.copyTable(t, s.undo.snap)
}

func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// InTx runs fn with exclusive access to the store. A non-nil error from fn,
// or a context that expired while fn ran, discards every write fn made.
func (s *Store) InTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &Store{mu: s.mu, st: s.st, inTx: true, undo: newUndoLog(), now: s.now}
	if err := fn(tx); err != nil {
		tx.undo.rollback(s.st)
		return err
	}
	if err := ctx.Err(); err != nil {
		tx.undo.rollback(s.st)
		return err
	}
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error {
	return nil
}

func newID() string {
	return uuid.NewString()
}

func copyTeam(t domain.Team) domain.Team {
	t.Members = append([]string{}, t.Members...)
	return t
}

func copyMessage(m domain.Message) domain.Message {
	m.ReadBy = append([]string{}, m.ReadBy...)
	return m
}

func copyNotification(n domain.Notification) domain.Notification {
	if n.Related != nil {
		rel := *n.Related
		n.Related = &rel
	}
	return n
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func removeID(list []string, id string) []string {
	for i, item := range list {
		if item == id {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
