// Package memstore keeps users and sessions in process memory. It backs the
// engine in tests and in single-node development deployments.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/MrEthical07/authcore/session"
	"github.com/MrEthical07/authcore/user"
)

type txKey struct{}

// Store implements user.Store and session.Store over maps guarded by one
// RWMutex. WithinTx holds the write lock for the whole callback and restores
// a snapshot when the callback fails, so concurrent readers never observe a
// partially applied transaction.
type Store struct {
	mu       sync.RWMutex
	users    map[string]*user.User
	byName   map[string]string
	sessions map[string]*session.Session
}

// New returns an empty store.
func New() *Store {
	return &Store{
		users:    make(map[string]*user.User),
		byName:   make(map[string]string),
		sessions: make(map[string]*session.Session),
	}
}

var (
	_ user.Store    = (*Store)(nil)
	_ session.Store = (*Store)(nil)
)

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

func (s *Store) lock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) rlock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

// WithinTx runs fn with exclusive access. Nested calls join the outer transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users := make(map[string]*user.User, len(s.users))
	for k, v := range s.users {
		users[k] = v
	}
	byName := make(map[string]string, len(s.byName))
	for k, v := range s.byName {
		byName[k] = v
	}
	sessions := make(map[string]*session.Session, len(s.sessions))
	for k, v := range s.sessions {
		sessions[k] = v
	}

	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.users, s.byName, s.sessions = users, byName, sessions
		return err
	}
	return nil
}

/* ---- users ---- */

func (s *Store) Create(ctx context.Context, u *user.User) error {
	defer s.lock(ctx)()

	if _, ok := s.byName[u.Username]; ok {
		return user.ErrAlreadyExists
	}
	if _, ok := s.users[u.ID]; ok {
		return user.ErrAlreadyExists
	}
	s.users[u.ID] = u.Clone()
	s.byName[u.Username] = u.ID
	return nil
}

func (s *Store) GetByID(ctx context.Context, id string) (*user.User, error) {
	defer s.rlock(ctx)()

	u, ok := s.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return u.Clone(), nil
}

func (s *Store) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	defer s.rlock(ctx)()

	id, ok := s.byName[username]
	if !ok {
		return nil, user.ErrNotFound
	}
	return s.users[id].Clone(), nil
}

func (s *Store) Update(ctx context.Context, u *user.User) error {
	defer s.lock(ctx)()

	cur, ok := s.users[u.ID]
	if !ok {
		return user.ErrNotFound
	}
	if cur.Version != u.Version {
		return user.ErrConflict
	}
	if cur.Username != u.Username {
		if _, taken := s.byName[u.Username]; taken {
			return user.ErrAlreadyExists
		}
		delete(s.byName, cur.Username)
		s.byName[u.Username] = u.ID
	}
	u.Version++
	s.users[u.ID] = u.Clone()
	return nil
}

/* ---- sessions ---- */

func (s *Store) Save(ctx context.Context, sess *session.Session) error {
	defer s.lock(ctx)()

	s.sessions[sess.SessionID] = sess.Clone()
	return nil
}

func (s *Store) FindByUserAndSession(ctx context.Context, userID, sessionID string) (*session.Session, error) {
	defer s.rlock(ctx)()

	sess, ok := s.sessions[sessionID]
	if !ok || sess.UserID != userID {
		return nil, session.ErrNotFound
	}
	return sess.Clone(), nil
}

func (s *Store) FindAllByUser(ctx context.Context, userID string) ([]*session.Session, error) {
	defer s.rlock(ctx)()

	var out []*session.Session
	for _, sess := range s.sessions {
		if sess.UserID == userID {
			out = append(out, sess.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) DeleteBySession(ctx context.Context, sessionID string) error {
	defer s.lock(ctx)()

	delete(s.sessions, sessionID)
	return nil
}

func (s *Store) DeleteAllByUser(ctx context.Context, userID string) ([]string, error) {
	defer s.lock(ctx)()

	var removed []string
	for sid, sess := range s.sessions {
		if sess.UserID == userID {
			removed = append(removed, sid)
			delete(s.sessions, sid)
		}
	}
	sort.Strings(removed)
	return removed, nil
}

func (s *Store) Rotate(ctx context.Context, oldSessionID string, next *session.Session) error {
	defer s.lock(ctx)()

	if _, ok := s.sessions[oldSessionID]; !ok {
		return session.ErrNotFound
	}
	delete(s.sessions, oldSessionID)
	s.sessions[next.SessionID] = next.Clone()
	return nil
}

// SessionCount reports the number of live rows.
func (s *Store) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
