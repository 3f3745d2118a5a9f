// package session keeps the most recent candidate list of each user.
//
// A list is replaced wholesale on every search and handed out under a token; a selection
// must present the token of the list it was made against, so a stale keyboard can never
// resolve against a newer list. Entries expire after a TTL.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/desertthunder/tunebot/internal/models"
	"github.com/desertthunder/tunebot/internal/shared"
)

var (
	ErrNoSession  = errors.New("no candidate list for user")
	ErrExpired    = errors.New("candidate list expired")
	ErrStaleToken = errors.New("candidate list was replaced")
)

type entry struct {
	token   string
	list    models.CandidateList
	created time.Time
}

// Store is an in-memory, per-user candidate list store safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	newID   func() string
	entries map[int64]entry
	busy    map[int64]struct{}
}

// NewStore creates a Store. A ttl of zero or less disables expiry.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		ttl:     ttl,
		now:     time.Now,
		newID:   shared.GenerateID,
		entries: make(map[int64]entry),
		busy:    make(map[int64]struct{}),
	}
}

// Put stores list for user, replacing any previous list, and returns the token for it.
func (s *Store) Put(user int64, list models.CandidateList) string {
	token := s.newID()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[user] = entry{
		token:   token,
		list:    append(models.CandidateList(nil), list...),
		created: s.now(),
	}
	return token
}

// Lookup returns the list stored for user.
//
// A non-empty token must match the token issued by the latest [Store.Put]; an empty token
// accepts whatever list is current.
func (s *Store) Lookup(user int64, token string) (models.CandidateList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[user]
	if !ok {
		return nil, ErrNoSession
	}
	if s.expired(e) {
		delete(s.entries, user)
		return nil, ErrExpired
	}
	if token != "" && token != e.token {
		return nil, ErrStaleToken
	}
	return append(models.CandidateList(nil), e.list...), nil
}

// Len returns the number of stored lists, expired or not.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Acquire marks user as having a request in flight. It returns false if one already is.
func (s *Store) Acquire(user int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.busy[user]; ok {
		return false
	}
	s.busy[user] = struct{}{}
	return true
}

// Release clears the in-flight mark set by [Store.Acquire].
func (s *Store) Release(user int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.busy, user)
}

// Sweep removes expired lists and returns how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for user, e := range s.entries {
		if s.expired(e) {
			delete(s.entries, user)
			n++
		}
	}
	return n
}

// Janitor calls [Store.Sweep] every interval until ctx is done, passing the number
// of removed lists to onSweep when it is non-nil.
func (s *Store) Janitor(ctx context.Context, interval time.Duration, onSweep func(removed int)) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n := s.Sweep()
			if onSweep != nil {
				onSweep(n)
			}
		}
	}
}

func (s *Store) expired(e entry) bool {
	return s.ttl > 0 && s.now().Sub(e.created) > s.ttl
}
