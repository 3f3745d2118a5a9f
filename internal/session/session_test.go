package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/tunebot/internal/models"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestStore(ttl time.Duration) (*Store, *clock) {
	c := &clock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	s := NewStore(ttl)
	s.now = c.now
	return s, c
}

func list(titles ...string) models.CandidateList {
	l := make(models.CandidateList, 0, len(titles))
	for i, title := range titles {
		l = append(l, models.Candidate{ID: fmt.Sprint(i), Title: title, Locator: "https://example.com/" + title})
	}
	return l
}

func TestStore(t *testing.T) {
	t.Run("Put and Lookup", func(t *testing.T) {
		s, _ := newTestStore(time.Minute)
		token := s.Put(1, list("a", "b"))
		if token == "" {
			t.Fatal("expected a token")
		}

		got, err := s.Lookup(1, token)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(got) != 2 || got[1].Title != "b" {
			t.Errorf("unexpected list %+v", got)
		}
	})

	t.Run("Lookup without list", func(t *testing.T) {
		s, _ := newTestStore(time.Minute)
		if _, err := s.Lookup(1, ""); !errors.Is(err, ErrNoSession) {
			t.Errorf("expected ErrNoSession, got %v", err)
		}
	})

	t.Run("Put replaces wholesale", func(t *testing.T) {
		s, _ := newTestStore(time.Minute)
		first := s.Put(1, list("a", "b", "c"))
		second := s.Put(1, list("x"))

		if _, err := s.Lookup(1, first); !errors.Is(err, ErrStaleToken) {
			t.Errorf("expected ErrStaleToken for replaced list, got %v", err)
		}

		got, err := s.Lookup(1, second)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(got) != 1 || got[0].Title != "x" {
			t.Errorf("expected only the new list, got %+v", got)
		}
	})

	t.Run("empty token accepts current list", func(t *testing.T) {
		s, _ := newTestStore(time.Minute)
		s.Put(1, list("a"))
		if _, err := s.Lookup(1, ""); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	t.Run("users are independent", func(t *testing.T) {
		s, _ := newTestStore(time.Minute)
		s.Put(1, list("a"))
		tok := s.Put(2, list("b", "c"))
		s.Put(1, list("d"))

		got, err := s.Lookup(2, tok)
		if err != nil || len(got) != 2 {
			t.Errorf("expected user 2 list untouched, got %+v, %v", got, err)
		}
	})

	t.Run("Expiry", func(t *testing.T) {
		s, c := newTestStore(time.Minute)
		tok := s.Put(1, list("a"))

		c.advance(59 * time.Second)
		if _, err := s.Lookup(1, tok); err != nil {
			t.Fatalf("expected list before ttl, got %v", err)
		}

		c.advance(2 * time.Second)
		if _, err := s.Lookup(1, tok); !errors.Is(err, ErrExpired) {
			t.Errorf("expected ErrExpired, got %v", err)
		}
		if s.Len() != 0 {
			t.Error("expected expired entry to be dropped")
		}
	})

	t.Run("zero ttl never expires", func(t *testing.T) {
		s, c := newTestStore(0)
		tok := s.Put(1, list("a"))
		c.advance(24 * time.Hour)
		if _, err := s.Lookup(1, tok); err != nil {
			t.Errorf("expected no expiry, got %v", err)
		}
	})

	t.Run("Sweep", func(t *testing.T) {
		s, c := newTestStore(time.Minute)
		s.Put(1, list("a"))
		c.advance(2 * time.Minute)
		s.Put(2, list("b"))

		if n := s.Sweep(); n != 1 {
			t.Errorf("expected 1 swept entry, got %d", n)
		}
		if s.Len() != 1 {
			t.Errorf("expected 1 remaining entry, got %d", s.Len())
		}
	})

	t.Run("Janitor", func(t *testing.T) {
		s, c := newTestStore(time.Minute)
		s.Put(1, list("a"))
		c.advance(2 * time.Minute)

		ctx, cancel := context.WithCancel(context.Background())
		swept := make(chan int, 1)
		done := make(chan struct{})
		go func() {
			defer close(done)
			s.Janitor(ctx, time.Millisecond, func(n int) {
				if n > 0 {
					swept <- n
				}
			})
		}()

		select {
		case n := <-swept:
			if n != 1 {
				t.Errorf("expected 1 swept entry, got %d", n)
			}
		case <-time.After(time.Second):
			t.Fatal("expected janitor to sweep the expired list")
		}
		cancel()
		<-done

		if s.Len() != 0 {
			t.Errorf("expected empty store, got %d entries", s.Len())
		}
	})

	t.Run("Janitor without interval returns", func(t *testing.T) {
		s, _ := newTestStore(time.Minute)
		s.Janitor(context.Background(), 0, func(int) { t.Error("expected no sweep") })
	})

	t.Run("stored list is a copy", func(t *testing.T) {
		s, _ := newTestStore(time.Minute)
		l := list("a")
		tok := s.Put(1, l)
		l[0].Title = "mutated"

		got, _ := s.Lookup(1, tok)
		if got[0].Title != "a" {
			t.Errorf("expected stored copy to be unaffected, got %q", got[0].Title)
		}
	})

	t.Run("Acquire and Release", func(t *testing.T) {
		s, _ := newTestStore(time.Minute)
		if !s.Acquire(1) {
			t.Fatal("expected first acquire to succeed")
		}
		if s.Acquire(1) {
			t.Error("expected second acquire to fail while in flight")
		}
		if !s.Acquire(2) {
			t.Error("expected other users to be unaffected")
		}
		s.Release(1)
		if !s.Acquire(1) {
			t.Error("expected acquire after release to succeed")
		}
	})

	t.Run("concurrent access", func(t *testing.T) {
		s, _ := newTestStore(time.Minute)
		var wg sync.WaitGroup
		for u := int64(0); u < 20; u++ {
			wg.Add(1)
			go func(u int64) {
				defer wg.Done()
				for i := 0; i < 50; i++ {
					tok := s.Put(u, list(fmt.Sprint(u)))
					got, err := s.Lookup(u, tok)
					if err != nil || got[0].Title != fmt.Sprint(u) {
						t.Errorf("user %d: got %+v, %v", u, got, err)
						return
					}
				}
			}(u)
		}
		wg.Wait()
	})
}
