// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/desertthunder/tunebot/internal/models"
	"github.com/desertthunder/tunebot/internal/pipeline"
)

// MockResolver is a test double for [services.Resolver]
type MockResolver struct {
	mu    sync.Mutex
	Query string
	Err   error
	Panic bool
	Calls []string
}

func (m *MockResolver) Resolve(ctx context.Context, link string) (string, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, link)
	m.mu.Unlock()
	if m.Panic {
		panic("resolver exploded")
	}
	return m.Query, m.Err
}

// CallCount returns the number of Resolve calls.
func (m *MockResolver) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// MockSearcher is a test double for [services.Searcher]
type MockSearcher struct {
	mu      sync.Mutex
	List    models.CandidateList
	Err     error
	Panic   bool
	Queries []string
	Limits  []int
	// Block, when set, is waited on before returning.
	Block chan struct{}
}

func (m *MockSearcher) Search(ctx context.Context, query string, limit int) (models.CandidateList, error) {
	m.mu.Lock()
	m.Queries = append(m.Queries, query)
	m.Limits = append(m.Limits, limit)
	m.mu.Unlock()
	if m.Block != nil {
		select {
		case <-m.Block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.Panic {
		panic("search exploded")
	}
	return m.List, m.Err
}

// CallCount returns the number of Search calls.
func (m *MockSearcher) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Queries)
}

// MockFetcher is a test double for [services.Fetcher]
type MockFetcher struct {
	mu       sync.Mutex
	Locators []string
	// Fn produces the result; when nil, Result and Err are returned.
	Fn     func(ctx context.Context, locator string) (*models.FetchResult, error)
	Result *models.FetchResult
	Err    error
}

func (m *MockFetcher) Fetch(ctx context.Context, locator string) (*models.FetchResult, error) {
	m.mu.Lock()
	m.Locators = append(m.Locators, locator)
	m.mu.Unlock()
	if m.Fn != nil {
		return m.Fn(ctx, locator)
	}
	return m.Result, m.Err
}

// CallCount returns the number of Fetch calls.
func (m *MockFetcher) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Locators)
}

// MockChannel records everything sent to a user.
type MockChannel struct {
	mu        sync.Mutex
	Messages  []string
	Prompts   []string
	Choices   [][]pipeline.Choice
	Audio     []pipeline.Audio
	NotifyErr error
	ChoiceErr error
	AudioErr  error
	// OnAudio runs before SendAudio returns, while the file still exists.
	OnAudio func(pipeline.Audio)
}

func (m *MockChannel) Notify(ctx context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = append(m.Messages, text)
	return m.NotifyErr
}

func (m *MockChannel) PresentChoices(ctx context.Context, prompt string, choices []pipeline.Choice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Prompts = append(m.Prompts, prompt)
	m.Choices = append(m.Choices, choices)
	return m.ChoiceErr
}

func (m *MockChannel) SendAudio(ctx context.Context, audio pipeline.Audio) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.OnAudio != nil {
		m.OnAudio(audio)
	}
	m.Audio = append(m.Audio, audio)
	return m.AudioErr
}

// Last returns the last message sent, or "".
func (m *MockChannel) Last() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Messages) == 0 {
		return ""
	}
	return m.Messages[len(m.Messages)-1]
}

// LastChoices returns the most recent selection surface.
func (m *MockChannel) LastChoices() []pipeline.Choice {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Choices) == 0 {
		return nil
	}
	return m.Choices[len(m.Choices)-1]
}

// Candidates builds n candidates with distinct ids and locators.
func Candidates(n int) models.CandidateList {
	list := make(models.CandidateList, n)
	for i := range list {
		id := string(rune('a' + i))
		list[i] = models.Candidate{
			ID:       id,
			Title:    "Song " + id,
			Locator:  "https://www.youtube.com/watch?v=" + id,
			Duration: 180 + i,
			Uploader: "Uploader " + id,
		}
	}
	return list
}

// WriteFile creates a file of size bytes under dir and returns its path.
func WriteFile(t *testing.T, dir, name string, size int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
	return path
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails once maxWrites writes have happened.
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites int, target io.Writer) *LimitedWriter {
	return &LimitedWriter{maxWrites: maxWrites, target: target}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertFileNotExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("File still exists: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
