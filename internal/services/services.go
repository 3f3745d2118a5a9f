package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/tunebot/internal/models"
)

var (
	// ErrUnresolvable is returned when a link cannot be turned into a search string.
	ErrUnresolvable = errors.New("link could not be resolved")
	// ErrTooLarge is returned when fetched output exceeds the configured size limit.
	ErrTooLarge = errors.New("output exceeds maximum size")
	// ErrNoOutput is returned when the fetch engine reports success without producing a file.
	ErrNoOutput = errors.New("fetch produced no output file")
)

// Resolver turns a streaming-service link into a "<title> <artist>" search string.
type Resolver interface {
	Resolve(ctx context.Context, link string) (string, error)
}

// Searcher returns up to limit candidates for a free-text query, in engine relevance order.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) (models.CandidateList, error)
}

// Fetcher downloads and transcodes the media behind a locator.
//
// On success the returned file exists and is no larger than the configured maximum.
type Fetcher interface {
	Fetch(ctx context.Context, locator string) (*models.FetchResult, error)
}

// ResolverFunc adapts a function to [Resolver].
type ResolverFunc func(ctx context.Context, link string) (string, error)

func (f ResolverFunc) Resolve(ctx context.Context, link string) (string, error) {
	return f(ctx, link)
}

// NameOf returns the display name of a service, or "none" if it does not report one.
func NameOf(service any) string {
	if named, ok := service.(interface{ Name() string }); ok {
		return named.Name()
	}
	return "none"
}

// Disabled is the [Resolver] used when no streaming-service credentials are configured.
var Disabled Resolver = ResolverFunc(func(context.Context, string) (string, error) {
	return "", fmt.Errorf("%w: link resolution is disabled", ErrUnresolvable)
})
