// YouTube implementations of [Searcher]
//
// Three engines share one result shape: yt-dlp flat search (default), the ytsearch
// scraper and the YouTube Music search client.
package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/desertthunder/tunebot/internal/formatter"
	"github.com/desertthunder/tunebot/internal/models"
	"github.com/desertthunder/tunebot/internal/shared"
	"github.com/lrstanley/go-ytdlp"
	"github.com/ppalone/ytsearch"
	"github.com/raitonoberu/ytmusic"
	"github.com/samber/lo"
)

const (
	youtubeWatchURL = "https://www.youtube.com/watch?v="
	musicWatchURL   = "https://music.youtube.com/watch?v="

	// searchTemplate is the yt-dlp --print template for flat search entries.
	searchTemplate = "%(id)s\t%(url)s\t%(title)s\t%(uploader)s\t%(duration)s"

	unknown = "Unknown"
	na      = "NA"
)

// Search engine names accepted by [NewSearcher].
const (
	EngineYTDLP    = "ytdlp"
	EngineYTSearch = "ytsearch"
	EngineYTMusic  = "ytmusic"
)

// NewSearcher returns the [Searcher] for engine.
func NewSearcher(engine string) (Searcher, error) {
	switch engine {
	case "", EngineYTDLP:
		return NewYTDLPSearch(), nil
	case EngineYTSearch:
		return NewScrapeSearch(), nil
	case EngineYTMusic:
		return NewMusicSearch(), nil
	default:
		return nil, fmt.Errorf("%w: unknown search engine %q", shared.ErrInvalidConfig, engine)
	}
}

// YTDLPSearch searches YouTube with "ytsearchN:" through yt-dlp in flat-playlist mode.
type YTDLPSearch struct {
	run func(ctx context.Context, limit int, target string) (string, error)
}

// NewYTDLPSearch creates a yt-dlp backed searcher.
func NewYTDLPSearch() *YTDLPSearch {
	return &YTDLPSearch{run: runFlatSearch}
}

func runFlatSearch(ctx context.Context, limit int, target string) (string, error) {
	res, err := ytdlp.New().
		FlatPlaylist().
		Print(searchTemplate).
		PlaylistItems(fmt.Sprintf("1-%d", limit)).
		NoWarnings().
		IgnoreConfig().
		Run(ctx, target)
	if err != nil {
		return "", err
	}
	return res.Stdout, nil
}

func (y *YTDLPSearch) Name() string {
	return "yt-dlp"
}

// Search implements [Searcher].
func (y *YTDLPSearch) Search(ctx context.Context, query string, limit int) (models.CandidateList, error) {
	if limit <= 0 {
		return models.CandidateList{}, nil
	}

	out, err := y.run(ctx, limit, fmt.Sprintf("ytsearch%d:%s", limit, query))
	if err != nil {
		return nil, fmt.Errorf("%w: yt-dlp search: %v", shared.ErrServiceUnavailable, err)
	}

	return parseSearchOutput(out).Cap(limit), nil
}

// parseSearchOutput converts lines printed with [searchTemplate] into candidates.
//
// Lines without an id or URL are dropped; "NA" placeholders become defaults.
func parseSearchOutput(out string) models.CandidateList {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	return lo.FilterMap(lines, func(line string, _ int) (models.Candidate, bool) {
		parts := strings.Split(strings.TrimRight(line, "\r"), "\t")
		if len(parts) < 5 {
			return models.Candidate{}, false
		}

		id, locator := value(parts[0]), value(parts[1])
		if locator == "" && id != "" {
			locator = youtubeWatchURL + id
		}
		if locator == "" {
			return models.Candidate{}, false
		}

		return models.Candidate{
			ID:       id,
			Title:    valueOr(parts[2], unknown),
			Locator:  locator,
			Uploader: valueOr(parts[3], unknown),
			Duration: parseSeconds(parts[4]),
		}, true
	})
}

// ScrapeSearch searches YouTube through the ytsearch scraper.
type ScrapeSearch struct {
	client *ytsearch.Client
}

// NewScrapeSearch creates a ytsearch backed searcher.
func NewScrapeSearch() *ScrapeSearch {
	return &ScrapeSearch{client: ytsearch.NewClient(nil)}
}

func (s *ScrapeSearch) Name() string {
	return "ytsearch"
}

// Search implements [Searcher].
func (s *ScrapeSearch) Search(ctx context.Context, query string, limit int) (models.CandidateList, error) {
	if limit <= 0 {
		return models.CandidateList{}, nil
	}

	res, err := s.client.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: ytsearch: %v", shared.ErrServiceUnavailable, err)
	}

	list := make(models.CandidateList, 0, len(res.Results))
	for _, r := range res.Results {
		if r.VideoID == "" {
			continue
		}
		list = append(list, models.Candidate{
			ID:       r.VideoID,
			Title:    valueOr(r.Title, unknown),
			Locator:  youtubeWatchURL + r.VideoID,
			Uploader: valueOr(r.Channel, unknown),
			Duration: formatter.ParseDuration(r.Duration),
		})
	}
	return list.Cap(limit), nil
}

// MusicSearch searches YouTube Music tracks.
type MusicSearch struct{}

// NewMusicSearch creates a YouTube Music backed searcher.
func NewMusicSearch() *MusicSearch {
	return &MusicSearch{}
}

func (m *MusicSearch) Name() string {
	return "YouTube Music"
}

// Search implements [Searcher].
//
// The ytmusic client takes no context, so cancellation is checked around the call.
func (m *MusicSearch) Search(ctx context.Context, query string, limit int) (models.CandidateList, error) {
	if limit <= 0 {
		return models.CandidateList{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res, err := ytmusic.TrackSearch(query).Next()
	if err != nil {
		return nil, fmt.Errorf("%w: ytmusic: %v", shared.ErrServiceUnavailable, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	list := make(models.CandidateList, 0, len(res.Tracks))
	for _, t := range res.Tracks {
		if t.VideoID == "" {
			continue
		}
		uploader := unknown
		if len(t.Artists) > 0 && t.Artists[0].Name != "" {
			uploader = t.Artists[0].Name
		}
		list = append(list, models.Candidate{
			ID:       t.VideoID,
			Title:    valueOr(t.Title, unknown),
			Locator:  musicWatchURL + t.VideoID,
			Uploader: uploader,
			Duration: formatter.ClampDuration(t.Duration),
		})
	}
	return list.Cap(limit), nil
}

func value(s string) string {
	s = strings.TrimSpace(s)
	if s == na {
		return ""
	}
	return s
}

func valueOr(s, fallback string) string {
	if v := value(s); v != "" {
		return v
	}
	return fallback
}

// parseSeconds reads yt-dlp durations, which may be fractional or "NA".
func parseSeconds(s string) int {
	f, err := strconv.ParseFloat(value(s), 64)
	if err != nil || f < 0 {
		return 0
	}
	return formatter.ClampDuration(int(f))
}
