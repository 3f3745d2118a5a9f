// yt-dlp implementation of [Fetcher]
package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/desertthunder/tunebot/internal/formatter"
	"github.com/desertthunder/tunebot/internal/models"
	"github.com/desertthunder/tunebot/internal/shared"
	"github.com/dhowden/tag"
	"github.com/lrstanley/go-ytdlp"
)

// fetchTemplate is printed once the transcoded file is in its final location.
const fetchTemplate = "after_move:%(id)s\t%(title)s\t%(artist,uploader|)s\t%(duration)s\t%(filepath)s"

// YouTubeFetcher downloads the best audio stream with yt-dlp and transcodes it with ffmpeg.
//
// Each fetch writes to a unique file name under the download directory so concurrent
// fetches of the same locator never collide.
type YouTubeFetcher struct {
	dir      string
	maxSize  int64
	format   string
	quality  string
	download func(ctx context.Context, f *YouTubeFetcher, locator, output string) (string, error)
}

// NewYouTubeFetcher creates a fetcher from the download settings.
func NewYouTubeFetcher(cfg shared.DownloadConfig) *YouTubeFetcher {
	f := &YouTubeFetcher{
		dir:      cfg.Directory,
		maxSize:  cfg.MaxFileSize,
		format:   cfg.AudioFormat,
		quality:  cfg.AudioQuality,
		download: runDownload,
	}
	if f.format == "" {
		f.format = "mp3"
	}
	if f.quality == "" {
		f.quality = "320K"
	}
	return f
}

func runDownload(ctx context.Context, f *YouTubeFetcher, locator, output string) (string, error) {
	res, err := ytdlp.New().
		Format("bestaudio/best").
		ExtractAudio().
		AudioFormat(f.format).
		AudioQuality(f.quality).
		EmbedMetadata().
		NoPlaylist().
		NoWarnings().
		IgnoreConfig().
		NoSimulate().
		Print(fetchTemplate).
		Output(output).
		Run(ctx, locator)
	if err != nil {
		return "", err
	}
	return res.Stdout, nil
}

// Fetch implements [Fetcher].
//
// Any partial or oversized output is removed before an error is returned.
func (f *YouTubeFetcher) Fetch(ctx context.Context, locator string) (*models.FetchResult, error) {
	if strings.TrimSpace(locator) == "" {
		return nil, fmt.Errorf("%w: empty locator", shared.ErrInvalidInput)
	}
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create download directory: %w", err)
	}

	stem := filepath.Join(f.dir, shared.GenerateID())
	out, err := f.download(ctx, f, locator, stem+".%(ext)s")
	if err != nil {
		removeMatching(stem)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("yt-dlp: %w", err)
	}

	result := parseFetchOutput(out)
	if result.Path == "" {
		result.Path = firstMatching(stem)
	}
	if result.Path == "" {
		removeMatching(stem)
		return nil, ErrNoOutput
	}

	info, err := os.Stat(result.Path)
	if err != nil {
		removeMatching(stem)
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoOutput
		}
		return nil, fmt.Errorf("failed to stat output: %w", err)
	}
	result.Size = info.Size()

	if f.maxSize > 0 && result.Size > f.maxSize {
		removeMatching(stem)
		_ = os.Remove(result.Path)
		return nil, fmt.Errorf("%w: %s > %s", ErrTooLarge, formatter.Size(result.Size), formatter.Size(f.maxSize))
	}

	if result.Title == "" || result.Artist == "" {
		title, artist := readTags(result.Path)
		result.Title = firstNonEmpty(result.Title, title, unknown)
		result.Artist = firstNonEmpty(result.Artist, artist, unknown)
	}

	return result, nil
}

// parseFetchOutput reads the last line printed with [fetchTemplate].
func parseFetchOutput(out string) *models.FetchResult {
	result := &models.FetchResult{}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		parts := strings.Split(strings.TrimRight(lines[i], "\r"), "\t")
		if len(parts) < 5 {
			continue
		}
		result.Title = value(parts[1])
		result.Artist = value(parts[2])
		result.Duration = parseSeconds(parts[3])
		result.Path = value(strings.Join(parts[4:], "\t"))
		break
	}

	return result
}

// readTags falls back to the embedded ID3/MP4/FLAC tags of the output file.
func readTags(path string) (title, artist string) {
	file, err := os.Open(path)
	if err != nil {
		return "", ""
	}
	defer file.Close()

	m, err := tag.ReadFrom(file)
	if err != nil {
		return "", ""
	}
	return strings.TrimSpace(m.Title()), strings.TrimSpace(m.Artist())
}

func firstMatching(stem string) string {
	matches, _ := filepath.Glob(stem + ".*")
	for _, m := range matches {
		if !strings.HasSuffix(m, ".part") && !strings.HasSuffix(m, ".ytdl") {
			return m
		}
	}
	return ""
}

func removeMatching(stem string) {
	matches, _ := filepath.Glob(stem + ".*")
	for _, m := range matches {
		_ = os.Remove(m)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
