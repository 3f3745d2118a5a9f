// Spotify Web API implementation of [Resolver]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/tunebot/internal/models"
	"github.com/desertthunder/tunebot/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"
)

const (
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	defaultSpotifyRPS = 5.0
)

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	DurationMS int             `json:"duration_ms"`
	IsLocal    bool            `json:"is_local"`
	URI        string          `json:"uri"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Artists     []SpotifyArtist `json:"artists"`
	TotalTracks int             `json:"total_tracks"`
	URI         string          `json:"uri"`
}

// SpotifyPlaylistTrack represents a track within a playlist context.
//
// Track is nil for items that are no longer available.
type SpotifyPlaylistTrack struct {
	AddedAt string        `json:"added_at"`
	Track   *SpotifyTrack `json:"track"`
}

// SpotifyPlaylistTracks represents a page of playlist items.
type SpotifyPlaylistTracks struct {
	Items []SpotifyPlaylistTrack `json:"items"`
	Total int                    `json:"total"`
	Next  *string                `json:"next"`
}

// SpotifyResolver implements [Resolver] against the Spotify Web API.
//
// Authenticates with the client credentials grant; the [oauth2] client refreshes the app token on expiry.
type SpotifyResolver struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewSpotifyResolver creates a resolver from "client_id" and "client_secret" credentials.
func NewSpotifyResolver(credentials map[string]string) (*SpotifyResolver, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	return newSpotifyResolver(clientID, clientSecret, spotifyTokenURL, spotifyBaseURL, http.DefaultClient), nil
}

func newSpotifyResolver(clientID, clientSecret, tokenURL, baseURL string, base *http.Client) *SpotifyResolver {
	config := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
	}

	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)

	return &SpotifyResolver{
		baseURL:    baseURL,
		httpClient: config.Client(ctx),
		limiter:    rate.NewLimiter(rate.Limit(defaultSpotifyRPS), 1),
	}
}

// SetRateLimit sets the maximum number of API requests per second. Values <= 0 are ignored.
func (s *SpotifyResolver) SetRateLimit(rps float64) {
	if rps > 0 {
		s.limiter.SetLimit(rate.Limit(rps))
	}
}

func (s *SpotifyResolver) Name() string {
	return "Spotify"
}

// doRequest performs an authenticated GET request to the Spotify API.
func (s *SpotifyResolver) doRequest(ctx context.Context, endpoint string, result any) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusBadRequest:
		return fmt.Errorf("%w: spotify API status %d", ErrUnresolvable, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("%w: spotify API status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// Track retrieves a single track by ID.
func (s *SpotifyResolver) Track(ctx context.Context, trackID string) (*SpotifyTrack, error) {
	var track SpotifyTrack
	if err := s.doRequest(ctx, "/tracks/"+url.PathEscape(trackID), &track); err != nil {
		return nil, err
	}
	return &track, nil
}

// Album retrieves an album by ID.
func (s *SpotifyResolver) Album(ctx context.Context, albumID string) (*SpotifyAlbum, error) {
	var album SpotifyAlbum
	if err := s.doRequest(ctx, "/albums/"+url.PathEscape(albumID), &album); err != nil {
		return nil, err
	}
	return &album, nil
}

// PlaylistTracks retrieves the first page of a playlist's items.
func (s *SpotifyResolver) PlaylistTracks(ctx context.Context, playlistID string, limit int) (*SpotifyPlaylistTracks, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	endpoint := fmt.Sprintf("/playlists/%s/tracks?limit=%d", url.PathEscape(playlistID), limit)

	var page SpotifyPlaylistTracks
	if err := s.doRequest(ctx, endpoint, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Resolve implements [Resolver].
//
// Tracks and albums resolve to "<name> <first artist>"; playlists resolve to their first playable item.
func (s *SpotifyResolver) Resolve(ctx context.Context, link string) (string, error) {
	category, id, err := ParseSpotifyLink(link)
	if err != nil {
		return "", err
	}

	switch category {
	case models.TrackLink:
		track, err := s.Track(ctx, id)
		if err != nil {
			return "", err
		}
		return searchString(track.Name, track.Artists)
	case models.AlbumLink:
		album, err := s.Album(ctx, id)
		if err != nil {
			return "", err
		}
		return searchString(album.Name, album.Artists)
	case models.PlaylistLink:
		page, err := s.PlaylistTracks(ctx, id, 20)
		if err != nil {
			return "", err
		}
		for _, item := range page.Items {
			if item.Track == nil || item.Track.IsLocal || item.Track.Name == "" {
				continue
			}
			return searchString(item.Track.Name, item.Track.Artists)
		}
		return "", fmt.Errorf("%w: playlist %s has no playable items", ErrUnresolvable, id)
	default:
		return "", fmt.Errorf("%w: unsupported link", ErrUnresolvable)
	}
}

func searchString(name string, artists []SpotifyArtist) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: empty name", ErrUnresolvable)
	}
	if len(artists) == 0 || strings.TrimSpace(artists[0].Name) == "" {
		return name, nil
	}
	return name + " " + strings.TrimSpace(artists[0].Name), nil
}

// ParseSpotifyLink extracts the object category and ID from a Spotify link found in text.
//
// Accepts open.spotify.com URLs (with or without scheme, locale prefix or embed segment) and spotify: URIs.
func ParseSpotifyLink(text string) (models.LinkCategory, string, error) {
	var link string
	for _, field := range strings.Fields(text) {
		if strings.Contains(strings.ToLower(field), "spotify") {
			link = field
			break
		}
	}
	if link == "" {
		return models.UnknownCategory, "", fmt.Errorf("%w: no spotify link in %q", ErrUnresolvable, text)
	}

	var segments []string
	if strings.HasPrefix(strings.ToLower(link), "spotify:") {
		segments = strings.Split(link, ":")[1:]
	} else {
		if !strings.Contains(link, "://") {
			link = "https://" + link
		}
		u, err := url.Parse(link)
		if err != nil {
			return models.UnknownCategory, "", fmt.Errorf("%w: %v", ErrUnresolvable, err)
		}
		for _, seg := range strings.Split(u.Path, "/") {
			if seg == "" || seg == "embed" || strings.HasPrefix(seg, "intl-") {
				continue
			}
			segments = append(segments, seg)
		}
	}

	if len(segments) < 2 || segments[1] == "" {
		return models.UnknownCategory, "", fmt.Errorf("%w: malformed spotify link %q", ErrUnresolvable, link)
	}

	id := segments[1]
	switch strings.ToLower(segments[0]) {
	case "track":
		return models.TrackLink, id, nil
	case "album":
		return models.AlbumLink, id, nil
	case "playlist":
		return models.PlaylistLink, id, nil
	default:
		return models.UnknownCategory, id, fmt.Errorf("%w: unsupported spotify object %q", ErrUnresolvable, segments[0])
	}
}
