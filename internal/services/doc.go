// Package services implements the external collaborators of the request pipeline.
//
// # Resolver
//
// [SpotifyResolver] turns track, album and playlist links into a "<title> <artist>" search
// string. It authenticates with the client credentials grant through [clientcredentials.Config];
// the app token is cached and refreshed by the [oauth2] transport. Requests are paced by a
// token-bucket limiter.
//
// [Disabled] stands in when no Spotify credentials are configured.
//
// # Searchers
//
// [NewSearcher] selects one of:
//   - [YTDLPSearch] : yt-dlp "ytsearchN:" in flat-playlist mode (default)
//   - [ScrapeSearch] : the ytsearch HTML scraper, no external binary
//   - [MusicSearch] : YouTube Music track search
//
// All engines return candidates in engine order with "Unknown" in place of missing titles.
//
// # Fetcher
//
// [YouTubeFetcher] downloads the best audio stream and transcodes it (mp3 320K by default).
// Output names are unique per fetch. Files over the size limit are deleted and reported as
// [ErrTooLarge]; a successful run without a file is [ErrNoOutput].
//
// # Errors
//
//   - [ErrUnresolvable] : the link names nothing that can be searched
//   - [shared.ErrAPIRequest] : Spotify returned an unexpected status
//   - [shared.ErrServiceUnavailable] : a search engine failed
package services
