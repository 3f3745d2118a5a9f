package models

import (
	"strings"
	"unicode/utf8"
)

// MinQueryLength is the minimum number of runes a trimmed query must contain.
const MinQueryLength = 2

// LinkKind classifies a query as plain text or a streaming-service link.
type LinkKind int

const (
	PlainText LinkKind = iota
	StreamingServiceLink
)

func (k LinkKind) String() string {
	switch k {
	case PlainText:
		return "plain_text"
	case StreamingServiceLink:
		return "streaming_link"
	default:
		return ""
	}
}

// LinkCategory is the kind of object a streaming-service link points at.
type LinkCategory int

const (
	UnknownCategory LinkCategory = iota
	TrackLink
	AlbumLink
	PlaylistLink
)

func (c LinkCategory) String() string {
	switch c {
	case TrackLink:
		return "track"
	case AlbumLink:
		return "album"
	case PlaylistLink:
		return "playlist"
	default:
		return "unknown"
	}
}

// Query is raw user-supplied text.
type Query string

// Text returns the query with surrounding whitespace removed.
func (q Query) Text() string {
	return strings.TrimSpace(string(q))
}

// Valid reports whether the trimmed query is long enough to search for.
func (q Query) Valid() bool {
	return utf8.RuneCountInString(q.Text()) >= MinQueryLength
}

// Classify matches the query against the given domain tokens, case-insensitively.
func (q Query) Classify(domains []string) LinkKind {
	text := strings.ToLower(q.Text())
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" && strings.Contains(text, d) {
			return StreamingServiceLink
		}
	}
	return PlainText
}

// Candidate is one search result.
type Candidate struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Locator  string `json:"url"`
	Duration int    `json:"duration"` // Duration in seconds, 0 when unknown
	Uploader string `json:"uploader"`
}

// CandidateList is an ordered, index-addressable set of candidates.
type CandidateList []Candidate

// Cap returns at most n leading candidates. The receiver is not modified.
func (l CandidateList) Cap(n int) CandidateList {
	if n < 0 {
		n = 0
	}
	if len(l) <= n {
		return append(CandidateList(nil), l...)
	}
	return append(CandidateList(nil), l[:n]...)
}

// At returns the candidate at index i and whether i was in range.
func (l CandidateList) At(i int) (Candidate, bool) {
	if i < 0 || i >= len(l) {
		return Candidate{}, false
	}
	return l[i], true
}

// FetchResult describes a downloaded, transcoded audio file.
type FetchResult struct {
	Path     string
	Title    string
	Artist   string
	Duration int   // Duration in seconds
	Size     int64 // Size in bytes
}
