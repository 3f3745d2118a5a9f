// package formatter renders candidates, durations and sizes for chat labels and CLI output
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/desertthunder/tunebot/internal/models"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
)

// MaxDuration is the largest duration (seconds) sent with an audio attachment.
const MaxDuration = 24 * 60 * 60

const ellipsis = "..."

// Sanitize replaces control characters and invalid UTF-8 so labels render on one line.
func Sanitize(s string) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)
}

// Truncate shortens s to at most width display cells, adding an ellipsis if truncated.
//
// Wide runes (CJK, emoji) count as two cells.
func Truncate(s string, width int) string {
	return runewidth.Truncate(Sanitize(s), width, ellipsis)
}

// Clip shortens s to at most n runes without an ellipsis.
func Clip(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// ClampDuration bounds seconds to [0, [MaxDuration]].
func ClampDuration(seconds int) int {
	return max(0, min(seconds, MaxDuration))
}

// Duration formats seconds as m:ss or h:mm:ss. Unknown (zero or negative) durations render empty.
func Duration(seconds int) string {
	if seconds <= 0 {
		return ""
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// ParseDuration parses "m:ss" or "h:mm:ss" into seconds. Malformed input yields 0.
func ParseDuration(s string) int {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0
	}
	total := 0
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0
		}
		total = total*60 + n
	}
	return total
}

// Size renders a byte count in IEC units (e.g. "50 MiB").
func Size(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	return humanize.IBytes(uint64(bytes))
}

// Label builds the selection-surface label for a candidate: the title truncated to width cells,
// followed by the duration when known.
func Label(c models.Candidate, width int) string {
	title := strings.TrimSpace(c.Title)
	if title == "" {
		title = "Unknown"
	}
	d := Duration(c.Duration)
	if d == "" {
		return Truncate(title, width)
	}
	return Truncate(title, width) + " (" + d + ")"
}

// CandidatesToText renders an index-labelled listing of candidates, one per line.
func CandidatesToText(list models.CandidateList, width int) []byte {
	var buf bytes.Buffer
	for i, c := range list {
		fmt.Fprintf(&buf, "%d. %s", i, Label(c, width))
		if c.Uploader != "" {
			fmt.Fprintf(&buf, " - %s", Sanitize(c.Uploader))
		}
		buf.WriteString("\n")
	}
	return buf.Bytes()
}

// CandidatesToCSV converts candidates to CSV with columns: Index, ID, Title, Uploader, Duration, URL
func CandidatesToCSV(list models.CandidateList) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Index", "ID", "Title", "Uploader", "Duration", "URL"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, c := range list {
		record := []string{
			strconv.Itoa(i),
			c.ID,
			c.Title,
			c.Uploader,
			strconv.Itoa(c.Duration),
			c.Locator,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}
