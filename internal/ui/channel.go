package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/tunebot/internal/formatter"
	"github.com/desertthunder/tunebot/internal/pipeline"
)

var _ pipeline.Channel = (*Channel)(nil)

// Channel implements [pipeline.Channel] for the console.
//
// Replies become tea messages; delivered audio is copied into an output directory
// before the pipeline removes the fetched file.
type Channel struct {
	send   func(tea.Msg)
	outDir string
}

// NewChannel creates a Channel that forwards messages through send.
func NewChannel(send func(tea.Msg), outDir string) *Channel {
	return &Channel{send: send, outDir: outDir}
}

func (c *Channel) Notify(ctx context.Context, text string) error {
	c.send(noticeMsg(text))
	return nil
}

func (c *Channel) PresentChoices(ctx context.Context, prompt string, choices []pipeline.Choice) error {
	c.send(choicesMsg{prompt: prompt, choices: choices})
	return nil
}

func (c *Channel) SendAudio(ctx context.Context, audio pipeline.Audio) error {
	dest, err := Save(audio, c.outDir)
	if err != nil {
		return err
	}
	c.send(savedMsg(dest))
	return nil
}

// Save copies the audio file into dir as "<performer> - <title><ext>".
func Save(audio pipeline.Audio, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	src, err := os.Open(audio.Path)
	if err != nil {
		return "", fmt.Errorf("failed to open audio: %w", err)
	}
	defer src.Close()

	dest := filepath.Join(dir, FileName(audio))
	dst, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dest, err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		_ = os.Remove(dest)
		return "", fmt.Errorf("failed to copy audio: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", dest, err)
	}
	return dest, nil
}

// FileName builds a filesystem-safe name for audio, keeping the source extension.
func FileName(audio pipeline.Audio) string {
	name := audio.Title
	if audio.Performer != "" {
		name = audio.Performer + " - " + audio.Title
	}
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, formatter.Sanitize(name))
	name = strings.TrimSpace(name)
	if name == "" || name == "-" {
		name = "track"
	}
	return name + filepath.Ext(audio.Path)
}
