package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/tunebot/internal/pipeline"
)

var (
	_ tea.Msg = noticeMsg("")
	_ tea.Msg = choicesMsg{}
	_ tea.Msg = savedMsg("")
	_ tea.Msg = doneMsg{}
)

// noticeMsg carries a status or error reply from the pipeline.
type noticeMsg string

// choicesMsg carries a selection surface.
type choicesMsg struct {
	prompt  string
	choices []pipeline.Choice
}

// savedMsg carries the path a delivered file was copied to.
type savedMsg string

// doneMsg reports the end of a pipeline operation.
type doneMsg struct {
	op  string
	err error
}

// updateMsg carries a pipeline state transition.
type updateMsg pipeline.Update
