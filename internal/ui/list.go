package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/tunebot/internal/pipeline"
)

var _ list.Item = choiceItem{}

// choiceItem wraps [pipeline.Choice] to implement [list.Item].
type choiceItem struct {
	index  int
	choice pipeline.Choice
}

func (i choiceItem) FilterValue() string { return i.choice.Label }
func (i choiceItem) Title() string       { return i.choice.Label }
func (i choiceItem) Description() string { return fmt.Sprintf("#%d", i.index) }

func choiceItems(choices []pipeline.Choice) []list.Item {
	items := make([]list.Item, len(choices))
	for i, c := range choices {
		items[i] = choiceItem{index: i, choice: c}
	}
	return items
}
