package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/tunebot/internal/pipeline"
)

// ConsoleUser is the user id of the local console session.
const ConsoleUser int64 = 1

const (
	opQuery     = "query"
	opSelection = "selection"

	// maxNotices bounds the status log shown while working.
	maxNotices = 8
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	SearchView ViewState = iota
	WorkingView
	ChoiceView
	ResultView
)

// Handler runs interactions for the console. Satisfied by [*pipeline.Pipeline].
type Handler interface {
	HandleQuery(ctx context.Context, user int64, text string, ch pipeline.Channel) error
	HandleSelection(ctx context.Context, user int64, payload string, ch pipeline.Channel) error
}

// Model represents the TUI application state.
type Model struct {
	ctx     context.Context
	view    ViewState
	handler Handler
	channel *Channel
	updates <-chan pipeline.Update

	width   int
	height  int
	input   textinput.Model
	spinner spinner.Model
	choices list.Model
	state   pipeline.State
	notices []string
	saved   string
	err     error
	help    help.Model
	keys    keyMap
}

// NewModel creates a new TUI model. updates may be nil.
func NewModel(ctx context.Context, handler Handler, ch *Channel, updates <-chan pipeline.Update) *Model {
	input := textinput.New()
	input.Placeholder = "Title, artist or streaming link"
	input.CharLimit = 256
	input.Focus()

	return &Model{
		ctx:     ctx,
		view:    SearchView,
		handler: handler,
		channel: ch,
		updates: updates,
		input:   input,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Run starts the console and blocks until the user quits or ctx is cancelled.
func Run(ctx context.Context, handler Handler, outDir string, updates <-chan pipeline.Update) error {
	ch := NewChannel(nil, outDir)
	m := NewModel(ctx, handler, ch, updates)
	p := tea.NewProgram(m, tea.WithContext(ctx))
	ch.send = p.Send

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}

// Init starts the cursor blink and the update listener.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.listen())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.view == ChoiceView {
			m.choices.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.quit) {
			return m, tea.Quit
		}
		switch m.view {
		case SearchView:
			return m.handleSearchKeys(msg)
		case ChoiceView:
			return m.handleChoiceKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		}
		return m, nil

	case noticeMsg:
		m.notices = append(m.notices, string(msg))
		if len(m.notices) > maxNotices {
			m.notices = m.notices[len(m.notices)-maxNotices:]
		}
		return m, nil

	case choicesMsg:
		m.choices = list.New(choiceItems(msg.choices), list.NewDefaultDelegate(), 0, 0)
		m.choices.Title = msg.prompt
		m.choices.SetFilteringEnabled(false)
		m.choices.SetSize(m.width-4, m.height-8)
		m.view = ChoiceView
		return m, nil

	case savedMsg:
		m.saved = string(msg)
		return m, nil

	case updateMsg:
		m.state = pipeline.Update(msg).State
		return m, m.listen()

	case doneMsg:
		return m.handleDone(msg)

	case spinner.TickMsg:
		if m.view != WorkingView {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m.updateComponents(msg)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case SearchView:
		return m.renderSearch()
	case WorkingView:
		return m.renderWorking()
	case ChoiceView:
		return m.renderChoices()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.search) {
		text := m.input.Value()
		if strings.TrimSpace(text) == "" {
			return m, nil
		}
		m.start()
		return m, tea.Batch(m.spinner.Tick, m.run(opQuery, text))
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleChoiceKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back):
		m.reset()
		return m, nil
	case key.Matches(msg, m.keys.enter):
		item, ok := m.choices.SelectedItem().(choiceItem)
		if !ok {
			return m, nil
		}
		m.start()
		return m, tea.Batch(m.spinner.Tick, m.run(opSelection, item.choice.Payload))
	}

	var cmd tea.Cmd
	m.choices, cmd = m.choices.Update(msg)
	return m, cmd
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.back) || key.Matches(msg, m.keys.enter) {
		m.reset()
	}
	return m, nil
}

// handleDone settles the view once an interaction returns.
//
// A successful query has already switched to [ChoiceView]; everything else lands on [ResultView].
func (m *Model) handleDone(msg doneMsg) (tea.Model, tea.Cmd) {
	m.err = msg.err
	if msg.op == opQuery && msg.err == nil && m.view == ChoiceView {
		return m, nil
	}
	m.view = ResultView
	return m, nil
}

func (m *Model) updateComponents(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case SearchView:
		m.input, cmd = m.input.Update(msg)
	case ChoiceView:
		m.choices, cmd = m.choices.Update(msg)
	}
	return m, cmd
}

func (m *Model) start() {
	m.view = WorkingView
	m.notices = nil
	m.saved = ""
	m.err = nil
}

func (m *Model) reset() {
	m.view = SearchView
	m.input.Reset()
	m.input.Focus()
	m.notices = nil
	m.saved = ""
	m.err = nil
}

// run executes one interaction off the update loop.
func (m *Model) run(op, arg string) tea.Cmd {
	return func() tea.Msg {
		var err error
		switch op {
		case opQuery:
			err = m.handler.HandleQuery(m.ctx, ConsoleUser, arg, m.channel)
		default:
			err = m.handler.HandleSelection(m.ctx, ConsoleUser, arg, m.channel)
		}
		return doneMsg{op: op, err: err}
	}
}

func (m *Model) listen() tea.Cmd {
	if m.updates == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case update, ok := <-m.updates:
			if !ok {
				return nil
			}
			return updateMsg(update)
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m *Model) renderSearch() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.search, m.keys.quit})
	return fmt.Sprintf("%s\n%s\n\n%s", Title("tunebot"), m.input.View(), helpView)
}

func (m *Model) renderWorking() string {
	var b strings.Builder
	b.WriteString(Title("Working"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %s\n", m.spinner.View(), Muted(m.state.String()))
	for _, n := range m.notices {
		b.WriteString(styles.status.Render(n))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.quit}))
	return b.String()
}

func (m *Model) renderChoices() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.enter, m.keys.back, m.keys.quit})
	return fmt.Sprintf("%s\n\n%s", m.choices.View(), helpView)
}

func (m *Model) renderResult() string {
	var b strings.Builder
	switch {
	case m.err != nil:
		b.WriteString(Failure("✗ " + m.lastNotice()))
		b.WriteString("\n")
		b.WriteString(Muted(m.err.Error()))
	case m.saved != "":
		b.WriteString(Success("✓ Saved"))
		b.WriteString("\n")
		b.WriteString(m.saved)
	default:
		b.WriteString(Warning(m.lastNotice()))
	}
	b.WriteString("\n\n")
	b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.back, m.keys.quit}))
	return b.String()
}

func (m *Model) lastNotice() string {
	if len(m.notices) == 0 {
		return "Done"
	}
	return m.notices[len(m.notices)-1]
}
