// Package tui renders the approver list editor: an ordered set of rows, each
// holding one directory identity, with inline search-as-you-type suggestions.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/brandonsypek/approver-repeater/internal/directory"
	"github.com/brandonsypek/approver-repeater/internal/repeater"
	"github.com/brandonsypek/approver-repeater/internal/search"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type focusZone int

const (
	zoneNav focusZone = iota
	zoneEdit
)

// debounceMsg fires when a row's idle timer elapses. Carries the generation
// it was scheduled for, so later keystrokes invalidate it.
type debounceMsg struct {
	rowID string
	gen   uint64
}

type searchResultMsg struct {
	rowID  string
	gen    uint64
	people []directory.Person
	err    error
}

// resolvedMsg delivers one load-time key resolution. Hydration is driven one
// row at a time so lookups stay strictly in row order.
type resolvedMsg struct {
	rowID  string
	person directory.Person
	err    error
}

type Model struct {
	eng *repeater.Engine

	zone   focusZone
	cursor int // focused row index
	sug    int // highlighted suggestion within the edited row

	input textinput.Model

	help help.Model
	keys keyMap

	width  int
	height int

	err      error
	saveNote string
}

func Run(eng *repeater.Engine) error {
	p := tea.NewProgram(NewModel(eng), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func NewModel(eng *repeater.Engine) Model {
	ti := textinput.New()
	ti.Placeholder = "type a name or email"
	ti.Prompt = "› "
	ti.CharLimit = 120

	return Model{
		eng:   eng,
		zone:  zoneNav,
		input: ti,
		help:  help.New(),
		keys:  defaultKeyMap(),
	}
}

func (m Model) Init() tea.Cmd {
	return m.hydrateNext()
}

// hydrateNext resolves the first still-unresolved persisted key; the result
// message schedules the next one.
func (m Model) hydrateNext() tea.Cmd {
	r, ok := m.eng.NextUnresolved()
	if !ok {
		return nil
	}
	eng, id, key := m.eng, r.ID, r.ApproverKey
	return func() tea.Msg {
		p, err := eng.Resolve(context.Background(), key)
		return resolvedMsg{rowID: id, person: p, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = min(msg.Width-8, 60)
		return m, nil

	case resolvedMsg:
		m.eng.ApplyResolved(msg.rowID, msg.person, msg.err)
		return m, m.hydrateNext()

	case debounceMsg:
		term, ok := m.eng.Due(msg.rowID, msg.gen)
		if !ok {
			return m, nil
		}
		eng := m.eng
		return m, func() tea.Msg {
			people, err := eng.RunSearch(context.Background(), term)
			return searchResultMsg{rowID: msg.rowID, gen: msg.gen, people: people, err: err}
		}

	case searchResultMsg:
		if m.eng.ApplyResult(msg.rowID, msg.gen, msg.people, msg.err) {
			m.sug = 0
		}
		return m, nil

	case tea.KeyMsg:
		if m.zone == zoneEdit {
			return m.updateEdit(msg)
		}
		return m.updateNav(msg)
	}
	return m, nil
}

func (m Model) updateNav(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.cursor < m.eng.Len()-1 {
			m.cursor++
		}
		return m, nil

	case key.Matches(msg, m.keys.Edit):
		if m.eng.ReadOnly() {
			return m, nil
		}
		return m.enterEdit()

	case key.Matches(msg, m.keys.Add):
		ok, err := m.eng.AddRow()
		m.err = err
		if ok {
			m.cursor = m.eng.Len() - 1
			m.noteSave()
		}
		return m, nil

	case key.Matches(msg, m.keys.Delete):
		ok, err := m.eng.RemoveRow(m.cursor)
		m.err = err
		if ok {
			if m.cursor >= m.eng.Len() {
				m.cursor = m.eng.Len() - 1
			}
			m.noteSave()
		}
		return m, nil

	case key.Matches(msg, m.keys.Clear):
		if r, ok := m.eng.Collection().Row(m.cursor); ok {
			m.err = m.eng.ClearRow(r.ID)
			m.noteSave()
		}
		return m, nil

	case key.Matches(msg, m.keys.MoveUp):
		if ok, err := m.eng.MoveUp(m.cursor); ok {
			m.cursor--
			m.noteSave()
		} else {
			m.err = err
		}
		return m, nil

	case key.Matches(msg, m.keys.MoveDown):
		if ok, err := m.eng.MoveDown(m.cursor); ok {
			m.cursor++
			m.noteSave()
		} else {
			m.err = err
		}
		return m, nil
	}
	return m, nil
}

func (m Model) enterEdit() (tea.Model, tea.Cmd) {
	r, ok := m.eng.Collection().Row(m.cursor)
	if !ok {
		return m, nil
	}
	m.zone = zoneEdit
	m.sug = 0
	sel := m.eng.Selection(r.ID)
	m.input.SetValue(sel.Term)
	m.input.CursorEnd()
	return m, m.input.Focus()
}

func (m *Model) leaveEdit() {
	m.zone = zoneNav
	m.input.Blur()
	m.input.SetValue("")
}

func (m Model) updateEdit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	r, ok := m.eng.Collection().Row(m.cursor)
	if !ok {
		m.leaveEdit()
		return m, nil
	}
	sel := m.eng.Selection(r.ID)

	switch {
	case msg.String() == "ctrl+c":
		return m, tea.Quit

	case key.Matches(msg, m.keys.Back):
		m.leaveEdit()
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if m.sug > 0 {
			m.sug--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.sug < len(sel.Suggestions)-1 {
			m.sug++
		}
		return m, nil

	case key.Matches(msg, m.keys.Pick):
		if m.sug >= 0 && m.sug < len(sel.Suggestions) {
			m.err = m.eng.Pick(r.ID, sel.Suggestions[m.sug])
			m.noteSave()
			m.leaveEdit()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)

	act, gen := m.eng.Input(r.ID, m.input.Value())
	if act == search.ActionSchedule {
		id := r.ID
		return m, tea.Batch(cmd, tea.Tick(m.eng.Delay(), func(time.Time) tea.Msg {
			return debounceMsg{rowID: id, gen: gen}
		}))
	}
	if act == search.ActionClear {
		m.sug = 0
	}
	return m, cmd
}

func (m *Model) noteSave() {
	if m.eng.ReadOnly() {
		return
	}
	m.saveNote = "saved"
}

func (m Model) View() string {
	var b strings.Builder

	title := "Approvers"
	if m.eng.ReadOnly() {
		title += "  " + faintIfDark(badgeStyle).Render("read-only")
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")

	if err := m.eng.ConfigError(); err != nil {
		b.WriteString(noticeStyle.Render(err.Error()))
		b.WriteString("\n\n")
	}

	for i, r := range m.eng.Rows() {
		sel := m.eng.Selection(r.ID)

		label := mutedStyle.Render("unassigned")
		if sel.Person != nil {
			label = sel.Person.Label()
		} else if r.ApproverKey != "" {
			label = r.ApproverKey
		}

		line := orderStyle.Render(fmt.Sprintf("%d.", r.Order)) + label
		if i == m.cursor && m.zone == zoneNav {
			b.WriteString(focusedRowStyle.Render(line))
		} else {
			b.WriteString(rowStyle.Render(line))
		}
		b.WriteString("\n")

		if sel.Notice != "" {
			b.WriteString(suggestionStyle.Render(noticeStyle.Render(sel.Notice)))
			b.WriteString("\n")
		}

		if i == m.cursor && m.zone == zoneEdit {
			b.WriteString(lipgloss.NewStyle().Padding(0, 0, 0, 4).Render(m.input.View()))
			b.WriteString("\n")
			for j, p := range sel.Suggestions {
				if j == m.sug {
					b.WriteString(pickedSuggestionStyle.Render(p.Label()))
				} else {
					b.WriteString(suggestionStyle.Render(p.Label()))
				}
				b.WriteString("\n")
			}
		}
	}

	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(noticeStyle.Render(m.err.Error()))
		b.WriteString("\n")
	}

	status := m.saveNote
	if status != "" {
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render(status))
	}

	b.WriteString(helpStyle.Render(m.help.View(m.keysForZone())))
	return b.String()
}

func (m Model) keysForZone() keyMap {
	k := m.keys
	if m.zone == zoneEdit {
		k.Edit.SetEnabled(false)
		k.Add.SetEnabled(false)
		k.Delete.SetEnabled(false)
		k.Clear.SetEnabled(false)
		k.MoveUp.SetEnabled(false)
		k.MoveDown.SetEnabled(false)
		k.Quit.SetEnabled(false)
	} else {
		k.Pick.SetEnabled(false)
		k.Back.SetEnabled(false)
		if m.eng.ReadOnly() {
			k.Edit.SetEnabled(false)
			k.Add.SetEnabled(false)
			k.Delete.SetEnabled(false)
			k.Clear.SetEnabled(false)
			k.MoveUp.SetEnabled(false)
			k.MoveDown.SetEnabled(false)
		}
	}
	return k
}

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Edit     key.Binding
	Pick     key.Binding
	Back     key.Binding
	Add      key.Binding
	Delete   key.Binding
	Clear    key.Binding
	MoveUp   key.Binding
	MoveDown key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up: key.NewBinding(
			key.WithKeys("up"),
			key.WithHelp("↑", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down"),
			key.WithHelp("↓", "down"),
		),
		Edit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "edit row"),
		),
		Pick: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "pick"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Add: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "add row"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete row"),
		),
		Clear: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "clear row"),
		),
		MoveUp: key.NewBinding(
			key.WithKeys("K", "["),
			key.WithHelp("K", "move up"),
		),
		MoveDown: key.NewBinding(
			key.WithKeys("J", "]"),
			key.WithHelp("J", "move down"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Edit, k.Pick, k.Back, k.Add, k.Delete, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Edit, k.Pick, k.Back},
		{k.Add, k.Delete, k.Clear, k.MoveUp, k.MoveDown},
		{k.Help, k.Quit},
	}
}

var _ help.KeyMap = keyMap{}
