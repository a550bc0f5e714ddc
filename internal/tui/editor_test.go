package tui

import (
	"context"
	"strings"
	"testing"

	"github.com/brandonsypek/approver-repeater/internal/directory"
	"github.com/brandonsypek/approver-repeater/internal/persist"
	"github.com/brandonsypek/approver-repeater/internal/repeater"
	"github.com/brandonsypek/approver-repeater/internal/rows"

	tea "github.com/charmbracelet/bubbletea"
)

type memHost struct {
	writes []string
}

func (h *memHost) SetValue(raw []byte) error {
	h.writes = append(h.writes, string(raw))
	return nil
}

func (h *memHost) NotifyChanged() {}

type memDirectory struct {
	people []directory.Person
}

func (d *memDirectory) Resolve(_ context.Context, key string) (directory.Person, error) {
	for _, p := range d.people {
		if p.Login == key {
			return p, nil
		}
	}
	return directory.Person{}, directory.ErrNotFound
}

func (d *memDirectory) Search(_ context.Context, term string, _ int) ([]directory.Person, error) {
	var out []directory.Person
	for _, p := range d.people {
		if strings.Contains(strings.ToLower(p.DisplayName), strings.ToLower(term)) {
			out = append(out, p)
		}
	}
	return out, nil
}

type roMode struct{}

func (roMode) IsReadOnly() bool { return true }

func newTestModel(t *testing.T, mode rows.Mode, dir directory.Client) (Model, *memHost) {
	t.Helper()
	host := &memHost{}
	if mode == nil {
		mode = rows.Editable
	}
	eng := repeater.New(repeater.Config{
		Mode:      mode,
		Directory: dir,
		Gateway:   &persist.Gateway{Host: host, Mode: mode},
		MinRows:   1,
		MaxRows:   10,
		MinChars:  2,
	})
	return NewModel(eng), host
}

func press(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	nm, cmd := m.Update(msg)
	return nm.(Model), cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestNavAddAndDelete(t *testing.T) {
	m, host := newTestModel(t, nil, nil)

	m, _ = press(t, m, runes("a"))
	if m.eng.Len() != 2 || m.cursor != 1 {
		t.Fatalf("after add: len=%d cursor=%d", m.eng.Len(), m.cursor)
	}
	m, _ = press(t, m, runes("d"))
	if m.eng.Len() != 1 || m.cursor != 0 {
		t.Fatalf("after delete: len=%d cursor=%d", m.eng.Len(), m.cursor)
	}
	if len(host.writes) != 2 {
		t.Fatalf("writes = %d, want 2", len(host.writes))
	}
}

func TestTypingRecordsTermAndSchedules(t *testing.T) {
	m, _ := newTestModel(t, nil, &memDirectory{})
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.zone != zoneEdit {
		t.Fatal("enter did not open the row for editing")
	}

	m, _ = press(t, m, runes("a"))
	m, cmd := press(t, m, runes("l"))
	if cmd == nil {
		t.Fatal("reaching the character threshold did not schedule a query")
	}
	id := m.eng.Rows()[0].ID
	if sel := m.eng.Selection(id); sel.Term != "al" {
		t.Fatalf("term = %q, want %q", sel.Term, "al")
	}
}

func TestDebouncedSearchFillsSuggestions(t *testing.T) {
	dir := &memDirectory{people: []directory.Person{
		{ID: "1", DisplayName: "Alice Adams", Login: "alice@example.com"},
		{ID: "2", DisplayName: "Alan Apple", Login: "alan@example.com"},
	}}
	m, _ := newTestModel(t, nil, dir)
	id := m.eng.Rows()[0].ID

	_, gen := m.eng.Input(id, "al")
	m, cmd := press(t, m, debounceMsg{rowID: id, gen: gen})
	if cmd == nil {
		t.Fatal("current debounce produced no query command")
	}
	m, _ = press(t, m, cmd())
	if sel := m.eng.Selection(id); len(sel.Suggestions) != 2 {
		t.Fatalf("suggestions = %+v", sel.Suggestions)
	}

	// A stale timer (older generation) must not query at all.
	if _, cmd = press(t, m, debounceMsg{rowID: id, gen: gen - 1}); cmd != nil {
		t.Fatal("stale debounce still queried")
	}
}

func TestPickCommitsHighlightedSuggestion(t *testing.T) {
	dir := &memDirectory{people: []directory.Person{
		{ID: "1", DisplayName: "Alice Adams", Login: "alice@example.com"},
		{ID: "2", DisplayName: "Alan Apple", Login: "alan@example.com"},
	}}
	m, host := newTestModel(t, nil, dir)
	id := m.eng.Rows()[0].ID

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	_, gen := m.eng.Input(id, "al")
	m, cmd := press(t, m, debounceMsg{rowID: id, gen: gen})
	m, _ = press(t, m, cmd())

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	if m.zone != zoneNav {
		t.Fatal("pick did not return to navigation")
	}
	if got := m.eng.Rows()[0].ApproverKey; got != "alan@example.com" {
		t.Fatalf("committed key = %q, want the highlighted suggestion", got)
	}
	if len(host.writes) != 1 || !strings.Contains(host.writes[0], "alan@example.com") {
		t.Fatalf("writes = %v", host.writes)
	}
}

func TestHydrationChainResolvesInOrder(t *testing.T) {
	dir := &memDirectory{people: []directory.Person{
		{ID: "1", DisplayName: "Alice Adams", Login: "alice@example.com"},
	}}
	m, _ := newTestModel(t, nil, dir)
	if err := m.eng.Load([]rows.Persisted{
		{Order: 1, Approver: "alice@example.com"},
		{Order: 2, Approver: "ghost@example.com"},
	}, nil); err != nil {
		t.Fatal(err)
	}

	cmd := m.Init()
	steps := 0
	for cmd != nil {
		m, cmd = press(t, m, cmd())
		if steps++; steps > 10 {
			t.Fatal("hydration chain did not terminate")
		}
	}
	if steps != 2 {
		t.Fatalf("resolutions = %d, want 2", steps)
	}
	all := m.eng.Rows()
	if sel := m.eng.Selection(all[0].ID); sel.Person == nil || sel.Person.ID != "1" {
		t.Fatalf("row 1 selection = %+v", sel)
	}
	if sel := m.eng.Selection(all[1].ID); sel.Person == nil || sel.Notice != repeater.NoticeDetailsUnavailable {
		t.Fatalf("row 2 should carry the fallback notice, got %+v", sel)
	}
}

func TestReadOnlyBlocksEditing(t *testing.T) {
	m, host := newTestModel(t, roMode{}, nil)
	if err := m.eng.Load([]rows.Persisted{{Order: 1, Approver: "alice@example.com"}}, nil); err != nil {
		t.Fatal(err)
	}

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.zone != zoneNav {
		t.Fatal("read-only form opened a row for editing")
	}
	m, _ = press(t, m, runes("a"))
	if m.eng.Len() != 1 || len(host.writes) != 0 {
		t.Fatalf("read-only mutation: len=%d writes=%d", m.eng.Len(), len(host.writes))
	}
	if !strings.Contains(m.View(), "read-only") {
		t.Fatal("read-only badge missing from the view")
	}
}

func TestViewShowsRowsAndNotices(t *testing.T) {
	m, _ := newTestModel(t, nil, nil)
	id := m.eng.Rows()[0].ID
	sel := m.eng.Selection(id)
	p := directory.Person{DisplayName: "Alice Adams", Email: "alice@example.com", Login: "alice@example.com"}
	sel.Person = &p
	sel.Notice = repeater.NoticeSearchFailed

	out := m.View()
	if !strings.Contains(out, "Alice Adams") {
		t.Fatalf("view missing person label:\n%s", out)
	}
	if !strings.Contains(out, repeater.NoticeSearchFailed) {
		t.Fatalf("view missing row notice:\n%s", out)
	}
}
