package rows

import (
	"strings"

	"github.com/google/uuid"

	"github.com/brandonsypek/approver-repeater/internal/directory"
)

// Row is one approver slot. ID is a stable in-memory identity so transient
// state follows the row through inserts, removals, and moves; only Order and
// ApproverKey are ever persisted.
type Row struct {
	ID          string
	Order       int
	ApproverKey string
}

// Persisted is the canonical serialized form of a row.
type Persisted struct {
	Order    int    `json:"order"`
	Approver string `json:"approver"`
}

// Selection is the transient per-row state: the raw search term, the resolved
// person (if any), the current suggestion list, and a row-scoped advisory.
type Selection struct {
	Term        string
	Person      *directory.Person
	Suggestions []directory.Person
	Notice      string
}

// Mode reports whether the surrounding form is read-only. Every structural
// operation consults it before mutating.
type Mode interface {
	IsReadOnly() bool
}

type editable struct{}

func (editable) IsReadOnly() bool { return false }

// Editable is a Mode that always permits edits.
var Editable Mode = editable{}

// Collection is the ordered approver row sequence plus its selection store.
// It is mutated only through its own operations.
type Collection struct {
	mode    Mode
	minRows int
	maxRows int

	rows       []Row
	selections map[string]*Selection
}

func NewCollection(mode Mode, minRows, maxRows int) *Collection {
	if mode == nil {
		mode = Editable
	}
	if minRows < 0 {
		minRows = 0
	}
	if maxRows < minRows {
		maxRows = minRows
	}
	return &Collection{
		mode:       mode,
		minRows:    minRows,
		maxRows:    maxRows,
		selections: map[string]*Selection{},
	}
}

func (c *Collection) Len() int { return len(c.rows) }

func (c *Collection) MinRows() int { return c.minRows }
func (c *Collection) MaxRows() int { return c.maxRows }

// Rows returns a copy of the ordered rows.
func (c *Collection) Rows() []Row {
	out := make([]Row, len(c.rows))
	copy(out, c.rows)
	return out
}

// Row returns the row at index, if any.
func (c *Collection) Row(index int) (Row, bool) {
	if index < 0 || index >= len(c.rows) {
		return Row{}, false
	}
	return c.rows[index], true
}

// IndexOf returns the current position of a row id, or -1.
func (c *Collection) IndexOf(id string) int {
	for i, r := range c.rows {
		if r.ID == id {
			return i
		}
	}
	return -1
}

// Selection returns the transient state for a row id, creating it lazily.
func (c *Collection) Selection(id string) *Selection {
	if c.IndexOf(id) < 0 {
		return nil
	}
	sel, ok := c.selections[id]
	if !ok {
		sel = &Selection{}
		c.selections[id] = sel
	}
	return sel
}

// Add appends an empty row. Silently rejected at maxRows or in read-only
// mode; returns whether the collection changed.
func (c *Collection) Add() bool {
	if c.mode.IsReadOnly() || len(c.rows) >= c.maxRows {
		return false
	}
	c.append(Row{ApproverKey: ""})
	c.Renumber()
	return true
}

// Remove deletes the row at index, renumbers, and drops its transient state.
// Callers that need the minRows floor restored follow up with EnsureMinRows.
func (c *Collection) Remove(index int) bool {
	if c.mode.IsReadOnly() || index < 0 || index >= len(c.rows) {
		return false
	}
	id := c.rows[index].ID
	c.rows = append(c.rows[:index], c.rows[index+1:]...)
	delete(c.selections, id)
	c.Renumber()
	return true
}

// MoveUp swaps the row at index with its predecessor. No-op at the top.
func (c *Collection) MoveUp(index int) bool {
	if c.mode.IsReadOnly() || index <= 0 || index >= len(c.rows) {
		return false
	}
	c.rows[index-1], c.rows[index] = c.rows[index], c.rows[index-1]
	c.Renumber()
	return true
}

// MoveDown swaps the row at index with its successor. No-op at the bottom.
func (c *Collection) MoveDown(index int) bool {
	if c.mode.IsReadOnly() || index < 0 || index >= len(c.rows)-1 {
		return false
	}
	c.rows[index], c.rows[index+1] = c.rows[index+1], c.rows[index]
	c.Renumber()
	return true
}

// Renumber restores the order invariant: Order == position+1 for every row.
// Idempotent; called after every structural edit.
func (c *Collection) Renumber() {
	for i := range c.rows {
		c.rows[i].Order = i + 1
	}
}

// EnsureMinRows appends empty rows until the minRows floor is met. Returns
// the number of rows appended (zero in read-only mode).
func (c *Collection) EnsureMinRows() int {
	if c.mode.IsReadOnly() {
		return 0
	}
	added := 0
	for len(c.rows) < c.minRows {
		c.append(Row{ApproverKey: ""})
		added++
	}
	if added > 0 {
		c.Renumber()
	}
	return added
}

// SetApprover writes the canonical key for a row id.
func (c *Collection) SetApprover(id, key string) bool {
	if c.mode.IsReadOnly() {
		return false
	}
	i := c.IndexOf(id)
	if i < 0 {
		return false
	}
	c.rows[i].ApproverKey = strings.TrimSpace(key)
	return true
}

// Load replaces the collection content with persisted rows, in the order
// given. Load bypasses the read-only gate: a read-only form still renders
// whatever was stored, even out of bounds.
func (c *Collection) Load(persisted []Persisted) {
	c.rows = c.rows[:0]
	c.selections = map[string]*Selection{}
	for _, p := range persisted {
		c.append(Row{ApproverKey: strings.TrimSpace(p.Approver)})
	}
	c.Renumber()
}

// Persisted returns the canonical serializable form. Never nil, so an empty
// collection serializes to [].
func (c *Collection) Persisted() []Persisted {
	out := make([]Persisted, 0, len(c.rows))
	for _, r := range c.rows {
		out = append(out, Persisted{Order: r.Order, Approver: r.ApproverKey})
	}
	return out
}

func (c *Collection) append(r Row) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	c.rows = append(c.rows, r)
}
