// Package search schedules per-row incremental directory queries. Each row
// has a generation counter; every keystroke bumps it, and a scheduled timer
// or an arriving result is honored only while its generation is still the
// row's newest. Ordering is last-writer-wins by start order, never by
// completion order.
package search

import (
	"strings"
	"time"
	"unicode/utf8"
)

// DefaultDelay is the idle interval after the last keystroke before a query
// fires.
const DefaultDelay = 200 * time.Millisecond

// Action tells the caller what to do after recording an input change.
type Action int

const (
	// ActionNone: nothing to do (term unchanged).
	ActionNone Action = iota
	// ActionClear: below the minimum-character threshold; clear the row's
	// suggestions and do not query.
	ActionClear
	// ActionSchedule: schedule a query for the returned generation after
	// Delay() of idle time.
	ActionSchedule
)

type rowState struct {
	term string
	gen  uint64
}

// Controller tracks per-row search terms and generations. It owns no timers:
// the caller schedules the idle delay (a tea.Tick in the TUI) and reports
// back via Due and Apply.
type Controller struct {
	minChars int
	delay    time.Duration
	rows     map[string]*rowState
}

func NewController(minChars int, delay time.Duration) *Controller {
	if minChars < 1 {
		minChars = 1
	}
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Controller{
		minChars: minChars,
		delay:    delay,
		rows:     map[string]*rowState{},
	}
}

func (c *Controller) Delay() time.Duration { return c.delay }

// Input records a keystroke for a row. Any pending or in-flight query for
// the row is invalidated by the generation bump, whether or not a new one
// is scheduled.
func (c *Controller) Input(rowID, term string) (Action, uint64) {
	st := c.row(rowID)
	if term == st.term {
		return ActionNone, st.gen
	}
	st.term = term
	st.gen++
	if utf8.RuneCountInString(strings.TrimSpace(term)) < c.minChars {
		return ActionClear, st.gen
	}
	return ActionSchedule, st.gen
}

// Due reports whether a scheduled query is still current when its idle timer
// fires, and returns the term to query.
func (c *Controller) Due(rowID string, gen uint64) (string, bool) {
	st, ok := c.rows[rowID]
	if !ok || st.gen != gen {
		return "", false
	}
	return st.term, true
}

// Apply reports whether a completed query's result may be applied to the
// row. A result for a superseded generation is discarded on arrival.
func (c *Controller) Apply(rowID string, gen uint64) bool {
	st, ok := c.rows[rowID]
	return ok && st.gen == gen
}

// Term returns the last recorded term for a row.
func (c *Controller) Term(rowID string) string {
	if st, ok := c.rows[rowID]; ok {
		return st.term
	}
	return ""
}

// Forget drops a removed row's state, invalidating anything in flight for it.
func (c *Controller) Forget(rowID string) {
	delete(c.rows, rowID)
}

func (c *Controller) row(rowID string) *rowState {
	st, ok := c.rows[rowID]
	if !ok {
		st = &rowState{}
		c.rows[rowID] = st
	}
	return st
}
