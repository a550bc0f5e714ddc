// Package repeater is the approver-row state engine: it owns the ordered row
// collection and its transient state, schedules per-row directory searches,
// and feeds every structural change through the persistence gateway.
package repeater

import (
	"context"
	"errors"
	"time"

	"github.com/brandonsypek/approver-repeater/internal/directory"
	"github.com/brandonsypek/approver-repeater/internal/persist"
	"github.com/brandonsypek/approver-repeater/internal/rows"
	"github.com/brandonsypek/approver-repeater/internal/search"
)

// Row-scoped advisory messages. Failures surface as text near the affected
// row, never as a fatal error.
const (
	NoticeDetailsUnavailable = "approver details unavailable"
	NoticeSearchFailed       = "search failed; keep typing to retry"
)

type Config struct {
	Mode      rows.Mode
	Directory directory.Client
	Gateway   *persist.Gateway

	MinRows        int
	MaxRows        int
	MinChars       int
	MaxSuggestions int
	Delay          time.Duration
}

type Engine struct {
	mode           rows.Mode
	col            *rows.Collection
	ctl            *search.Controller
	dir            directory.Client
	gw             *persist.Gateway
	maxSuggestions int

	// fatal directory-access error (missing clientId), surfaced once.
	configErr error
}

func New(cfg Config) *Engine {
	mode := cfg.Mode
	if mode == nil {
		mode = rows.Editable
	}
	if cfg.MaxSuggestions <= 0 {
		cfg.MaxSuggestions = directory.MaxSearchLimit
	}
	e := &Engine{
		mode:           mode,
		col:            rows.NewCollection(mode, cfg.MinRows, cfg.MaxRows),
		ctl:            search.NewController(cfg.MinChars, cfg.Delay),
		dir:            cfg.Directory,
		gw:             cfg.Gateway,
		maxSuggestions: directory.ClampLimit(cfg.MaxSuggestions),
	}
	// A brand-new form starts at the row floor. Load replaces this.
	e.col.EnsureMinRows()
	return e
}

func (e *Engine) ReadOnly() bool               { return e.mode.IsReadOnly() }
func (e *Engine) Rows() []rows.Row             { return e.col.Rows() }
func (e *Engine) Len() int                     { return e.col.Len() }
func (e *Engine) Delay() time.Duration         { return e.ctl.Delay() }
func (e *Engine) Collection() *rows.Collection { return e.col }

func (e *Engine) Selection(rowID string) *rows.Selection { return e.col.Selection(rowID) }

// SetConfigError records the fatal configuration error that disables
// directory access, typically a missing application identifier.
func (e *Engine) SetConfigError(err error) { e.configErr = err }
func (e *Engine) ConfigError() error       { return e.configErr }

// Load replaces the collection with persisted content and primes the gateway
// so an unchanged save stays silent. Backfilling up to minRows counts as a
// real change and persists.
func (e *Engine) Load(persisted []rows.Persisted, raw []byte) error {
	e.col.Load(persisted)
	if e.gw != nil {
		e.gw.Prime(raw)
	}
	if e.col.EnsureMinRows() > 0 {
		if _, err := e.Save(); err != nil {
			return err
		}
	}
	return nil
}

// Hydrate resolves every persisted key to a Person, strictly in row order
// (one awaited resolution at a time). A failed resolve falls back to the raw
// key with a non-fatal notice and does not block later rows.
func (e *Engine) Hydrate(ctx context.Context) {
	if e.dir == nil || e.configErr != nil {
		return
	}
	for _, r := range e.col.Rows() {
		if r.ApproverKey == "" {
			continue
		}
		sel := e.col.Selection(r.ID)
		if sel == nil || sel.Person != nil {
			continue
		}
		p, err := e.dir.Resolve(ctx, r.ApproverKey)
		e.applyResolved(r.ID, r.ApproverKey, p, err)
	}
}

// NextUnresolved returns the first row that still needs its key resolved, in
// row order, so a caller can drive hydration one awaited lookup at a time.
func (e *Engine) NextUnresolved() (rows.Row, bool) {
	if e.dir == nil || e.configErr != nil {
		return rows.Row{}, false
	}
	for _, r := range e.col.Rows() {
		if r.ApproverKey == "" {
			continue
		}
		if sel := e.col.Selection(r.ID); sel != nil && sel.Person == nil {
			return r, true
		}
	}
	return rows.Row{}, false
}

// Resolve looks up a single key. Safe to call off the main loop; it only
// reads engine configuration.
func (e *Engine) Resolve(ctx context.Context, key string) (directory.Person, error) {
	if e.configErr != nil {
		return directory.Person{}, e.configErr
	}
	if e.dir == nil {
		return directory.Person{}, errors.New("no directory client")
	}
	return e.dir.Resolve(ctx, key)
}

// ApplyResolved installs a resolution outcome for a row.
func (e *Engine) ApplyResolved(rowID string, p directory.Person, err error) {
	r, ok := e.col.Row(e.col.IndexOf(rowID))
	if !ok {
		return
	}
	e.applyResolved(rowID, r.ApproverKey, p, err)
}

func (e *Engine) applyResolved(rowID, key string, p directory.Person, err error) {
	sel := e.col.Selection(rowID)
	if sel == nil {
		return
	}
	if err != nil {
		fb := directory.Fallback(key)
		sel.Person = &fb
		sel.Notice = NoticeDetailsUnavailable
		return
	}
	sel.Person = &p
	sel.Notice = ""
}

// Input records a keystroke for a row and reports what to do next. Below the
// minimum-character threshold the suggestion list is cleared and no query is
// ever scheduled.
func (e *Engine) Input(rowID, term string) (search.Action, uint64) {
	if e.mode.IsReadOnly() {
		return search.ActionNone, 0
	}
	sel := e.col.Selection(rowID)
	if sel == nil {
		return search.ActionNone, 0
	}
	act, gen := e.ctl.Input(rowID, term)
	if act == search.ActionNone {
		return act, gen
	}
	sel.Term = term
	sel.Notice = ""
	if act == search.ActionClear {
		sel.Suggestions = nil
	}
	return act, gen
}

// Due reports whether a scheduled query is still current when its idle timer
// fires.
func (e *Engine) Due(rowID string, gen uint64) (string, bool) {
	return e.ctl.Due(rowID, gen)
}

// RunSearch performs the directory query for a row. Read-only mode
// short-circuits to an empty result without a request.
func (e *Engine) RunSearch(ctx context.Context, term string) ([]directory.Person, error) {
	if e.mode.IsReadOnly() {
		return nil, nil
	}
	if e.configErr != nil {
		return nil, e.configErr
	}
	if e.dir == nil {
		return nil, errors.New("no directory client")
	}
	return e.dir.Search(ctx, term, e.maxSuggestions)
}

// ApplyResult installs a completed query's outcome, unless a newer query for
// the row has started since (stale results are observed and discarded).
// A failure is row-scoped: it clears that row's suggestions and sets an
// advisory, leaving other rows untouched.
func (e *Engine) ApplyResult(rowID string, gen uint64, people []directory.Person, err error) bool {
	if !e.ctl.Apply(rowID, gen) {
		return false
	}
	sel := e.col.Selection(rowID)
	if sel == nil {
		return false
	}
	if err != nil {
		sel.Suggestions = nil
		sel.Notice = NoticeSearchFailed
		return true
	}
	sel.Suggestions = people
	sel.Notice = ""
	return true
}

// Pick commits a chosen person to its row and persists.
func (e *Engine) Pick(rowID string, p directory.Person) error {
	if !e.col.SetApprover(rowID, p.Login) {
		return nil
	}
	sel := e.col.Selection(rowID)
	sel.Person = &p
	sel.Suggestions = nil
	sel.Term = ""
	sel.Notice = ""
	e.ctl.Forget(rowID)
	_, err := e.Save()
	return err
}

// ClearRow empties a row's key and transient state and persists.
func (e *Engine) ClearRow(rowID string) error {
	if !e.col.SetApprover(rowID, "") {
		return nil
	}
	sel := e.col.Selection(rowID)
	*sel = rows.Selection{}
	e.ctl.Forget(rowID)
	_, err := e.Save()
	return err
}

// AddRow appends an empty row (silent no-op at maxRows) and persists.
func (e *Engine) AddRow() (bool, error) {
	if !e.col.Add() {
		return false, nil
	}
	_, err := e.Save()
	return true, err
}

// RemoveRow deletes the row at index, backfills to minRows, and persists.
func (e *Engine) RemoveRow(index int) (bool, error) {
	r, ok := e.col.Row(index)
	if !ok {
		return false, nil
	}
	if !e.col.Remove(index) {
		return false, nil
	}
	e.ctl.Forget(r.ID)
	e.col.EnsureMinRows()
	_, err := e.Save()
	return true, err
}

// MoveUp and MoveDown swap adjacent rows; transient state follows the row by
// identity, so nothing else needs remapping.
func (e *Engine) MoveUp(index int) (bool, error) {
	if !e.col.MoveUp(index) {
		return false, nil
	}
	_, err := e.Save()
	return true, err
}

func (e *Engine) MoveDown(index int) (bool, error) {
	if !e.col.MoveDown(index) {
		return false, nil
	}
	_, err := e.Save()
	return true, err
}

// Save pushes the current collection through the gateway.
func (e *Engine) Save() (bool, error) {
	if e.gw == nil {
		return false, nil
	}
	return e.gw.Save(e.col.Persisted())
}
