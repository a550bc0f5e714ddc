// Package persist serializes the approver collection into the host form and
// keeps the emission pipeline idempotent: identical state never produces a
// second write or change notification.
package persist

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"

	"github.com/brandonsypek/approver-repeater/internal/rows"
)

// Host receives the bound value and its change notifications.
type Host interface {
	SetValue(raw []byte) error
	NotifyChanged()
}

type Mode interface {
	IsReadOnly() bool
}

// Gateway owns the serialize/notify pipeline.
type Gateway struct {
	Host Host
	Mode Mode

	// MirrorPath, when set, receives a pretty-printed copy of every emitted
	// value. MirrorNotify stands in for the sink framework's own change
	// events and runs after a successful mirror write.
	MirrorPath   string
	MirrorNotify func(path string)

	last []byte
}

// Serialize renders the canonical compact form. An empty collection yields
// "[]".
func Serialize(list []rows.Persisted) ([]byte, error) {
	if list == nil {
		list = []rows.Persisted{}
	}
	return json.Marshal(list)
}

// Prime records an already-persisted form so a later Save of identical
// content is recognized as a no-op (used after load).
func (g *Gateway) Prime(raw []byte) {
	g.last = append([]byte(nil), bytes.TrimSpace(raw)...)
}

// Save emits the collection if it differs from the previously emitted form.
// Returns whether anything was emitted. Read-only mode suppresses all
// output unconditionally.
func (g *Gateway) Save(list []rows.Persisted) (bool, error) {
	if g.Mode != nil && g.Mode.IsReadOnly() {
		return false, nil
	}
	raw, err := Serialize(list)
	if err != nil {
		return false, err
	}
	if g.last != nil && bytes.Equal(raw, g.last) {
		return false, nil
	}

	if g.Host != nil {
		if err := g.Host.SetValue(raw); err != nil {
			return false, err
		}
		g.Host.NotifyChanged()
	}
	if err := g.mirror(list); err != nil {
		return false, err
	}
	g.last = raw
	return true, nil
}

func (g *Gateway) mirror(list []rows.Persisted) error {
	path := strings.TrimSpace(g.MirrorPath)
	if path == "" {
		return nil
	}
	if list == nil {
		list = []rows.Persisted{}
	}
	pretty, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return err
	}
	pretty = append(pretty, '\n')
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, pretty, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return err
	}
	if g.MirrorNotify != nil {
		g.MirrorNotify(path)
	}
	return nil
}
