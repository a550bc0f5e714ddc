package persist

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/brandonsypek/approver-repeater/internal/rows"
)

type fakeHost struct {
	value   []byte
	notifed int
	err     error
}

func (h *fakeHost) SetValue(raw []byte) error {
	if h.err != nil {
		return h.err
	}
	h.value = append([]byte(nil), raw...)
	return nil
}

func (h *fakeHost) NotifyChanged() { h.notifed++ }

type fixedMode bool

func (m fixedMode) IsReadOnly() bool { return bool(m) }

func TestSerialize_Canonical(t *testing.T) {
	raw, err := Serialize([]rows.Persisted{
		{Order: 1, Approver: "alice@x.com"},
		{Order: 2, Approver: ""},
	})
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	want := `[{"order":1,"approver":"alice@x.com"},{"order":2,"approver":""}]`
	if string(raw) != want {
		t.Fatalf("got %s", raw)
	}
}

func TestSerialize_EmptyIsEmptyArray(t *testing.T) {
	raw, err := Serialize(nil)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if string(raw) != "[]" {
		t.Fatalf("got %s", raw)
	}
}

// Saving twice with no intervening change emits exactly one notification.
func TestSave_IdempotentEmission(t *testing.T) {
	host := &fakeHost{}
	g := &Gateway{Host: host, Mode: fixedMode(false)}
	list := []rows.Persisted{{Order: 1, Approver: "alice@x.com"}}

	emitted, err := g.Save(list)
	if err != nil || !emitted {
		t.Fatalf("first save: emitted=%v err=%v", emitted, err)
	}
	emitted, err = g.Save(list)
	if err != nil {
		t.Fatalf("second save: %v", err)
	}
	if emitted {
		t.Fatal("identical save should be skipped")
	}
	if host.notifed != 1 {
		t.Fatalf("notifications = %d, want 1", host.notifed)
	}

	// A real change emits again.
	list[0].Approver = "bob@x.com"
	if emitted, _ = g.Save(list); !emitted {
		t.Fatal("changed save should emit")
	}
	if host.notifed != 2 {
		t.Fatalf("notifications = %d, want 2", host.notifed)
	}
}

func TestSave_PrimeSuppressesReEmitOfLoadedState(t *testing.T) {
	host := &fakeHost{}
	g := &Gateway{Host: host}
	g.Prime([]byte(`[{"order":1,"approver":"alice@x.com"}]`))

	emitted, err := g.Save([]rows.Persisted{{Order: 1, Approver: "alice@x.com"}})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if emitted || host.notifed != 0 {
		t.Fatalf("loaded state should not re-emit (emitted=%v notifications=%d)", emitted, host.notifed)
	}
}

func TestSave_ReadOnlySuppressesEverything(t *testing.T) {
	host := &fakeHost{}
	mirror := filepath.Join(t.TempDir(), "mirror.json")
	g := &Gateway{Host: host, Mode: fixedMode(true), MirrorPath: mirror}

	emitted, err := g.Save([]rows.Persisted{{Order: 1, Approver: "alice@x.com"}})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if emitted || host.notifed != 0 {
		t.Fatal("read-only save must be a no-op")
	}
	if _, err := os.Stat(mirror); !os.IsNotExist(err) {
		t.Fatal("mirror must not be written in read-only mode")
	}
}

func TestSave_MirrorsPrettyFormAndNotifiesSink(t *testing.T) {
	host := &fakeHost{}
	mirror := filepath.Join(t.TempDir(), "mirror.json")
	var sinkNotified []string
	g := &Gateway{
		Host:         host,
		MirrorPath:   mirror,
		MirrorNotify: func(p string) { sinkNotified = append(sinkNotified, p) },
	}

	if _, err := g.Save([]rows.Persisted{{Order: 1, Approver: "alice@x.com"}}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	b, err := os.ReadFile(mirror)
	if err != nil {
		t.Fatalf("read mirror: %v", err)
	}
	if !strings.Contains(string(b), "\n  {\n") {
		t.Fatalf("mirror should be pretty-printed, got %s", b)
	}
	if !strings.Contains(string(b), `"approver": "alice@x.com"`) {
		t.Fatalf("mirror content: %s", b)
	}
	if len(sinkNotified) != 1 || sinkNotified[0] != mirror {
		t.Fatalf("sink notifications: %v", sinkNotified)
	}
}

func TestFormDoc_RoundTripPreservesForeignFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "form.json")
	seed := `{"title":"Hosting request","approvers":[{"order":1,"approver":"alice@x.com"}]}`
	if err := os.WriteFile(path, []byte(seed), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	doc, err := OpenFormDoc(path, "approvers")
	if err != nil {
		t.Fatalf("OpenFormDoc: %v", err)
	}
	if !strings.Contains(string(doc.Value()), "alice@x.com") {
		t.Fatalf("value: %s", doc.Value())
	}

	if err := doc.SetValue([]byte(`[{"order":1,"approver":"bob@x.com"}]`)); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(b), `"Hosting request"`) {
		t.Fatalf("foreign field dropped: %s", b)
	}
	if !strings.Contains(string(b), "bob@x.com") {
		t.Fatalf("value not updated: %s", b)
	}
}

func TestFormDoc_MissingFileStartsEmpty(t *testing.T) {
	doc, err := OpenFormDoc(filepath.Join(t.TempDir(), "new.json"), "")
	if err != nil {
		t.Fatalf("OpenFormDoc: %v", err)
	}
	if doc.Field != DefaultField {
		t.Fatalf("field = %q", doc.Field)
	}
	if doc.Value() != nil {
		t.Fatalf("value = %s", doc.Value())
	}
}
