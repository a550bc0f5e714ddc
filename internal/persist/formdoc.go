package persist

import (
	"encoding/json"
	"errors"
	"os"
	"strings"
)

// FormDoc is the host form document: a JSON object file owning the bound
// approver value under one field. Fields the editor does not own are
// preserved byte-for-byte across saves.
type FormDoc struct {
	Path  string
	Field string

	fields map[string]json.RawMessage
}

const DefaultField = "approvers"

func OpenFormDoc(path, field string) (*FormDoc, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("missing form document path")
	}
	if strings.TrimSpace(field) == "" {
		field = DefaultField
	}
	doc := &FormDoc{Path: path, Field: field, fields: map[string]json.RawMessage{}}

	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return doc, nil
		}
		return nil, err
	}
	if len(b) > 0 {
		if err := json.Unmarshal(b, &doc.fields); err != nil {
			return nil, err
		}
		if doc.fields == nil {
			doc.fields = map[string]json.RawMessage{}
		}
	}
	return doc, nil
}

// Value returns the current bound value, or nil when the field is unset.
func (d *FormDoc) Value() []byte {
	return d.fields[d.Field]
}

// SetValue updates the bound value and persists the whole document
// atomically.
func (d *FormDoc) SetValue(raw []byte) error {
	d.fields[d.Field] = json.RawMessage(raw)
	return d.save()
}

// NotifyChanged is a no-op for a file-backed document; the save itself is
// the observable event.
func (d *FormDoc) NotifyChanged() {}

func (d *FormDoc) save() error {
	b, err := json.MarshalIndent(d.fields, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	tmp := d.Path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, d.Path)
}
