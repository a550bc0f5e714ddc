// Package formmode decides whether the surrounding form is read-only. The
// detection strategy belongs to the host; the core only ever consumes the
// final boolean.
package formmode

import (
	"os"
	"strings"
)

// EnvVar forces read-only when set to a truthy value, standing in for the
// host URL parameter of embedded deployments.
const EnvVar = "APPROVERS_READONLY"

// Detector resolves the read-only signal through a priority chain:
// force-editable override, explicit host mode, edit-affordance probe,
// environment, then the static fallback.
type Detector struct {
	// ForceEditable short-circuits everything.
	ForceEditable bool
	// HostMode is the host-provided form-mode query, if the host has one.
	HostMode func() (readOnly, ok bool)
	// Affordance probes for an edit affordance (e.g. a writable form
	// document). ok=false means the probe is inconclusive.
	Affordance func() (editable, ok bool)
	// Getenv defaults to os.Getenv.
	Getenv func(string) string
	// ReadOnlyFallback is the static attribute default when nothing else
	// answers.
	ReadOnlyFallback bool
}

func (d *Detector) IsReadOnly() bool {
	if d == nil {
		return false
	}
	if d.ForceEditable {
		return false
	}
	if d.HostMode != nil {
		if ro, ok := d.HostMode(); ok {
			return ro
		}
	}
	if d.Affordance != nil {
		if editable, ok := d.Affordance(); ok {
			return !editable
		}
	}
	getenv := d.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := strings.ToLower(strings.TrimSpace(getenv(EnvVar))); v != "" {
		return v == "1" || v == "true" || v == "yes"
	}
	return d.ReadOnlyFallback
}

// FileWritableProbe probes whether path can be written, as the CLI's edit
// affordance. Inconclusive when the file does not exist yet.
func FileWritableProbe(path string) func() (bool, bool) {
	return func() (bool, bool) {
		if strings.TrimSpace(path) == "" {
			return false, false
		}
		if _, err := os.Stat(path); err != nil {
			return false, false
		}
		f, err := os.OpenFile(path, os.O_WRONLY, 0)
		if err != nil {
			return false, true
		}
		_ = f.Close()
		return true, true
	}
}
