// Package labels loads the optional id-to-label document and answers
// lookups with an "unknown" default. Label availability is best-effort by
// design: a missing or malformed document degrades the run, never aborts it.
package labels

import (
	"fmt"
	"os"

	omwjson "github.com/sw965/omw/json"
)

// Unknown is the sentinel label for ids without an entry.
const Unknown = "unknown"

// Document is the on-disk shape: {"labels": {"<id>": "<label>", ...}}.
type Document struct {
	Labels map[string]string `json:"labels"`
}

// Lookup answers id-to-label queries.
type Lookup struct {
	m         map[string]string
	available bool
}

// Empty returns a lookup that answers Unknown for every id.
func Empty() *Lookup {
	return &Lookup{}
}

// Load parses the labels document at path. An empty path returns an empty
// lookup with no error (labels were never requested). A missing or
// unparseable document returns an empty lookup together with the error so
// the caller can warn and continue.
func Load(path string) (*Lookup, error) {
	if path == "" {
		return Empty(), nil
	}
	if _, err := os.Stat(path); err != nil {
		return Empty(), fmt.Errorf("labels document unavailable: %w", err)
	}
	doc, err := omwjson.Load[Document](path)
	if err != nil {
		return Empty(), fmt.Errorf("labels document unreadable: %w", err)
	}
	return &Lookup{m: doc.Labels, available: doc.Labels != nil}, nil
}

// Get returns the label for id, or Unknown when absent.
func (l *Lookup) Get(id string) string {
	if s, ok := l.m[id]; ok {
		return s
	}
	return Unknown
}

// Available reports whether a labels document was successfully loaded.
func (l *Lookup) Available() bool { return l.available }

// Len returns the number of known labels.
func (l *Lookup) Len() int { return len(l.m) }
