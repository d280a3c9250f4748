// Package deps turns a package.json manifest into dependency records.
package deps

import (
	"strings"
)

// Class is the manifest section a dependency was declared in.
type Class string

const (
	Dependencies         Class = "dependencies"
	DevDependencies      Class = "devDependencies"
	PeerDependencies     Class = "peerDependencies"
	OptionalDependencies Class = "optionalDependencies"
)

// Classes lists the manifest sections in extraction order.
var Classes = []Class{Dependencies, DevDependencies, PeerDependencies, OptionalDependencies}

// Record is one declared dependency and whatever enrichment has reached it.
type Record struct {
	Name           string `json:"name"`
	Version        string `json:"version"`
	Type           Class  `json:"type"`
	Description    string `json:"description,omitempty"`
	Homepage       string `json:"homepage,omitempty"`
	LogoURL        string `json:"logoUrl,omitempty"`
	LLMDescription string `json:"llmDescription,omitempty"`
}

// Key identifies a record within one analysis.
type Key struct {
	Name string
	Type Class
}

func (r Record) Key() Key { return Key{Name: r.Name, Type: r.Type} }

// DisplayDescription prefers the generated description over the registry one.
func (r Record) DisplayDescription() string {
	if r.LLMDescription != "" {
		return r.LLMDescription
	}
	return r.Description
}

// NormalizeRepositoryURL strips the "git+" prefix and ".git" suffix that npm
// repository URLs usually carry.
func NormalizeRepositoryURL(u string) string {
	u = strings.TrimSpace(u)
	u = strings.TrimPrefix(u, "git+")
	return strings.TrimSuffix(u, ".git")
}

// Clone returns a copy of records that shares no backing array with it.
func Clone(records []Record) []Record {
	if records == nil {
		return []Record{}
	}
	out := make([]Record, len(records))
	copy(out, records)
	return out
}
