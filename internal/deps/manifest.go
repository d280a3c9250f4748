package deps

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Entry is one name/version pair in declaration order.
type Entry struct {
	Name    string
	Version string
}

// Manifest holds the dependency sections of a package.json. Sections keep
// the order keys appear in the file.
type Manifest struct {
	Name     string
	Version  string
	Sections map[Class][]Entry
}

var errNotObject = errors.New("deps: manifest is not a JSON object")

// ParseManifest decodes raw package.json bytes. Sections that are not JSON
// objects are ignored; non-string versions keep their JSON text.
func ParseManifest(raw []byte) (*Manifest, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("deps: parse manifest: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errNotObject
	}

	m := &Manifest{Sections: make(map[Class][]Entry)}
	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return nil, err
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("deps: parse manifest %q: %w", key, err)
		}
		switch key {
		case "name":
			_ = json.Unmarshal(value, &m.Name)
		case "version":
			_ = json.Unmarshal(value, &m.Version)
		default:
			if !isClass(key) {
				continue
			}
			entries, err := parseSection(value)
			if err != nil {
				delete(m.Sections, Class(key))
				continue
			}
			m.Sections[Class(key)] = entries
		}
	}
	return m, nil
}

func isClass(key string) bool {
	for _, c := range Classes {
		if string(c) == key {
			return true
		}
	}
	return false
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", fmt.Errorf("deps: parse manifest: %w", err)
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("deps: parse manifest: unexpected token %v", tok)
	}
	return key, nil
}

func parseSection(raw json.RawMessage) ([]Entry, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errNotObject
	}
	var out []Entry
	// A repeated name keeps its first position and takes the last value.
	seen := make(map[string]int)
	for dec.More() {
		name, err := readKey(dec)
		if err != nil {
			return nil, err
		}
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return nil, err
		}
		if i, ok := seen[name]; ok {
			out[i].Version = versionText(v)
			continue
		}
		seen[name] = len(out)
		out = append(out, Entry{Name: name, Version: versionText(v)})
	}
	if _, err := dec.Token(); err != nil && err != io.EOF {
		return nil, err
	}
	return out, nil
}

func versionText(v json.RawMessage) string {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(v))
}

// Extract returns one record per declared dependency, section by section in
// the order of Classes and key order within a section.
func Extract(m *Manifest) []Record {
	out := []Record{}
	if m == nil {
		return out
	}
	for _, c := range Classes {
		for _, e := range m.Sections[c] {
			out = append(out, Record{Name: e.Name, Version: e.Version, Type: c})
		}
	}
	return out
}

// ExtractJSON parses raw and extracts its records. Unreadable input yields an
// empty list.
func ExtractJSON(raw []byte) []Record {
	m, err := ParseManifest(raw)
	if err != nil {
		return []Record{}
	}
	return Extract(m)
}
