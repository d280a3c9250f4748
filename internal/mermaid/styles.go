package mermaid

import (
	"strings"
	"unicode"
)

const styleMarker = "%% parsec:styles"

type styleClass struct {
	name  string
	def   string
	words []string
}

// Order matters: a node joins the first class one of its name words matches.
var styleClasses = []styleClass{
	{"external", "fill:#e6e6fa,stroke:#333,stroke-width:1px,stroke-dasharray: 5 5", []string{"external", "thirdparty", "vendor"}},
	{"frontend", "fill:#bbf,stroke:#333,stroke-width:1px", []string{"fe", "frontend", "ui", "component", "components", "client", "page", "pages", "view", "views", "web"}},
	{"backend", "fill:#bfb,stroke:#333,stroke-width:1px", []string{"be", "backend", "server", "controller", "handler", "handlers"}},
	{"dataLayer", "fill:#fbb,stroke:#333,stroke-width:1px", []string{"db", "data", "database", "store", "model", "models", "cache", "repo", "repository", "storage"}},
	{"api", "fill:#afeeee,stroke:#333,stroke-width:1px", []string{"api", "endpoint", "endpoints", "route", "routes", "router"}},
	{"utility", "fill:#fffacd,stroke:#333,stroke-width:1px", []string{"util", "utils", "helper", "helpers", "service", "services", "lib"}},
	{"coreComponent", "fill:#f9f,stroke:#333,stroke-width:2px", []string{"app", "core", "main"}},
}

func isInjectedStyle(st Statement) bool {
	switch s := st.(type) {
	case CommentStmt:
		return s.Text == styleMarker
	case StyleStmt:
		fields := strings.Fields(s.Text)
		if len(fields) < 2 {
			return false
		}
		for _, c := range styleClasses {
			if fields[0] == "classDef" && fields[1] == c.name {
				return true
			}
			if fields[0] == "class" && fields[len(fields)-1] == c.name {
				return true
			}
		}
	}
	return false
}

// InjectStyles replaces any previously injected style block with a fresh one
// derived from the node ids in the document.
func (d *Document) InjectStyles() {
	kept := d.Statements[:0:0]
	for _, st := range d.Statements {
		if !isInjectedStyle(st) {
			kept = append(kept, st)
		}
	}

	members := make(map[string][]string)
	seen := make(map[string]bool)
	for _, st := range kept {
		for _, v := range vertices(st) {
			if seen[v.ID] {
				continue
			}
			seen[v.ID] = true
			if c := classify(v.ID); c != "" {
				members[c] = append(members[c], v.ID)
			}
		}
	}

	kept = append(kept, CommentStmt{Text: styleMarker})
	for _, c := range styleClasses {
		kept = append(kept, StyleStmt{Text: "classDef " + c.name + " " + c.def})
	}
	for _, c := range styleClasses {
		if ids := members[c.name]; len(ids) > 0 {
			kept = append(kept, StyleStmt{Text: "class " + strings.Join(ids, ",") + " " + c.name})
		}
	}
	d.Statements = kept
}

func classify(id string) string {
	words := splitWords(id)
	for _, c := range styleClasses {
		for _, w := range words {
			for _, k := range c.words {
				if w == k {
					return c.name
				}
			}
		}
	}
	return ""
}

// splitWords breaks an identifier on underscores, digits and case changes
// ("APIServer" -> api, server) and lowercases the parts.
func splitWords(id string) []string {
	var words []string
	runes := []rune(id)
	start := 0
	flush := func(end int) {
		if end > start {
			words = append(words, strings.ToLower(string(runes[start:end])))
		}
		start = end
	}
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '_' || unicode.IsDigit(r) {
			flush(i)
			start = i + 1
			continue
		}
		if i > start && unicode.IsUpper(r) {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || (unicode.IsUpper(prev) && nextLower) {
				flush(i)
			}
		}
	}
	flush(len(runes))
	return words
}
