package mermaid

import (
	"strings"
)

// Complex reports whether the document needs full reconstruction rather than
// line-level patching.
func (d *Document) Complex() bool {
	if d.Merged {
		return true
	}
	for _, st := range d.Statements {
		if _, ok := st.(SubgraphStmt); ok {
			return true
		}
		for _, v := range vertices(st) {
			if v.HasLabel && labelIsNested(v.Label) {
				return true
			}
		}
	}
	return false
}

// labelIsNested reports brackets or quotes inside a label beyond one
// wrapping pair of quotes.
func labelIsNested(label string) bool {
	s := strings.TrimSpace(label)
	if strings.ContainsAny(s, "[]") {
		return true
	}
	return strings.ContainsAny(unwrapQuotes(s), `"'`)
}

func unwrapQuotes(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	s = strings.TrimLeft(s, `"'`)
	return strings.TrimRight(s, `"'`)
}

// cleanLabel strips every quote and stray bracket.
func cleanLabel(label string) string {
	r := strings.NewReplacer(`"`, "", `'`, "", "[", "", "]", "")
	return strings.TrimSpace(r.Replace(label))
}

// counts returns the number of node declarations and edges in the document.
func (d *Document) counts() (nodes, edges int) {
	for _, st := range d.Statements {
		switch s := st.(type) {
		case NodeStmt:
			nodes++
		case EdgeStmt:
			edges += len(s.Links)
		}
	}
	return nodes, edges
}

// Reconstruct rebuilds a flat flowchart from the labelled nodes and the
// connections found anywhere in the document. The second return is false
// when too little was recoverable.
func (d *Document) Reconstruct() (*Document, bool) {
	out := &Document{Header: &HeaderStmt{Keyword: "flowchart", Direction: "TD"}}
	var edges []Statement
	nodes := 0
	for _, st := range d.Statements {
		for _, v := range vertices(st) {
			if !v.HasLabel {
				continue
			}
			label := cleanLabel(v.Label)
			if v.ID == "" || label == "" {
				continue
			}
			out.Statements = append(out.Statements, NodeStmt{Vertex: Vertex{ID: v.ID, Label: label, HasLabel: true}})
			nodes++
		}
		e, ok := st.(EdgeStmt)
		if !ok {
			continue
		}
		for i := range e.Links {
			for _, from := range e.Groups[i] {
				for _, to := range e.Groups[i+1] {
					edges = append(edges, EdgeStmt{
						Groups: [][]Vertex{{{ID: from.ID}}, {{ID: to.ID}}},
						Links:  []Link{{Arrow: "-->"}},
					})
				}
			}
		}
	}
	out.Statements = append(out.Statements, edges...)
	if nodes < minNodes && len(edges) == 0 {
		return nil, false
	}
	return out, true
}

// Patch applies line-preserving fixes: stray "end" statements are dropped;
// labels are requoted and arrows normalized by the printer.
func (d *Document) Patch() *Document {
	out := &Document{Header: d.Header}
	if out.Header == nil {
		out.Header = &HeaderStmt{Keyword: "flowchart", Direction: "TD"}
	}
	for _, st := range d.Statements {
		if _, ok := st.(EndStmt); ok {
			continue
		}
		out.Statements = append(out.Statements, st)
	}
	return out
}

// closeOpenLabels appends `"]` to every `["` that has no later `"]` on the
// same line.
func closeOpenLabels(line string) string {
	pos := 0
	for {
		i := strings.Index(line[pos:], `["`)
		if i < 0 {
			return line
		}
		i += pos
		j := strings.Index(line[i+2:], `"]`)
		if j < 0 {
			return line + `"]`
		}
		pos = i + 2 + j + 2
	}
}

// Balanced reports whether every `["` in s is followed by a `"]`, scanning
// left to right without nesting.
func Balanced(s string) bool {
	pos := 0
	for {
		i := strings.Index(s[pos:], `["`)
		if i < 0 {
			return true
		}
		i += pos
		j := strings.Index(s[i+2:], `"]`)
		if j < 0 {
			return false
		}
		pos = i + 2 + j + 2
	}
}
