package mermaid

import (
	"strings"
)

const indent = "  "

// String renders the document in canonical form: the header on its own
// first line, one statement per line indented two spaces, and a trailing
// newline.
func (d *Document) String() string {
	var b strings.Builder
	h := d.Header
	if h == nil {
		h = &HeaderStmt{Keyword: "flowchart", Direction: "TD"}
	}
	b.WriteString(h.Keyword)
	b.WriteByte(' ')
	b.WriteString(h.Direction)
	b.WriteByte('\n')
	for _, st := range d.Statements {
		line := formatStatement(st)
		if line == "" {
			continue
		}
		b.WriteString(indent)
		b.WriteString(closeOpenLabels(line))
		b.WriteByte('\n')
	}
	return b.String()
}

func formatStatement(st Statement) string {
	switch s := st.(type) {
	case NodeStmt:
		return formatVertex(s.Vertex)
	case EdgeStmt:
		var b strings.Builder
		for i, g := range s.Groups {
			if i > 0 {
				l := s.Links[i-1]
				b.WriteByte(' ')
				b.WriteString(l.Arrow)
				if l.HasLabel && l.Label != "" {
					b.WriteByte('|')
					b.WriteString(l.Label)
					b.WriteByte('|')
				}
				b.WriteByte(' ')
			}
			for j, v := range g {
				if j > 0 {
					b.WriteString(" & ")
				}
				b.WriteString(formatVertex(v))
			}
		}
		return b.String()
	case SubgraphStmt:
		return strings.TrimSpace("subgraph " + s.Title)
	case EndStmt:
		return "end"
	case StyleStmt:
		return s.Text
	case CommentStmt:
		return s.Text
	case RawStmt:
		return s.Text
	}
	return ""
}

func formatVertex(v Vertex) string {
	switch {
	case v.HasLabel:
		label := cleanLabel(v.Label)
		if label == "" {
			return v.ID
		}
		return v.ID + `["` + label + `"]`
	case v.Shape != "":
		shape := v.Shape
		if v.Open {
			shape += closerFor(shape)
		}
		return v.ID + shape
	}
	return v.ID
}

// closerFor returns the brackets needed to close an unterminated shape.
func closerFor(shape string) string {
	var b strings.Builder
	depth := 0
	open := shape[0]
	closer := byte(')')
	if open == '{' {
		closer = '}'
	}
	for i := 0; i < len(shape); i++ {
		switch shape[i] {
		case open:
			depth++
		case closer:
			depth--
		}
	}
	for ; depth > 0; depth-- {
		b.WriteByte(closer)
	}
	return b.String()
}
