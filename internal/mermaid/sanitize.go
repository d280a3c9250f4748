// Package mermaid repairs model-generated Mermaid markup so that it always
// starts with a diagram declaration, is non-empty and carries no unterminated
// ["...  labels.
package mermaid

import (
	"regexp"
	"strings"
)

// minNodes is the smallest reconstruction worth keeping when no edges
// survived.
const minNodes = 3

// maxPasses bounds the fixed-point iteration in Sanitize.
const maxPasses = 4

// Kind names the diagram type of a sanitized result.
type Kind string

const (
	KindFlowchart Kind = "flowchart"
	KindSequence  Kind = "sequenceDiagram"
	KindClass     Kind = "classDiagram"
	KindState     Kind = "stateDiagram"
	KindER        Kind = "erDiagram"
)

// Result is the outcome of Sanitize.
type Result struct {
	Diagram string `json:"diagram"`
	Kind    Kind   `json:"kind"`
	// Complex is set when the input needed full reconstruction.
	Complex bool `json:"complex"`
	// Fallback is set when nothing usable was recovered and the fixed
	// skeleton was returned instead.
	Fallback bool `json:"fallback"`
}

var (
	reSpacedHead = regexp.MustCompile(`(-{2,})[ \t]+>`)
	reVersion    = regexp.MustCompile(`^-v[0-9]+`)
)

var fallbackDiagram = render(skeleton())

// FallbackDiagram returns the fixed four-node skeleton used when a diagram
// cannot be recovered.
func FallbackDiagram() string { return fallbackDiagram }

// ErrorDiagram renders msg as a single-node flowchart.
func ErrorDiagram(msg string) string {
	msg = strings.NewReplacer(`"`, "", `'`, "", "[", "", "]", "", "\n", " ", "\r", " ").Replace(msg)
	msg = strings.TrimSpace(msg)
	if msg == "" {
		msg = "Unknown error"
	}
	return Clean("flowchart TD\n  Error[\"" + msg + "\"]")
}

// Clean is Sanitize without the diagnostics.
func Clean(raw string) string {
	return Sanitize(raw).Diagram
}

// Sanitize repairs raw model output. It is total and idempotent on its own
// output.
func Sanitize(raw string) Result {
	res := sanitizeOnce(raw)
	for i := 1; i < maxPasses; i++ {
		next := sanitizeOnce(res.Diagram).Diagram
		if next == res.Diagram {
			break
		}
		res.Diagram = next
	}
	return res
}

func sanitizeOnce(raw string) Result {
	body := Extract(raw)
	if header, kind, ok := nonFlowchart(body); ok {
		return verbatim(body, header, kind)
	}

	doc := Parse(body)
	if nodes, edges := doc.counts(); nodes == 0 && edges == 0 {
		return Result{Diagram: fallbackDiagram, Kind: KindFlowchart, Fallback: true}
	}
	if doc.Complex() {
		out, ok := doc.Reconstruct()
		if !ok {
			return Result{Diagram: fallbackDiagram, Kind: KindFlowchart, Complex: true, Fallback: true}
		}
		return Result{Diagram: render(out), Kind: KindFlowchart, Complex: true}
	}
	return Result{Diagram: render(doc.Patch()), Kind: KindFlowchart}
}

func render(d *Document) string {
	d.InjectStyles()
	return d.String()
}

// nonFlowchart reports whether body declares one of the diagram types that
// are passed through line by line.
func nonFlowchart(body string) (header string, kind Kind, ok bool) {
	for _, line := range strings.Split(body, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		kw := leadingKeyword(line)
		switch kw {
		case "", "flowchart", "graph":
			return "", "", false
		}
		// Anything glued to the keyword stays in the body and is repaired
		// with it.
		rest := strings.TrimSpace(line)[len(kw):]
		return kw + reVersion.FindString(rest), Kind(kw), true
	}
	return "", "", false
}

// verbatim keeps the body of a non-flowchart diagram, fixing only arrow
// spacing, trailing blanks and open labels.
func verbatim(body, header string, kind Kind) Result {
	lines := strings.Split(body, "\n")
	start := 0
	for strings.TrimSpace(lines[start]) == "" {
		start++
	}
	first := strings.TrimSpace(lines[start])
	rest := append([]string{strings.TrimSpace(strings.TrimPrefix(first, header))}, lines[start+1:]...)

	var out []string
	blank := false
	for _, l := range rest {
		l = strings.TrimRight(l, " \t")
		if l == "" {
			blank = len(out) > 0
			continue
		}
		if blank {
			out = append(out, "")
			blank = false
		}
		l = reSpacedHead.ReplaceAllString(l, "$1>")
		out = append(out, closeOpenLabels(l))
	}
	if len(out) == 0 {
		return Result{Diagram: fallbackDiagram, Kind: KindFlowchart, Fallback: true}
	}
	return Result{Diagram: header + "\n" + strings.Join(out, "\n") + "\n", Kind: kind}
}

func skeleton() *Document {
	node := func(id, label string) Statement {
		return NodeStmt{Vertex: Vertex{ID: id, Label: label, HasLabel: true}}
	}
	edge := func(from, to string) Statement {
		return EdgeStmt{Groups: [][]Vertex{{{ID: from}}, {{ID: to}}}, Links: []Link{{Arrow: "-->"}}}
	}
	return &Document{
		Header: &HeaderStmt{Keyword: "flowchart", Direction: "TD"},
		Statements: []Statement{
			node("App", "Application"),
			node("FE", "Frontend"),
			node("BE", "Backend"),
			node("DB", "Database"),
			edge("App", "FE"),
			edge("App", "BE"),
			edge("BE", "DB"),
		},
	}
}
