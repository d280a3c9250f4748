package mermaid

import (
	"strings"
)

var directions = map[string]bool{"TD": true, "TB": true, "BT": true, "RL": true, "LR": true}

var styleKeywords = map[string]bool{
	"classDef":  true,
	"class":     true,
	"style":     true,
	"linkStyle": true,
	"click":     true,
	"direction": true,
}

// Parse reads flowchart text into a Document. It is total: lines it cannot
// read become RawStmt.
func Parse(text string) *Document {
	doc := &Document{}
	for _, line := range strings.Split(text, "\n") {
		stmts, merged := parseLine(line)
		if merged {
			doc.Merged = true
		}
		for _, st := range stmts {
			if h, ok := st.(HeaderStmt); ok {
				if doc.Header == nil {
					hh := h
					doc.Header = &hh
				}
				continue
			}
			doc.Statements = append(doc.Statements, st)
		}
	}
	return doc
}

func parseLine(line string) ([]Statement, bool) {
	text := strings.TrimSpace(line)
	if text == "" {
		return nil, false
	}
	if strings.HasPrefix(text, "%%") {
		return []Statement{CommentStmt{Text: text}}, false
	}
	toks := lexLine(text)
	if len(toks) == 0 {
		return nil, false
	}
	first := toks[0]
	if first.kind == tokIdent {
		switch {
		case first.text == "flowchart" || first.text == "graph":
			h := HeaderStmt{Keyword: first.text, Direction: "TD"}
			rest := toks[1:]
			dir := ""
			if len(rest) > 0 && rest[0].kind == tokIdent && directions[rest[0].text] {
				h.Direction, dir = rest[0].text, rest[0].text
				rest = rest[1:]
			}
			if len(rest) > 0 && rest[0].kind == tokSemi {
				rest = rest[1:]
			}
			out := []Statement{h}
			if len(rest) == 0 {
				return out, false
			}
			stmts, merged := parseTokens(rest, headerRemainder(text, first.text, dir))
			return append(out, stmts...), merged
		case first.text == "subgraph":
			return []Statement{parseSubgraph(strings.TrimSpace(strings.TrimPrefix(text, "subgraph")))}, false
		case first.text == "end" && len(toks) == 1:
			return []Statement{EndStmt{}}, false
		case styleKeywords[first.text] && len(toks) > 1 && toks[1].spaced:
			return []Statement{StyleStmt{Text: text}}, false
		}
	}
	return parseTokens(toks, text)
}

// headerRemainder returns the text that follows "keyword [direction]".
func headerRemainder(text, keyword, direction string) string {
	rest := strings.TrimSpace(strings.TrimPrefix(text, keyword))
	if direction != "" {
		rest = strings.TrimSpace(strings.TrimPrefix(rest, direction))
	}
	return strings.TrimSpace(strings.TrimPrefix(rest, ";"))
}

func parseSubgraph(title string) Statement {
	st := SubgraphStmt{Title: title}
	toks := lexLine(title)
	if len(toks) >= 2 && toks[0].kind == tokIdent && toks[1].kind == tokLabel {
		st.Vertex = &Vertex{ID: toks[0].text, Label: toks[1].text, HasLabel: true, Open: toks[1].open}
	}
	return st
}

// parseTokens reads one or more semicolon- or adjacency-separated node and
// edge statements. Any token it cannot place turns the whole line into a
// RawStmt carrying raw.
func parseTokens(toks []token, raw string) ([]Statement, bool) {
	var out []Statement
	merged := false
	segments, labelled, bare := 0, 0, false
	flush := func() {
		if segments > 1 && labelled >= 2 {
			merged = true
		}
		segments, labelled, bare = 0, 0, false
	}
	p := &tokenParser{toks: toks}
	for !p.done() {
		if p.peek().kind == tokSemi {
			// Explicitly separated statements are not merged declarations.
			p.pos++
			flush()
			continue
		}
		st, ok := p.statement()
		if !ok {
			return []Statement{RawStmt{Text: raw}}, false
		}
		segments++
		if n, ok := st.(NodeStmt); ok && !n.Vertex.labelled() {
			bare = true
		}
		for _, v := range vertices(st) {
			if v.labelled() {
				labelled++
			}
		}
		// Adjacent bare words are prose, not node declarations.
		if segments > 1 && bare {
			return []Statement{RawStmt{Text: raw}}, false
		}
		out = append(out, st)
	}
	flush()
	return out, merged
}

type tokenParser struct {
	toks []token
	pos  int
}

func (p *tokenParser) done() bool { return p.pos >= len(p.toks) }

func (p *tokenParser) peek() token {
	if p.done() {
		return token{kind: -1}
	}
	return p.toks[p.pos]
}

func (p *tokenParser) statement() (Statement, bool) {
	g, ok := p.group()
	if !ok {
		return nil, false
	}
	edge := EdgeStmt{Groups: [][]Vertex{g}}
	for p.peek().kind == tokArrow {
		l, ok := p.link()
		if !ok {
			return nil, false
		}
		next, ok := p.group()
		if !ok {
			return nil, false
		}
		edge.Links = append(edge.Links, l)
		edge.Groups = append(edge.Groups, next)
	}
	if len(edge.Links) == 0 {
		if len(g) != 1 {
			return nil, false
		}
		return NodeStmt{Vertex: g[0]}, true
	}
	// A statement must end at a separator or at the start of a new vertex.
	if k := p.peek().kind; !p.done() && k != tokIdent && k != tokSemi {
		return nil, false
	}
	return edge, true
}

func (p *tokenParser) group() ([]Vertex, bool) {
	v, ok := p.vertex()
	if !ok {
		return nil, false
	}
	g := []Vertex{v}
	for p.peek().kind == tokAmp {
		p.pos++
		v, ok := p.vertex()
		if !ok {
			return nil, false
		}
		g = append(g, v)
	}
	return g, true
}

func (p *tokenParser) vertex() (Vertex, bool) {
	t := p.peek()
	if t.kind != tokIdent {
		return Vertex{}, false
	}
	p.pos++
	v := Vertex{ID: t.text}
	switch next := p.peek(); next.kind {
	case tokLabel:
		p.pos++
		v.Label, v.HasLabel, v.Open = next.text, true, next.open
	case tokShape:
		p.pos++
		v.Shape, v.Open = next.text, next.open
	}
	return v, true
}

func (p *tokenParser) link() (Link, bool) {
	a := p.peek()
	p.pos++
	l := Link{Arrow: canonicalArrow(a.text)}
	if a.text == "--" || a.text == "==" {
		// "A -- text --> B" carries its label between two arrow pieces.
		start := p.pos
		var words []string
		for !p.done() && (p.peek().kind == tokIdent || p.peek().kind == tokText) {
			words = append(words, p.peek().text)
			p.pos++
		}
		if len(words) > 0 && p.peek().kind == tokArrow {
			head := p.peek()
			p.pos++
			return Link{Arrow: canonicalArrow(head.text), Label: strings.Join(words, " "), HasLabel: true}, true
		}
		p.pos = start
	}
	if p.peek().kind == tokPipe {
		l.Label, l.HasLabel = strings.TrimSpace(p.peek().text), true
		p.pos++
	}
	return l, true
}
