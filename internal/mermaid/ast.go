package mermaid

// Statement is one flowchart statement. The concrete types below form the
// subset of the grammar the sanitizer understands; anything else is kept as
// RawStmt.
type Statement interface {
	statement()
}

// Vertex is a node reference, optionally carrying a bracket label or another
// shape.
type Vertex struct {
	ID       string
	Label    string // bracket interior, unprocessed
	HasLabel bool
	Shape    string // raw "(...)" or "{...}" shape
	Open     bool   // label or shape was not closed on its line
}

// Link joins two vertex groups.
type Link struct {
	Arrow    string
	Label    string
	HasLabel bool
}

type HeaderStmt struct {
	Keyword   string
	Direction string
}

type NodeStmt struct {
	Vertex Vertex
}

// EdgeStmt is a chain such as "A --> B & C --> D". len(Links) == len(Groups)-1.
type EdgeStmt struct {
	Groups [][]Vertex
	Links  []Link
}

type SubgraphStmt struct {
	Title  string
	Vertex *Vertex
}

type EndStmt struct{}

// StyleStmt covers classDef, class, style, linkStyle, click and direction.
type StyleStmt struct {
	Text string
}

type CommentStmt struct {
	Text string
}

type RawStmt struct {
	Text string
}

func (HeaderStmt) statement()   {}
func (NodeStmt) statement()     {}
func (EdgeStmt) statement()     {}
func (SubgraphStmt) statement() {}
func (EndStmt) statement()      {}
func (StyleStmt) statement()    {}
func (CommentStmt) statement()  {}
func (RawStmt) statement()      {}

// Document is a parsed flowchart.
type Document struct {
	Header     *HeaderStmt
	Statements []Statement
	// Merged reports a physical line that carried several labelled node
	// declarations with no separator between them.
	Merged bool
}

// labelled reports whether the vertex declares a label or shape.
func (v Vertex) labelled() bool { return v.HasLabel || v.Shape != "" }

// vertices returns every vertex referenced by the statement.
func vertices(st Statement) []Vertex {
	switch s := st.(type) {
	case NodeStmt:
		return []Vertex{s.Vertex}
	case EdgeStmt:
		var out []Vertex
		for _, g := range s.Groups {
			out = append(out, g...)
		}
		return out
	case SubgraphStmt:
		if s.Vertex != nil {
			return []Vertex{*s.Vertex}
		}
	}
	return nil
}
