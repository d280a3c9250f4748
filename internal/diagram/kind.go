package diagram

import (
	"regexp"
	"strings"
)

// Kind is the Mermaid diagram type suggested to the model for a file.
type Kind string

const (
	Flowchart Kind = "flowchart"
	Sequence  Kind = "sequenceDiagram"
	Class     Kind = "classDiagram"
	State     Kind = "stateDiagram"
)

var (
	reClass   = regexp.MustCompile(`(?m)^\s*(export\s+)?(public\s+|abstract\s+|final\s+|data\s+)*(class|interface|struct|trait)\s+\w+`)
	reCase    = regexp.MustCompile(`\bcase\b`)
	reState   = regexp.MustCompile(`(?i)\b(state|status|transition|reducer|usereducer|dispatch|fsm|machine)\b`)
	reCalls   = regexp.MustCompile(`\b(fetch|axios|await|request|emit|publish|subscribe|send|invoke|http\.\w+)\s*\(|\bawait\s`)
	reGoTypes = regexp.MustCompile(`(?m)^type\s+\w+\s+(struct|interface)\b`)
)

// ChooseKind picks a diagram type by rule of thumb: state machines become
// state diagrams, call-heavy code a sequence diagram, type-heavy code a class
// diagram and everything else a flowchart.
func ChooseKind(content string) Kind {
	cases := len(reCase.FindAllStringIndex(content, -1))
	states := len(reState.FindAllStringIndex(content, -1))
	if cases >= 3 && states >= 2 {
		return State
	}
	if len(reCalls.FindAllStringIndex(content, -1)) >= 4 {
		return Sequence
	}
	types := len(reClass.FindAllStringIndex(content, -1)) + len(reGoTypes.FindAllStringIndex(content, -1))
	if types >= 2 {
		return Class
	}
	return Flowchart
}

func (k Kind) String() string { return string(k) }

// header returns the diagram declaration line for k.
func (k Kind) header() string {
	if k == Flowchart {
		return "flowchart TD"
	}
	return strings.TrimSpace(string(k))
}
