package mermaid

import (
	"strings"
)

// Keywords lists the diagram-type declarations the sanitizer recognizes.
var Keywords = []string{"flowchart", "graph", "sequenceDiagram", "classDiagram", "stateDiagram", "erDiagram"}

// Extract pulls the diagram text out of a model response. A fenced block
// wins; otherwise the text runs from the first line that starts with a
// diagram keyword; otherwise the whole input is returned.
func Extract(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	lines := strings.Split(text, "\n")

	for i, line := range lines {
		if !strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		body := lines[i+1:]
		for j, l := range body {
			if strings.HasPrefix(strings.TrimSpace(l), "```") {
				body = body[:j]
				break
			}
		}
		return strings.Join(body, "\n")
	}

	for i, line := range lines {
		if leadingKeyword(line) != "" {
			return strings.Join(lines[i:], "\n")
		}
	}
	return text
}

// leadingKeyword returns the keyword a line starts with, or "".
func leadingKeyword(line string) string {
	s := strings.TrimSpace(line)
	for _, kw := range Keywords {
		if !strings.HasPrefix(s, kw) {
			continue
		}
		if len(s) == len(kw) || !isIdentByte(s[len(kw)]) {
			return kw
		}
	}
	return ""
}
