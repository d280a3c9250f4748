package mermaid

import (
	"regexp"
	"strings"
)

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokLabel           // [ ... ]; text holds the interior
	tokShape           // ( ... ) or { ... }; text holds the raw shape
	tokArrow
	tokPipe // |text|; text holds the interior
	tokAmp
	tokSemi
	tokText
)

type token struct {
	kind tokenKind
	text string
	// open is set on labels and shapes that ran to end of line unclosed.
	open bool
	// spaced is set when whitespace preceded the token.
	spaced bool
}

var reArrow = regexp.MustCompile(`^<?(?:-+>|-{2,}|={2,}>?|-\.+->?)$`)

func isIdentByte(c byte) bool {
	return c == '_' || ('0' <= c && c <= '9') || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isArrowByte(c byte) bool {
	return c == '-' || c == '=' || c == '.' || c == '<' || c == '>'
}

func isSpace(c byte) bool { return c == ' ' || c == '\t' }

func isStructural(c byte) bool {
	return isSpace(c) || isIdentByte(c) || isArrowByte(c) || strings.IndexByte("[](){}|&;", c) >= 0
}

// lexLine splits one physical line into tokens. It never fails: bytes it
// cannot classify become text tokens.
func lexLine(s string) []token {
	var toks []token
	spaced := false
	for i := 0; i < len(s); {
		c := s[i]
		if isSpace(c) {
			spaced = true
			i++
			continue
		}
		tok := token{spaced: spaced}
		switch {
		case isIdentByte(c):
			j := i
			for j < len(s) && isIdentByte(s[j]) {
				j++
			}
			tok.kind, tok.text = tokIdent, s[i:j]
			i = j
		case c == '[':
			inner, n, open := scanBalanced(s[i:], '[', ']')
			tok.kind, tok.text, tok.open = tokLabel, inner, open
			i += n
		case c == '(' || c == '{':
			closer := byte(')')
			if c == '{' {
				closer = '}'
			}
			_, n, open := scanBalanced(s[i:], c, closer)
			tok.kind, tok.text, tok.open = tokShape, s[i:i+n], open
			i += n
		case c == '|':
			end := strings.IndexByte(s[i+1:], '|')
			if end < 0 {
				tok.kind, tok.text = tokText, s[i:]
				i = len(s)
				break
			}
			tok.kind, tok.text = tokPipe, s[i+1:i+1+end]
			i += end + 2
		case c == '&':
			tok.kind, tok.text = tokAmp, "&"
			i++
		case c == ';':
			tok.kind, tok.text = tokSemi, ";"
			i++
		case isArrowByte(c):
			arrow, n := scanArrow(s[i:])
			if reArrow.MatchString(arrow) {
				tok.kind, tok.text = tokArrow, arrow
			} else {
				tok.kind, tok.text = tokText, s[i:i+n]
			}
			i += n
		default:
			j := i + 1
			for j < len(s) && !isStructural(s[j]) {
				j++
			}
			tok.kind, tok.text = tokText, s[i:j]
			i = j
		}
		toks = append(toks, tok)
		spaced = false
	}
	return toks
}

// scanBalanced consumes a bracketed run starting at s[0] == open. It returns
// the interior, the number of bytes consumed and whether the run was left
// unclosed at end of input.
func scanBalanced(s string, open, closer byte) (string, int, bool) {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case open:
			depth++
		case closer:
			depth--
			if depth == 0 {
				return s[1:i], i + 1, false
			}
		}
	}
	return s[1:], len(s), true
}

// scanArrow consumes arrow bytes, collapsing whitespace that splits a shaft
// from its head ("--  >" reads as "-->").
func scanArrow(s string) (string, int) {
	var b strings.Builder
	i := 0
	for i < len(s) {
		c := s[i]
		if isArrowByte(c) {
			b.WriteByte(c)
			i++
			continue
		}
		if isSpace(c) {
			j := i
			for j < len(s) && isSpace(s[j]) {
				j++
			}
			cur := b.String()
			if j < len(s) && s[j] == '>' && strings.ContainsAny(cur, "-=") && !strings.HasSuffix(cur, ">") {
				i = j
				continue
			}
		}
		break
	}
	return b.String(), i
}

// canonicalArrow rewrites single-dash heads to the shortest valid link.
func canonicalArrow(a string) string {
	switch a {
	case "->":
		return "-->"
	case "<->":
		return "<-->"
	case "--":
		return "---"
	case "==":
		return "==="
	}
	return a
}
