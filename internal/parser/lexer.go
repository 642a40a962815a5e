package parser

import "strings"

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokKeyword
	tokNumber
	tokString
	tokPlaceholderQ      // ?
	tokPlaceholderNum    // $1, $2, ...
	tokPunct             // ( ) , . ; = < > !
	tokStar
	tokEOF
)

type token struct {
	kind tokenKind
	text string
	num  int // for tokPlaceholderNum
}

var keywords = map[string]bool{
	"select": true, "insert": true, "update": true, "delete": true,
	"from": true, "where": true, "into": true, "values": true, "set": true,
	"and": true, "or": true, "null": true, "not": true,
}

// lexer splits a single SQL statement's text into tokens. It is
// deliberately small: just enough lexical structure (identifiers,
// numbers, quoted strings, placeholders, punctuation) for the recursive
// descent parser in parser.go to build the narrow AST this repository
// needs.
type lexer struct {
	src []rune
	pos int
}

func newLexer(src string) *lexer { return &lexer{src: []rune(src)} }

func (l *lexer) peekRune() (rune, bool) {
	if l.pos >= len(l.src) {
		return 0, false
	}
	return l.src[l.pos], true
}

func (l *lexer) lex() []token {
	var toks []token
	for {
		l.skipSpace()
		r, ok := l.peekRune()
		if !ok {
			toks = append(toks, token{kind: tokEOF})
			return toks
		}
		switch {
		case r == '?':
			l.pos++
			toks = append(toks, token{kind: tokPlaceholderQ, text: "?"})
		case r == '$':
			l.pos++
			start := l.pos
			for {
				rr, ok := l.peekRune()
				if !ok || rr < '0' || rr > '9' {
					break
				}
				l.pos++
			}
			numText := string(l.src[start:l.pos])
			toks = append(toks, token{kind: tokPlaceholderNum, text: "$" + numText, num: atoi(numText)})
		case r == '\'':
			toks = append(toks, l.lexString())
		case isDigit(r):
			toks = append(toks, l.lexNumber())
		case isIdentStart(r):
			toks = append(toks, l.lexIdentOrKeyword())
		case r == '*':
			l.pos++
			toks = append(toks, token{kind: tokStar, text: "*"})
		case strings.ContainsRune("(),.;=<>!", r):
			toks = append(toks, l.lexPunct())
		default:
			l.pos++ // skip unknown rune rather than hang
		}
	}
}

func (l *lexer) skipSpace() {
	for {
		r, ok := l.peekRune()
		if !ok || (r != ' ' && r != '\t' && r != '\n' && r != '\r') {
			return
		}
		l.pos++
	}
}

func (l *lexer) lexString() token {
	l.pos++ // opening quote
	var b strings.Builder
	for {
		r, ok := l.peekRune()
		if !ok {
			break
		}
		if r == '\'' {
			l.pos++
			nr, ok := l.peekRune()
			if ok && nr == '\'' {
				b.WriteRune('\'')
				l.pos++
				continue
			}
			break
		}
		b.WriteRune(r)
		l.pos++
	}
	return token{kind: tokString, text: b.String()}
}

func (l *lexer) lexNumber() token {
	start := l.pos
	for {
		r, ok := l.peekRune()
		if !ok || (!isDigit(r) && r != '.') {
			break
		}
		l.pos++
	}
	return token{kind: tokNumber, text: string(l.src[start:l.pos])}
}

func (l *lexer) lexIdentOrKeyword() token {
	start := l.pos
	for {
		r, ok := l.peekRune()
		if !ok || !isIdentPart(r) {
			break
		}
		l.pos++
	}
	text := string(l.src[start:l.pos])
	lower := strings.ToLower(text)
	if keywords[lower] {
		return token{kind: tokKeyword, text: lower}
	}
	return token{kind: tokIdent, text: text}
}

func (l *lexer) lexPunct() token {
	r := l.src[l.pos]
	l.pos++
	if (r == '!' || r == '<' || r == '>') && l.pos < len(l.src) && l.src[l.pos] == '=' {
		l.pos++
		return token{kind: tokPunct, text: string(r) + "="}
	}
	return token{kind: tokPunct, text: string(r)}
}

func isDigit(r rune) bool      { return r >= '0' && r <= '9' }
func isIdentStart(r rune) bool { return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') }
func isIdentPart(r rune) bool  { return isIdentStart(r) || isDigit(r) }

func atoi(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}
