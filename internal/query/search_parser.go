package query

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

// SearchOp is the kind of a node in a parsed $search expression.
type SearchOp int

const (
	SearchTerm   SearchOp = iota // single word
	SearchPhrase                 // quoted phrase
	SearchAnd
	SearchOr
	SearchNot
)

func (op SearchOp) String() string {
	switch op {
	case SearchTerm:
		return "term"
	case SearchPhrase:
		return "phrase"
	case SearchAnd:
		return "and"
	case SearchOr:
		return "or"
	case SearchNot:
		return "not"
	}
	return "unknown"
}

// SearchExpr is a node in a parsed $search expression. The grammar is
//
//	searchExpr = orExpr
//	orExpr     = andExpr ("OR" andExpr)*
//	andExpr    = notExpr (["AND"] notExpr)*
//	notExpr    = "NOT" notExpr | primary
//	primary    = DQUOTE phrase DQUOTE | "(" orExpr ")" | term
//
// Terms and phrases are case-folded.
type SearchExpr struct {
	Op    SearchOp
	Term  string
	Left  *SearchExpr
	Right *SearchExpr
}

// String renders the expression in canonical form with explicit operators.
func (e *SearchExpr) String() string {
	if e == nil {
		return ""
	}
	switch e.Op {
	case SearchTerm:
		return e.Term
	case SearchPhrase:
		return `"` + e.Term + `"`
	case SearchAnd:
		return wrapSearch(e.Left, SearchAnd) + " AND " + wrapSearch(e.Right, SearchAnd)
	case SearchOr:
		return e.Left.String() + " OR " + e.Right.String()
	case SearchNot:
		return "NOT " + wrapSearch(e.Left, SearchNot)
	}
	return ""
}

func wrapSearch(e *SearchExpr, parent SearchOp) string {
	if e.Op == SearchOr || parent == SearchNot && e.Op == SearchAnd {
		return "(" + e.String() + ")"
	}
	return e.String()
}

// Terms returns the terms and phrases of the expression in order,
// including negated ones.
func (e *SearchExpr) Terms() []string {
	if e == nil {
		return nil
	}
	switch e.Op {
	case SearchTerm, SearchPhrase:
		return []string{e.Term}
	}
	return append(e.Left.Terms(), e.Right.Terms()...)
}

// Match evaluates the expression against text using substring matching on
// the case-folded text.
func (e *SearchExpr) Match(text string) bool {
	return e.match(cases.Fold().String(text))
}

func (e *SearchExpr) match(folded string) bool {
	if e == nil {
		return true
	}
	switch e.Op {
	case SearchTerm, SearchPhrase:
		return strings.Contains(folded, e.Term)
	case SearchAnd:
		return e.Left.match(folded) && e.Right.match(folded)
	case SearchOr:
		return e.Left.match(folded) || e.Right.match(folded)
	case SearchNot:
		return !e.Left.match(folded)
	}
	return false
}

// ParseSearch parses a $search value. Empty input, unbalanced parentheses and
// dangling operators are syntax errors.
func ParseSearch(query string) (*SearchExpr, error) {
	return parseSearch(OptionSearch, query)
}

func parseSearch(option, query string) (*SearchExpr, error) {
	if strings.TrimSpace(query) == "" {
		return nil, &SyntaxError{Option: option, Message: errEmptySearch.Error()}
	}
	toks, err := tokenizeSearch(option, query)
	if err != nil {
		return nil, err
	}
	p := &searchParser{option: option, tokens: toks, fold: cases.Fold()}
	node, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.typ != sTokEOF {
		return nil, p.unexpected(tok, "AND", "OR", "NOT", "EOF")
	}
	return node, nil
}

type searchTokType int

const (
	sTokEOF    searchTokType = iota
	sTokTerm                 // any word that is not a keyword
	sTokPhrase               // "quoted phrase"
	sTokAND
	sTokOR
	sTokNOT
	sTokLParen
	sTokRParen
)

type searchTok struct {
	typ  searchTokType
	text string
	pos  int
}

func tokenizeSearch(option, input string) ([]searchTok, error) {
	var toks []searchTok
	i := 0
	n := len(input)

	for i < n {
		if input[i] == ' ' || input[i] == '\t' {
			i++
			continue
		}

		switch input[i] {
		case '(':
			toks = append(toks, searchTok{typ: sTokLParen, text: "(", pos: i})
			i++
		case ')':
			toks = append(toks, searchTok{typ: sTokRParen, text: ")", pos: i})
			i++
		case '"':
			start := i
			i++
			var b strings.Builder
			closed := false
			for i < n {
				if input[i] == '\\' && i+1 < n {
					b.WriteByte(input[i+1])
					i += 2
					continue
				}
				if input[i] == '"' {
					closed = true
					i++
					break
				}
				b.WriteByte(input[i])
				i++
			}
			if !closed {
				return nil, &SyntaxError{Option: option, Token: input[start:], Pos: start, Message: "unterminated phrase"}
			}
			if strings.TrimSpace(b.String()) == "" {
				return nil, &SyntaxError{Option: option, Token: `""`, Pos: start, Message: "empty phrase"}
			}
			toks = append(toks, searchTok{typ: sTokPhrase, text: b.String(), pos: start})
		default:
			start := i
			for i < n && !unicode.IsSpace(rune(input[i])) && input[i] != '(' && input[i] != ')' && input[i] != '"' {
				i++
			}
			word := input[start:i]
			tok := searchTok{typ: sTokTerm, text: word, pos: start}
			switch word {
			case "AND":
				tok.typ = sTokAND
			case "OR":
				tok.typ = sTokOR
			case "NOT":
				tok.typ = sTokNOT
			}
			toks = append(toks, tok)
		}
	}

	return append(toks, searchTok{typ: sTokEOF, pos: n}), nil
}

type searchParser struct {
	option string
	tokens []searchTok
	pos    int
	fold   cases.Caser
}

func (p *searchParser) peek() searchTok {
	return p.tokens[p.pos]
}

func (p *searchParser) consume() searchTok {
	tok := p.peek()
	if tok.typ != sTokEOF {
		p.pos++
	}
	return tok
}

func (p *searchParser) unexpected(tok searchTok, expected ...string) *SyntaxError {
	return &SyntaxError{Option: p.option, Token: tok.text, Pos: tok.pos, Expected: sortExpected(expected)}
}

// parseOr handles:  andExpr ("OR" andExpr)*
func (p *searchParser) parseOr() (*SearchExpr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().typ == sTokOR {
		p.consume()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &SearchExpr{Op: SearchOr, Left: left, Right: right}
	}
	return left, nil
}

// parseAnd handles:  notExpr (["AND"] notExpr)*
func (p *searchParser) parseAnd() (*SearchExpr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for {
		switch p.peek().typ {
		case sTokAND:
			p.consume()
		case sTokTerm, sTokPhrase, sTokNOT, sTokLParen:
		default:
			return left, nil
		}
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &SearchExpr{Op: SearchAnd, Left: left, Right: right}
	}
}

// parseNot handles:  "NOT" notExpr | primary
func (p *searchParser) parseNot() (*SearchExpr, error) {
	if p.peek().typ != sTokNOT {
		return p.parsePrimary()
	}
	p.consume()
	operand, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	return &SearchExpr{Op: SearchNot, Left: operand}, nil
}

// parsePrimary handles: DQUOTE phrase DQUOTE | "(" orExpr ")" | term
func (p *searchParser) parsePrimary() (*SearchExpr, error) {
	tok := p.peek()
	switch tok.typ {
	case sTokPhrase:
		p.consume()
		return &SearchExpr{Op: SearchPhrase, Term: p.fold.String(tok.text)}, nil
	case sTokTerm:
		p.consume()
		return &SearchExpr{Op: SearchTerm, Term: p.fold.String(tok.text)}, nil
	case sTokLParen:
		p.consume()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if closing := p.peek(); closing.typ != sTokRParen {
			return nil, p.unexpected(closing, ")", "AND", "OR", "NOT")
		}
		p.consume()
		return inner, nil
	}
	return nil, p.unexpected(tok, "(", "NOT", "phrase", "term")
}
