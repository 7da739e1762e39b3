package query

import (
	"sort"
	"strings"
)

// TokenClass groups expected-token displays for error reporting.
type TokenClass int

const (
	ClassSeparator TokenClass = iota
	ClassBracket
	ClassSpecial
	ClassOperator
	ClassKeyword
	ClassEOF
)

var operatorWords = map[string]bool{
	"eq": true, "ne": true, "gt": true, "ge": true, "lt": true, "le": true, "has": true, "in": true,
	"and": true, "or": true, "not": true,
	"add": true, "sub": true, "mul": true, "div": true, "divby": true, "mod": true,
}

// tokenClass orders expected-token displays: separators, brackets, special
// characters, operators, keywords, end of input.
func tokenClass(display string) TokenClass {
	switch display {
	case ",", ";", "/", ":":
		return ClassSeparator
	case "(", ")":
		return ClassBracket
	case "=", "*", "-", "@alias":
		return ClassSpecial
	case "EOF":
		return ClassEOF
	}
	if operatorWords[display] {
		return ClassOperator
	}
	return ClassKeyword
}

func sortExpected(displays []string) []string {
	seen := make(map[string]bool, len(displays))
	out := make([]string, 0, len(displays))
	for _, d := range displays {
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		ci, cj := tokenClass(out[i]), tokenClass(out[j])
		if ci != cj {
			return ci < cj
		}
		return out[i] < out[j]
	})
	return out
}

// Cursor is an immutable snapshot of a stream position used for backtracking.
type Cursor struct {
	index int
}

// TokenStream is a cursor over the tokens of one option value. Failed
// expectations are remembered at the furthest position reached so that
// syntax errors name every alternative the grammar would have accepted.
type TokenStream struct {
	option   string
	input    string
	tokens   []*Token
	index    int
	furthest int
	expected []string
}

// NewTokenStream tokenizes input eagerly.
func NewTokenStream(option, input string) (*TokenStream, error) {
	tokens, err := cachedTokens(option, input)
	if err != nil {
		return nil, err
	}
	return &TokenStream{option: option, input: input, tokens: tokens, furthest: -1}, nil
}

// Option returns the name of the option being parsed.
func (s *TokenStream) Option() string {
	return s.option
}

// Peek returns the current token without consuming it.
func (s *TokenStream) Peek() *Token {
	return s.tokens[s.index]
}

// PeekAt returns the token n positions ahead of the current one.
func (s *TokenStream) PeekAt(n int) *Token {
	if s.index+n >= len(s.tokens) {
		return s.tokens[len(s.tokens)-1]
	}
	return s.tokens[s.index+n]
}

// Pos returns the input offset of the current token.
func (s *TokenStream) Pos() int {
	return s.Peek().Pos
}

// Text returns the value of the most recently consumed token.
func (s *TokenStream) Text() string {
	return s.Last().Value
}

// Last returns the most recently consumed token.
func (s *TokenStream) Last() *Token {
	if s.index == 0 {
		return s.tokens[0]
	}
	return s.tokens[s.index-1]
}

// AtEOF reports whether all tokens were consumed.
func (s *TokenStream) AtEOF() bool {
	return s.Peek().Type == TokenEOF
}

// Mark captures the current position.
func (s *TokenStream) Mark() Cursor {
	return Cursor{index: s.index}
}

// Reset rewinds the stream to a captured position.
func (s *TokenStream) Reset(c Cursor) {
	s.index = c.index
}

func (s *TokenStream) advance() {
	if s.index < len(s.tokens)-1 {
		s.index++
	}
}

func (s *TokenStream) expect(display string) {
	switch {
	case s.index > s.furthest:
		s.furthest = s.index
		s.expected = []string{display}
	case s.index == s.furthest:
		s.expected = append(s.expected, display)
	}
}

// Next consumes the current token if it has the given type.
func (s *TokenStream) Next(kind TokenType) bool {
	if s.Peek().Type == kind {
		s.advance()
		return true
	}
	s.expect(kind.String())
	return false
}

// NextKeyword consumes the current token if it is the given word. Keywords
// are matched by grammar position so reserved words remain usable as names.
func (s *TokenStream) NextKeyword(word string) bool {
	t := s.Peek()
	if t.Type == TokenWord && t.Value == word {
		s.advance()
		return true
	}
	s.expect(word)
	return false
}

// Require consumes a token of the given type or fails with a syntax error.
func (s *TokenStream) Require(kind TokenType) error {
	if s.Next(kind) {
		return nil
	}
	return s.SyntaxError()
}

// RequireKeyword consumes the given word or fails with a syntax error.
func (s *TokenStream) RequireKeyword(word string) error {
	if s.NextKeyword(word) {
		return nil
	}
	return s.SyntaxError()
}

// RequireWord consumes any identifier and returns it.
func (s *TokenStream) RequireWord() (string, error) {
	if s.Next(TokenWord) {
		return s.Text(), nil
	}
	return "", s.SyntaxError()
}

// SyntaxError builds an error for the current token listing the expected
// alternatives recorded at the furthest position.
func (s *TokenStream) SyntaxError() *SyntaxError {
	at := s.Peek()
	var expected []string
	if s.furthest >= s.index {
		at = s.tokens[s.furthest]
		expected = sortExpected(s.expected)
	}
	token := at.Value
	if at.Type == TokenString {
		token = "'" + strings.ReplaceAll(at.Value, "'", "''") + "'"
	}
	return &SyntaxError{Option: s.option, Token: token, Pos: at.Pos, Expected: expected}
}

// RawUntilClose returns the raw input between the current position and the
// parenthesis closing an already consumed '(' and leaves the stream on that
// closing parenthesis.
func (s *TokenStream) RawUntilClose() (string, error) {
	start := s.Peek().Pos
	depth := 0
	for {
		t := s.Peek()
		switch t.Type {
		case TokenEOF:
			s.expect(TokenRParen.String())
			return "", s.SyntaxError()
		case TokenLParen:
			depth++
		case TokenRParen:
			if depth == 0 {
				return strings.TrimSpace(s.input[start:t.Pos]), nil
			}
			depth--
		}
		s.advance()
	}
}
