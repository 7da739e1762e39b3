package query

import (
	"regexp"
	"strings"
	"unicode"
)

// TokenType represents the type of a token
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenWord
	TokenAlias
	TokenString
	TokenQuoted
	TokenInteger
	TokenDecimal
	TokenDouble
	TokenDate
	TokenDateTimeOffset
	TokenTimeOfDay
	TokenGuid
	TokenDuration
	TokenBinary
	TokenGeography
	TokenGeometry
	TokenEnum
	TokenLParen
	TokenRParen
	TokenComma
	TokenSlash
	TokenColon
	TokenEquals
	TokenStar
	TokenSemicolon
	TokenMinus
)

var tokenDisplay = map[TokenType]string{
	TokenEOF:            "EOF",
	TokenWord:           "identifier",
	TokenAlias:          "@alias",
	TokenString:         "string",
	TokenQuoted:         "quoted phrase",
	TokenInteger:        "integer",
	TokenDecimal:        "decimal",
	TokenDouble:         "double",
	TokenDate:           "date",
	TokenDateTimeOffset: "dateTimeOffset",
	TokenTimeOfDay:      "timeOfDay",
	TokenGuid:           "guid",
	TokenDuration:       "duration",
	TokenBinary:         "binary",
	TokenGeography:      "geography",
	TokenGeometry:       "geometry",
	TokenEnum:           "enum",
	TokenLParen:         "(",
	TokenRParen:         ")",
	TokenComma:          ",",
	TokenSlash:          "/",
	TokenColon:          ":",
	TokenEquals:         "=",
	TokenStar:           "*",
	TokenSemicolon:      ";",
	TokenMinus:          "-",
}

func (t TokenType) String() string {
	if s, ok := tokenDisplay[t]; ok {
		return s
	}
	return "unknown"
}

// Token represents a single token of a query option
type Token struct {
	Type  TokenType
	Value string
	Pos   int
	// Prefix holds the type prefix of typed literals such as duration'P1D'
	// or Ns.Color'Red'.
	Prefix string
}

var (
	guidRegex           = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)
	dateTimeOffsetRegex = regexp.MustCompile(`^-?\d{4,}-\d{2}-\d{2}T\d{2}:\d{2}(?::\d{2}(?:\.\d+)?)?(?:Z|[+-]\d{2}:\d{2})`)
	dateRegex           = regexp.MustCompile(`^-?\d{4,}-\d{2}-\d{2}`)
	timeOfDayRegex      = regexp.MustCompile(`^\d{2}:\d{2}(?::\d{2}(?:\.\d+)?)?`)
	numberRegex         = regexp.MustCompile(`^-?\d+(\.\d+)?([eE][+-]?\d+)?`)
)

// typedLiteralPrefixes maps lower-cased literal prefixes to their token type.
var typedLiteralPrefixes = map[string]TokenType{
	"duration":  TokenDuration,
	"binary":    TokenBinary,
	"geography": TokenGeography,
	"geometry":  TokenGeometry,
}

// Tokenizer tokenizes OData query option expressions
type Tokenizer struct {
	option string
	input  string
	pos    int
}

// NewTokenizer creates a new tokenizer. The option name is used in error messages.
func NewTokenizer(option, input string) *Tokenizer {
	return &Tokenizer{option: option, input: input}
}

func (t *Tokenizer) ch() byte {
	if t.pos >= len(t.input) {
		return 0
	}
	return t.input[t.pos]
}

func (t *Tokenizer) peek() byte {
	if t.pos+1 >= len(t.input) {
		return 0
	}
	return t.input[t.pos+1]
}

// skipWhitespace skips whitespace characters
func (t *Tokenizer) skipWhitespace() {
	for t.pos < len(t.input) {
		switch t.input[t.pos] {
		case ' ', '\t', '\n', '\r':
			t.pos++
		default:
			return
		}
	}
}

func (t *Tokenizer) syntaxError(pos int, token string) *SyntaxError {
	return &SyntaxError{Option: t.option, Token: token, Pos: pos}
}

// readQuoted reads a quoted literal starting at the current quote character.
// The quote is escaped by doubling it.
func (t *Tokenizer) readQuoted() (string, error) {
	start := t.pos
	quote := t.input[t.pos]
	t.pos++

	var result strings.Builder
	for t.pos < len(t.input) {
		c := t.input[t.pos]
		if c == quote {
			if t.peek() == quote {
				result.WriteByte(quote)
				t.pos += 2
				continue
			}
			t.pos++
			return result.String(), nil
		}
		result.WriteByte(c)
		t.pos++
	}

	err := t.syntaxError(start, t.input[start:])
	err.Message = "unterminated string literal"
	return "", err
}

func isWordStart(c byte) bool {
	return c == '_' || c == '$' || c >= 0x80 || unicode.IsLetter(rune(c))
}

func isWordChar(c byte) bool {
	return c == '_' || c == '.' || c >= 0x80 || unicode.IsLetter(rune(c)) || unicode.IsDigit(rune(c))
}

// atBoundary reports whether a match of length n ends at a token boundary.
func (t *Tokenizer) atBoundary(n int) bool {
	end := t.pos + n
	return end >= len(t.input) || !isWordChar(t.input[end])
}

// NextToken returns the next token
func (t *Tokenizer) NextToken() (*Token, error) {
	t.skipWhitespace()

	if t.pos >= len(t.input) {
		return &Token{Type: TokenEOF, Pos: t.pos}, nil
	}

	pos := t.pos
	rest := t.input[t.pos:]

	if token, err := t.tokenizeQuoted(pos); token != nil || err != nil {
		return token, err
	}

	if token := t.tokenizeTemporalOrGuid(pos, rest); token != nil {
		return token, nil
	}

	if token := t.tokenizeNumber(pos, rest); token != nil {
		return token, nil
	}

	if token := t.tokenizeSpecialChar(pos); token != nil {
		return token, nil
	}

	if token, err := t.tokenizeAlias(pos); token != nil || err != nil {
		return token, err
	}

	if token, err := t.tokenizeWord(pos); token != nil || err != nil {
		return token, err
	}

	return nil, t.syntaxError(pos, string(t.input[pos]))
}

// tokenizeQuoted tokenizes string literals and double-quoted search phrases
func (t *Tokenizer) tokenizeQuoted(pos int) (*Token, error) {
	c := t.ch()
	if c != '\'' && c != '"' {
		return nil, nil
	}
	value, err := t.readQuoted()
	if err != nil {
		return nil, err
	}
	if c == '"' {
		return &Token{Type: TokenQuoted, Value: value, Pos: pos}, nil
	}
	return &Token{Type: TokenString, Value: value, Pos: pos}, nil
}

// tokenizeTemporalOrGuid recognises date, dateTimeOffset, timeOfDay and guid
// literals, which must be tried before numbers and identifiers.
func (t *Tokenizer) tokenizeTemporalOrGuid(pos int, rest string) *Token {
	c := t.ch()
	isHex := unicode.IsDigit(rune(c)) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
	if isHex {
		if m := guidRegex.FindString(rest); m != "" && t.atBoundary(len(m)) {
			t.pos += len(m)
			return &Token{Type: TokenGuid, Value: m, Pos: pos}
		}
	}
	if !unicode.IsDigit(rune(c)) && !(c == '-' && unicode.IsDigit(rune(t.peek()))) {
		return nil
	}
	if m := dateTimeOffsetRegex.FindString(rest); m != "" && t.atBoundary(len(m)) {
		t.pos += len(m)
		return &Token{Type: TokenDateTimeOffset, Value: m, Pos: pos}
	}
	if m := dateRegex.FindString(rest); m != "" && t.atBoundary(len(m)) {
		t.pos += len(m)
		return &Token{Type: TokenDate, Value: m, Pos: pos}
	}
	if m := timeOfDayRegex.FindString(rest); m != "" && t.atBoundary(len(m)) {
		t.pos += len(m)
		return &Token{Type: TokenTimeOfDay, Value: m, Pos: pos}
	}
	return nil
}

// tokenizeNumber tokenizes numeric literals. A minus directly followed by a
// digit belongs to the literal.
func (t *Tokenizer) tokenizeNumber(pos int, rest string) *Token {
	c := t.ch()
	if !unicode.IsDigit(rune(c)) && !(c == '-' && unicode.IsDigit(rune(t.peek()))) {
		return nil
	}
	m := numberRegex.FindStringSubmatch(rest)
	if m == nil {
		return nil
	}
	t.pos += len(m[0])

	tokenType := TokenInteger
	switch {
	case m[2] != "":
		tokenType = TokenDouble
	case m[1] != "":
		tokenType = TokenDecimal
	}
	return &Token{Type: tokenType, Value: m[0], Pos: pos}
}

// tokenizeSpecialChar tokenizes punctuation
func (t *Tokenizer) tokenizeSpecialChar(pos int) *Token {
	var tokenType TokenType
	switch t.ch() {
	case '(':
		tokenType = TokenLParen
	case ')':
		tokenType = TokenRParen
	case ',':
		tokenType = TokenComma
	case '/':
		tokenType = TokenSlash
	case ':':
		tokenType = TokenColon
	case '=':
		tokenType = TokenEquals
	case '*':
		tokenType = TokenStar
	case ';':
		tokenType = TokenSemicolon
	case '-':
		tokenType = TokenMinus
	default:
		return nil
	}
	value := string(t.ch())
	t.pos++
	return &Token{Type: tokenType, Value: value, Pos: pos}
}

// tokenizeAlias tokenizes @name parameter aliases
func (t *Tokenizer) tokenizeAlias(pos int) (*Token, error) {
	if t.ch() != '@' {
		return nil, nil
	}
	t.pos++
	start := t.pos
	for t.pos < len(t.input) && isWordChar(t.input[t.pos]) {
		t.pos++
	}
	if t.pos == start {
		err := t.syntaxError(pos, "@")
		err.Message = "empty parameter alias name"
		return nil, err
	}
	return &Token{Type: TokenAlias, Value: t.input[start:t.pos], Pos: pos}, nil
}

// tokenizeWord tokenizes identifiers, qualified names and keywords. A word
// directly followed by a quote starts a typed literal.
func (t *Tokenizer) tokenizeWord(pos int) (*Token, error) {
	if !isWordStart(t.ch()) {
		return nil, nil
	}
	t.pos++
	for t.pos < len(t.input) && isWordChar(t.input[t.pos]) {
		t.pos++
	}
	word := t.input[pos:t.pos]

	if t.ch() != '\'' {
		return &Token{Type: TokenWord, Value: word, Pos: pos}, nil
	}

	tokenType, typed := typedLiteralPrefixes[strings.ToLower(word)]
	if !typed {
		if !strings.Contains(word, ".") {
			return nil, t.syntaxError(pos, word+"'")
		}
		tokenType = TokenEnum
	}
	value, err := t.readQuoted()
	if err != nil {
		return nil, err
	}
	return &Token{Type: tokenType, Value: value, Pos: pos, Prefix: word}, nil
}

// TokenizeAll returns all tokens from the input
func (t *Tokenizer) TokenizeAll() ([]*Token, error) {
	var tokens []*Token

	for {
		token, err := t.NextToken()
		if err != nil {
			return nil, err
		}

		tokens = append(tokens, token)

		if token.Type == TokenEOF {
			break
		}
	}

	return tokens, nil
}
