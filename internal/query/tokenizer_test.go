package query

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenizer(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []TokenType
	}{
		{
			name:     "Simple comparison",
			input:    "Price gt 100",
			expected: []TokenType{TokenWord, TokenWord, TokenInteger, TokenEOF},
		},
		{
			name:     "With parentheses",
			input:    "(Price gt 100)",
			expected: []TokenType{TokenLParen, TokenWord, TokenWord, TokenInteger, TokenRParen, TokenEOF},
		},
		{
			name:  "Logical AND",
			input: "Price gt 100 and Category/Name eq 'Electronics'",
			expected: []TokenType{
				TokenWord, TokenWord, TokenInteger, TokenWord,
				TokenWord, TokenSlash, TokenWord, TokenWord, TokenString, TokenEOF,
			},
		},
		{
			name:     "Function call",
			input:    "contains(Name,'Laptop')",
			expected: []TokenType{TokenWord, TokenLParen, TokenWord, TokenComma, TokenString, TokenRParen, TokenEOF},
		},
		{
			name:     "Lambda",
			input:    "Tags/any(t:t eq 'x')",
			expected: []TokenType{TokenWord, TokenSlash, TokenWord, TokenLParen, TokenWord, TokenColon, TokenWord, TokenWord, TokenString, TokenRParen, TokenEOF},
		},
		{
			name:     "Numeric literals",
			input:    "1 -2 3.5 1e10 2.5E-3",
			expected: []TokenType{TokenInteger, TokenInteger, TokenDecimal, TokenDouble, TokenDouble, TokenEOF},
		},
		{
			name:     "Temporal literals",
			input:    "2024-01-15 2024-01-15T10:30:00Z 10:30:00.5",
			expected: []TokenType{TokenDate, TokenDateTimeOffset, TokenTimeOfDay, TokenEOF},
		},
		{
			name:     "Guid",
			input:    "ID eq 01234567-89ab-cdef-0123-456789abcdef",
			expected: []TokenType{TokenWord, TokenWord, TokenGuid, TokenEOF},
		},
		{
			name:     "Typed literals",
			input:    "duration'P1D' binary'AQID' geography'SRID=4326;Point(1 2)' Sales.Color'Red'",
			expected: []TokenType{TokenDuration, TokenBinary, TokenGeography, TokenEnum, TokenEOF},
		},
		{
			name:     "Alias and special characters",
			input:    "@p = * ; -",
			expected: []TokenType{TokenAlias, TokenEquals, TokenStar, TokenSemicolon, TokenMinus, TokenEOF},
		},
		{
			name:     "Quoted phrase",
			input:    `"blue car"`,
			expected: []TokenType{TokenQuoted, TokenEOF},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := NewTokenizer(OptionFilter, tt.input).TokenizeAll()
			require.NoError(t, err)

			types := make([]TokenType, len(tokens))
			for i, tok := range tokens {
				types[i] = tok.Type
			}
			assert.Equal(t, tt.expected, types)
		})
	}
}

func TestTokenizerValues(t *testing.T) {
	tokens, err := NewTokenizer(OptionFilter, "Name eq 'O''Neil' and Sales.Color'Red,Blue' eq @c").TokenizeAll()
	require.NoError(t, err)

	require.Len(t, tokens, 8)
	assert.Equal(t, "O'Neil", tokens[2].Value)
	assert.Equal(t, 8, tokens[2].Pos)
	assert.Equal(t, "Red,Blue", tokens[4].Value)
	assert.Equal(t, "Sales.Color", tokens[4].Prefix)
	assert.Equal(t, "c", tokens[6].Value)
}

func TestTokenizerErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		pos   int
	}{
		{"Unterminated string", "Name eq 'abc", 8},
		{"Empty alias", "Name eq @", 8},
		{"Unknown character", "Name eq #", 8},
		{"Unknown literal prefix", "Name eq foo'bar'", 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTokenizer(OptionFilter, tt.input).TokenizeAll()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrSyntax))

			var syntaxErr *SyntaxError
			require.True(t, errors.As(err, &syntaxErr))
			assert.Equal(t, tt.pos, syntaxErr.Pos)
			assert.Equal(t, OptionFilter, syntaxErr.Option)
		})
	}
}

func TestTokenCache(t *testing.T) {
	first, err := cachedTokens(OptionFilter, "Price gt 5")
	require.NoError(t, err)
	second, err := cachedTokens(OptionFilter, "Price gt 5")
	require.NoError(t, err)
	assert.Same(t, first[0], second[0])

	other, err := cachedTokens(OptionOrderBy, "Price gt 5")
	require.NoError(t, err)
	assert.NotSame(t, first[0], other[0])

	_, err = cachedTokens(OptionFilter, "Name eq 'x")
	assert.Error(t, err)
}
