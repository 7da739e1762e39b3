package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenStreamMarkReset(t *testing.T) {
	ts, err := NewTokenStream(OptionFilter, "a eq 1")
	require.NoError(t, err)

	mark := ts.Mark()
	require.True(t, ts.Next(TokenWord))
	require.True(t, ts.NextKeyword("eq"))
	assert.Equal(t, "eq", ts.Text())

	ts.Reset(mark)
	assert.Equal(t, "a", ts.Peek().Value)
	assert.Equal(t, 0, ts.Pos())
}

func TestTokenStreamExpected(t *testing.T) {
	ts, err := NewTokenStream(OptionFilter, "a b")
	require.NoError(t, err)
	require.True(t, ts.Next(TokenWord))

	ts.NextKeyword("eq")
	ts.Next(TokenComma)
	ts.Next(TokenLParen)
	ts.NextKeyword("asc")
	ts.Next(TokenEOF)

	syntaxErr := ts.SyntaxError()
	assert.Equal(t, "b", syntaxErr.Token)
	assert.Equal(t, 2, syntaxErr.Pos)
	assert.Equal(t, []string{",", "(", "eq", "asc", "EOF"}, syntaxErr.Expected)
	assert.Contains(t, syntaxErr.Error(), "expected one of ',', '(', 'eq', 'asc', 'EOF'")
}

func TestTokenStreamExpectedFurthest(t *testing.T) {
	ts, err := NewTokenStream(OptionFilter, "a b c")
	require.NoError(t, err)

	mark := ts.Mark()
	ts.Next(TokenWord)
	ts.Next(TokenWord)
	ts.Next(TokenComma)
	ts.Reset(mark)
	ts.Next(TokenInteger)

	syntaxErr := ts.SyntaxError()
	assert.Equal(t, "c", syntaxErr.Token)
	assert.Equal(t, []string{","}, syntaxErr.Expected)
}

func TestTokenStreamRawUntilClose(t *testing.T) {
	ts, err := NewTokenStream(OptionApply, `search("blue car" AND (red OR green))/top(1)`)
	require.NoError(t, err)
	require.True(t, ts.NextKeyword("search"))
	require.True(t, ts.Next(TokenLParen))

	raw, err := ts.RawUntilClose()
	require.NoError(t, err)
	assert.Equal(t, `"blue car" AND (red OR green)`, raw)
	assert.True(t, ts.Next(TokenRParen))
	assert.True(t, ts.Next(TokenSlash))

	ts, err = NewTokenStream(OptionApply, "search(a")
	require.NoError(t, err)
	ts.Next(TokenWord)
	ts.Next(TokenLParen)
	_, err = ts.RawUntilClose()
	assert.ErrorIs(t, err, ErrSyntax)
}

func TestTokenClassOrder(t *testing.T) {
	assert.Equal(t, []string{",", "/", "(", ")", "-", "and", "or", "asc", "desc", "EOF"},
		sortExpected([]string{"EOF", "desc", "or", ")", "and", "-", "asc", "/", "(", ","}))
}
