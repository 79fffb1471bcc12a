package formula

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected []Token
	}{
		{
			name:  "Arithmetic",
			input: "1.5 + a1*2",
			expected: []Token{
				{Kind: TokenNumber, Text: "1.5"},
				{Kind: TokenBinaryOp, Text: "+"},
				{Kind: TokenIdentifier, Text: "A1"},
				{Kind: TokenBinaryOp, Text: "*"},
				{Kind: TokenNumber, Text: "2"},
				{Kind: TokenEOF},
			},
		},
		{
			name:  "Relational operators",
			input: "A1==1 != B2<=3>=4<5>6",
			expected: []Token{
				{Kind: TokenIdentifier, Text: "A1"},
				{Kind: TokenRelationalOp, Text: "=="},
				{Kind: TokenNumber, Text: "1"},
				{Kind: TokenRelationalOp, Text: "!="},
				{Kind: TokenIdentifier, Text: "B2"},
				{Kind: TokenRelationalOp, Text: "<="},
				{Kind: TokenNumber, Text: "3"},
				{Kind: TokenRelationalOp, Text: ">="},
				{Kind: TokenNumber, Text: "4"},
				{Kind: TokenRelationalOp, Text: "<"},
				{Kind: TokenNumber, Text: "5"},
				{Kind: TokenRelationalOp, Text: ">"},
				{Kind: TokenNumber, Text: "6"},
				{Kind: TokenEOF},
			},
		},
		{
			name:  "Call with range and string",
			input: `countif($A$1:B2, "yes")`,
			expected: []Token{
				{Kind: TokenIdentifier, Text: "COUNTIF"},
				{Kind: TokenOpenParen, Text: "("},
				{Kind: TokenIdentifier, Text: "$A$1"},
				{Kind: TokenColon, Text: ":"},
				{Kind: TokenIdentifier, Text: "B2"},
				{Kind: TokenComma, Text: ","},
				{Kind: TokenString, Text: "yes"},
				{Kind: TokenCloseParen, Text: ")"},
				{Kind: TokenEOF},
			},
		},
		{
			name:  "Booleans and unary not",
			input: "!true",
			expected: []Token{
				{Kind: TokenUnaryOp, Text: "!"},
				{Kind: TokenBoolean, Text: "TRUE"},
				{Kind: TokenEOF},
			},
		},
		{
			name:     "Empty",
			input:    "   ",
			expected: []Token{{Kind: TokenEOF}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tokens, err := Tokenize(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, tokens)
		})
	}
}

func TestTokenize_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		input   string
		message string
	}{
		{name: "Lone equals", input: "A1 = 2", message: "Expected '==', got '='"},
		{name: "Second decimal point", input: "1.2.3", message: "Unexpected second decimal point in number"},
		{name: "Unterminated string", input: `"abc`, message: "Unterminated string literal"},
		{name: "Unknown character", input: "1 # 2", message: "Unexpected character '#'"},
		{name: "Multibyte character", input: "1 € 2", message: "Unexpected character '€'"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Tokenize(tc.input)

			var lexErr *LexError
			require.ErrorAs(t, err, &lexErr)
			assert.Equal(t, tc.message, lexErr.Msg)
		})
	}
}

func TestTokenKind_String(t *testing.T) {
	assert.Equal(t, "RelationalOp", TokenRelationalOp.String())
	assert.Equal(t, "TokenKind(99)", TokenKind(99).String())
}
