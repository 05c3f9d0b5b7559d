package filterql

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorClassification(t *testing.T) {
	_, decodeErr := DecodeJSON([]byte(`{"type":"group"}`))
	_, tooLongErr := New(WithMaxLength(3)).Parse(t.Context(), "abcd = 1")

	tests := []struct {
		name     string
		err      error
		code     ErrorCode
		status   int
		sentinel error
	}{
		{"unterminated string", mustFail(t, `name = "abc`), ErrorCodeUnterminatedString, http.StatusBadRequest, ErrLex},
		{"malformed number", mustFail(t, "x = 1.2.3"), ErrorCodeMalformedNumber, http.StatusBadRequest, ErrMalformedNumber},
		{"unexpected character", mustFail(t, "x = @"), ErrorCodeUnexpectedCharacter, http.StatusBadRequest, ErrUnexpectedCharacter},
		{"unexpected token", mustFail(t, "x = = 1"), ErrorCodeUnexpectedToken, http.StatusBadRequest, ErrParse},
		{"unexpected end", mustFail(t, "x >"), ErrorCodeUnexpectedEnd, http.StatusBadRequest, ErrUnexpectedEOF},
		{"chained comparison", mustFail(t, "a < b < c"), ErrorCodeChainedComparison, http.StatusBadRequest, ErrChainedComparison},
		{"invalid operand", mustFail(t, "a IS 1"), ErrorCodeInvalidOperand, http.StatusBadRequest, ErrInvalidOperand},
		{"invalid expression", Validate(Field("and")), ErrorCodeInvalidExpression, http.StatusUnprocessableEntity, ErrInvalidExpression},
		{"invalid node", decodeErr, ErrorCodeInvalidNode, http.StatusUnprocessableEntity, ErrInvalidNode},
		{"input too long", tooLongErr, ErrorCodeInputTooLong, http.StatusRequestEntityTooLarge, ErrInputTooLong},
		{"other", fmt.Errorf("boom"), ErrorCodeInternal, http.StatusInternalServerError, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Error(t, tt.err)
			assert.Equal(t, tt.code, Code(tt.err))
			assert.Equal(t, tt.status, MapErrorToHTTPStatus(tt.err))
			if tt.sentinel != nil {
				assert.ErrorIs(t, tt.err, tt.sentinel)
			}
		})
	}

	assert.Equal(t, http.StatusOK, MapErrorToHTTPStatus(nil))
}

func mustFail(t *testing.T, input string) error {
	t.Helper()
	_, err := Parse(input)
	require.Error(t, err, "expected %q to fail", input)
	return err
}

func TestSentinelFamilies(t *testing.T) {
	lexKinds := []error{ErrUnterminatedString, ErrMalformedNumber, ErrUnexpectedCharacter}
	for _, err := range lexKinds {
		assert.ErrorIs(t, err, ErrLex)
		assert.False(t, errors.Is(err, ErrParse), err.Error())
	}

	parseKinds := []error{
		ErrUnexpectedToken, ErrUnexpectedEOF, ErrChainedComparison, ErrMaxDepthExceeded,
		ErrUnknownFunction, ErrFunctionArity, ErrInvalidOperand,
	}
	for _, err := range parseKinds {
		assert.ErrorIs(t, err, ErrParse)
		assert.False(t, errors.Is(err, ErrLex), err.Error())
	}
}

func TestDescribe(t *testing.T) {
	detail := Describe(mustFail(t, "x >"))
	assert.Equal(t, ErrorCodeUnexpectedEnd, detail.Code)
	require.NotNil(t, detail.Position)
	assert.Equal(t, 3, *detail.Position)
	assert.NotEmpty(t, detail.Expected)
	assert.Contains(t, detail.Expected, "identifier")

	detail = Describe(mustFail(t, `"abc`))
	require.NotNil(t, detail.Position)
	assert.Equal(t, 0, *detail.Position)
	assert.Empty(t, detail.Expected)

	detail = Describe(Validate(And(Field("a"), Call("f", Field("1x")))))
	assert.Equal(t, "right.args[0]", detail.Path)
	assert.Nil(t, detail.Position)

	_, err := DecodeJSON([]byte(`{"type":"logical","op":"AND","left":{"type":"field","name":"a"},"right":{"type":"nope"}}`))
	detail = Describe(err)
	assert.Equal(t, ErrorCodeInvalidNode, detail.Code)
	assert.Equal(t, "right", detail.Path)
}

func TestIsSyntaxError(t *testing.T) {
	assert.True(t, IsSyntaxError(mustFail(t, "(")))
	assert.True(t, IsSyntaxError(mustFail(t, "'")))
	assert.False(t, IsSyntaxError(Validate(nil)))
	assert.False(t, IsSyntaxError(nil))
}
