package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDescribe(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"empty query", ErrEmptyQuery, http.StatusBadRequest, "empty query"},
		{"wrapped mismatch", fmt.Errorf("evaluating: %w", ErrOperatorMismatch), http.StatusBadRequest, "evaluating: operator/term count mismatch"},
		{"unknown operator", ErrUnknownOperator, http.StatusBadRequest, "unknown operator"},
		{"invalid param", Invalid("k must be a non-negative integer"), http.StatusBadRequest, "k must be a non-negative integer"},
		{"corpus unavailable", ErrCorpusUnavailable, http.StatusServiceUnavailable, "index unavailable"},
		{"timeout inside unavailable", fmt.Errorf("%w: %w", ErrIndexUnavailable, ErrTimeout), http.StatusServiceUnavailable, "index build timed out"},
		{"anything else", fmt.Errorf("pq: connection refused"), http.StatusInternalServerError, "search failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, msg := Describe(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.message, msg)
		})
	}
}

func TestInvalid(t *testing.T) {
	err := Invalid("query parameter %q is required", "q")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, `query parameter "q" is required`, err.Error())
}

func TestIsQueryError(t *testing.T) {
	assert.True(t, IsQueryError(fmt.Errorf("x: %w", ErrInsufficientTerms)))
	assert.True(t, IsQueryError(Invalid("bad")))
	assert.False(t, IsQueryError(ErrCorpusUnavailable))
	assert.False(t, IsQueryError(fmt.Errorf("boom")))
}
