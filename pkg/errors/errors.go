// Package errors defines the sentinel errors shared by the indexing and query
// layers and maps them to an HTTP status and a message safe to show clients.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Query-format errors. These are user input problems and never retried.
var (
	ErrEmptyQuery        = errors.New("empty query")
	ErrOperatorMismatch  = errors.New("operator/term count mismatch")
	ErrUnknownOperator   = errors.New("unknown operator")
	ErrInsufficientTerms = errors.New("proximity query needs two terms")
	ErrInvalidDistance   = errors.New("invalid proximity distance")
	ErrInvalidInput      = errors.New("invalid input")
)

// Infrastructure errors.
var (
	ErrCorpusUnavailable = errors.New("corpus unavailable")
	ErrIndexUnavailable  = errors.New("index unavailable")
	ErrInternal          = errors.New("internal error")
	ErrTimeout           = errors.New("operation timed out")
)

var queryErrors = []error{
	ErrEmptyQuery, ErrOperatorMismatch, ErrUnknownOperator,
	ErrInsufficientTerms, ErrInvalidDistance, ErrInvalidInput,
}

// class maps a family of sentinels to a response. An empty message means the
// error text itself is shown.
type class struct {
	kinds   []error
	status  int
	message string
}

// classes are matched in order; the first family any sentinel of which is in
// the chain wins. A timeout is usually wrapped in ErrIndexUnavailable, so it
// is listed first.
var classes = []class{
	{queryErrors, http.StatusBadRequest, ""},
	{[]error{ErrTimeout}, http.StatusServiceUnavailable, "index build timed out"},
	{[]error{ErrCorpusUnavailable, ErrIndexUnavailable}, http.StatusServiceUnavailable, "index unavailable"},
}

func classify(err error) (class, bool) {
	for _, c := range classes {
		for _, kind := range c.kinds {
			if errors.Is(err, kind) {
				return c, true
			}
		}
	}
	return class{}, false
}

// Describe returns the HTTP status for err and the message to send. Errors
// outside the known families become a 500 with a generic message.
func Describe(err error) (status int, message string) {
	c, ok := classify(err)
	if !ok {
		return http.StatusInternalServerError, "search failed"
	}
	if c.message == "" {
		return c.status, err.Error()
	}
	return c.status, c.message
}

// IsQueryError reports whether err stems from a malformed query rather than
// from the service itself.
func IsQueryError(err error) bool {
	c, ok := classify(err)
	return ok && c.status == http.StatusBadRequest
}

type invalidParam struct{ msg string }

func (e *invalidParam) Error() string { return e.msg }
func (e *invalidParam) Unwrap() error { return ErrInvalidInput }

// Invalid reports a malformed request parameter. The formatted text is the
// whole client-facing message.
func Invalid(format string, args ...any) error {
	return &invalidParam{msg: fmt.Sprintf(format, args...)}
}
