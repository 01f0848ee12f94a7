package errs

import (
	"errors"
	"net/http"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)

// Error is a user-facing error tagged with one of the kinds above.
type Error struct {
	Kind error
	Msg  string
}

func New(kind error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

func ToHTTP(err error) int {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Unknown is shown for errors that carry no user-facing text.
const Unknown = "An unknown error occurred"

// Message is Public(err), falling back to Unknown.
func Message(err error) string {
	if msg := Public(err); msg != "" {
		return msg
	}
	return Unknown
}

// Public returns the text that may be shown to the user for err, or "" when
// err is not a tagged error.
func Public(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return sentence(e.Msg)
}

func sentence(s string) string {
	s = strings.TrimSpace(s)
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
