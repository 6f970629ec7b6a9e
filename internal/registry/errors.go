package registry

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnexpectedResponse is returned when a success response cannot be decoded.
var ErrUnexpectedResponse = errors.New("unexpected registry response")

// Error is a non-success response from the registry.
type Error struct {
	StatusCode   int
	Message      string
	GlobalErrors []string
	FieldErrors  map[string][]string
}

func (e *Error) Error() string {
	switch {
	case len(e.GlobalErrors) > 0:
		return fmt.Sprintf("registry returned %d: %s", e.StatusCode, strings.Join(e.GlobalErrors, ", "))
	case e.Message != "":
		return fmt.Sprintf("registry returned %d: %s", e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("registry returned %d", e.StatusCode)
	}
}

func newError(status int, body *ErrorResponse) *Error {
	e := &Error{StatusCode: status}
	if body == nil {
		return e
	}
	e.Message = body.Error.Message
	for _, g := range body.Error.GlobalErrors {
		if g.Message != "" {
			e.GlobalErrors = append(e.GlobalErrors, g.Message)
		}
	}
	if len(body.Error.FieldErrors) > 0 {
		e.FieldErrors = make(map[string][]string, len(body.Error.FieldErrors))
		for field, items := range body.Error.FieldErrors {
			for _, it := range items {
				e.FieldErrors[field] = append(e.FieldErrors[field], it.Message)
			}
		}
	}
	return e
}

// AsError returns the registry error wrapped in err, if any.
func AsError(err error) (*Error, bool) {
	var re *Error
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
