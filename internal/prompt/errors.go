package prompt

import (
	"errors"
	"fmt"
)

// InvalidPromptError reports a request whose messages cannot be rendered,
// e.g. two system messages or an unknown role.
type InvalidPromptError struct {
	Reason string
}

func (e *InvalidPromptError) Error() string { return "invalid prompt: " + e.Reason }

func invalidPrompt(format string, args ...any) error {
	return &InvalidPromptError{Reason: fmt.Sprintf(format, args...)}
}

// IsInvalidPrompt reports whether err (or anything it wraps) is an InvalidPromptError.
func IsInvalidPrompt(err error) bool {
	var ipe *InvalidPromptError
	return errors.As(err, &ipe)
}
