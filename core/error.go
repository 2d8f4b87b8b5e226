package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidInput matches every *InputError with errors.Is.
var ErrInvalidInput = errors.New("invalid input")

// InputError describes an input that failed validation.
// Its message is safe to return to the client.
type InputError struct {
	msg string
}

func NewInputError(err error) *InputError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &InputError{msg: err.Error()}
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s must satisfy %s", fe.Field(), fe.Tag()))
	}
	return &InputError{msg: strings.Join(parts, "; ")}
}

func NewInputErrorf(format string, args ...any) *InputError {
	return &InputError{msg: fmt.Sprintf(format, args...)}
}

func (e *InputError) Error() string {
	return e.msg
}

func (e *InputError) Is(target error) bool {
	return target == ErrInvalidInput
}
