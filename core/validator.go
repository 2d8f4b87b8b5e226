package core

import "github.com/go-playground/validator/v10"

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate validates a struct against its validate tags.
// Failures are returned as *InputError.
func Validate(v any) error {
	if err := validate.Struct(v); err != nil {
		return NewInputError(err)
	}
	return nil
}
