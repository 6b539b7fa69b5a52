package provision

import "github.com/go-playground/validator/v10"

// MailValidator reports whether an email address is acceptable for
// provisioning
type MailValidator func(address string) bool

// DefaultMailValidator validates addresses with the standard email rule set
func DefaultMailValidator() MailValidator {
	validate := validator.New()
	return func(address string) bool {
		return validate.Var(address, "required,email") == nil
	}
}
