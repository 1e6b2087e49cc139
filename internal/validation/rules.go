// Package validation holds request rules for key versions and envelope payloads.
package validation

import (
	"strings"

	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/envelope/internal/errors"
	keyringDomain "github.com/allisson/envelope/internal/keyring/domain"
)

// WrapValidationError wraps validation errors as domain ErrInvalidInput
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// NotBlank validates that a string is not empty after trimming whitespace
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)

// KeyVersion validates key version syntax: 1-64 characters from [A-Za-z0-9._-].
// Empty strings pass so the rule composes with Required for optional fields.
var KeyVersion = validation.NewStringRuleWithError(
	func(s string) bool {
		return s == "" || keyringDomain.ValidateVersion(s) == nil
	},
	validation.NewError("validation_key_version", "must be 1-64 characters of letters, digits, '.', '_' or '-'"),
)
