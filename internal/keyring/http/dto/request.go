// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	validation "github.com/jellydator/validation"

	customValidation "github.com/allisson/envelope/internal/validation"
)

// CreateKeyRequest contains the version to get or create.
type CreateKeyRequest struct {
	Version string `json:"version"`
}

// Validate checks if the create key request is valid.
func (r *CreateKeyRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Version,
			validation.Required,
			customValidation.NotBlank,
			customValidation.KeyVersion,
		),
	)
}

// RotateKeyRequest contains the optional version of the new key.
type RotateKeyRequest struct {
	Version string `json:"version,omitempty"` // Empty generates a timestamp version
}

// Validate checks if the rotate key request is valid.
func (r *RotateKeyRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Version,
			customValidation.KeyVersion,
		),
	)
}
