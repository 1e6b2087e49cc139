// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	validation "github.com/jellydator/validation"

	envelopeDomain "github.com/allisson/envelope/internal/envelope/domain"
	customValidation "github.com/allisson/envelope/internal/validation"
)

// EncryptRequest contains the parameters for encrypting data.
type EncryptRequest struct {
	Plaintext  string `json:"plaintext"`             // Base64-encoded plaintext
	KeyVersion string `json:"key_version,omitempty"` // Empty uses the current key
}

// Validate checks if the encrypt request is valid.
func (r *EncryptRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Plaintext,
			customValidation.Plaintext(customValidation.MaxPlaintextBytes),
		),
		validation.Field(&r.KeyVersion,
			customValidation.KeyVersion,
		),
	)
}

// DecryptRequest contains the envelope to decrypt.
type DecryptRequest struct {
	Envelope *envelopeDomain.Envelope `json:"envelope"`
}

// Validate checks if the decrypt request is valid.
func (r *DecryptRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Envelope, validation.NotNil),
	)
}

// DecryptBatchRequest contains the envelopes to decrypt.
type DecryptBatchRequest struct {
	Envelopes []*envelopeDomain.Envelope `json:"envelopes"`
}

// Validate checks if the decrypt batch request is valid.
func (r *DecryptBatchRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Envelopes,
			validation.NotNil,
			validation.Each(validation.NotNil),
		),
	)
}

// ReEncryptRequest contains an envelope and the version to move it to.
type ReEncryptRequest struct {
	Envelope   *envelopeDomain.Envelope `json:"envelope"`
	KeyVersion string                   `json:"key_version"`
}

// Validate checks if the re-encrypt request is valid.
func (r *ReEncryptRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Envelope, validation.NotNil),
		validation.Field(&r.KeyVersion,
			validation.Required,
			customValidation.KeyVersion,
		),
	)
}

// ReEncryptBatchRequest contains envelopes and the version to move them to.
type ReEncryptBatchRequest struct {
	Envelopes  []*envelopeDomain.Envelope `json:"envelopes"`
	KeyVersion string                     `json:"key_version"`
}

// Validate checks if the re-encrypt batch request is valid.
func (r *ReEncryptBatchRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Envelopes,
			validation.NotNil,
			validation.Each(validation.NotNil),
		),
		validation.Field(&r.KeyVersion,
			validation.Required,
			customValidation.KeyVersion,
		),
	)
}
