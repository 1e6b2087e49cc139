package validation

import (
	"encoding/base64"

	validation "github.com/jellydator/validation"
)

// MaxPlaintextBytes caps a single decoded plaintext accepted over HTTP.
const MaxPlaintextBytes = 1 << 20

// Plaintext validates a base64 payload whose decoded size is at most maxBytes.
// The size is checked before decoding so oversized payloads are never
// materialised. Empty strings pass; an empty plaintext is a valid message.
func Plaintext(maxBytes int) validation.Rule {
	return validation.By(func(value interface{}) error {
		s, ok := value.(string)
		if !ok {
			return validation.NewError("validation_plaintext_type", "must be a string")
		}
		if s == "" {
			return nil
		}
		if base64.StdEncoding.DecodedLen(len(s)) > maxBytes+2 {
			return validation.NewError("validation_plaintext_size", "must decode to at most {{.max}} bytes").
				SetParams(map[string]interface{}{"max": maxBytes})
		}
		decoded, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return validation.NewError("validation_base64", "must be valid base64-encoded data")
		}
		if len(decoded) > maxBytes {
			return validation.NewError("validation_plaintext_size", "must decode to at most {{.max}} bytes").
				SetParams(map[string]interface{}{"max": maxBytes})
		}
		return nil
	})
}
