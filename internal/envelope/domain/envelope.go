// Package domain defines the Envelope, the self-describing unit of ciphertext,
// and the codec that assembles and validates it.
package domain

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	cryptoDomain "github.com/allisson/envelope/internal/crypto/domain"
	keyringDomain "github.com/allisson/envelope/internal/keyring/domain"
)

// Envelope is ciphertext tagged with the key version that produced it.
//
// Ciphertext includes the 16-byte authentication tag. Timestamp is informational
// and carries millisecond precision in UTC. Envelopes are immutable: decrypting
// never modifies one and re-encrypting returns a new one.
type Envelope struct {
	Ciphertext []byte
	IV         []byte
	KeyVersion string
	Timestamp  time.Time
}

// Wrap assembles an envelope stamped with the current time.
func Wrap(ciphertext, nonce []byte, keyVersion string) *Envelope {
	return &Envelope{
		Ciphertext: ciphertext,
		IV:         nonce,
		KeyVersion: keyVersion,
		Timestamp:  time.Now().UTC().Truncate(time.Millisecond),
	}
}

// Unwrap validates the envelope's shape and returns its parts. It fails with
// ErrMalformedEnvelope before any key is looked up.
func Unwrap(e *Envelope) (ciphertext, nonce []byte, keyVersion string, err error) {
	if e == nil {
		return nil, nil, "", fmt.Errorf("%w: envelope is empty", ErrMalformedEnvelope)
	}
	if len(e.IV) != cryptoDomain.NonceSize {
		return nil, nil, "", fmt.Errorf(
			"%w: iv must be %d bytes, got %d",
			ErrMalformedEnvelope,
			cryptoDomain.NonceSize,
			len(e.IV),
		)
	}
	if len(e.Ciphertext) < cryptoDomain.TagSize {
		return nil, nil, "", fmt.Errorf(
			"%w: data must be at least %d bytes, got %d",
			ErrMalformedEnvelope,
			cryptoDomain.TagSize,
			len(e.Ciphertext),
		)
	}
	if err := keyringDomain.ValidateVersion(e.KeyVersion); err != nil {
		return nil, nil, "", fmt.Errorf("%w: invalid key version %q", ErrMalformedEnvelope, e.KeyVersion)
	}
	return e.Ciphertext, e.IV, e.KeyVersion, nil
}

type envelopeJSON struct {
	Data       string `json:"data"`
	IV         string `json:"iv"`
	KeyVersion string `json:"keyVersion"`
	Timestamp  int64  `json:"timestamp"`
}

// MarshalJSON encodes the envelope as
// {"data": base64, "iv": base64, "keyVersion": string, "timestamp": epoch millis}.
func (e Envelope) MarshalJSON() ([]byte, error) {
	return json.Marshal(envelopeJSON{
		Data:       base64.StdEncoding.EncodeToString(e.Ciphertext),
		IV:         base64.StdEncoding.EncodeToString(e.IV),
		KeyVersion: e.KeyVersion,
		Timestamp:  e.Timestamp.UnixMilli(),
	})
}

// UnmarshalJSON decodes the JSON form. Undecodable base64 is a malformed envelope.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	var raw envelopeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(raw.Data)
	if err != nil {
		return fmt.Errorf("%w: data is not valid base64", ErrMalformedEnvelope)
	}
	iv, err := base64.StdEncoding.DecodeString(raw.IV)
	if err != nil {
		return fmt.Errorf("%w: iv is not valid base64", ErrMalformedEnvelope)
	}

	*e = Envelope{
		Ciphertext: ciphertext,
		IV:         iv,
		KeyVersion: raw.KeyVersion,
		Timestamp:  time.UnixMilli(raw.Timestamp).UTC(),
	}
	return nil
}

// String returns the compact token "<keyVersion>:<base64 iv>:<base64 data>:<millis>",
// suitable for storing an envelope in a single text column.
func (e Envelope) String() string {
	return fmt.Sprintf(
		"%s:%s:%s:%d",
		e.KeyVersion,
		base64.StdEncoding.EncodeToString(e.IV),
		base64.StdEncoding.EncodeToString(e.Ciphertext),
		e.Timestamp.UnixMilli(),
	)
}

// ParseEnvelope parses the compact token produced by String.
func ParseEnvelope(s string) (*Envelope, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 4 {
		return nil, fmt.Errorf("%w: expected 4 colon-separated parts, got %d", ErrMalformedEnvelope, len(parts))
	}

	iv, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: iv is not valid base64", ErrMalformedEnvelope)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil {
		return nil, fmt.Errorf("%w: data is not valid base64", ErrMalformedEnvelope)
	}
	millis, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: timestamp is not an integer", ErrMalformedEnvelope)
	}

	return &Envelope{
		Ciphertext: ciphertext,
		IV:         iv,
		KeyVersion: parts[0],
		Timestamp:  time.UnixMilli(millis).UTC(),
	}, nil
}
