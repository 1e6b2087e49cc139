package dto

import (
	"encoding/base64"

	envelopeDomain "github.com/allisson/envelope/internal/envelope/domain"
	"github.com/allisson/envelope/internal/httputil"
)

// DecryptResponse contains the result of a decryption operation.
// SECURITY: The Plaintext field contains sensitive data and should be transmitted over HTTPS.
type DecryptResponse struct {
	Plaintext  string `json:"plaintext"` // Base64-encoded plaintext
	KeyVersion string `json:"key_version"`
}

// MapDecryptResponse encodes plaintext for the response.
func MapDecryptResponse(plaintext []byte, keyVersion string) DecryptResponse {
	return DecryptResponse{
		Plaintext:  base64.StdEncoding.EncodeToString(plaintext),
		KeyVersion: keyVersion,
	}
}

// DecryptBatchResponse contains base64 plaintexts in request order.
type DecryptBatchResponse struct {
	Plaintexts []string `json:"plaintexts"`
}

// MapDecryptBatchResponse encodes plaintexts for the response.
func MapDecryptBatchResponse(plaintexts [][]byte) DecryptBatchResponse {
	encoded := make([]string, 0, len(plaintexts))
	for _, plaintext := range plaintexts {
		encoded = append(encoded, base64.StdEncoding.EncodeToString(plaintext))
	}
	return DecryptBatchResponse{Plaintexts: encoded}
}

// ReEncryptResultResponse is the outcome for one element of a re-encryption batch.
type ReEncryptResultResponse struct {
	Index    int                      `json:"index"`
	Envelope *envelopeDomain.Envelope `json:"envelope,omitempty"`
	Error    *httputil.ErrorResponse  `json:"error,omitempty"`
}

// ReEncryptBatchResponse contains per-element results in request order.
type ReEncryptBatchResponse struct {
	Results []ReEncryptResultResponse `json:"results"`
}

// MapReEncryptBatchResponse converts use case results, mapping element errors
// the same way failed requests are mapped.
func MapReEncryptBatchResponse(results []envelopeDomain.ReEncryptResult) ReEncryptBatchResponse {
	data := make([]ReEncryptResultResponse, 0, len(results))
	for i, result := range results {
		item := ReEncryptResultResponse{Index: i, Envelope: result.Envelope}
		if result.Err != nil {
			_, errorResponse := httputil.ErrorStatus(result.Err)
			item.Error = &errorResponse
		}
		data = append(data, item)
	}
	return ReEncryptBatchResponse{Results: data}
}
