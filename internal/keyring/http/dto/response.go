package dto

import (
	"time"

	keyringDomain "github.com/allisson/envelope/internal/keyring/domain"
)

// KeyResponse represents key metadata in API responses. Key material is never included.
type KeyResponse struct {
	Version   string    `json:"version"`
	Algorithm string    `json:"algorithm"`
	Bits      int       `json:"bits"`
	Current   bool      `json:"current"`
	CreatedAt time.Time `json:"created_at"`
}

// MapKeyInfoToResponse converts key metadata to an API response.
func MapKeyInfoToResponse(info *keyringDomain.KeyInfo) KeyResponse {
	return KeyResponse{
		Version:   info.Version,
		Algorithm: string(info.Algorithm),
		Bits:      info.Bits,
		Current:   info.Current,
		CreatedAt: info.CreatedAt,
	}
}

// ListKeysResponse represents a paginated list of keys in API responses.
type ListKeysResponse struct {
	Data []KeyResponse `json:"data"`
}

// MapKeyInfosToListResponse converts key metadata to a list response.
func MapKeyInfosToListResponse(infos []*keyringDomain.KeyInfo) ListKeysResponse {
	data := make([]KeyResponse, 0, len(infos))
	for _, info := range infos {
		data = append(data, MapKeyInfoToResponse(info))
	}

	return ListKeysResponse{
		Data: data,
	}
}
