package service

import (
	"context"
	"fmt"
	"strings"

	"gocloud.dev/secrets"

	cryptoDomain "github.com/allisson/envelope/internal/crypto/domain"

	// Register all KMS provider drivers
	_ "gocloud.dev/secrets/awskms"
	_ "gocloud.dev/secrets/azurekeyvault"
	_ "gocloud.dev/secrets/gcpkms"
	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"
)

// kmsService implements KMSService using gocloud.dev/secrets.
type kmsService struct{}

// NewKMSService creates a new KMS service instance.
func NewKMSService() KMSService {
	return &kmsService{}
}

// OpenKeeper opens a secrets.Keeper for the provider addressed by keyURI.
// Supports: gcpkms://, awskms://, azurekeyvault://, hashivault://, base64key://
func (k *kmsService) OpenKeeper(ctx context.Context, keyURI string) (cryptoDomain.KMSKeeper, error) {
	keeper, err := secrets.OpenKeeper(ctx, keyURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	return keeper, nil
}

// providerSchemes maps KMS_PROVIDER values to the URI scheme their keeper expects.
var providerSchemes = map[string]string{
	"localsecrets":  "base64key://",
	"gcpkms":        "gcpkms://",
	"awskms":        "awskms://",
	"azurekeyvault": "azurekeyvault://",
	"hashivault":    "hashivault://",
}

// ValidateKMSConfig checks that keyURI belongs to provider before any network call is made.
func ValidateKMSConfig(provider, keyURI string) error {
	if provider == "" || keyURI == "" {
		return fmt.Errorf("KMS_PROVIDER and KMS_KEY_URI are both required")
	}
	scheme, ok := providerSchemes[provider]
	if !ok {
		return fmt.Errorf("unsupported KMS provider %q", provider)
	}
	if !strings.HasPrefix(keyURI, scheme) {
		return fmt.Errorf("KMS key URI for provider %s must start with %s", provider, scheme)
	}
	return nil
}
