package commands

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	cryptoDomain "github.com/allisson/envelope/internal/crypto/domain"
	cryptoService "github.com/allisson/envelope/internal/crypto/service"
)

const kmsUsageHint = "\n\nFor local development, use:\n  --kms-provider=localsecrets --kms-key-uri=\"base64key://<32-byte-base64-key>\""

// RunCreateMasterKey generates a 32-byte master key, seals it with the KMS key
// at kmsKeyURI and prints the environment variables a database key store needs.
// If keyID is empty, a default ID in the format "master-key-YYYY-MM-DD" is used.
//
// For local development, use kmsProvider="localsecrets" with kmsKeyURI="base64key://...".
// The plaintext master key is zeroed before returning and never printed.
func RunCreateMasterKey(
	ctx context.Context,
	kmsService cryptoService.KMSService,
	logger *slog.Logger,
	writer io.Writer,
	keyID, kmsProvider, kmsKeyURI string,
) error {
	if err := cryptoService.ValidateKMSConfig(kmsProvider, kmsKeyURI); err != nil {
		return fmt.Errorf("%w%s", err, kmsUsageHint)
	}
	keyID = defaultMasterKeyID(keyID)

	encodedKey, err := sealNewMasterKey(ctx, kmsService, logger, kmsKeyURI)
	if err != nil {
		return err
	}

	logger.Info("master key created",
		slog.String("id", keyID),
		slog.String("kms_provider", kmsProvider),
	)

	_, _ = fmt.Fprintln(writer, "# Master Key Configuration")
	_, _ = fmt.Fprintln(writer, "# Copy these environment variables to your .env file or secrets manager")
	_, _ = fmt.Fprintln(writer)
	printMasterKeyEnv(writer, kmsProvider, kmsKeyURI, fmt.Sprintf("%s:%s", keyID, encodedKey), keyID)

	return nil
}

// RunRotateMasterKey seals a new master key and prints MASTER_KEYS with the new
// entry appended and made active. Existing entries stay so data keys wrapped by
// them can still be opened until rewrap-keys has moved them.
func RunRotateMasterKey(
	ctx context.Context,
	kmsService cryptoService.KMSService,
	logger *slog.Logger,
	writer io.Writer,
	keyID, kmsProvider, kmsKeyURI, existingMasterKeys, existingActiveKeyID string,
) error {
	if err := cryptoService.ValidateKMSConfig(kmsProvider, kmsKeyURI); err != nil {
		return fmt.Errorf("%w%s", err, kmsUsageHint)
	}
	if existingMasterKeys == "" {
		return fmt.Errorf("MASTER_KEYS is not set - cannot rotate without existing keys")
	}
	if existingActiveKeyID == "" {
		return fmt.Errorf("ACTIVE_MASTER_KEY_ID is not set")
	}

	keyID = defaultMasterKeyID(keyID)
	for entry := range strings.SplitSeq(existingMasterKeys, ",") {
		if id, _, _ := strings.Cut(strings.TrimSpace(entry), ":"); id == keyID {
			return fmt.Errorf("master key %q already exists in MASTER_KEYS", keyID)
		}
	}

	encodedKey, err := sealNewMasterKey(ctx, kmsService, logger, kmsKeyURI)
	if err != nil {
		return err
	}

	logger.Info("master key rotated",
		slog.String("previous_id", existingActiveKeyID),
		slog.String("id", keyID),
	)

	_, _ = fmt.Fprintln(writer, "# Master Key Rotation")
	_, _ = fmt.Fprintln(writer, "# Update these environment variables in your .env file or secrets manager")
	_, _ = fmt.Fprintln(writer)
	printMasterKeyEnv(
		writer,
		kmsProvider,
		kmsKeyURI,
		fmt.Sprintf("%s,%s:%s", existingMasterKeys, keyID, encodedKey),
		keyID,
	)
	_, _ = fmt.Fprintln(writer)
	_, _ = fmt.Fprintln(writer, "# Rotation Workflow:")
	_, _ = fmt.Fprintln(writer, "# 1. Update the above environment variables")
	_, _ = fmt.Fprintln(writer, "# 2. Re-wrap stored data keys: app rewrap-keys")
	_, _ = fmt.Fprintf(writer,
		"# 3. Remove the old master keys: MASTER_KEYS=\"%s:%s\"\n",
		keyID,
		encodedKey,
	)

	return nil
}

func defaultMasterKeyID(keyID string) string {
	if keyID != "" {
		return keyID
	}
	return fmt.Sprintf("master-key-%s", time.Now().Format("2006-01-02"))
}

// sealNewMasterKey generates a master key and returns its base64 KMS ciphertext.
func sealNewMasterKey(
	ctx context.Context,
	kmsService cryptoService.KMSService,
	logger *slog.Logger,
	kmsKeyURI string,
) (string, error) {
	keeper, err := kmsService.OpenKeeper(ctx, kmsKeyURI)
	if err != nil {
		return "", fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	defer func() {
		if closeErr := keeper.Close(); closeErr != nil {
			logger.Warn("failed to close KMS keeper", slog.Any("error", closeErr))
		}
	}()

	masterKey := make([]byte, 32)
	defer cryptoDomain.Zero(masterKey)
	if _, err := rand.Read(masterKey); err != nil {
		return "", fmt.Errorf("failed to generate master key: %w", err)
	}

	ciphertext, err := keeper.Encrypt(ctx, masterKey)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt master key with KMS: %w", err)
	}
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

func printMasterKeyEnv(writer io.Writer, kmsProvider, kmsKeyURI, masterKeys, activeID string) {
	_, _ = fmt.Fprintf(writer, "KMS_PROVIDER=\"%s\"\n", kmsProvider)
	_, _ = fmt.Fprintf(writer, "KMS_KEY_URI=\"%s\"\n", kmsKeyURI)
	_, _ = fmt.Fprintf(writer, "MASTER_KEYS=\"%s\"\n", masterKeys)
	_, _ = fmt.Fprintf(writer, "ACTIVE_MASTER_KEY_ID=\"%s\"\n", activeID)
}
