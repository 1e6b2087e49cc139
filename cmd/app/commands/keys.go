package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"
	"time"

	keyringDomain "github.com/allisson/envelope/internal/keyring/domain"
	"github.com/allisson/envelope/internal/keyring/http/dto"
	keyringUseCase "github.com/allisson/envelope/internal/keyring/usecase"
)

// RunCreateKey creates the data key for version, or reports the existing one.
// Creating an existing version is not an error.
func RunCreateKey(
	ctx context.Context,
	keyUseCase keyringUseCase.KeyUseCase,
	logger *slog.Logger,
	writer io.Writer,
	version, format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}
	if err := keyringDomain.ValidateVersion(version); err != nil {
		return fmt.Errorf("invalid version %q: %w", version, err)
	}

	info, created, err := keyUseCase.Create(ctx, version)
	if err != nil {
		return fmt.Errorf("failed to create key: %w", err)
	}

	logger.Info("key ready",
		slog.String("version", info.Version),
		slog.Bool("created", created),
	)

	if format == "json" {
		return writeJSON(writer, struct {
			dto.KeyResponse
			Created bool `json:"created"`
		}{dto.MapKeyInfoToResponse(info), created})
	}

	if created {
		_, _ = fmt.Fprintf(writer, "Created key %s (%s-%d)\n", info.Version, info.Algorithm, info.Bits)
	} else {
		_, _ = fmt.Fprintf(writer, "Key %s already exists (%s-%d)\n", info.Version, info.Algorithm, info.Bits)
	}
	return nil
}

// RunRotateKey creates a new data key version. An empty version is replaced by
// a timestamp version.
func RunRotateKey(
	ctx context.Context,
	keyUseCase keyringUseCase.KeyUseCase,
	logger *slog.Logger,
	writer io.Writer,
	version, format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	info, err := keyUseCase.Rotate(ctx, version)
	if err != nil {
		return fmt.Errorf("failed to rotate key: %w", err)
	}

	logger.Info("key rotated",
		slog.String("version", info.Version),
		slog.Bool("current", info.Current),
	)

	if format == "json" {
		return writeJSON(writer, dto.MapKeyInfoToResponse(info))
	}

	_, _ = fmt.Fprintf(writer, "Rotated to key %s (%s-%d)\n", info.Version, info.Algorithm, info.Bits)
	if !info.Current {
		_, _ = fmt.Fprintln(writer, "Note: CURRENT_KEY_VERSION is pinned; new encryptions keep using the pinned version")
	}
	return nil
}

// RunListKeys prints the metadata of every key version in creation order.
func RunListKeys(
	ctx context.Context,
	keyUseCase keyringUseCase.KeyUseCase,
	writer io.Writer,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	infos, err := keyUseCase.ListKeys(ctx)
	if err != nil {
		return fmt.Errorf("failed to list keys: %w", err)
	}

	if format == "json" {
		return writeJSON(writer, dto.MapKeyInfosToListResponse(infos))
	}

	tw := tabwriter.NewWriter(writer, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "VERSION\tALGORITHM\tBITS\tCREATED AT\tCURRENT")
	for _, info := range infos {
		current := ""
		if info.Current {
			current = "*"
		}
		_, _ = fmt.Fprintf(
			tw,
			"%s\t%s\t%d\t%s\t%s\n",
			info.Version,
			info.Algorithm,
			info.Bits,
			info.CreatedAt.UTC().Format(time.RFC3339),
			current,
		)
	}
	return tw.Flush()
}

// RunRewrapKeys re-wraps every data key that is not wrapped by the active master
// key. Run it after rotate-master-key and before removing old master keys.
func RunRewrapKeys(
	ctx context.Context,
	keyUseCase keyringUseCase.KeyUseCase,
	logger *slog.Logger,
	writer io.Writer,
	batchSize int,
) error {
	if batchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}

	logger.Info("starting data key rewrap", slog.Int("batch_size", batchSize))

	total, err := keyUseCase.Rewrap(ctx, batchSize)
	if err != nil {
		return fmt.Errorf("failed to rewrap data keys: %w", err)
	}

	logger.Info("data key rewrap completed", slog.Int("total_rewrapped", total))
	_, _ = fmt.Fprintf(writer, "Rewrapped %d data key(s)\n", total)
	return nil
}
