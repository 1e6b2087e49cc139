package commands

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/allisson/envelope/internal/crypto/domain"
	keyringDomain "github.com/allisson/envelope/internal/keyring/domain"
	keyringMocks "github.com/allisson/envelope/internal/keyring/usecase/mocks"
)

func newKeyInfo(version string, current bool) *keyringDomain.KeyInfo {
	return &keyringDomain.KeyInfo{
		Version:   version,
		Algorithm: cryptoDomain.AESGCM,
		Bits:      256,
		CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Current:   current,
	}
}

func TestRunCreateKey(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("created-text", func(t *testing.T) {
		mockUseCase := &keyringMocks.MockKeyUseCase{}
		mockUseCase.On("Create", ctx, "2024-01").Return(newKeyInfo("2024-01", true), true, nil)

		var out bytes.Buffer
		err := RunCreateKey(ctx, mockUseCase, logger, &out, "2024-01", "text")

		require.NoError(t, err)
		require.Contains(t, out.String(), "Created key 2024-01 (aes-gcm-256)")
		mockUseCase.AssertExpectations(t)
	})

	t.Run("existing-json", func(t *testing.T) {
		mockUseCase := &keyringMocks.MockKeyUseCase{}
		mockUseCase.On("Create", ctx, "2024-01").Return(newKeyInfo("2024-01", true), false, nil)

		var out bytes.Buffer
		err := RunCreateKey(ctx, mockUseCase, logger, &out, "2024-01", "json")

		require.NoError(t, err)
		require.Contains(t, out.String(), `"version": "2024-01"`)
		require.Contains(t, out.String(), `"created": false`)
		mockUseCase.AssertExpectations(t)
	})

	t.Run("invalid-version", func(t *testing.T) {
		mockUseCase := &keyringMocks.MockKeyUseCase{}
		err := RunCreateKey(ctx, mockUseCase, logger, &bytes.Buffer{}, "bad version", "text")

		require.ErrorIs(t, err, keyringDomain.ErrInvalidKeyVersion)
		mockUseCase.AssertNotCalled(t, "Create")
	})

	t.Run("invalid-format", func(t *testing.T) {
		err := RunCreateKey(ctx, &keyringMocks.MockKeyUseCase{}, logger, &bytes.Buffer{}, "v1", "yaml")
		require.Error(t, err)
		require.Contains(t, err.Error(), "invalid format")
	})
}

func TestRunRotateKey(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("success", func(t *testing.T) {
		mockUseCase := &keyringMocks.MockKeyUseCase{}
		mockUseCase.On("Rotate", ctx, "").Return(newKeyInfo("20240102T030405Z", true), nil)

		var out bytes.Buffer
		err := RunRotateKey(ctx, mockUseCase, logger, &out, "", "text")

		require.NoError(t, err)
		require.Contains(t, out.String(), "Rotated to key 20240102T030405Z")
		require.NotContains(t, out.String(), "pinned")
		mockUseCase.AssertExpectations(t)
	})

	t.Run("pinned-version", func(t *testing.T) {
		mockUseCase := &keyringMocks.MockKeyUseCase{}
		mockUseCase.On("Rotate", ctx, "v2").Return(newKeyInfo("v2", false), nil)

		var out bytes.Buffer
		err := RunRotateKey(ctx, mockUseCase, logger, &out, "v2", "text")

		require.NoError(t, err)
		require.Contains(t, out.String(), "pinned")
	})

	t.Run("already-exists", func(t *testing.T) {
		mockUseCase := &keyringMocks.MockKeyUseCase{}
		mockUseCase.On("Rotate", ctx, "v1").Return(nil, keyringDomain.ErrKeyAlreadyExists)

		err := RunRotateKey(ctx, mockUseCase, logger, &bytes.Buffer{}, "v1", "json")

		require.ErrorIs(t, err, keyringDomain.ErrKeyAlreadyExists)
	})
}

func TestRunListKeys(t *testing.T) {
	ctx := context.Background()
	infos := []*keyringDomain.KeyInfo{newKeyInfo("v1", false), newKeyInfo("v2", true)}

	t.Run("text-output", func(t *testing.T) {
		mockUseCase := &keyringMocks.MockKeyUseCase{}
		mockUseCase.On("ListKeys", ctx).Return(infos, nil)

		var out bytes.Buffer
		err := RunListKeys(ctx, mockUseCase, &out, "text")

		require.NoError(t, err)
		require.Contains(t, out.String(), "VERSION")
		require.Contains(t, out.String(), "v1")
		require.Contains(t, out.String(), "2024-01-02T03:04:05Z")
		require.Less(t, bytes.Index(out.Bytes(), []byte("v1")), bytes.Index(out.Bytes(), []byte("v2")))
	})

	t.Run("json-output", func(t *testing.T) {
		mockUseCase := &keyringMocks.MockKeyUseCase{}
		mockUseCase.On("ListKeys", ctx).Return(infos, nil)

		var out bytes.Buffer
		err := RunListKeys(ctx, mockUseCase, &out, "json")

		require.NoError(t, err)
		require.Contains(t, out.String(), `"version": "v2"`)
		require.Contains(t, out.String(), `"current": true`)
	})

	t.Run("use-case-error", func(t *testing.T) {
		mockUseCase := &keyringMocks.MockKeyUseCase{}
		mockUseCase.On("ListKeys", ctx).Return(nil, errors.New("store unavailable"))

		err := RunListKeys(ctx, mockUseCase, &bytes.Buffer{}, "text")

		require.Error(t, err)
		require.Contains(t, err.Error(), "store unavailable")
	})
}

func TestRunRewrapKeys(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("success", func(t *testing.T) {
		mockUseCase := &keyringMocks.MockKeyUseCase{}
		mockUseCase.On("Rewrap", ctx, 50).Return(3, nil)

		var out bytes.Buffer
		err := RunRewrapKeys(ctx, mockUseCase, logger, &out, 50)

		require.NoError(t, err)
		require.Contains(t, out.String(), "Rewrapped 3 data key(s)")
		mockUseCase.AssertExpectations(t)
	})

	t.Run("invalid-batch-size", func(t *testing.T) {
		err := RunRewrapKeys(ctx, &keyringMocks.MockKeyUseCase{}, logger, &bytes.Buffer{}, 0)
		require.Error(t, err)
		require.Contains(t, err.Error(), "batch-size must be greater than 0")
	})
}
