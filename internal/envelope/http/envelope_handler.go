// Package http provides HTTP handlers for envelope encryption operations.
package http

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	cryptoDomain "github.com/allisson/envelope/internal/crypto/domain"
	envelopeDomain "github.com/allisson/envelope/internal/envelope/domain"
	"github.com/allisson/envelope/internal/envelope/http/dto"
	envelopeUseCase "github.com/allisson/envelope/internal/envelope/usecase"
	"github.com/allisson/envelope/internal/httputil"
	customValidation "github.com/allisson/envelope/internal/validation"
)

// EnvelopeHandler handles HTTP requests for envelope encryption, decryption and migration.
type EnvelopeHandler struct {
	envelopeUseCase envelopeUseCase.EnvelopeUseCase
	logger          *slog.Logger
}

// NewEnvelopeHandler creates a new envelope handler with required dependencies.
func NewEnvelopeHandler(
	envelopeUseCase envelopeUseCase.EnvelopeUseCase,
	logger *slog.Logger,
) *EnvelopeHandler {
	return &EnvelopeHandler{
		envelopeUseCase: envelopeUseCase,
		logger:          logger,
	}
}

// validatable is implemented by every request DTO.
type validatable interface {
	Validate() error
}

// bind parses and validates the request body. Undecodable envelopes are
// reported as malformed, other decoding failures as bad requests.
func (h *EnvelopeHandler) bind(c *gin.Context, req validatable) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		if errors.Is(err, envelopeDomain.ErrMalformedEnvelope) {
			httputil.HandleErrorGin(c, err, h.logger)
			return false
		}
		httputil.HandleBadRequestGin(c, err, h.logger)
		return false
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return false
	}
	return true
}

// EncryptHandler encrypts plaintext under the current key or a named version.
// POST /v1/envelopes/encrypt
// Returns 200 OK with the envelope.
func (h *EnvelopeHandler) EncryptHandler(c *gin.Context) {
	var req dto.EncryptRequest
	if !h.bind(c, &req) {
		return
	}

	plaintext, err := base64.StdEncoding.DecodeString(req.Plaintext)
	if err != nil {
		httputil.HandleBadRequestGin(c, fmt.Errorf("invalid base64 plaintext: %w", err), h.logger)
		return
	}
	defer cryptoDomain.Zero(plaintext)

	var envelope *envelopeDomain.Envelope
	if req.KeyVersion == "" {
		envelope, err = h.envelopeUseCase.Encrypt(c.Request.Context(), plaintext)
	} else {
		envelope, err = h.envelopeUseCase.EncryptWithVersion(c.Request.Context(), plaintext, req.KeyVersion)
	}
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, envelope)
}

// DecryptHandler decrypts an envelope with the key named by its version.
// POST /v1/envelopes/decrypt
// Returns 200 OK with the base64 plaintext. SECURITY: Plaintext is zeroed after response.
func (h *EnvelopeHandler) DecryptHandler(c *gin.Context) {
	var req dto.DecryptRequest
	if !h.bind(c, &req) {
		return
	}

	plaintext, err := h.envelopeUseCase.Decrypt(c.Request.Context(), req.Envelope)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	defer cryptoDomain.Zero(plaintext)

	c.JSON(http.StatusOK, dto.MapDecryptResponse(plaintext, req.Envelope.KeyVersion))
}

// DecryptBatchHandler decrypts envelopes all-or-nothing.
// POST /v1/envelopes/decrypt-batch
// Returns 200 OK with plaintexts in request order, or the first failing element's error.
func (h *EnvelopeHandler) DecryptBatchHandler(c *gin.Context) {
	var req dto.DecryptBatchRequest
	if !h.bind(c, &req) {
		return
	}

	plaintexts, err := h.envelopeUseCase.DecryptBatch(c.Request.Context(), req.Envelopes)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	defer func() {
		for _, plaintext := range plaintexts {
			cryptoDomain.Zero(plaintext)
		}
	}()

	c.JSON(http.StatusOK, dto.MapDecryptBatchResponse(plaintexts))
}

// ReEncryptHandler moves an envelope to another key version.
// POST /v1/envelopes/re-encrypt
// Returns 200 OK with the new envelope.
func (h *EnvelopeHandler) ReEncryptHandler(c *gin.Context) {
	var req dto.ReEncryptRequest
	if !h.bind(c, &req) {
		return
	}

	envelope, err := h.envelopeUseCase.ReEncryptWithNewKey(c.Request.Context(), req.Envelope, req.KeyVersion)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, envelope)
}

// ReEncryptBatchHandler moves envelopes to another key version.
// POST /v1/envelopes/re-encrypt-batch
// Returns 200 OK with a result per element; failed elements carry their error.
func (h *EnvelopeHandler) ReEncryptBatchHandler(c *gin.Context) {
	var req dto.ReEncryptBatchRequest
	if !h.bind(c, &req) {
		return
	}

	results, err := h.envelopeUseCase.ReEncryptBatch(c.Request.Context(), req.Envelopes, req.KeyVersion)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapReEncryptBatchResponse(results))
}
