// Package http provides HTTP handlers for key registry management.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/allisson/envelope/internal/httputil"
	"github.com/allisson/envelope/internal/keyring/http/dto"
	keyringUseCase "github.com/allisson/envelope/internal/keyring/usecase"
	customValidation "github.com/allisson/envelope/internal/validation"
)

// KeyHandler handles HTTP requests for key registry management.
type KeyHandler struct {
	keyUseCase keyringUseCase.KeyUseCase
	logger     *slog.Logger
}

// NewKeyHandler creates a new key handler with required dependencies.
func NewKeyHandler(keyUseCase keyringUseCase.KeyUseCase, logger *slog.Logger) *KeyHandler {
	return &KeyHandler{
		keyUseCase: keyUseCase,
		logger:     logger,
	}
}

// ListHandler lists key versions in creation order with the current one marked.
// GET /v1/keys?offset=0&limit=50
// Returns 200 OK with key metadata.
func (h *KeyHandler) ListHandler(c *gin.Context) {
	page, err := httputil.ParsePage(c)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	infos, err := h.keyUseCase.ListKeys(c.Request.Context())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapKeyInfosToListResponse(httputil.Window(infos, page)))
}

// CreateHandler gets or creates a key version.
// POST /v1/keys
// Returns 201 Created for a new key, 200 OK when the version already existed.
func (h *KeyHandler) CreateHandler(c *gin.Context) {
	var req dto.CreateKeyRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	info, created, err := h.keyUseCase.Create(c.Request.Context(), req.Version)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, dto.MapKeyInfoToResponse(info))
}

// RotateHandler creates a new key version.
// POST /v1/keys/rotate
// Returns 201 Created with the new key, 409 Conflict if the version exists.
func (h *KeyHandler) RotateHandler(c *gin.Context) {
	var req dto.RotateKeyRequest

	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httputil.HandleBadRequestGin(c, err, h.logger)
			return
		}
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	info, err := h.keyUseCase.Rotate(c.Request.Context(), req.Version)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapKeyInfoToResponse(info))
}
