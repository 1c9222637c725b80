package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/nadungimhanalk/Gemini-Image/internal/models"
	"github.com/nadungimhanalk/Gemini-Image/internal/services/generator"
	"github.com/nadungimhanalk/Gemini-Image/internal/services/storage"
	"github.com/nadungimhanalk/Gemini-Image/pkg/utils"
	"go.uber.org/zap"
)

const maxVariations = 4

// === REQUEST PARSING ===

func parseProcessingOptions(payload string) (models.ProcessingOptions, error) {
	var opts models.ProcessingOptions
	if payload == "" {
		return opts, fmt.Errorf("missing payload parameter")
	}
	if err := json.Unmarshal([]byte(payload), &opts); err != nil {
		return opts, fmt.Errorf("invalid processing request: %v", err)
	}
	if opts.Quality < 0 || opts.Quality > 1 {
		return opts, fmt.Errorf("quality must be between 0 and 1")
	}
	if opts.MaxWidth < 0 {
		return opts, fmt.Errorf("max_width must be positive")
	}
	if wm := opts.Watermark; wm != nil && (wm.Opacity < 0 || wm.Opacity > 1) {
		return opts, fmt.Errorf("opacity must be between 0 and 1")
	}
	return opts, nil
}

func parseCount(value string, defaultVal int) (int, error) {
	if value == "" {
		return defaultVal, nil
	}

	num, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid count: must be a number")
	}
	if num < 1 || num > maxVariations {
		return 0, fmt.Errorf("count must be between 1 and %d", maxVariations)
	}
	return num, nil
}

// resolveLogo downloads a logo given by URL. Failures leave the logo unset,
// which disables the watermark instead of failing the request.
func resolveLogo(ctx context.Context, opts *models.ProcessingOptions, maxSize int64, logger *zap.Logger) {
	wm := opts.Watermark
	if wm == nil || wm.Kind != models.WatermarkLogo || wm.Logo != nil || wm.LogoURL == "" {
		return
	}

	data, contentType, err := utils.DownloadImage(ctx, wm.LogoURL, maxSize)
	if err != nil {
		logger.Warn("Failed to download watermark logo", zap.String("url", wm.LogoURL), zap.Error(err))
		return
	}
	wm.Logo = &models.Image{Data: data, MIMEType: contentType}
}

// === FILE OPERATIONS ===

func (h *ImageHandler) readImage(c *gin.Context, paramKey string) (*models.Image, error) {
	file, header, err := c.Request.FormFile(paramKey)
	if err != nil {
		return nil, fmt.Errorf("no %s file provided", paramKey)
	}
	defer file.Close()

	maxSize := h.config.Storage.MaxFileSize
	if header.Size > maxSize {
		return nil, fmt.Errorf("file size %d exceeds maximum allowed size %d", header.Size, maxSize)
	}

	data, err := io.ReadAll(io.LimitReader(file, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %v", paramKey, err)
	}
	if err := h.processor.ValidateImage(data, maxSize); err != nil {
		return nil, fmt.Errorf("invalid image: %v", err)
	}

	contentType := utils.DetectContentType(data)
	if !utils.IsValidImageType(contentType) {
		return nil, fmt.Errorf("unsupported image type %s", contentType)
	}
	return &models.Image{Data: data, MIMEType: contentType}, nil
}

// === RESPONSE HANDLING ===

func respondError(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, models.APIResponse{
		Success: false,
		Error:   message,
	})
}

func (h *ImageHandler) respondFailure(c *gin.Context, message string, err error) {
	respondErr(c, h.logger, message, err)
}

func respondErr(c *gin.Context, logger *zap.Logger, message string, err error) {
	status, kind := errorStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error(message, zap.Error(err))
	} else {
		logger.Info(message, zap.Error(err))
	}
	_ = c.Error(err)

	c.JSON(status, models.APIResponse{
		Success: false,
		Error:   err.Error(),
		Kind:    kind,
	})
}

// errorStatus maps domain errors to an HTTP status and, for upstream
// generation failures, the failure kind.
func errorStatus(err error) (int, string) {
	var genErr *models.GenerationError
	switch {
	case errors.As(err, &genErr):
		return http.StatusUnprocessableEntity, string(genErr.Kind)
	case errors.Is(err, models.ErrNoValidInput),
		errors.Is(err, models.ErrBatchTooLarge),
		errors.Is(err, models.ErrDecode):
		return http.StatusBadRequest, ""
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, ""
	case errors.Is(err, models.ErrNoSuccessfulJobs):
		return http.StatusConflict, ""
	case errors.Is(err, models.ErrQuotaExceeded):
		return http.StatusInsufficientStorage, ""
	case errors.Is(err, generator.ErrNotConfigured),
		errors.Is(err, storage.ErrNotConfigured):
		return http.StatusServiceUnavailable, ""
	case errors.Is(err, models.ErrTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, ""
	case errors.Is(err, context.Canceled):
		return 499, ""
	default:
		return http.StatusBadGateway, ""
	}
}

func (h *ImageHandler) imageResponse(img *models.Image) models.ImageResponse {
	resp := models.ImageResponse{
		MIMEType: img.MIMEType,
		Data:     img.Data,
		FileSize: int64(len(img.Data)),
	}
	if w, ht, err := h.processor.Dimensions(img); err == nil {
		resp.Width, resp.Height = w, ht
	}
	return resp
}

func (h *ImageHandler) saveHistory(ctx context.Context, label string, img *models.Image) {
	if h.history == nil {
		return
	}
	if err := h.history.Save(context.WithoutCancel(ctx), label, img); err != nil {
		h.logger.Warn("Failed to save image to history", zap.Error(err))
	}
}
