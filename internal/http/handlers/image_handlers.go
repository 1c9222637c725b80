package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nadungimhanalk/Gemini-Image/internal/config"
	"github.com/nadungimhanalk/Gemini-Image/internal/models"
	"github.com/nadungimhanalk/Gemini-Image/internal/services/processor"
	"go.uber.org/zap"
)

const (
	imageParamKey   = "image"
	logoParamKey    = "logo"
	payloadParamKey = "payload"
	defaultCount    = 4
)

type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) (*models.Image, error)
	Edit(ctx context.Context, src *models.Image, instruction string) (*models.Image, error)
	Variations(ctx context.Context, src *models.Image, count int, hint string) ([]models.Image, error)
	GenerateVideo(ctx context.Context, prompt, aspectRatio string) (*models.Video, error)
}

// HistorySaver is the write side of the history store.
type HistorySaver interface {
	Save(ctx context.Context, label string, img *models.Image) error
}

type ImageHandler struct {
	generator ImageGenerator
	processor *processor.ImageProcessor
	history   HistorySaver
	logger    *zap.Logger
	config    *config.Config
}

func NewImageHandler(
	generator ImageGenerator,
	processor *processor.ImageProcessor,
	history HistorySaver,
	logger *zap.Logger,
	config *config.Config,
) *ImageHandler {
	return &ImageHandler{
		generator: generator,
		processor: processor,
		history:   history,
		logger:    logger,
		config:    config,
	}
}

// === MAIN API ENDPOINTS ===

func (h *ImageHandler) Generate(c *gin.Context) {
	var req models.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		respondError(c, http.StatusBadRequest, models.ErrNoValidInput.Error())
		return
	}

	ctx := c.Request.Context()
	img, err := h.generator.Generate(ctx, prompt)
	if err != nil {
		h.respondFailure(c, "Generation failed", err)
		return
	}

	if req.Options != nil {
		resolveLogo(ctx, req.Options, h.config.Storage.MaxFileSize, h.logger)
		img, err = processor.NewPipeline(h.processor, *req.Options).Process(ctx, img)
		if err != nil {
			h.respondFailure(c, "Post-processing failed", err)
			return
		}
	}

	h.saveHistory(ctx, prompt, img)
	c.JSON(http.StatusOK, models.APIResponse{
		Success: true,
		Data:    h.imageResponse(img),
	})
}

func (h *ImageHandler) Edit(c *gin.Context) {
	src, err := h.readImage(c, imageParamKey)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	instruction := strings.TrimSpace(c.PostForm("instruction"))
	if instruction == "" {
		respondError(c, http.StatusBadRequest, "instruction is required")
		return
	}

	ctx := c.Request.Context()
	img, err := h.generator.Edit(ctx, src, instruction)
	if err != nil {
		h.respondFailure(c, "Edit failed", err)
		return
	}

	h.saveHistory(ctx, instruction, img)
	c.JSON(http.StatusOK, models.APIResponse{
		Success: true,
		Data:    h.imageResponse(img),
	})
}

func (h *ImageHandler) Variations(c *gin.Context) {
	src, err := h.readImage(c, imageParamKey)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	count, err := parseCount(c.PostForm("count"), defaultCount)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	hint := strings.TrimSpace(c.PostForm("hint"))

	ctx := c.Request.Context()
	images, err := h.generator.Variations(ctx, src, count, hint)
	if err != nil {
		h.respondFailure(c, "Variations failed", err)
		return
	}

	label := "variation"
	if hint != "" {
		label = "variation: " + hint
	}
	out := make([]models.ImageResponse, 0, len(images))
	for i := range images {
		h.saveHistory(ctx, label, &images[i])
		out = append(out, h.imageResponse(&images[i]))
	}

	c.JSON(http.StatusOK, models.APIResponse{
		Success: true,
		Data:    out,
	})
}

// Process runs the post-processing pipeline on an uploaded image and
// returns the result bytes.
func (h *ImageHandler) Process(c *gin.Context) {
	src, err := h.readImage(c, imageParamKey)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	opts, err := parseProcessingOptions(c.PostForm(payloadParamKey))
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	ctx := c.Request.Context()
	if opts.Watermark != nil && opts.Watermark.Kind == models.WatermarkLogo && opts.Watermark.Logo == nil {
		if logo, err := h.readImage(c, logoParamKey); err == nil {
			opts.Watermark.Logo = logo
		}
	}
	resolveLogo(ctx, &opts, h.config.Storage.MaxFileSize, h.logger)

	img, err := processor.NewPipeline(h.processor, opts).Process(ctx, src)
	if err != nil {
		h.respondFailure(c, "Processing failed", err)
		return
	}

	c.Data(http.StatusOK, img.MIMEType, img.Data)
}

func (h *ImageHandler) GenerateVideo(c *gin.Context) {
	var req models.VideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	video, err := h.generator.GenerateVideo(c.Request.Context(), req.Prompt, req.AspectRatio)
	if err != nil {
		h.respondFailure(c, "Video generation failed", err)
		return
	}

	if video.URI != "" {
		c.Header("X-Video-URI", video.URI)
	}
	c.Data(http.StatusOK, video.MIMEType, video.Data)
}
