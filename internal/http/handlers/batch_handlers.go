package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/nadungimhanalk/Gemini-Image/internal/config"
	"github.com/nadungimhanalk/Gemini-Image/internal/models"
	"github.com/nadungimhanalk/Gemini-Image/internal/services/batch"
	"go.uber.org/zap"
)

type BatchManager interface {
	Submit(ctx context.Context, req models.BatchRequest) (*models.Batch, error)
	Get(ctx context.Context, id string) (*models.Batch, error)
	Cancel(ctx context.Context, id string) error
	Export(ctx context.Context, id string) ([]byte, error)
}

type ObjectPublisher interface {
	PublishArchive(ctx context.Context, data []byte, filename string) (string, error)
	PublishImages(ctx context.Context, files []models.UploadFile) ([]models.PublishedFile, error)
}

type BatchHandler struct {
	manager   BatchManager
	publisher ObjectPublisher
	logger    *zap.Logger
	config    *config.Config
}

func NewBatchHandler(manager BatchManager, publisher ObjectPublisher, logger *zap.Logger, config *config.Config) *BatchHandler {
	return &BatchHandler{
		manager:   manager,
		publisher: publisher,
		logger:    logger,
		config:    config,
	}
}

func (h *BatchHandler) Create(c *gin.Context) {
	var req models.BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	ctx := c.Request.Context()
	resolveLogo(ctx, &req.Options, h.config.Storage.MaxFileSize, h.logger)

	b, err := h.manager.Submit(ctx, req)
	if err != nil {
		respondErr(c, h.logger, "Batch submission failed", err)
		return
	}

	c.JSON(http.StatusAccepted, models.APIResponse{
		Success: true,
		Data:    models.NewBatchResponse(b),
	})
}

func (h *BatchHandler) Get(c *gin.Context) {
	b, err := h.manager.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, h.logger, "Batch lookup failed", err)
		return
	}

	c.JSON(http.StatusOK, models.APIResponse{
		Success: true,
		Data:    models.NewBatchResponse(b),
	})
}

func (h *BatchHandler) Cancel(c *gin.Context) {
	id := c.Param("id")
	if err := h.manager.Cancel(c.Request.Context(), id); err != nil {
		respondErr(c, h.logger, "Batch cancellation failed", err)
		return
	}

	c.JSON(http.StatusAccepted, models.APIResponse{
		Success: true,
		Data:    gin.H{"id": id, "status": "cancelling"},
	})
}

// Export returns the zip of successful jobs, or with ?publish=true uploads it
// and returns the public URL.
func (h *BatchHandler) Export(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()

	archive, err := h.manager.Export(ctx, id)
	if err != nil {
		respondErr(c, h.logger, "Batch export failed", err)
		return
	}

	filename := archiveName(id)
	publish, _ := strconv.ParseBool(c.Query("publish"))
	if !publish {
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
		c.Data(http.StatusOK, "application/zip", archive)
		return
	}

	url, err := h.publisher.PublishArchive(ctx, archive, filename)
	if err != nil {
		respondErr(c, h.logger, "Archive publishing failed", err)
		return
	}

	c.JSON(http.StatusOK, models.APIResponse{
		Success: true,
		Data:    models.PublishedFile{Name: filename, URL: url},
	})
}

// Publish uploads every successful image of the batch individually.
func (h *BatchHandler) Publish(c *gin.Context) {
	ctx := c.Request.Context()
	b, err := h.manager.Get(ctx, c.Param("id"))
	if err != nil {
		respondErr(c, h.logger, "Batch lookup failed", err)
		return
	}

	var files []models.UploadFile
	for _, j := range b.Jobs {
		if j.Status != models.StatusDone || j.Result == nil {
			continue
		}
		files = append(files, models.UploadFile{
			Filename:    batch.ArchiveFilename(j),
			ContentType: j.Result.MIMEType,
			Data:        j.Result.Data,
		})
	}
	if len(files) == 0 {
		respondErr(c, h.logger, "Batch publishing failed", models.ErrNoSuccessfulJobs)
		return
	}

	published, err := h.publisher.PublishImages(ctx, files)
	if err != nil && len(published) == 0 {
		respondErr(c, h.logger, "Batch publishing failed", err)
		return
	}

	resp := models.APIResponse{Success: true, Data: published}
	if err != nil {
		h.logger.Warn("Batch partially published", zap.String("batch_id", b.ID), zap.Error(err))
		resp.Error = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

func archiveName(id string) string {
	if len(id) > 8 {
		id = id[:8]
	}
	return "batch_" + id + ".zip"
}
