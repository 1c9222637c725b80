package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nadungimhanalk/Gemini-Image/internal/models"
	"github.com/nadungimhanalk/Gemini-Image/internal/services/history"
	"go.uber.org/zap"
)

type HistoryHandler struct {
	store  history.Store
	logger *zap.Logger
}

func NewHistoryHandler(store history.Store, logger *zap.Logger) *HistoryHandler {
	return &HistoryHandler{store: store, logger: logger}
}

func (h *HistoryHandler) List(c *gin.Context) {
	entries, err := h.store.List(c.Request.Context())
	if err != nil {
		respondErr(c, h.logger, "History listing failed", err)
		return
	}

	c.JSON(http.StatusOK, models.APIResponse{
		Success: true,
		Data:    entries,
	})
}

// Get streams one entry's image bytes.
func (h *HistoryHandler) Get(c *gin.Context) {
	entry, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, h.logger, "History lookup failed", err)
		return
	}

	c.Data(http.StatusOK, entry.MIMEType, entry.Data)
}

func (h *HistoryHandler) Clear(c *gin.Context) {
	if err := h.store.Clear(c.Request.Context()); err != nil {
		respondErr(c, h.logger, "History clear failed", err)
		return
	}

	c.JSON(http.StatusOK, models.APIResponse{Success: true})
}
