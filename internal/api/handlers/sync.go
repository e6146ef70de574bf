package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/market-history/backend/internal/services"
)

type SyncHandler struct {
	manager    *services.ListingManager
	worker     *services.SyncWorker
	assetCache *services.AssetCache
}

func NewSyncHandler(manager *services.ListingManager, worker *services.SyncWorker, assetCache *services.AssetCache) *SyncHandler {
	return &SyncHandler{
		manager:    manager,
		worker:     worker,
		assetCache: assetCache,
	}
}

// StartSync requests an immediate collection pass.
func (h *SyncHandler) StartSync(c *gin.Context) {
	if !h.worker.TriggerNow() {
		c.JSON(http.StatusConflict, gin.H{"error": "a collection pass is already running"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "started"})
}

func (h *SyncHandler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.worker.GetStatus())
}

// ResetProgress zeroes collection progress so the next pass starts over
// from the newest listing. Stored records are kept.
func (h *SyncHandler) ResetProgress(c *gin.Context) {
	if err := h.manager.Reset(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reset"})
}

func (h *SyncHandler) GetSettings(c *gin.Context) {
	settings, err := h.manager.Settings()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if settings == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no collection progress yet"})
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (h *SyncHandler) DeleteSettings(c *gin.Context) {
	if err := h.manager.DeleteSettings(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// GetAsset serves cached item metadata gathered while parsing.
func (h *SyncHandler) GetAsset(c *gin.Context) {
	asset, ok := h.assetCache.Get(
		c.Param("appid"),
		c.Param("classid"),
		c.Param("instanceid"),
		h.manager.Language(),
	)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "asset not cached"})
		return
	}
	c.JSON(http.StatusOK, asset)
}
