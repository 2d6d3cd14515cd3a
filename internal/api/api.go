package api

import (
	"errors"
	"net/http"
	"strconv"

	"skinvault/internal/models"
	"skinvault/internal/services/catalog"
	"skinvault/internal/services/history"
	"skinvault/internal/services/poller"
	"skinvault/internal/services/prices"
	"skinvault/internal/storage"

	"github.com/gin-gonic/gin"
)

// Deps wires the read surface to the subsystem. Everything behind these
// handlers goes through the stores' accessor methods; nothing mutates
// rows directly except the favorite toggle, which routes through the
// catalog store's own path.
type Deps struct {
	Catalog      *catalog.Orchestrator
	CatalogStore *storage.CatalogStore
	Prices       *prices.Service
	Resolver     *history.Resolver
	Scheduler    *poller.Scheduler
	Meta         *storage.MetaStore
}

func SetupRoutes(rg *gin.RouterGroup, deps Deps) {
	rg.GET("/items", deps.listItems)
	rg.GET("/items/:id", deps.getItem)
	rg.POST("/items/:id/favorite", deps.toggleFavorite)
	rg.GET("/prices/:key", deps.getPrice)
	rg.GET("/history/:key", deps.getHistory)
	rg.POST("/sync", deps.syncCatalog)
	rg.POST("/refresh", deps.refreshPrices)
	rg.POST("/reset", deps.resetAndResync)
	rg.GET("/status", deps.status)

	// Lifecycle signals from the embedding shell (the mobile/desktop
	// frontend tells us when it is backgrounded).
	rg.POST("/lifecycle/background", func(c *gin.Context) {
		deps.Scheduler.EnterBackground()
		c.JSON(http.StatusOK, gin.H{"scheduler": deps.Scheduler.State()})
	})
	rg.POST("/lifecycle/foreground", func(c *gin.Context) {
		deps.Scheduler.EnterForeground()
		c.JSON(http.StatusOK, gin.H{"scheduler": deps.Scheduler.State()})
	})
}

// listItems is the initial-load path: an empty store triggers a
// blocking catalog sync, a populated one is served immediately.
func (d Deps) listItems(c *gin.Context) {
	if c.Query("favorites") == "1" {
		items, err := d.CatalogStore.List(true)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
		return
	}

	items, err := d.Catalog.LoadOrSync(c.Request.Context())
	if err != nil {
		// LoadOrSync only fails when the store is empty and the
		// blocking first sync could not run.
		if errors.Is(err, models.ErrNetworkUnavailable) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no cached data exists; a connection is required for the first load"})
			return
		}
		status, msg := classifySyncError(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
}

func (d Deps) getItem(c *gin.Context) {
	item, err := d.CatalogStore.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if item == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
		return
	}
	c.JSON(http.StatusOK, item)
}

func (d Deps) toggleFavorite(c *gin.Context) {
	favorite, err := d.CatalogStore.ToggleFavorite(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "is_favorite": favorite})
}

func (d Deps) getPrice(c *gin.Context) {
	snap, err := d.Prices.GetCurrent(c.Param("key"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if snap == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no cached price for this key yet"})
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (d Deps) getHistory(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "30"))
	if err != nil || days <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "days must be a positive integer"})
		return
	}
	result := d.Resolver.Resolve(c.Request.Context(), c.Param("key"), days)
	c.JSON(http.StatusOK, result)
}

// syncCatalog is the manual, foreground-triggered refresh: typed errors
// surface to the caller here instead of being swallowed.
func (d Deps) syncCatalog(c *gin.Context) {
	count, err := d.Catalog.SyncFromRemote(c.Request.Context())
	if err != nil {
		status, msg := classifySyncError(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}
	c.JSON(http.StatusOK, gin.H{"synced": count})
}

func (d Deps) refreshPrices(c *gin.Context) {
	count, err := d.Prices.RefreshFromFeed(c.Request.Context())
	if err != nil {
		status, msg := classifySyncError(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}
	c.JSON(http.StatusOK, gin.H{"refreshed": count})
}

// resetAndResync is the recovery path for exhausted storage: wipe
// everything local and pull the catalog fresh.
func (d Deps) resetAndResync(c *gin.Context) {
	if err := errors.Join(
		d.CatalogStore.Reset(),
		d.Prices.Store.Reset(),
		d.Meta.Reset(),
	); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	count, err := d.Catalog.SyncFromRemote(c.Request.Context())
	if err != nil {
		status, msg := classifySyncError(err)
		c.JSON(status, gin.H{"error": msg, "reset": true})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reset": true, "synced": count})
}

func (d Deps) status(c *gin.Context) {
	lastCatalogSync, _ := d.Meta.GetTime(models.MetaLastCatalogSync)
	lastPriceUpdate, _ := d.Meta.GetTime(models.MetaLastPriceUpdate)
	c.JSON(http.StatusOK, gin.H{
		"scheduler":         d.Scheduler.State(),
		"last_poll":         d.Scheduler.LastPoll(),
		"last_catalog_sync": lastCatalogSync,
		"last_price_update": lastPriceUpdate,
	})
}

func classifySyncError(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrNetworkUnavailable):
		return http.StatusServiceUnavailable, "network unavailable; local data unchanged"
	case errors.Is(err, models.ErrEmptyRemoteResponse):
		return http.StatusBadGateway, "remote catalog returned no records; existing data kept"
	case errors.Is(err, models.ErrRemoteError):
		return http.StatusBadGateway, "remote returned an error; existing data kept"
	case errors.Is(err, models.ErrStorageExhausted):
		return http.StatusInsufficientStorage, "local storage exhausted; use /reset to clear and resync"
	default:
		return http.StatusInternalServerError, err.Error()
	}
}
