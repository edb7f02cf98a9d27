package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campbellstack/campbell-engine/internal/dataset"
	"github.com/campbellstack/campbell-engine/internal/models"
	"github.com/campbellstack/campbell-engine/internal/services"
	"github.com/campbellstack/campbell-engine/internal/store"
	"github.com/campbellstack/campbell-engine/internal/utils"
)

// Handlers binds the service layer to the HTTP routes.
type Handlers struct {
	logger   *slog.Logger
	ingest   *services.IngestService
	registry *store.Registry
	db       *store.SQLStore
	dbPath   string
}

// NewRouter builds the gin engine with all routes registered. dbPath is the
// default database location used when a save/load request omits the path.
func NewRouter(logger *slog.Logger, ingest *services.IngestService, registry *store.Registry, db *store.SQLStore, dbPath string) *gin.Engine {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{logger: logger, ingest: ingest, registry: registry, db: db, dbPath: dbPath}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", h.handleHealth)

	v1 := router.Group("/api/v1")
	v1.POST("/datasets", h.handleIngest)
	v1.GET("/datasets", h.handleList)
	v1.GET("/datasets/:tool/:name", h.handleSummary)
	v1.GET("/datasets/:tool/:name/arrays/:array", h.handleArray)
	v1.DELETE("/datasets/:tool/:name/modes", h.handleRemoveModes)
	v1.DELETE("/datasets/:tool/:name", h.handleRemove)
	v1.POST("/database/save", h.handleSave)
	v1.POST("/database/load", h.handleLoad)
	return router
}

func (h *Handlers) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handlers) handleIngest(c *gin.Context) {
	var req models.IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	d, diags, err := h.ingest.Ingest(c.Request.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		var appErr *utils.AppError
		if errors.As(err, &appErr) && appErr.Msg == "invalid request" {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error(), "diagnostics": diagList(diags)})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"tool":            d.Tool,
		"name":            d.Name,
		"modes":           d.NumModes(),
		"operatingPoints": d.NumOperatingPoints(),
		"diagnostics":     diagList(diags),
	})
}

func (h *Handlers) handleList(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"datasets": h.registry.List()})
}

// modeView is the JSON shape of a mode with its classification tags.
type modeView struct {
	Name          string `json:"name"`
	SymmetryType  string `json:"symmetryType,omitempty"`
	WhirlType     string `json:"whirlType,omitempty"`
	Component     string `json:"component,omitempty"`
	BladeModeType string `json:"bladeModeType,omitempty"`
}

func modeViews(modes []models.Mode) []modeView {
	out := make([]modeView, len(modes))
	for i, m := range modes {
		out[i] = modeView{
			Name:          m.Name,
			SymmetryType:  m.SymmetryType,
			WhirlType:     m.WhirlType,
			Component:     m.Component,
			BladeModeType: m.BladeModeType,
		}
	}
	return out
}

// handleSummary returns dataset metadata. The mode list can be narrowed by
// classification query parameters; "all" (the default) matches everything.
func (h *Handlers) handleSummary(c *gin.Context) {
	d, ok := h.lookup(c)
	if !ok {
		return
	}
	filter := models.ModeFilter{
		SymmetryType:  c.DefaultQuery("symmetry", "all"),
		WhirlType:     c.DefaultQuery("whirl", "all"),
		Component:     c.DefaultQuery("component", "all"),
		BladeModeType: c.DefaultQuery("bladeMode", "all"),
	}
	filtered := make([]models.Mode, 0, len(d.Modes))
	for _, m := range d.Modes {
		if m.Matches(filter) {
			filtered = append(filtered, m)
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"tool":               d.Tool,
		"name":               d.Name,
		"modes":              modeViews(filtered),
		"participationModes": modeViews(d.ParticipationModes),
		"operatingParams":    d.OperatingParams,
		"operatingPoints":    d.NumOperatingPoints(),
		"attrs":              d.Attrs,
	})
}

func (h *Handlers) handleArray(c *gin.Context) {
	d, ok := h.lookup(c)
	if !ok {
		return
	}
	name := c.Param("array")
	arr, err := d.Array(name)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": name, "data": arr})
}

func (h *Handlers) handleRemoveModes(c *gin.Context) {
	tool, ok := h.tool(c)
	if !ok {
		return
	}
	var req struct {
		IDs []int `json:"ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	name := c.Param("name")
	if _, registered := h.registry.Get(tool, name); !registered {
		c.JSON(http.StatusNotFound, gin.H{"error": "dataset not found"})
		return
	}
	if err := h.registry.RemoveModes(tool, name, dataset.SortedModeIDs(req.IDs)); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	d, _ := h.registry.Get(tool, name)
	c.JSON(http.StatusOK, gin.H{"modes": d.NumModes()})
}

func (h *Handlers) handleRemove(c *gin.Context) {
	tool, ok := h.tool(c)
	if !ok {
		return
	}
	if !h.registry.Remove(tool, c.Param("name")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "dataset not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) handleSave(c *gin.Context) {
	path, ok := h.databasePath(c)
	if !ok {
		return
	}
	if err := h.db.Save(c.Request.Context(), path, h.registry); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"path": path, "datasets": len(h.registry.List())})
}

func (h *Handlers) handleLoad(c *gin.Context) {
	path, ok := h.databasePath(c)
	if !ok {
		return
	}
	entries, diags, err := h.db.Load(c.Request.Context(), path, h.registry)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"path": path, "datasets": entries, "diagnostics": diagList(diags)})
}

// databasePath resolves the database location of a save/load request,
// falling back to the configured default.
func (h *Handlers) databasePath(c *gin.Context) (string, bool) {
	var req struct {
		Path string `json:"path"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", false
	}
	if req.Path == "" {
		req.Path = h.dbPath
	}
	if req.Path == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "database path is required"})
		return "", false
	}
	return req.Path, true
}

// lookup resolves the :tool/:name route parameters into a registered dataset.
func (h *Handlers) lookup(c *gin.Context) (*dataset.Dataset, bool) {
	tool, ok := h.tool(c)
	if !ok {
		return nil, false
	}
	d, registered := h.registry.Get(tool, c.Param("name"))
	if !registered {
		c.JSON(http.StatusNotFound, gin.H{"error": "dataset not found"})
		return nil, false
	}
	return d, true
}

func (h *Handlers) tool(c *gin.Context) (models.ToolFamily, bool) {
	tool, err := models.ParseToolFamily(c.Param("tool"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", false
	}
	return tool, true
}

// diagList keeps the diagnostics field a JSON array even when empty.
func diagList(diags models.Diagnostics) []models.Diagnostic {
	if diags == nil {
		return []models.Diagnostic{}
	}
	return diags
}
