package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/uplinehq/agencytree-backend/internal/logger"
	pkgerrors "github.com/uplinehq/agencytree-backend/internal/pkg/errors"
	"github.com/uplinehq/agencytree-backend/internal/services"
)

type HierarchyHandler struct {
	log              *logger.Logger
	hierarchyService services.HierarchyService
}

func NewHierarchyHandler(log *logger.Logger, hierarchyService services.HierarchyService) *HierarchyHandler {
	return &HierarchyHandler{
		log:              log.With("handler", "HierarchyHandler"),
		hierarchyService: hierarchyService,
	}
}

// GetHierarchy serves the full document. ?refresh=true bypasses the snapshot
// cache and rebuilds from the CRM.
func (h *HierarchyHandler) GetHierarchy(c *gin.Context) {
	refresh := parseBoolParam(c.Query("refresh"))
	doc, err := h.hierarchyService.GetHierarchy(c.Request.Context(), refresh)
	if err != nil {
		h.log.Error("GetHierarchy failed", "error", err, "refresh", refresh)
		respondBuildError(c, err)
		return
	}
	RespondOK(c, doc)
}

// RefreshHierarchy forces a rebuild and returns the summary without the
// forest, which callers triggering a refresh rarely need inline.
func (h *HierarchyHandler) RefreshHierarchy(c *gin.Context) {
	doc, err := h.hierarchyService.GetHierarchy(c.Request.Context(), true)
	if err != nil {
		h.log.Error("RefreshHierarchy failed", "error", err)
		respondBuildError(c, err)
		return
	}
	RespondOK(c, gin.H{
		"generatedAt": doc.GeneratedAt,
		"stats":       doc.Stats,
		"issues":      doc.Issues,
	})
}

func (h *HierarchyHandler) GetIssues(c *gin.Context) {
	doc, err := h.hierarchyService.GetHierarchy(c.Request.Context(), false)
	if err != nil {
		h.log.Error("GetIssues failed", "error", err)
		respondBuildError(c, err)
		return
	}
	RespondOK(c, gin.H{
		"generatedAt": doc.GeneratedAt,
		"issues":      doc.Issues,
	})
}

func respondBuildError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pkgerrors.ErrUnauthorized):
		RespondError(c, http.StatusBadGateway, "crm_auth_failed", err)
	default:
		RespondError(c, http.StatusBadGateway, "hierarchy_build_failed", err)
	}
}

func parseBoolParam(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
