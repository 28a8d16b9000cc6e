package analyses

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Kassie406/familyvault-app-sub005/internal/documents"
	"github.com/Kassie406/familyvault-app-sub005/internal/shared/server/middleware"
	"github.com/Kassie406/familyvault-app-sub005/internal/shared/server/respond"
)

// Handler exposes analysis trigger endpoints.
type Handler struct {
	Dispatcher *Dispatcher
	Docs       documents.DocumentsRepo
}

// NewHandler constructs a Handler.
func NewHandler(dispatcher *Dispatcher, docs documents.DocumentsRepo) *Handler {
	return &Handler{Dispatcher: dispatcher, Docs: docs}
}

// RegisterRoutes attaches analysis routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents/:id/analyze", h.analyze)
	rg.POST("/documents/:id/analyze/retry", h.retry)
}

func (h *Handler) analyze(c *gin.Context) {
	h.trigger(c, false)
}

func (h *Handler) retry(c *gin.Context) {
	h.trigger(c, true)
}

func (h *Handler) trigger(c *gin.Context, retry bool) {
	userID := middleware.UserIDFromContext(c)
	documentID := c.Param("id")

	doc, err := h.Docs.GetByID(c.Request.Context(), userID, documentID)
	if err != nil {
		if errors.Is(err, documents.ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch document", nil)
		return
	}

	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	if retry {
		h.Dispatcher.Retry(ctx, doc)
	} else {
		h.Dispatcher.Start(ctx, doc)
	}

	respond.JSON(c, http.StatusAccepted, gin.H{
		"documentId": doc.ID,
		"inFlight":   h.Dispatcher.InFlight(doc.ID),
	})
}
