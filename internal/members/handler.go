package members

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Kassie406/familyvault-app-sub005/internal/shared/server/middleware"
	"github.com/Kassie406/familyvault-app-sub005/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the members service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches member routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/members", h.create)
	rg.GET("/members", h.list)
	rg.GET("/members/:id", h.get)
	rg.GET("/members/:id/fields", h.fields)
}

type createMemberRequest struct {
	Name         string `json:"name"`
	Relationship string `json:"relationship"`
}

type memberResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Relationship string `json:"relationship,omitempty"`
	CreatedAt    string `json:"createdAt"`
}

type fieldResponse struct {
	DocumentID string `json:"documentId"`
	Filename   string `json:"filename"`
	Key        string `json:"key"`
	Value      string `json:"value"`
	Confidence int    `json:"confidence"`
	Sensitive  bool   `json:"sensitive"`
	AttachedAt string `json:"attachedAt"`
}

func toMemberResponse(m Member) memberResponse {
	return memberResponse{
		ID:           m.ID,
		Name:         m.Name,
		Relationship: m.Relationship,
		CreatedAt:    m.CreatedAt.Format(time.RFC3339),
	}
}

func (h *Handler) create(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	var req createMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	m, err := h.Svc.Create(c.Request.Context(), userID, req.Name, req.Relationship)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to create member", nil)
		return
	}
	respond.JSON(c, http.StatusCreated, toMemberResponse(m))
}

func (h *Handler) list(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	list, err := h.Svc.List(c.Request.Context(), userID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list members", nil)
		return
	}
	out := make([]memberResponse, 0, len(list))
	for _, m := range list {
		out = append(out, toMemberResponse(m))
	}
	respond.OK(c, gin.H{"members": out})
}

func (h *Handler) get(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	m, err := h.Svc.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "member not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch member", nil)
		return
	}
	respond.OK(c, toMemberResponse(m))
}

func (h *Handler) fields(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	fields, err := h.Svc.Fields(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "member not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list fields", nil)
		return
	}
	out := make([]fieldResponse, 0, len(fields))
	for _, f := range fields {
		out = append(out, fieldResponse{
			DocumentID: f.DocumentID,
			Filename:   f.Filename,
			Key:        f.Key,
			Value:      f.Value,
			Confidence: f.Confidence,
			Sensitive:  f.Sensitive,
			AttachedAt: f.AttachedAt.Format(time.RFC3339),
		})
	}
	respond.OK(c, gin.H{"fields": out})
}
