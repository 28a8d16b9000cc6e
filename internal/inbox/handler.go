package inbox

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Kassie406/familyvault-app-sub005/internal/shared/server/middleware"
	"github.com/Kassie406/familyvault-app-sub005/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the inbox service and store.
type Handler struct {
	Svc          *Service
	Store        Store
	Remote       Remote
	PollInterval time.Duration

	limiter *pollLimiter

	mu       sync.Mutex
	surfaces map[string]*surfaceState
}

// surfaceState is the per-user review surface: a poller plus session-scoped
// reveal toggles. Reopening the surface replaces both.
type surfaceState struct {
	poller *Poller
	reveal *RevealState
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, store Store, remote Remote, pollInterval time.Duration) *Handler {
	return &Handler{
		Svc:          svc,
		Store:        store,
		Remote:       remote,
		PollInterval: pollInterval,
		limiter:      newPollLimiter(0, nil),
		surfaces:     make(map[string]*surfaceState),
	}
}

// RegisterRoutes attaches inbox routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/inbox/open", h.open)
	rg.POST("/inbox/close", h.close)
	rg.GET("/inbox", h.list)
	rg.GET("/inbox/:id", h.get)
	rg.POST("/inbox/:id/accept", h.accept)
	rg.POST("/inbox/:id/dismiss", h.dismiss)
	rg.POST("/inbox/:id/reveal", h.reveal)
	rg.PATCH("/inbox/:id/filename", h.rename)
}

func (h *Handler) open(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	poller := &Poller{Remote: h.Remote, Store: h.Store, Interval: h.PollInterval}

	h.mu.Lock()
	if existing, ok := h.surfaces[userID]; ok {
		existing.poller.Close()
	}
	h.surfaces[userID] = &surfaceState{poller: poller, reveal: NewRevealState()}
	h.mu.Unlock()

	// The loop outlives this request; it stops on close or shutdown.
	poller.Open(context.Background(), userID)

	respond.JSON(c, http.StatusOK, gin.H{"open": true})
}

func (h *Handler) close(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	h.mu.Lock()
	if existing, ok := h.surfaces[userID]; ok {
		existing.poller.Close()
		delete(h.surfaces, userID)
	}
	h.mu.Unlock()

	respond.JSON(c, http.StatusOK, gin.H{"open": false})
}

func (h *Handler) list(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	items, err := h.Store.ListActive(c.Request.Context(), userID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list inbox", nil)
		return
	}

	reveal := h.revealFor(userID)
	resp := make([]gin.H, 0, len(items))
	for _, item := range items {
		resp = append(resp, h.renderItem(item, reveal))
	}
	respond.JSON(c, http.StatusOK, resp)
}

func (h *Handler) get(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	documentID := c.Param("id")

	if !h.limiter.Allow(userID, documentID) {
		c.Header("Retry-After", "1")
		respond.Error(c, http.StatusTooManyRequests, "poll_too_fast", "polling too frequently", nil)
		return
	}

	item, err := h.Store.Get(c.Request.Context(), documentID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "inbox item not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch inbox item", nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, h.renderItem(item, h.revealFor(userID)))
}

type acceptRequest struct {
	Fields      []ExtractedField `json:"fields"`
	Filename    string           `json:"filename"`
	OpenProfile bool             `json:"openProfile"`
}

func (h *Handler) accept(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	documentID := c.Param("id")

	// An empty body means "accept as suggested".
	var req acceptRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "invalid request body", nil)
			return
		}
	}

	memberID, err := h.Svc.Accept(c.Request.Context(), AcceptRequest{
		DocumentID:     documentID,
		UserID:         userID,
		ChosenFields:   req.Fields,
		ChosenFilename: req.Filename,
		OpenProfile:    req.OpenProfile,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "inbox item not found", nil)
		case errors.Is(err, ErrTerminal):
			respond.Error(c, http.StatusConflict, ErrorCodeTerminal, "item already accepted or dismissed", nil)
		case errors.Is(err, ErrNoSuggestion):
			respond.Error(c, http.StatusConflict, ErrorCodeValidation, "item has no suggestion to accept", nil)
		case errors.Is(err, ErrInvalidFilename):
			respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "invalid filename", nil)
		default:
			respond.Error(c, http.StatusBadGateway, ErrorCodePersistence, "failed to persist accept; item unchanged", nil)
		}
		return
	}

	c.Set("documentId", documentID)
	c.Set("statusTransition", string(StatusSuggested)+"->"+string(StatusAccepted))
	respond.JSON(c, http.StatusOK, gin.H{
		"documentId": documentID,
		"status":     StatusAccepted,
		"memberId":   memberID,
	})
}

func (h *Handler) dismiss(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	documentID := c.Param("id")

	if err := h.Svc.Dismiss(c.Request.Context(), userID, documentID); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "inbox item not found", nil)
		case errors.Is(err, ErrTerminal):
			respond.Error(c, http.StatusConflict, ErrorCodeTerminal, "item already accepted or dismissed", nil)
		default:
			respond.Error(c, http.StatusBadGateway, ErrorCodePersistence, "failed to persist dismiss; item unchanged", nil)
		}
		return
	}

	c.Set("documentId", documentID)
	c.Set("statusTransition", "->"+string(StatusDismissed))
	respond.JSON(c, http.StatusOK, gin.H{
		"documentId": documentID,
		"status":     StatusDismissed,
	})
}

type revealRequest struct {
	FieldKey string `json:"fieldKey"`
}

func (h *Handler) reveal(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	documentID := c.Param("id")

	var req revealRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.FieldKey) == "" {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "fieldKey is required", nil)
		return
	}

	revealed := h.revealFor(userID).Toggle(documentID, req.FieldKey)
	respond.JSON(c, http.StatusOK, gin.H{
		"documentId": documentID,
		"fieldKey":   req.FieldKey,
		"revealed":   revealed,
	})
}

type renameRequest struct {
	Filename string `json:"filename"`
}

func (h *Handler) rename(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	documentID := c.Param("id")

	var req renameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "invalid request body", nil)
		return
	}

	if err := h.Svc.Rename(c.Request.Context(), userID, documentID, req.Filename); err != nil {
		switch {
		case errors.Is(err, ErrInvalidFilename):
			respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "invalid filename", nil)
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "inbox item not found", nil)
		default:
			respond.Error(c, http.StatusBadGateway, ErrorCodePersistence, "failed to update filename", nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, gin.H{
		"documentId": documentID,
		"filename":   strings.TrimSpace(req.Filename),
	})
}

func (h *Handler) revealFor(userID string) *RevealState {
	h.mu.Lock()
	defer h.mu.Unlock()
	if surface, ok := h.surfaces[userID]; ok {
		return surface.reveal
	}
	// Surface not opened yet; everything stays masked.
	state := NewRevealState()
	h.surfaces[userID] = &surfaceState{poller: &Poller{Remote: h.Remote, Store: h.Store, Interval: h.PollInterval}, reveal: state}
	return state
}

func (h *Handler) renderItem(item InboxItem, reveal *RevealState) gin.H {
	out := gin.H{
		"documentId": item.DocumentID,
		"status":     item.Status,
		"updatedAt":  item.UpdatedAt,
	}
	if item.LastError != "" {
		out["error"] = item.LastError
	}
	if item.Suggestion != nil {
		fields := make([]gin.H, 0, len(item.Suggestion.Fields))
		for _, field := range item.Suggestion.Fields {
			fields = append(fields, gin.H{
				"key":         field.Key,
				"value":       Present(field, reveal.Revealed(item.DocumentID, field.Key)),
				"confidence":  field.Confidence,
				"isSensitive": field.IsSensitive,
			})
		}
		out["suggestion"] = gin.H{
			"memberId":          item.Suggestion.MemberID,
			"memberName":        item.Suggestion.MemberName,
			"confidence":        item.Suggestion.Confidence,
			"suggestedFilename": item.Suggestion.SuggestedFilename,
			"documentType":      item.Suggestion.DocumentType,
			"fields":            fields,
		}
	}
	return out
}
