package notification

import (
	"log/slog"
	"net/http"

	"courier/internal/common"
	"courier/internal/middleware"

	"github.com/gin-gonic/gin"
)

// Handler handles HTTP requests for the notification domain.
type Handler struct {
	service *Service
}

// NewHandler creates a new notification handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Send handles POST /api/v1/notifications
// Blocks until the notification reaches sent (201) or failed (502).
func (h *Handler) Send(c *gin.Context) {
	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Error(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	resp, err := h.service.Submit(c.Request.Context(), &req)
	if err != nil {
		slog.Error("submit notification failed",
			"error", err,
			"request_id", middleware.GetRequestID(c),
			"channel", req.Channel,
			"type", req.Type,
			"to", req.To,
		)
		common.HandleError(c, err)
		return
	}

	status := http.StatusCreated
	if !resp.Success {
		status = http.StatusBadGateway
	}
	common.Respond(c, status, resp.Success, resp.Log)
}

// GetNotification handles GET /api/v1/notifications/:id
func (h *Handler) GetNotification(c *gin.Context) {
	id := c.Param("id")

	notifLog, err := h.service.GetNotification(c.Request.Context(), id)
	if err != nil {
		common.HandleError(c, err)
		return
	}

	common.Success(c, http.StatusOK, notifLog)
}

// ListNotifications handles GET /api/v1/notifications
func (h *Handler) ListNotifications(c *gin.Context) {
	var filter ListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		common.Error(c, http.StatusBadRequest, "invalid query parameters: "+err.Error())
		return
	}

	resp, err := h.service.ListNotifications(c.Request.Context(), filter)
	if err != nil {
		common.HandleError(c, err)
		return
	}

	common.Success(c, http.StatusOK, resp)
}

// RegisterRoutes registers notification routes to the given router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/notifications", h.Send)
	rg.GET("/notifications", h.ListNotifications)
	rg.GET("/notifications/:id", h.GetNotification)
}
