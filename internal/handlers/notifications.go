package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/insyd/insyd/internal/services"
	"github.com/insyd/insyd/pkg/response"
)

// NotificationHandler exposes the inbox.
type NotificationHandler struct {
	service *services.NotificationService
}

// NewNotificationHandler constructs a notification handler.
func NewNotificationHandler(service *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{service: service}
}

type markReadRequest struct {
	UserEmail string `json:"userEmail" validate:"required,email"`
}

type patchNotificationRequest struct {
	NotificationID string `json:"notificationId" validate:"required,notblank"`
	Email          string `json:"email" validate:"required,email"`
}

// List returns the most recent notifications for ?email=.
func (h *NotificationHandler) List(c *gin.Context) {
	email, ok := requireQuery(c, "email")
	if !ok {
		return
	}

	items, err := h.service.List(requestContext(c), email, parseIntQuery(c, "limit", 0))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"notifications": items})
}

// MarkRead marks the notification in the path read for the body's userEmail.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	var req markReadRequest
	if !bindAndValidate(c, &req) {
		return
	}
	id, ok := pathID(c, "id", services.ErrNotificationNotFound)
	if !ok {
		return
	}
	h.markRead(c, id, req.UserEmail)
}

// Patch is the body-addressed variant of MarkRead.
func (h *NotificationHandler) Patch(c *gin.Context) {
	var req patchNotificationRequest
	if !bindAndValidate(c, &req) {
		return
	}
	h.markRead(c, req.NotificationID, req.Email)
}

func (h *NotificationHandler) markRead(c *gin.Context, id, email string) {
	dto, err := h.service.MarkRead(requestContext(c), id, email)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"message":      "Notification marked as read",
		"notification": dto,
	})
}

// MarkAllRead marks every unread notification of userEmail read.
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	var req markReadRequest
	if !bindAndValidate(c, &req) {
		return
	}

	updated, err := h.service.MarkAllRead(requestContext(c), req.UserEmail)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"updated": updated})
}

// UnreadCount reports how many unread notifications ?email= has.
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	email, ok := requireQuery(c, "email")
	if !ok {
		return
	}

	count, err := h.service.UnreadCount(requestContext(c), email)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"unread": count})
}
