package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/insyd/insyd/internal/services"
	"github.com/insyd/insyd/pkg/response"
)

// AuthHandler exposes registration. Identity is a bare email; there are no sessions.
type AuthHandler struct {
	users *services.UserService
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(users *services.UserService) *AuthHandler {
	return &AuthHandler{users: users}
}

type registerRequest struct {
	Email string  `json:"email" validate:"required,email,max=320"`
	Name  *string `json:"name" validate:"omitempty,max=255"`
}

// Register resolves the email to a user, creating it on first contact.
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, created, err := h.users.Register(requestContext(c), req.Email, req.Name)
	if err != nil {
		response.Error(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	response.Success(c, status, gin.H{
		"user":    user,
		"created": created,
	})
}
