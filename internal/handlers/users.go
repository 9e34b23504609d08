package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/insyd/insyd/internal/services"
	"github.com/insyd/insyd/pkg/response"
)

// UserHandler exposes the user directory.
type UserHandler struct {
	users   *services.UserService
	follows *services.FollowService
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(users *services.UserService, follows *services.FollowService) *UserHandler {
	return &UserHandler{users: users, follows: follows}
}

// List returns everyone except currentUser, annotated with follow status.
func (h *UserHandler) List(c *gin.Context) {
	current, ok := requireQuery(c, "currentUser")
	if !ok {
		return
	}

	users, err := h.users.ListWithFollowStatus(requestContext(c), current)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"users": users})
}

// Followers lists the followers of the user in the path.
func (h *UserHandler) Followers(c *gin.Context) {
	userID, ok := pathID(c, "id", services.ErrUserNotFound)
	if !ok {
		return
	}

	followers, err := h.follows.ListFollowers(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"followers": followers})
}
