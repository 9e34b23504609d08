package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/insyd/insyd/internal/services"
	"github.com/insyd/insyd/pkg/response"
)

// FollowHandler exposes follow and unfollow.
type FollowHandler struct {
	follows *services.FollowService
}

// NewFollowHandler constructs a FollowHandler.
func NewFollowHandler(follows *services.FollowService) *FollowHandler {
	return &FollowHandler{follows: follows}
}

type followRequest struct {
	FollowerEmail  string `json:"followerEmail" validate:"required,email"`
	FollowingEmail string `json:"followingEmail" validate:"required,email"`
}

func (h *FollowHandler) Follow(c *gin.Context) {
	var req followRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if _, err := h.follows.Follow(requestContext(c), req.FollowerEmail, req.FollowingEmail); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusCreated, "Successfully followed user")
}

func (h *FollowHandler) Unfollow(c *gin.Context) {
	var req followRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.follows.Unfollow(requestContext(c), req.FollowerEmail, req.FollowingEmail); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "Successfully unfollowed user")
}
