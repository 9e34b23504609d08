package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/insyd/insyd/internal/services"
	"github.com/insyd/insyd/pkg/response"
)

// BlogHandler exposes blog and like endpoints.
type BlogHandler struct {
	blogs *services.BlogService
}

// NewBlogHandler constructs a BlogHandler.
func NewBlogHandler(blogs *services.BlogService) *BlogHandler {
	return &BlogHandler{blogs: blogs}
}

type createBlogRequest struct {
	Email   string `json:"email" validate:"required,email"`
	Title   string `json:"title" validate:"required,notblank,max=255"`
	Content string `json:"content" validate:"required,notblank"`
}

// userEmailRequest is the body shared by delete, like and apply.
type userEmailRequest struct {
	UserEmail string `json:"userEmail" validate:"required,email"`
}

// List returns every blog with its like count.
func (h *BlogHandler) List(c *gin.Context) {
	blogs, err := h.blogs.List(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"blogs": blogs})
}

// Create publishes a blog and fans it out to the author's audience.
func (h *BlogHandler) Create(c *gin.Context) {
	var req createBlogRequest
	if !bindAndValidate(c, &req) {
		return
	}

	created, err := h.blogs.Create(requestContext(c), services.CreateBlogInput{
		AuthorEmail: req.Email,
		Title:       req.Title,
		Content:     req.Content,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"message":           "Blog created successfully",
		"blog":              created.Blog,
		"notifiedFollowers": created.NotifiedFollowers,
	})
}

// Delete removes a blog owned by the requester.
func (h *BlogHandler) Delete(c *gin.Context) {
	var req userEmailRequest
	if !bindAndValidate(c, &req) {
		return
	}

	blogID, ok := pathID(c, "id", services.ErrBlogNotFound)
	if !ok {
		return
	}

	if err := h.blogs.Delete(requestContext(c), blogID, req.UserEmail); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "Blog deleted successfully")
}

// Like likes or unlikes a blog depending on the configured policy.
func (h *BlogHandler) Like(c *gin.Context) {
	var req userEmailRequest
	if !bindAndValidate(c, &req) {
		return
	}

	blogID, ok := pathID(c, "id", services.ErrBlogNotFound)
	if !ok {
		return
	}

	result, err := h.blogs.Like(requestContext(c), blogID, req.UserEmail)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}
