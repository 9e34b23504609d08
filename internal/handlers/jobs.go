package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/insyd/insyd/internal/services"
	"github.com/insyd/insyd/pkg/response"
)

// JobHandler exposes job listing and application endpoints.
type JobHandler struct {
	jobs *services.JobService
}

// NewJobHandler constructs a JobHandler.
func NewJobHandler(jobs *services.JobService) *JobHandler {
	return &JobHandler{jobs: jobs}
}

type createJobRequest struct {
	Email   string `json:"email" validate:"required,email"`
	Title   string `json:"title" validate:"required,notblank,max=255"`
	Company string `json:"company" validate:"required,notblank,max=255"`
}

// List returns every job with its application count.
func (h *JobHandler) List(c *gin.Context) {
	jobs, err := h.jobs.List(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"jobs": jobs})
}

// Create publishes a job and fans it out to the author's audience.
func (h *JobHandler) Create(c *gin.Context) {
	var req createJobRequest
	if !bindAndValidate(c, &req) {
		return
	}

	created, err := h.jobs.Create(requestContext(c), services.CreateJobInput{
		AuthorEmail: req.Email,
		Title:       req.Title,
		Company:     req.Company,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"message":           "Job created successfully",
		"job":               created.Job,
		"notifiedFollowers": created.NotifiedFollowers,
	})
}

// Delete removes a job owned by the requester.
func (h *JobHandler) Delete(c *gin.Context) {
	var req userEmailRequest
	if !bindAndValidate(c, &req) {
		return
	}

	jobID, ok := pathID(c, "id", services.ErrJobNotFound)
	if !ok {
		return
	}

	if err := h.jobs.Delete(requestContext(c), jobID, req.UserEmail); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "Job deleted successfully")
}

// Apply records an application and reports the new application count.
func (h *JobHandler) Apply(c *gin.Context) {
	var req userEmailRequest
	if !bindAndValidate(c, &req) {
		return
	}

	jobID, ok := pathID(c, "id", services.ErrJobNotFound)
	if !ok {
		return
	}

	count, err := h.jobs.Apply(requestContext(c), jobID, req.UserEmail)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"applications": count})
}
