package handlers

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/insyd/insyd/pkg/response"
)

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil || c.Request == nil {
		return context.Background()
	}
	return c.Request.Context()
}

// pathID reads a UUID path parameter. Anything that cannot be a stored id is
// answered with notFound directly, without a database round trip.
func pathID(c *gin.Context, name string, notFound error) (string, bool) {
	raw := strings.TrimSpace(c.Param(name))
	id, err := uuid.Parse(raw)
	if err != nil {
		response.Error(c, notFound)
		return "", false
	}
	return id.String(), true
}
