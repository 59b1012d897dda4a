package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/collectra/collectra/internal/aging"
	workflowdomain "github.com/collectra/collectra/internal/workflow/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) ListWorkflows(c *gin.Context) {
	var bucket aging.Bucket
	if raw := c.Query("bucket"); raw != "" {
		bucket = aging.Bucket(raw)
		if !bucket.Valid() {
			AbortWithError(c, workflowdomain.ErrInvalidBucket)
			return
		}
	}

	workflows, err := s.workflows.List(c.Request.Context(), s.db, bucket)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"workflows": workflows})
}

func (s *Server) GetWorkflowByID(c *gin.Context) {
	id, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	def, err := s.workflows.GetByID(c.Request.Context(), s.db, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if def == nil {
		AbortWithError(c, workflowdomain.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, def)
}
