package server

import (
	"errors"
	"net/http"

	"github.com/collectra/collectra/internal/collector"
	"github.com/gin-gonic/gin"
)

// RunCollectionsPass triggers one collections pass synchronously. Partial
// per-invoice failures still return 200 with the error list; only a pass that
// produced no result at all is a server error.
func (s *Server) RunCollectionsPass(c *gin.Context) {
	res, err := s.collector.RunPass(c.Request.Context())
	if err != nil {
		if errors.Is(err, collector.ErrRunInProgress) {
			AbortWithError(c, err)
			return
		}
		if res == nil {
			AbortWithError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, res)
}
