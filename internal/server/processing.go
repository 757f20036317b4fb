package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type startProcessingRequest struct {
	AccountID string `json:"account_id"`
}

func (s *Server) StartProcessing(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	var req startProcessingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	if strings.TrimSpace(req.AccountID) == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	result, err := s.processingSvc.Start(c.Request.Context(), id, req.AccountID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	switch {
	case result.Accepted:
		c.JSON(http.StatusAccepted, gin.H{"data": result})
	case result.InvalidRows > 0:
		c.JSON(http.StatusUnprocessableEntity, gin.H{"data": result})
	default:
		// Already running or already done: idempotent success.
		c.JSON(http.StatusOK, gin.H{"data": result})
	}
}

func (s *Server) GetUploadStatus(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	resp, err := s.uploadSvc.GetStatus(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
