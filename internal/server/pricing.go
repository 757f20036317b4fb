package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	pricingdomain "github.com/kilomet/kilomet/internal/pricing/domain"
)

type applyPricingRequest struct {
	Tiers []pricingdomain.TierInput `json:"tiers"`
}

func (s *Server) ApplyPricing(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	var req applyPricingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	summary, err := s.pricingSvc.Apply(c.Request.Context(), id, req.Tiers)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": summary})
}

func (s *Server) GetPricingConfig(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	tiers, err := s.pricingSvc.GetConfig(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": tiers})
}
