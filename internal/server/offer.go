package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	offerdomain "github.com/digiget/digiget/internal/offer/domain"
)

func (s *Server) CreateOffer(c *gin.Context) {
	var req offerdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	created, err := s.offerSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) ListOffers(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offers, err := s.offerSvc.ListAll(c.Request.Context(), limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"offers": offers})
}

// ListLiveOffers is the customer-facing view: only offers currently
// inside their window.
func (s *Server) ListLiveOffers(c *gin.Context) {
	offers, err := s.offerSvc.ListLive(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"offers": offers})
}

func (s *Server) CancelOffer(c *gin.Context) {
	offerID, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.offerSvc.Cancel(c.Request.Context(), offerID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}
