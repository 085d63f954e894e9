package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	customerdomain "github.com/digiget/digiget/internal/customer/domain"
)

type rateRequest struct {
	Phone   string `json:"phone"`
	Stars   int    `json:"stars"`
	Comment string `json:"comment"`
}

// RateShop records or edits the customer's rating; edits inside the
// cooldown window come back 429 with the remaining wait.
func (s *Server) RateShop(c *gin.Context) {
	var req rateRequest
	if err := c.ShouldBindBodyWith(&req, bodyBinding); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	cust, err := s.customerSvc.LookupByPhone(c.Request.Context(), customerdomain.LookupByPhoneRequest{
		Phone: req.Phone,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	rating, err := s.ratingSvc.Rate(c.Request.Context(), cust.ID, req.Stars, req.Comment)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, rating)
}

func (s *Server) ListRatings(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	ratings, err := s.ratingSvc.List(c.Request.Context(), limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ratings": ratings})
}

func (s *Server) RatingSummary(c *gin.Context) {
	summary, err := s.ratingSvc.Summarize(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
