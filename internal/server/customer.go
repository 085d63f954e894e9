package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	customerdomain "github.com/digiget/digiget/internal/customer/domain"
	ledgerdomain "github.com/digiget/digiget/internal/ledger/domain"
)

type enrollRequest struct {
	Phone string `json:"phone"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// phoneIdentity keys the public rate limiter by the submitted phone
// number, falling back to client IP when the body has none.
func phoneIdentity(c *gin.Context) string {
	var probe struct {
		Phone string `json:"phone"`
	}
	if err := c.ShouldBindBodyWith(&probe, bodyBinding); err != nil {
		return ""
	}
	return strings.TrimSpace(probe.Phone)
}

func (s *Server) EnrollCustomer(c *gin.Context) {
	var req enrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	created, err := s.customerSvc.Enroll(c.Request.Context(), customerdomain.EnrollCustomerRequest{
		Phone: req.Phone,
		Name:  req.Name,
		Email: req.Email,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) ListCustomers(c *gin.Context) {
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "50"))
	resp, err := s.customerSvc.List(c.Request.Context(), customerdomain.ListCustomerRequest{
		PageSize:  pageSize,
		PageToken: c.Query("page_token"),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetCustomer(c *gin.Context) {
	cust, err := s.customerSvc.GetByID(c.Request.Context(), customerdomain.GetCustomerRequest{
		ID: c.Param("id"),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, cust)
}

func (s *Server) GetCustomerLedger(c *gin.Context) {
	customerID, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	entries, err := s.ledgerSvc.ListForAccount(
		c.Request.Context(), s.db,
		currentShopID(c), ledgerdomain.AccountCustomer, customerID, limit,
	)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// DeleteCustomerData honors an explicit erase request: the account and
// its full ledger go together, atomically.
func (s *Server) DeleteCustomerData(c *gin.Context) {
	err := s.customerSvc.DeleteData(c.Request.Context(), customerdomain.GetCustomerRequest{
		ID: c.Param("id"),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "erased"})
}

func (s *Server) CustomerBalance(c *gin.Context) {
	phone := strings.TrimSpace(c.Query("phone"))
	if phone == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	cust, err := s.customerSvc.LookupByPhone(c.Request.Context(), customerdomain.LookupByPhoneRequest{
		Phone: phone,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"name":             cust.Name,
		"current_points":   cust.CurrentPoints,
		"lifetime_points":  cust.LifetimePoints,
		"total_visits":     cust.TotalVisits,
		"rewards_redeemed": cust.RewardsRedeemed,
	})
}
