package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	customerdomain "github.com/digiget/digiget/internal/customer/domain"
	"github.com/digiget/digiget/internal/geo"
	loyaltydomain "github.com/digiget/digiget/internal/loyalty/domain"
)

type checkInRequest struct {
	Phone       string   `json:"phone"`
	Name        string   `json:"name"`
	OperationID string   `json:"operation_id"`
	Fix         *geo.Fix `json:"fix"`
}

type redeemRequest struct {
	Phone        string `json:"phone"`
	OperationID  string `json:"operation_id"`
	PointsNeeded int64  `json:"points_needed"`
}

// CustomerCheckIn is the public self check-in: the phone number is the
// account, unseen numbers enroll on first use.
func (s *Server) CustomerCheckIn(c *gin.Context) {
	var req checkInRequest
	if err := c.ShouldBindBodyWith(&req, bodyBinding); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	cust, err := s.resolveCustomer(c, req.Phone, req.Name)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := s.loyaltySvc.CheckIn(c.Request.Context(), loyaltydomain.CheckInRequest{
		CustomerID:  cust.ID,
		OperationID: req.OperationID,
		Fix:         req.Fix,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) RedeemReward(c *gin.Context) {
	var req redeemRequest
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

	result, err := s.loyaltySvc.Redeem(c.Request.Context(), loyaltydomain.RedeemRequest{
		CustomerID:   cust.ID,
		OperationID:  req.OperationID,
		PointsNeeded: req.PointsNeeded,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) AdjustPoints(c *gin.Context) {
	var req loyaltydomain.AdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	req.ActorID = currentUserID(c)

	result, err := s.loyaltySvc.AdjustPoints(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type grantRelaxationRequest struct {
	CustomerID string `json:"customer_id"`
	Policy     string `json:"policy"`
}

func (s *Server) GrantRelaxation(c *gin.Context) {
	var req grantRelaxationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	customerID, err := parseID(req.CustomerID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.loyaltySvc.GrantRelaxation(c.Request.Context(), customerID, currentUserID(c), req.Policy); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "granted"})
}

func (s *Server) ListVisits(c *gin.Context) {
	status := loyaltydomain.VisitStatus(strings.TrimSpace(c.DefaultQuery("status", string(loyaltydomain.VisitPending))))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	visits, err := s.loyaltySvc.ListVisits(c.Request.Context(), status, limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"visits": visits})
}

func (s *Server) ApproveVisit(c *gin.Context) {
	visitID, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := s.loyaltySvc.ApproveVisit(c.Request.Context(), visitID, currentUserID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) RejectVisit(c *gin.Context) {
	visitID, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.loyaltySvc.RejectVisit(c.Request.Context(), visitID, currentUserID(c)); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "rejected"})
}

// resolveCustomer looks the account up by phone, enrolling it when the
// number has never been seen at this shop.
func (s *Server) resolveCustomer(c *gin.Context, phone, name string) (*customerdomain.Customer, error) {
	cust, err := s.customerSvc.LookupByPhone(c.Request.Context(), customerdomain.LookupByPhoneRequest{
		Phone: phone,
	})
	if err == nil {
		return &cust, nil
	}
	if !errors.Is(err, customerdomain.ErrNotFound) {
		return nil, err
	}

	created, err := s.customerSvc.Enroll(c.Request.Context(), customerdomain.EnrollCustomerRequest{
		Phone: phone,
		Name:  name,
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}
