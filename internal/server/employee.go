package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	employeedomain "github.com/digiget/digiget/internal/employee/domain"
)

func (s *Server) CreateEmployee(c *gin.Context) {
	var req employeedomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	// The response carries the plaintext PIN exactly once.
	created, err := s.employeeSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) ListEmployees(c *gin.Context) {
	activeOnly, _ := strconv.ParseBool(c.DefaultQuery("active_only", "false"))
	employees, err := s.employeeSvc.List(c.Request.Context(), activeOnly)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"employees": employees})
}

func (s *Server) ReissuePIN(c *gin.Context) {
	employeeID, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	created, err := s.employeeSvc.ReissuePIN(c.Request.Context(), employeeID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, created)
}

func (s *Server) DeactivateEmployee(c *gin.Context) {
	employeeID, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.employeeSvc.Deactivate(c.Request.Context(), employeeID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deactivated"})
}
