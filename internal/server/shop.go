package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	shopdomain "github.com/digiget/digiget/internal/shop/domain"
)

func (s *Server) CreateShop(c *gin.Context) {
	var req shopdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	req.OwnerUserID = currentUserID(c)

	shop, err := s.shopSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, shop)
}

func (s *Server) ListShops(c *gin.Context) {
	shops, err := s.shopSvc.ListByOwner(c.Request.Context(), currentUserID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"shops": shops})
}

func (s *Server) GetShop(c *gin.Context) {
	shop, err := s.shopSvc.GetByID(c.Request.Context(), currentShopID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, shop)
}

func (s *Server) UpdateShop(c *gin.Context) {
	var req shopdomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	shop, err := s.shopSvc.Update(c.Request.Context(), currentShopID(c), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, shop)
}
