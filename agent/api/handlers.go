package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/tanpawarit/chative-commerce-agent/agent/commerce"
	contractx "github.com/tanpawarit/chative-commerce-agent/agent/contract"
)

const unavailableMessage = "We're having trouble reaching one of our services. Please try again in a moment."

type chatRequest struct {
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message" binding:"required"`
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	res, err := s.chat.HandleMessage(c.Request.Context(), req.ConversationID, req.Message)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleWelcome(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": s.chat.Welcome()})
}

func (s *Server) handleListProducts(c *gin.Context) {
	products, err := s.office.ListProducts(c.Request.Context(), commerce.ProductFilter{
		Category: c.Query("category"),
		Query:    c.Query("q"),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	views := make([]commerce.ProductView, 0, len(products))
	for _, p := range products {
		views = append(views, commerce.NewProductView(p))
	}
	c.JSON(http.StatusOK, gin.H{"products": views, "count": len(views)})
}

func (s *Server) handleGetOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	details, err := s.office.OrderStatus(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, commerce.NewOrderView(details.Order, details.Returns))
}

func (s *Server) handleUpdateOrderStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status is required"})
		return
	}
	order, err := s.office.UpdateOrderStatus(c.Request.Context(), id, commerce.OrderStatus(req.Status))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, commerce.NewOrderView(*order, nil))
}

func (s *Server) handleUpdateReturnStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status is required"})
		return
	}
	ret, err := s.office.UpdateReturnStatus(c.Request.Context(), id, commerce.ReturnStatus(req.Status))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, commerce.NewReturnView(*ret))
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid id %q", c.Param("id"))})
		return 0, false
	}
	return id, true
}

// writeError maps the error taxonomy onto HTTP. Dependency failures get a
// generic message; the cause is only logged.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, contractx.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, contractx.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, contractx.ErrConsistency):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "retryable": true})
	case errors.Is(err, context.DeadlineExceeded):
		log.Error().Err(err).Str("route", c.FullPath()).Msg("request timed out")
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": unavailableMessage})
	case errors.Is(err, contractx.ErrDependency),
		errors.Is(err, contractx.ErrModelInvoke),
		errors.Is(err, contractx.ErrSchemaViolation):
		log.Error().Err(err).Str("route", c.FullPath()).Msg("dependency failure")
		c.JSON(http.StatusBadGateway, gin.H{"error": unavailableMessage})
	default:
		log.Error().Err(err).Str("route", c.FullPath()).Msg("unexpected failure")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
