package server

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const defaultGatewayProvider = "midtrans"

// HandlePaymentNotification ingests a gateway webhook. Replayed and held
// notifications still answer 200 so the gateway stops retrying; rejection
// paths answer with the error taxonomy so it retries or alerts.
func (s *Server) HandlePaymentNotification(c *gin.Context) {
	provider := strings.TrimSpace(c.Param("provider"))
	if provider == "" {
		provider = defaultGatewayProvider
	}

	if allowed, retryAfter := s.webhookLimit.Allow(c.Request.Context(), provider); !allowed {
		c.Header("Retry-After", strconv.Itoa(int(retryAfter.Seconds())+1))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error": gin.H{
				"type":    "rate_limited",
				"message": "too many requests",
			},
		})
		return
	}

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	res, err := s.paymentSvc.HandleNotification(c.Request.Context(), provider, payload)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":       "OK",
		"order_number": res.Transaction.OrderNumber,
		"state":        res.Transaction.Status,
		"changed":      res.Changed,
	})
}
