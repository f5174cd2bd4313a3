package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	enrollmentdomain "github.com/lokapasar/lokapasar/internal/enrollment/domain"
)

type validateAccessRequest struct {
	UserID     string `json:"user_id"`
	MaterialID string `json:"material_id"`
}

// ValidateAccess answers whether a user may open paid material. Denials carry
// a reason so the storefront can route the buyer to the right screen.
func (s *Server) ValidateAccess(c *gin.Context) {
	var req validateAccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	userID, err := parseID(req.UserID)
	if err != nil {
		AbortWithError(c, newValidationError("user_id", "invalid_user_id", "invalid user_id"))
		return
	}
	materialID, err := parseID(req.MaterialID)
	if err != nil {
		AbortWithError(c, newValidationError("material_id", "invalid_material_id", "invalid material_id"))
		return
	}

	enrollment, err := s.enrollSvc.Find(c.Request.Context(), userID, materialID)
	if err != nil {
		if errors.Is(err, enrollmentdomain.ErrNotFound) {
			c.JSON(http.StatusOK, gin.H{
				"has_access": false,
				"reason":     "not_enrolled",
			})
			return
		}
		AbortWithError(c, err)
		return
	}

	if !enrollment.HasAccess() {
		c.JSON(http.StatusOK, gin.H{
			"has_access": false,
			"reason":     "payment_required",
			"enrollment": enrollment,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"has_access": true,
		"enrollment": enrollment,
	})
}

// Blocked is the fixed landing target for tenants whose license lapsed.
func (s *Server) Blocked(c *gin.Context) {
	c.JSON(http.StatusForbidden, gin.H{
		"error": gin.H{
			"type":    "license_required",
			"message": "this storefront is unavailable until its license is renewed",
		},
	})
}
