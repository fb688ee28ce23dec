package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"resume-review/internal/shared/auth"
	"resume-review/internal/shared/server/middleware"
	"resume-review/internal/shared/server/respond"
)

type meResponse struct {
	UserID  string `json:"userId"`
	Guest   bool   `json:"guest"`
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
	// CanReview tells the UI whether review pages will load or redirect to login.
	CanReview bool `json:"canReview"`
}

// registerMeRoutes attaches /me. gate is the read-path gate for reviews.
func registerMeRoutes(rg *gin.RouterGroup, gate auth.Gate) {
	rg.GET("/me", func(c *gin.Context) {
		id, ok := auth.IdentityFromContext(c.Request.Context())
		if !ok {
			respond.Error(c, http.StatusUnauthorized, respond.CodeUnauthorized, "missing or invalid token", nil)
			return
		}
		respond.OK(c, meResponse{
			UserID:    id.UserID,
			Guest:     id.Guest,
			Email:     middleware.UserEmailFromContext(c),
			Name:      middleware.UserNameFromContext(c),
			Picture:   middleware.UserPictureFromContext(c),
			CanReview: gate.IsAuthenticated(c.Request.Context()),
		})
	})
}
