package handler

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"ngx_scraper/internal/api/middleware"
	"ngx_scraper/internal/models"
)

// Login returns a handler for POST /login.
//
// Credentials are checked against users; a match yields a signed access token.
func Login(users map[string]string, tokens *middleware.Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Msg: "Request body must be JSON with username and password"})
			return
		}

		want, ok := users[req.Username]
		if !ok || req.Username == "" || subtle.ConstantTimeCompare([]byte(want), []byte(req.Password)) != 1 {
			c.JSON(http.StatusUnauthorized, models.ErrorResponse{Msg: "Bad username or password"})
			return
		}

		token, err := tokens.Issue(req.Username)
		if err != nil {
			slog.Error("issuing access token failed", "error", err)
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{Msg: "Could not issue token"})
			return
		}

		c.JSON(http.StatusOK, models.TokenResponse{AccessToken: token})
	}
}
