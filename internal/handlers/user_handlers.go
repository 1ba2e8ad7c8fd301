package handlers

import (
	"errors"
	"net/http"

	"github.com/01moynul/catering-golang/internal/models"
	"github.com/01moynul/catering-golang/internal/orders"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// LoginInput defines the login request body.
type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /v1/login and issues a JWT carrying the user's role.
func (h *Handlers) Login(c *gin.Context) {
	// 1. --- Bind & Validate JSON ---
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// 2. --- Find User By Email ---
	user, err := h.Users.UserByEmail(c.Request.Context(), input.Email)
	if err != nil {
		if errors.Is(err, orders.ErrUserNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		h.respondError(c, err)
		return
	}

	// The shared guest account is never a login identity.
	if user.Role == models.RoleGuest {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	// 3. --- Check Password ---
	password := models.Password{Hash: user.PasswordHash}
	match, err := password.Matches(input.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !match {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	// 4. --- Generate JWT ---
	token, err := h.Tokens.GenerateToken(user.ID, user.Name, user.Role)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.Logger.Info("user logged in", zap.Int64("user_id", user.ID), zap.String("role", user.Role))
	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"token":   token,
		"user": gin.H{
			"id":   user.ID,
			"name": user.Name,
			"role": user.Role,
		},
	})
}
