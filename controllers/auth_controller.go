package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quickcert/certbackend/dto"
	"github.com/quickcert/certbackend/models"
	"github.com/quickcert/certbackend/services"
)

// POST /auth/login
// Looks the email up in both pools and tells the client which role it has.
func UnifiedLogin(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.LoginDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, err.Error())
			return
		}

		token, role, err := auth.LoginAny(c.Request.Context(), body.Email, body.Password)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": token, "role": role})
	}
}

// POST /auth/admin/login, POST /auth/officer/login
func Login(auth *services.AuthService, role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.LoginDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, err.Error())
			return
		}

		token, err := auth.Login(c.Request.Context(), role, body.Email, body.Password)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": token})
	}
}

// POST /auth/admin/register
func RegisterAdmin(auth *services.AuthService, open bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !open {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "Admin registration is closed"})
			return
		}

		var body dto.RegisterAdminDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, err.Error())
			return
		}

		admin, err := auth.CreateIdentity(c.Request.Context(), models.RoleAdmin, body.Email, body.Password, "")
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"message": "Admin registered", "id": admin.ID})
	}
}
