package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quickcert/certbackend/dto"
	"github.com/quickcert/certbackend/middleware"
	"github.com/quickcert/certbackend/models"
	"github.com/quickcert/certbackend/services"
)

// POST /auth/officer/register (admin)
func RegisterOfficer(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.RegisterOfficerDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, err.Error())
			return
		}

		officer, err := auth.CreateIdentity(c.Request.Context(), models.RoleOfficer, body.Email, body.Password, body.FullName)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"message": "Officer registered", "id": officer.ID})
	}
}

// GET /auth/officer (admin)
func ListOfficers(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		officers, err := auth.ListIdentities(c.Request.Context(), models.RoleOfficer)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, officers)
	}
}

// DELETE /auth/officer/:id (admin)
// Tokens already issued to the officer stay valid until they expire.
func DeleteOfficer(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := auth.DeleteIdentity(c.Request.Context(), models.RoleOfficer, c.Param("id"))
		if errors.Is(err, services.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "Officer not found"})
			return
		}
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Officer deleted"})
	}
}

// PUT /auth/me/password (officer or admin)
func ChangeMyPassword(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.ChangePasswordDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, err.Error())
			return
		}

		p, ok := middleware.PrincipalFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Token missing"})
			return
		}

		err := auth.ChangePassword(c.Request.Context(), p, body.Current, body.New)
		if errors.Is(err, services.ErrInvalidCredentials) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Current password is incorrect"})
			return
		}
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Password updated"})
	}
}
