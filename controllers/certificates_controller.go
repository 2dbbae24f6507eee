package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quickcert/certbackend/dto"
	"github.com/quickcert/certbackend/middleware"
	"github.com/quickcert/certbackend/services"
)

// POST /certificates (officer)
func CreateCertificate(certs *services.CertificateService) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := middleware.PrincipalFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Token missing"})
			return
		}

		var body dto.CertificateDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, err.Error())
			return
		}

		cert, err := certs.Create(c.Request.Context(), p, body.Fields(), body.ScanURL)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, cert)
	}
}

// GET /certificates
// Officers see their own records, admins see all. Query parameters cannot
// widen the scope.
func ListCertificates(certs *services.CertificateService) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := middleware.PrincipalFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Token missing"})
			return
		}

		items, err := certs.ListFor(c.Request.Context(), p)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, items)
	}
}

// GET /certificates/:id
func GetCertificate(certs *services.CertificateService) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := middleware.PrincipalFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Token missing"})
			return
		}

		cert, err := certs.Get(c.Request.Context(), p, c.Param("id"))
		if errors.Is(err, services.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "Certificate not found"})
			return
		}
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, cert)
	}
}

// PUT /certificates/:id
// Full replacement of the seven fields by the owning officer or an admin.
func UpdateCertificate(certs *services.CertificateService) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := middleware.PrincipalFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Token missing"})
			return
		}

		var body dto.CertificateDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, err.Error())
			return
		}

		cert, err := certs.Update(c.Request.Context(), p, c.Param("id"), body.Fields())
		if errors.Is(err, services.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "Certificate not found"})
			return
		}
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, cert)
	}
}
