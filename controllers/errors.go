package controllers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quickcert/certbackend/ocr"
	"github.com/quickcert/certbackend/services"
)

const permissionDenied = "You don't have permission to view this."

// respondError answers with {message} and a status derived from the error.
// Unknown errors become a logged 500.
func respondError(c *gin.Context, err error) {
	status, msg := http.StatusInternalServerError, "Server error"

	switch {
	case errors.Is(err, services.ErrValidation):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, services.ErrDuplicateEmail):
		status, msg = http.StatusBadRequest, "Email already exists"
	case errors.Is(err, services.ErrDuplicateCertificateNumber):
		status, msg = http.StatusBadRequest, "Certificate number already exists."
	case errors.Is(err, services.ErrInvalidCredentials):
		status, msg = http.StatusBadRequest, "Invalid credentials"
	case errors.Is(err, services.ErrInvalidToken):
		status, msg = http.StatusForbidden, err.Error()
	case errors.Is(err, services.ErrForbidden):
		status, msg = http.StatusForbidden, permissionDenied
	case errors.Is(err, services.ErrNotFound):
		status, msg = http.StatusNotFound, "Not found"
	case errors.Is(err, ocr.ErrNoFile):
		status, msg = http.StatusBadRequest, "No file uploaded"
	case errors.Is(err, ocr.ErrNoTextDetected):
		status, msg = http.StatusBadRequest, "No text found in image"
	case errors.Is(err, ocr.ErrOracle):
		status, msg = http.StatusBadGateway, "OCR error"
	}

	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
		slog.ErrorContext(c.Request.Context(), "request failed",
			slog.String("route", c.FullPath()),
			slog.String("error", err.Error()),
		)
	}
	c.AbortWithStatusJSON(status, gin.H{"message": msg})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": msg})
}
