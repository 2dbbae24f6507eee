package controllers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quickcert/certbackend/middleware"
	"github.com/quickcert/certbackend/ocr"
	"github.com/quickcert/certbackend/services"
	"github.com/quickcert/certbackend/utils"
)

// POST /ocr/upload
// multipart/form-data:
//   - file: the certificate image
//
// Answers with the raw OCR text and the seven draft fields for review.
func UploadForOCR(extraction *services.ExtractionService, v *utils.ImageValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := middleware.PrincipalFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Token missing"})
			return
		}

		// leave room for multipart framing around the image itself
		limit := v.MaxBytes() + (1 << 20)
		if c.Request.ContentLength > limit {
			badRequest(c, v.TooLarge().Error())
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

		fh, err := c.FormFile("file")
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			badRequest(c, v.TooLarge().Error())
			return
		}
		if err != nil || fh == nil {
			respondError(c, ocr.ErrNoFile)
			return
		}

		mimeType, err := v.Validate(fh)
		if err != nil {
			badRequest(c, err.Error())
			return
		}

		f, err := fh.Open()
		if err != nil {
			respondError(c, err)
			return
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			respondError(c, err)
			return
		}

		draft, err := extraction.Extract(c.Request.Context(), p, services.Upload{
			Data:        data,
			Filename:    fh.Filename,
			ContentType: mimeType,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, draft)
	}
}
