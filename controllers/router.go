package controllers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/quickcert/certbackend/middleware"
	"github.com/quickcert/certbackend/models"
	"github.com/quickcert/certbackend/services"
	"github.com/quickcert/certbackend/utils"
)

type RouterDeps struct {
	Auth           *services.AuthService
	Certificates   *services.CertificateService
	Extraction     *services.ExtractionService
	ImageValidator *utils.ImageValidator
	Logger         *slog.Logger

	AllowedOrigins        map[string]bool
	AdminSelfRegistration bool
}

func NewRouter(d RouterDeps) *gin.Engine {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := gin.New()
	r.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return d.AllowedOrigins[origin]
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.Metrics())
	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("panic recovered", slog.Any("panic", recovered), slog.String("route", c.FullPath()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
	}))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "API is working"})
	})

	authn := middleware.AuthMiddleware(d.Auth, logger)
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	auth := api.Group("/auth")
	{
		auth.POST("/login", UnifiedLogin(d.Auth))

		auth.POST("/admin/register", RegisterAdmin(d.Auth, d.AdminSelfRegistration))
		auth.POST("/admin/login", Login(d.Auth, models.RoleAdmin))

		auth.POST("/officer/login", Login(d.Auth, models.RoleOfficer))
		auth.POST("/officer/register", authn, adminOnly, RegisterOfficer(d.Auth))
		auth.GET("/officer", authn, adminOnly, ListOfficers(d.Auth))
		auth.DELETE("/officer/:id", authn, adminOnly, DeleteOfficer(d.Auth))

		auth.PUT("/me/password", authn, ChangeMyPassword(d.Auth))
	}

	api.POST("/ocr/upload", authn, UploadForOCR(d.Extraction, d.ImageValidator))

	certs := api.Group("/certificates")
	certs.Use(authn, middleware.RequireRole(models.RoleOfficer, models.RoleAdmin))
	{
		certs.POST("", middleware.RequireRole(models.RoleOfficer), CreateCertificate(d.Certificates))
		certs.GET("", ListCertificates(d.Certificates))
		certs.GET("/:id", GetCertificate(d.Certificates))
		certs.PUT("/:id", UpdateCertificate(d.Certificates))
	}

	return r
}
