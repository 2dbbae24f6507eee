package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quickcert/certbackend/config"
	"github.com/quickcert/certbackend/controllers"
	"github.com/quickcert/certbackend/database"
	"github.com/quickcert/certbackend/ocr"
	"github.com/quickcert/certbackend/repository"
	"github.com/quickcert/certbackend/services"
	"github.com/quickcert/certbackend/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := config.SetupLogger(cfg)
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := database.Connect(ctx, cfg.MongoURI)
	if err != nil {
		logger.Error("database connection failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			logger.Warn("mongo disconnect", slog.String("error", err.Error()))
		}
	}()

	db := client.Database(cfg.DatabaseName)
	if err := database.EnsureIndexes(ctx, db); err != nil {
		logger.Error("index setup failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	adminsCol := db.Collection(database.AdminsCollection)
	if err := utils.SeedAdminUser(ctx, adminsCol, cfg.AdminEmail, cfg.AdminPassword, cfg.BcryptCost); err != nil {
		logger.Error("admin seeding failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	oracle, err := ocr.NewVisionOracle(ctx, cfg.VisionCredentialsFile)
	if err != nil {
		logger.Error("vision client setup failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	archive, err := utils.NewScanArchive(ctx, cfg)
	if err != nil {
		logger.Error("scan archive setup failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	scanBase := ""
	if archive != nil {
		scanBase = archive.BaseURL()
	}
	if closer, ok := archive.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	authService := services.NewAuthService(repository.NewIdentityRepository(db), services.AuthConfig{
		Secret:     cfg.JWTSecret,
		TokenTTL:   cfg.TokenTTL,
		BcryptCost: cfg.BcryptCost,
	})

	router := controllers.NewRouter(controllers.RouterDeps{
		Auth:                  authService,
		Certificates:          services.NewCertificateService(repository.NewCertificateRepository(db), scanBase),
		Extraction:            services.NewExtractionService(ocr.NewExtractor(oracle), archive, logger),
		ImageValidator:        utils.NewImageValidator(cfg.MaxUploadSizeMB),
		Logger:                logger,
		AllowedOrigins:        cfg.Origins(),
		AdminSelfRegistration: cfg.AdminSelfRegistration,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening",
			slog.String("addr", srv.Addr),
			slog.String("scan_archive", cfg.ScanArchive),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.String("error", err.Error()))
	}
}
