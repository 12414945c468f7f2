package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/careslot/careslot-api/api/swagger"
	"github.com/careslot/careslot-api/internal/handler"
	"github.com/careslot/careslot-api/internal/middleware"
	"github.com/careslot/careslot-api/internal/models"
	"github.com/careslot/careslot-api/internal/repository"
	"github.com/careslot/careslot-api/internal/service"
	"github.com/careslot/careslot-api/pkg/cache"
	"github.com/careslot/careslot-api/pkg/config"
	"github.com/careslot/careslot-api/pkg/database"
	"github.com/careslot/careslot-api/pkg/jobs"
	"github.com/careslot/careslot-api/pkg/logger"
	corsmiddleware "github.com/careslot/careslot-api/pkg/middleware/cors"
	reqidmiddleware "github.com/careslot/careslot-api/pkg/middleware/requestid"
	"github.com/careslot/careslot-api/pkg/storage"
)

// @title CareSlot API
// @version 1.0.0
// @description Appointment booking platform with OTP patient auth, doctor availability rules and derived slots
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect database", "error", err)
	}
	defer db.Close()

	location, err := time.LoadLocation(cfg.Booking.Timezone)
	if err != nil {
		logr.Sugar().Warnw("invalid booking timezone, falling back to local", "timezone", cfg.Booking.Timezone)
		location = time.Local
	}

	metricsService := service.NewMetricsService()

	var cacheService *service.CacheService
	var limiter *repository.CacheRepository
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, slot caching and otp rate limiting disabled", "error", err)
	} else {
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		defer cacheRepo.Close() //nolint:errcheck
		cacheService = service.NewCacheService(cacheRepo, metricsService, cfg.Booking.SlotCacheTTL, logr, true)
		limiter = cacheRepo
	}

	userRepo := repository.NewUserRepository(db)
	otpRepo := repository.NewOTPRepository(db)
	doctorRepo := repository.NewDoctorRepository(db)
	availabilityRepo := repository.NewAvailabilityRepository(db)
	appointmentRepo := repository.NewAppointmentRepository(db)
	feedbackRepo := repository.NewFeedbackRepository(db)
	exportRepo := repository.NewExportRepository(db)

	validate := validator.New()

	var notifications *service.NotificationService
	if cfg.Notifications.Enabled {
		notifWorker := service.NewNotificationWorker(service.NewLogMailer(logr), logr)
		notifQueue := jobs.NewQueue("notifications", notifWorker.Handle, jobs.QueueConfig{
			Workers:    cfg.Notifications.WorkerConcurrency,
			MaxRetries: cfg.Notifications.WorkerRetries,
			Logger:     logr,
		})
		notifQueue.Start(ctx)
		defer notifQueue.Stop()
		notifications = service.NewNotificationService(notifQueue, logr)
	}

	slotService := service.NewSlotService(availabilityRepo, appointmentRepo, doctorRepo, cacheService, location, cfg.Booking.SlotCacheTTL, logr)
	var limiterIface service.OTPLimiter
	if limiter != nil {
		limiterIface = limiter
	}
	authService := service.NewAuthService(userRepo, otpRepo, doctorRepo, limiterIface, notifications, metricsService, validate, logr, service.AuthConfig{
		TokenSecret:    cfg.JWT.Secret,
		TokenExpiry:    cfg.JWT.Expiration,
		Issuer:         cfg.JWT.Issuer,
		OTPTTL:         cfg.OTP.TTL,
		OTPLength:      cfg.OTP.Length,
		OTPMaxAttempts: cfg.OTP.MaxAttempts,
		OTPRateLimit:   cfg.OTP.RateLimit,
		OTPRateWindow:  cfg.OTP.RateWindow,
	})
	bookingService := service.NewBookingService(appointmentRepo, doctorRepo, slotService, notifications, metricsService, validate, logr)
	appointmentService := service.NewAppointmentService(appointmentRepo, slotService, notifications, location, logr)
	availabilityService := service.NewAvailabilityService(availabilityRepo, slotService, validate, logr)
	doctorService := service.NewDoctorService(doctorRepo, notifications, validate, logr)
	feedbackService := service.NewFeedbackService(feedbackRepo, appointmentRepo, validate, logr)

	var exportService *service.ExportService
	if cfg.Exports.Enabled {
		localStorage, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init export storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
		exportWorker := service.NewExportWorker(exportRepo, appointmentRepo, localStorage, nil, nil, logr)
		exportQueue := jobs.NewQueue("exports", exportWorker.Handle, jobs.QueueConfig{
			Workers:    cfg.Exports.WorkerConcurrency,
			MaxRetries: cfg.Exports.WorkerRetries,
			Logger:     logr,
		})
		exportQueue.Start(ctx)
		defer exportQueue.Stop()
		exportService = service.NewExportService(exportRepo, appointmentRepo, exportQueue, localStorage, signer, validate, logr, service.ExportConfig{
			APIPrefix: cfg.APIPrefix,
			ResultTTL: cfg.Exports.SignedURLTTL,
		})

		go func() {
			ticker := time.NewTicker(cfg.Exports.CleanupInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					exportService.Cleanup()
				}
			}
		}()
	}

	authHandler := handler.NewAuthHandler(authService)
	doctorHandler := handler.NewDoctorHandler(doctorService, feedbackService)
	slotHandler := handler.NewSlotHandler(slotService)
	appointmentHandler := handler.NewAppointmentHandler(bookingService, appointmentService, feedbackService)
	availabilityHandler := handler.NewAvailabilityHandler(availabilityService)
	adminHandler := handler.NewAdminHandler(doctorService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/otp/request", authHandler.RequestOTP)
	api.POST("/auth/otp/verify", authHandler.VerifyOTP)
	api.POST("/auth/login", authHandler.Login)
	api.POST("/doctors/register", doctorHandler.Register)
	api.GET("/doctors", doctorHandler.List)
	api.GET("/doctors/:id", doctorHandler.Get)
	api.GET("/doctors/:id/slots", slotHandler.List)
	api.GET("/doctors/:id/availability", availabilityHandler.GetForDoctor)
	api.GET("/doctors/:id/feedback", doctorHandler.Feedback)

	patient := api.Group("", middleware.JWT(authService), middleware.RequireRoles(models.RolePatient))
	patient.POST("/appointments", appointmentHandler.Book)
	patient.GET("/appointments", appointmentHandler.ListMine)
	patient.POST("/feedback", appointmentHandler.CreateFeedback)

	api.PATCH("/appointments/:id/status",
		middleware.JWT(authService),
		middleware.RequireRoles(models.RolePatient, models.RoleDoctor),
		appointmentHandler.UpdateStatus)

	doctor := api.Group("/doctor", middleware.JWT(authService), middleware.RequireRoles(models.RoleDoctor))
	doctor.GET("/appointments", appointmentHandler.ListForDoctor)
	doctor.PUT("/availability", availabilityHandler.Save)
	doctor.GET("/availability", availabilityHandler.Get)

	if exportService != nil {
		exportHandler := handler.NewExportHandler(exportService)
		doctor.POST("/exports", exportHandler.Create)
		doctor.GET("/exports/:id", exportHandler.Get)
		api.GET("/exports/download/:token", exportHandler.Download)
	}

	admin := api.Group("/admin", middleware.JWT(authService), middleware.RequireRoles(models.RoleAdmin))
	admin.GET("/doctors", adminHandler.ListDoctors)
	admin.POST("/doctors/:id/approve", adminHandler.Approve)
	admin.POST("/doctors/:id/reject", adminHandler.Reject)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "timezone", location.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
}
