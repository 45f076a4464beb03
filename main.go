package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"salonflow/config"
	"salonflow/cron"
	"salonflow/database"
	appointmentRepo "salonflow/database/repository/appointment"
	"salonflow/handlers"
	"salonflow/middleware"
	"salonflow/models"
	"salonflow/routes"
	"salonflow/services/authbridge"
	"salonflow/services/draft"
	"salonflow/services/notification"
	"salonflow/services/payment"
	"salonflow/services/promotion"
	"salonflow/services/tasks"
	"salonflow/services/verification"
	"salonflow/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()
	cfg := config.AppConfig

	database.InitDB()
	utils.InitRedis()

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())

	// repositories.
	apptRepo := appointmentRepo.NewMongoAppointmentRepo()

	// stores and guards.
	draftTTL := time.Duration(cfg.DraftTTLMin) * time.Minute
	requestTTL := time.Duration(cfg.VerifyRequestTTLMin) * time.Minute
	draftStore := draft.NewRedisStore(utils.GetDraftCacheClient())
	verifyStore := verification.NewRedisRequestStore(utils.GetVerifyCacheClient(), requestTTL)
	guard := promotion.NewRedisGuard(utils.GetLockCacheClient())

	// services.
	draftManager := draft.NewManager(draftStore, draftTTL, logger)
	promoter := promotion.NewPromoter(draftStore, apptRepo, guard, cfg.DefaultBasePrice, logger)
	bridge := authbridge.New(cfg.JWTSecret, logger)
	googleAuth := verification.NewGoogleAuthInitiator(
		cfg.GoogleClientID,
		cfg.GoogleClientSecret,
		cfg.GoogleRedirectURL,
		verifyStore,
		bridge,
		requestTTL,
	)
	notifier := notification.NewGatewayNotifier(cfg.SMSGatewayURL, logger)

	// reminders.
	reminders := tasks.NewReminderScheduler()
	defer reminders.Close()
	cron.InitReminderWorker(notifier)

	selectorCfg := verification.Config{
		PollInterval:  time.Duration(cfg.VerifyPollIntervalMS) * time.Millisecond,
		PollTimeout:   time.Duration(cfg.VerifyPollTimeoutMin) * time.Minute,
		TelegramBot:   cfg.TelegramBotName,
		PublicBaseURL: cfg.PublicBaseURL,
	}

	// payments.
	stripeGateway := payment.NewStripeClient(cfg.StripeKey)
	paypalGateway := payment.NewPayPalClient(cfg.PayPalClientID, cfg.PayPalSecret, cfg.PayPalBaseURL)

	// handler wiring.
	handlers.DraftManager = draftManager
	handlers.Selectors = verification.NewRegistry()
	handlers.AuthBridge = bridge
	handlers.GoogleAuth = googleAuth
	handlers.VerifyRequests = verifyStore
	handlers.DraftPromoter = promoter
	handlers.SelectorFactory = func(d *models.Draft) *verification.Selector {
		sel := verification.NewSelector(d, bridge, verifyStore, promoter, googleAuth, notifier, selectorCfg, logger)
		sel.OnVerified = func(appointmentID string) {
			appt, err := apptRepo.GetByID(appointmentID)
			if err != nil {
				logger.Warn("could not load appointment for reminder",
					zap.String("appointmentId", appointmentID), zap.Error(err))
				return
			}
			if err := reminders.ScheduleAppointmentReminder(appt); err != nil {
				logger.Warn("failed to schedule reminder",
					zap.String("appointmentId", appointmentID), zap.Error(err))
			}
		}
		return sel
	}
	handlers.Appointments = apptRepo
	handlers.PaymentFlows = payment.NewRegistry()
	handlers.FlowFactory = func(appointmentID string) *payment.Flow {
		return payment.NewFlow(appointmentID, apptRepo, stripeGateway, paypalGateway,
			cfg.DefaultBasePrice, cfg.PaymentCurrency, logger)
	}

	routes.RegisterRoutes(router)

	utils.StartHealthMonitor([]*redis.Client{
		utils.GetDraftCacheClient(),
		utils.GetVerifyCacheClient(),
		utils.GetLockCacheClient(),
	}, database.MongoClient)

	// Start the HTTP server.
	port := cfg.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	bridge.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
