package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"

	"planner/internal/calendar"
	"planner/internal/config"
	"planner/internal/database"
	"planner/internal/middleware"
	"planner/internal/modules/auth"
	"planner/internal/modules/availability"
	"planner/internal/modules/booking"
	"planner/internal/modules/feed"
	"planner/internal/modules/schedule"
	"planner/internal/modules/settings"
	"planner/internal/notification"
	jwtsvc "planner/internal/pkg/jwt"
	"planner/internal/pkg/token"
	"planner/internal/repository"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.AppEnv != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	ownerRepo := repository.NewOwnerRepository(db)
	configRepo := repository.NewConfigurationRepository(db)
	prefsRepo := repository.NewPreferencesRepository(db)
	itemRepo := repository.NewScheduleItemRepository(db)
	bookingRepo := repository.NewBookingRepository(db)

	registry, err := calendar.Build(ctx, cfg)
	if err != nil {
		log.Fatalf("calendars: %v", err)
	}

	j := jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL)
	tokens := token.NewService(cfg.ActionTokenPepper, time.Now)
	composer := notification.NewComposer(cfg.PublicBaseURL, time.Now)
	hub := feed.NewHub()
	defer hub.Close()

	authHandler := auth.NewHandler(auth.NewService(ownerRepo, j, time.Now))
	availabilityHandler := availability.NewHandler(
		availability.NewService(configRepo, prefsRepo, bookingRepo, itemRepo, registry, time.Now),
	)
	bookingService := booking.NewService(booking.Deps{
		Configurations:    configRepo,
		Preferences:       prefsRepo,
		Items:             itemRepo,
		Owners:            ownerRepo,
		Store:             booking.NewStore(bookingRepo),
		Calendar:          registry,
		Tokens:            tokens,
		Sender:            buildSender(cfg),
		Composer:          composer,
		Feed:              hub,
		SideEffectTimeout: cfg.SideEffectTimeout,
	})
	bookingHandler := booking.NewHandler(bookingService)
	reconciler := booking.NewReconciler(bookingService)
	scheduleHandler := schedule.NewHandler(schedule.NewService(prefsRepo, itemRepo, configRepo, registry))
	settingsHandler := settings.NewHandler(settings.NewService(configRepo, prefsRepo, itemRepo, bookingRepo, registry))
	feedHandler := feed.NewHandler(hub, j, cfg.CORSAllowedOrigins)

	jobs := cron.New(cron.WithLocation(time.UTC))
	if _, err := reconciler.Schedule(ctx, jobs, cfg.ReconcileCron); err != nil {
		log.Fatalf("reconcile schedule %q: %v", cfg.ReconcileCron, err)
	}
	jobs.Start()
	defer jobs.Stop()

	r := gin.New()
	r.Use(gin.Logger(), middleware.RequestID(), middleware.ErrorLogger(), middleware.CORS(cfg.CORSAllowedOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	{
		// public
		authHandler.RegisterPublicRoutes(v1)
		links := v1.Group("/links/:link")
		availabilityHandler.RegisterRoutes(links)
		bookingHandler.RegisterRoutes(links)

		// feed authenticates itself from the query string
		feedHandler.RegisterRoutes(v1.Group("/owner"))

		owner := v1.Group("/owner")
		owner.Use(middleware.JWTAuth(j), middleware.OwnerOnly())
		{
			authHandler.RegisterProtectedRoutes(owner)
			settingsHandler.RegisterRoutes(owner)
			scheduleHandler.RegisterRoutes(owner)
		}
	}

	if cfg.InternalToken != "" {
		internal := r.Group("/internal")
		internal.Use(middleware.InternalTokenAuth(cfg.InternalToken, cfg.InternalAllowedIPs))
		booking.NewOpsHandler(reconciler).RegisterRoutes(internal)
	}

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("shutdown error: %v", err)
		}
	}()

	log.Printf("planner api listening addr=%s", cfg.HTTPAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}

func buildSender(cfg *config.Config) notification.Sender {
	if cfg.MailMode == config.MailModeSMTP {
		return notification.NewSMTPSender(notification.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.MailFrom,
		})
	}
	return notification.NewConsoleSender(true)
}
