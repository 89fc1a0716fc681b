package main

import (
	"context"
	"log"
	"time"
	_ "time/tzdata"

	"planner/internal/calendar"
	"planner/internal/config"
	"planner/internal/database"
	"planner/internal/modules/booking"
	"planner/internal/notification"
	"planner/internal/pkg/token"
	"planner/internal/repository"
)

// tokenRetention is how long expired action tokens are kept after expiry.
const tokenRetention = 30 * 24 * time.Hour

// One-shot job for deployments that run reconciliation from an external
// scheduler instead of the in-process cron.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := database.ConnectQuiet(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	registry, err := calendar.Build(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}

	bookingRepo := repository.NewBookingRepository(db)
	service := booking.NewService(booking.Deps{
		Configurations:    repository.NewConfigurationRepository(db),
		Preferences:       repository.NewPreferencesRepository(db),
		Items:             repository.NewScheduleItemRepository(db),
		Owners:            repository.NewOwnerRepository(db),
		Store:             booking.NewStore(bookingRepo),
		Calendar:          registry,
		Tokens:            token.NewService(cfg.ActionTokenPepper, time.Now),
		Sender:            notification.NewConsoleSender(false),
		Composer:          notification.NewComposer(cfg.PublicBaseURL, time.Now),
		SideEffectTimeout: cfg.SideEffectTimeout,
	})

	stats, err := booking.NewReconciler(service).RunOnce(ctx)
	if err != nil {
		log.Fatalf("reconcile failed: %v", err)
	}

	purged, err := bookingRepo.PurgeTokens(ctx, time.Now().Add(-tokenRetention))
	if err != nil {
		log.Fatalf("purge action_tokens failed: %v", err)
	}

	log.Printf("reconcile completed: checked=%d synced=%d failed=%d action_tokens_purged=%d",
		stats.Checked, stats.Synced, stats.Failed, purged)
}
