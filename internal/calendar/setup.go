package calendar

import (
	"context"
	"fmt"

	"planner/internal/config"
	"planner/internal/domain"
)

// Build registers the providers cfg enables: none and ics always, google
// when credentials are present.
func Build(ctx context.Context, cfg *config.Config) (*Registry, error) {
	registry := NewRegistry()

	sources, err := config.LoadSources(cfg.CalendarSourceFile)
	if err != nil {
		return nil, fmt.Errorf("calendar sources: %w", err)
	}
	registry.Register(domain.CalendarProviderICS, NewICSProvider(nil, sources))

	if cfg.Google.Enabled() {
		registry.Register(domain.CalendarProviderGoogle, NewGoogleProvider(ctx, GoogleCredentials{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			RefreshToken: cfg.Google.RefreshToken,
			TokenURL:     cfg.Google.TokenURL,
		}, cfg.Google.APIBaseURL))
	}
	return registry, nil
}
