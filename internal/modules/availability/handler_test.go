package availability

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"planner/internal/calendar"
	"planner/internal/database"
	"planner/internal/domain"
	"planner/internal/repository"
)

type availabilityResponse struct {
	Success bool   `json:"success"`
	Data    Result `json:"data"`
	Error   struct {
		Code string `json:"code"`
	} `json:"error"`
}

func setupRouter(t *testing.T, now time.Time) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.ConnectQuiet(fmt.Sprintf("file:availability_%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	service := NewService(
		repository.NewConfigurationRepository(db),
		repository.NewPreferencesRepository(db),
		repository.NewBookingRepository(db),
		repository.NewScheduleItemRepository(db),
		calendar.NewRegistry(),
		func() time.Time { return now },
	)
	router := gin.New()
	NewHandler(service).RegisterRoutes(router.Group("/api/v1/links/:link"))
	return router, db
}

func seed(t *testing.T, db *gorm.DB, active bool) *domain.SchedulingConfiguration {
	t.Helper()
	owner := &domain.Owner{Email: "owner@example.com", PasswordHash: "x", Name: "Owner"}
	require.NoError(t, db.Create(owner).Error)
	require.NoError(t, db.Create(&domain.WorkingPreferences{
		OwnerID: owner.ID, TimeZone: "UTC", WakeTime: "08:00", SleepTime: "17:00",
	}).Error)
	cfg := &domain.SchedulingConfiguration{
		OwnerID:          owner.ID,
		LinkID:           "intro",
		Title:            "Intro call",
		CalendarProvider: domain.CalendarProviderNone,
		Active:           active,
	}
	require.NoError(t, cfg.SetDurations([]int{30}))
	require.NoError(t, db.Create(cfg).Error)
	return cfg
}

func get(router *gin.Engine, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestGetAvailability(t *testing.T) {
	router, db := setupRouter(t, utcAt(1, 0, 0))
	cfg := seed(t, db, true)
	require.NoError(t, db.Create(&domain.Booking{
		ConfigurationID: cfg.ID,
		InviteeName:     "Ann",
		InviteeEmail:    "ann@example.com",
		StartTime:       utcAt(10, 10, 0),
		EndTime:         utcAt(10, 10, 30),
		Status:          domain.BookingScheduled,
	}).Error)

	resp := get(router, "/api/v1/links/intro/availability?from=2026-01-10T09:00:00Z&to=2026-01-10T12:00:00Z")
	require.Equal(t, http.StatusOK, resp.Code)

	var payload availabilityResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	require.True(t, payload.Success)
	require.Len(t, payload.Data.Slots, 1)

	got := starts(payload.Data.Slots[0].Slots)
	assert.Contains(t, got, "01-10 09:00")
	assert.NotContains(t, got, "01-10 10:00")
	assert.Contains(t, got, "01-10 10:30")
}

func TestGetAvailability_Errors(t *testing.T) {
	router, db := setupRouter(t, utcAt(1, 0, 0))
	seed(t, db, false)

	tests := []struct {
		path   string
		status int
		code   string
	}{
		{"/api/v1/links/intro/availability?from=2026-01-10T09:00:00Z", http.StatusBadRequest, "VALIDATION_ERROR"},
		{"/api/v1/links/intro/availability?from=yesterday&to=2026-01-10T12:00:00Z", http.StatusBadRequest, "VALIDATION_ERROR"},
		{"/api/v1/links/intro/availability?from=2026-01-10T12:00:00Z&to=2026-01-10T09:00:00Z", http.StatusBadRequest, "INVALID_RANGE"},
		{"/api/v1/links/nope/availability?from=2026-01-10T09:00:00Z&to=2026-01-10T12:00:00Z", http.StatusNotFound, "LINK_NOT_FOUND"},
		{"/api/v1/links/intro/availability?from=2026-01-10T09:00:00Z&to=2026-01-10T12:00:00Z", http.StatusConflict, "SCHEDULING_PAUSED"},
	}
	for _, tt := range tests {
		resp := get(router, tt.path)
		assert.Equal(t, tt.status, resp.Code, tt.path)

		var payload availabilityResponse
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
		assert.Equal(t, tt.code, payload.Error.Code, tt.path)
	}
}

func TestDescribeLink(t *testing.T) {
	router, db := setupRouter(t, utcAt(1, 0, 0))
	seed(t, db, true)

	resp := get(router, "/api/v1/links/intro")
	require.Equal(t, http.StatusOK, resp.Code)

	var payload struct {
		Data LinkInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	assert.Equal(t, "Intro call", payload.Data.Title)
	assert.Equal(t, []int{30}, payload.Data.Durations)
}
