package settings

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string         `json:"code"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func (e *env) router(ownerID int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	group := r.Group("/api/v1/owner")
	group.Use(func(c *gin.Context) {
		if ownerID != 0 {
			c.Set("user_id", ownerID)
		}
		c.Next()
	})
	NewHandler(e.service).RegisterRoutes(group)
	return r
}

func call(t *testing.T, r *gin.Engine, method, path string, body any) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var out envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return w.Code, out
}

func TestHandler_ConfigurationFlow(t *testing.T) {
	e := setup(t)
	r := e.router(e.owner.ID)

	code, out := call(t, r, http.MethodPost, "/api/v1/owner/configurations", map[string]any{
		"title":            "Intro call",
		"duration_options": []int{30},
		"horizon_days":     14,
	})
	require.Equal(t, http.StatusCreated, code)
	var created struct {
		Configuration ConfigurationView `json:"configuration"`
	}
	require.NoError(t, json.Unmarshal(out.Data, &created))
	assert.Equal(t, "link-1", created.Configuration.LinkID)
	assert.Equal(t, []int{30}, created.Configuration.DurationOptions)

	code, out = call(t, r, http.MethodPut, "/api/v1/owner/configurations/999", map[string]any{
		"title": "x", "duration_options": []int{30},
	})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "NOT_FOUND", out.Error.Code)

	code, out = call(t, r, http.MethodGet, "/api/v1/owner/configurations", nil)
	require.Equal(t, http.StatusOK, code)
	var listed struct {
		Configurations []ConfigurationView `json:"configurations"`
	}
	require.NoError(t, json.Unmarshal(out.Data, &listed))
	assert.Len(t, listed.Configurations, 1)

	code, out = call(t, r, http.MethodGet, "/api/v1/owner/configurations/1/bookings?from=2026-01-01T00:00:00Z&to=2026-02-01T00:00:00Z", nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"bookings":[]}`, string(out.Data))

	code, out = call(t, r, http.MethodGet, "/api/v1/owner/configurations/1/bookings?from=yesterday&to=today", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "VALIDATION_ERROR", out.Error.Code)
}

func TestHandler_Errors(t *testing.T) {
	e := setup(t)
	authed := e.router(e.owner.ID)

	cases := []struct {
		name   string
		router *gin.Engine
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"no owner", e.router(0), http.MethodGet, "/api/v1/owner/configurations", nil, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"no durations", authed, http.MethodPost, "/api/v1/owner/configurations",
			map[string]any{"title": "x", "duration_options": []int{}}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"tiny duration", authed, http.MethodPost, "/api/v1/owner/configurations",
			map[string]any{"title": "x", "duration_options": []int{1}}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown provider", authed, http.MethodPost, "/api/v1/owner/configurations",
			map[string]any{"title": "x", "duration_options": []int{30}, "calendar_provider": "outlook"}, http.StatusBadRequest, "UNKNOWN_CALENDAR_PROVIDER"},
		{"bad id", authed, http.MethodPut, "/api/v1/owner/configurations/abc",
			map[string]any{"title": "x", "duration_options": []int{30}}, http.StatusBadRequest, "INVALID_ID"},
		{"bad zone", authed, http.MethodPut, "/api/v1/owner/preferences",
			map[string]any{"time_zone": "Mars/Olympus", "wake_time": "08:00", "sleep_time": "17:00"}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"bad weekday key", authed, http.MethodPut, "/api/v1/owner/preferences",
			map[string]any{"time_zone": "UTC", "wake_time": "08:00", "sleep_time": "17:00",
				"day_overrides": map[string]any{"funday": map[string]string{"start": "09:00", "end": "10:00"}}}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"sleep before wake", authed, http.MethodPut, "/api/v1/owner/preferences",
			map[string]any{"time_zone": "UTC", "wake_time": "17:00", "sleep_time": "08:00"}, http.StatusBadRequest, "INVALID_HOURS"},
		{"item kind", authed, http.MethodPost, "/api/v1/owner/schedule-items",
			map[string]any{"kind": "meeting", "title": "x", "start": "2026-01-12T09:00:00Z", "end": "2026-01-12T10:00:00Z"}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"item range", authed, http.MethodPost, "/api/v1/owner/schedule-items",
			map[string]any{"kind": "task", "title": "x", "start": "2026-01-12T10:00:00Z", "end": "2026-01-12T09:00:00Z"}, http.StatusBadRequest, "INVALID_RANGE"},
		{"missing item", authed, http.MethodDelete, "/api/v1/owner/schedule-items/42", nil, http.StatusNotFound, "NOT_FOUND"},
	}
	for _, tc := range cases {
		code, out := call(t, tc.router, tc.method, tc.path, tc.body)
		assert.Equal(t, tc.status, code, tc.name)
		if assert.NotNil(t, out.Error, tc.name) {
			assert.Equal(t, tc.code, out.Error.Code, tc.name)
		}
	}
}

func TestHandler_Preferences(t *testing.T) {
	e := setup(t)
	r := e.router(e.owner.ID)

	code, out := call(t, r, http.MethodGet, "/api/v1/owner/preferences", nil)
	require.Equal(t, http.StatusOK, code)
	var got struct {
		Preferences PreferencesView `json:"preferences"`
	}
	require.NoError(t, json.Unmarshal(out.Data, &got))
	assert.False(t, got.Preferences.Saved)

	code, _ = call(t, r, http.MethodPut, "/api/v1/owner/preferences", map[string]any{
		"time_zone":    "America/New_York",
		"wake_time":    "07:30",
		"sleep_time":   "16:00",
		"blocked_days": []string{"saturday"},
	})
	require.Equal(t, http.StatusOK, code)

	_, out = call(t, r, http.MethodGet, "/api/v1/owner/preferences", nil)
	require.NoError(t, json.Unmarshal(out.Data, &got))
	assert.True(t, got.Preferences.Saved)
	assert.Equal(t, "America/New_York", got.Preferences.TimeZone)
	assert.Equal(t, []string{"saturday"}, got.Preferences.BlockedDays)
}
