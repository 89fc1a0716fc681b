package calendar

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planner/internal/config"
)

func TestBuild(t *testing.T) {
	r, err := Build(context.Background(), &config.Config{})
	require.NoError(t, err)
	assert.True(t, r.Has("none"))
	assert.True(t, r.Has("ics"))
	assert.False(t, r.Has("google"))

	r, err = Build(context.Background(), &config.Config{Google: config.GoogleConfig{
		ClientID: "id", ClientSecret: "secret", RefreshToken: "refresh",
		TokenURL: "https://oauth2.example.com/token", APIBaseURL: "https://calendar.example.com",
	}})
	require.NoError(t, err)
	assert.True(t, r.Has("google"))
}

func TestBuild_BadSourcesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ics: [oops"), 0o600))

	_, err := Build(context.Background(), &config.Config{CalendarSourceFile: path})
	assert.Error(t, err)

	_, err = Build(context.Background(), &config.Config{CalendarSourceFile: filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)
}
