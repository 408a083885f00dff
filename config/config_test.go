package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "")
	t.Setenv("APP_ENV", "development")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendFile, cfg.Storage.Backend)
	assert.Equal(t, "concordia_data_v1", cfg.Storage.Key)
	assert.Equal(t, "Europe/Berlin", cfg.App.Timezone)
	assert.Equal(t, "gemini-3-flash-preview", cfg.Gemini.Model)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_PostgresNeedsURL(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "postgres")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_HOST", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoad_UnknownBackend(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "floppy")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "floppy")
}

func TestLoad_ProductionNeedsAPIKeys(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("STORAGE_BACKEND", "file")
	t.Setenv("HTTP_API_KEY_HASHES", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP_API_KEY_HASHES")
}

func TestLoad_BadTimezone(t *testing.T) {
	t.Setenv("APP_TIMEZONE", "Mars/Olympus")

	_, err := Load()
	assert.Error(t, err)
}

func TestGetEnvStringSlice(t *testing.T) {
	t.Setenv("X_LIST", " a, ,b ,c")
	assert.Equal(t, []string{"a", "b", "c"}, getEnvStringSlice("X_LIST", nil))
	assert.Nil(t, getEnvStringSlice("X_MISSING", nil))
}

func TestFeatureFlags_EnvOverride(t *testing.T) {
	t.Setenv("FEATURE_STUDENTS_PURGE_LOGS", "true")
	t.Setenv("FEATURE_REPORTS_AI", "false")

	ff := LoadFeatureFlags()
	assert.True(t, ff.IsEnabled(FlagPurgeStudentLogs))
	assert.False(t, ff.IsEnabled(FlagAIReports))
	assert.False(t, ff.IsEnabled("does.not.exist"))
}

func TestFeatureFlags_Window(t *testing.T) {
	ff := NewFeatureFlags()
	now := time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)
	ff.now = func() time.Time { return now }

	from := now.Add(time.Hour)
	require.NoError(t, ff.SetWindow(FlagExcel, &from, nil))
	assert.False(t, ff.IsEnabled(FlagExcel))

	now = now.Add(2 * time.Hour)
	assert.True(t, ff.IsEnabled(FlagExcel))
}

func TestFeatureFlags_SetEnabled(t *testing.T) {
	ff := NewFeatureFlags()
	require.NoError(t, ff.SetEnabled(FlagRedisNotify, true))
	assert.True(t, ff.IsEnabled(FlagRedisNotify))
	assert.ErrorIs(t, ff.SetEnabled("nope", true), ErrFeatureNotFound)

	var nilFlags *FeatureFlags
	assert.False(t, nilFlags.IsEnabled(FlagAIReports))
}

func TestFeatureFlags_Snapshot(t *testing.T) {
	snap := NewFeatureFlags().Snapshot()
	require.Len(t, snap, 5)
	assert.Equal(t, FlagExcel, snap[0].Name)
}
