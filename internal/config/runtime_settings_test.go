package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func validSettings() RuntimeSettings {
	return RuntimeSettings{
		TargetLanguage:    "de",
		TimeOffsetSeconds: 0.5,
		BatchSize:         3,
		RequestDelayMs:    350,
		Enabled:           true,
	}
}

func TestRuntimeSettings_Validate(t *testing.T) {
	require.NoError(t, validSettings().Validate())

	s := validSettings()
	s.TargetLanguage = ""
	require.Error(t, s.Validate())

	s = validSettings()
	s.TargetLanguage = "not a language tag"
	require.Error(t, s.Validate())

	s = validSettings()
	s.BatchSize = 0
	require.Error(t, s.Validate())

	s = validSettings()
	s.RequestDelayMs = -1
	require.Error(t, s.Validate())
}

func TestRuntimeSettingsFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.json")
	settings := validSettings()

	require.NoError(t, WriteRuntimeSettingsFile(path, settings))

	loaded, err := LoadRuntimeSettingsFile(path)
	require.NoError(t, err)
	assert.Equal(t, settings, loaded)
}

func TestWriteRuntimeSettingsFile_RejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	s := validSettings()
	s.BatchSize = 0

	require.Error(t, WriteRuntimeSettingsFile(path, s))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "invalid settings must not be written")
}

func TestLoadRuntimeSettingsFile_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := LoadRuntimeSettingsFile(path)
	require.Error(t, err)
}

func TestWithRuntimeSettings_AppliesToConfig(t *testing.T) {
	t.Setenv("TRANSLATE_API_KEY", "test-key")

	cfg, err := NewFromEnv(WithRuntimeSettings(RuntimeSettings{
		TargetLanguage:    "ja",
		TimeOffsetSeconds: 2,
		BatchSize:         5,
		RequestDelayMs:    100,
		Enabled:           false,
	}))
	require.NoError(t, err)

	assert.Equal(t, language.Japanese, cfg.Translate.TargetLanguage)
	assert.InDelta(t, 2.0, cfg.Translate.TimeOffsetSeconds, 1e-9)
	assert.Equal(t, 5, cfg.Translate.BatchSize)
	assert.Equal(t, 100, cfg.Translate.RequestDelayMs)
	assert.False(t, cfg.Translate.Enabled)
}

func TestRuntimeSettingsStore_UpdatePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	store, err := NewRuntimeSettingsStore(path, validSettings())
	require.NoError(t, err)

	next := validSettings()
	next.TargetLanguage = "fr"
	next.BatchSize = 6

	updated, err := store.UpdateRuntimeSettings(next)
	require.NoError(t, err)
	assert.Equal(t, next, updated)

	current, err := store.GetRuntimeSettings()
	require.NoError(t, err)
	assert.Equal(t, next, current)

	loaded, err := LoadRuntimeSettingsFile(path)
	require.NoError(t, err)
	assert.Equal(t, next, loaded)
}

func TestRuntimeSettingsStore_RejectsInvalidUpdate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	store, err := NewRuntimeSettingsStore(path, validSettings())
	require.NoError(t, err)

	bad := validSettings()
	bad.BatchSize = 0

	_, err = store.UpdateRuntimeSettings(bad)
	require.Error(t, err)

	current, err := store.GetRuntimeSettings()
	require.NoError(t, err)
	assert.Equal(t, validSettings(), current, "rejected update must not change state")
}
