package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("CLAWHAMMER_DATABASE_URL", "postgres://localhost/clawhammer_test")
	t.Setenv("CLAWHAMMER_API_KEY_PEPPER", "test-pepper")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 15, cfg.VerifyTTLMinutes)
	assert.Equal(t, 8, cfg.VerifyMaxPosts)
	assert.False(t, cfg.SurgeGateEnabled)
	assert.Equal(t, 10, cfg.SurgeWindowMinutes)
	assert.Equal(t, 50, cfg.SurgeMaxChallenges)
	assert.NotEmpty(t, cfg.SurgeHoldMessage)
	assert.Empty(t, cfg.XBearerToken, "bearer token is optional")
}

func TestLoadRequiredVars(t *testing.T) {
	t.Setenv("CLAWHAMMER_DATABASE_URL", "")
	t.Setenv("CLAWHAMMER_API_KEY_PEPPER", "p")
	_, err := Load()
	assert.ErrorContains(t, err, "CLAWHAMMER_DATABASE_URL")

	t.Setenv("CLAWHAMMER_DATABASE_URL", "postgres://localhost/x")
	t.Setenv("CLAWHAMMER_API_KEY_PEPPER", "")
	_, err = Load()
	assert.ErrorContains(t, err, "CLAWHAMMER_API_KEY_PEPPER")
}

func TestLoadClampsMaxPosts(t *testing.T) {
	setRequired(t)

	t.Setenv("CLAWHAMMER_VERIFY_MAX_POSTS", "100")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.VerifyMaxPosts, "hard API ceiling")

	t.Setenv("CLAWHAMMER_VERIFY_MAX_POSTS", "0")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.VerifyMaxPosts)

	t.Setenv("CLAWHAMMER_VERIFY_MAX_POSTS", "nonsense")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.VerifyMaxPosts, "unparseable values fall back to the default")
}

func TestLoadSurgeGate(t *testing.T) {
	setRequired(t)

	for _, v := range []string{"1", "true", "YES", " on "} {
		t.Setenv("CLAWHAMMER_VERIFY_SURGE_GATE", v)
		cfg, err := Load()
		require.NoError(t, err)
		assert.True(t, cfg.SurgeGateEnabled, "value %q", v)
	}

	t.Setenv("CLAWHAMMER_VERIFY_SURGE_GATE", "off")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.SurgeGateEnabled)
}
