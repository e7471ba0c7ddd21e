package routes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fvorders/fvorders-api/config"
)

func TestCorsConfig(t *testing.T) {
	all := corsConfig(&config.Config{CORSAllowedOrigins: []string{"*"}})
	assert.True(t, all.AllowAllOrigins)
	assert.Contains(t, all.AllowHeaders, "Idempotency-Key")
	assert.Contains(t, all.AllowHeaders, "Authorization")

	unset := corsConfig(&config.Config{})
	assert.True(t, unset.AllowAllOrigins)

	listed := corsConfig(&config.Config{CORSAllowedOrigins: []string{"https://a.example", "https://b.example"}})
	assert.False(t, listed.AllowAllOrigins)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, listed.AllowOrigins)
	require.NoError(t, listed.Validate())
}

func TestSetupRouter_MissingDependencies(t *testing.T) {
	_, err := SetupRouter(Dependencies{})
	assert.Error(t, err)

	_, err = SetupRouter(Dependencies{Config: &config.Config{JWTSecret: "x"}})
	assert.Error(t, err)
}
