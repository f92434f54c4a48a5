package boot

import (
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	assert := assert.New(t)

	t.Run("Defaults", func(t *testing.T) {
		config, err := LoadWith(envconfig.MapLookuper(map[string]string{}))
		assert.Nil(err)
		assert.True(config.IsDevelopment())
		assert.Equal("aura.db", config.StorePath())
		assert.Equal("plain", config.PasswordHasher)
		assert.Equal(5*time.Minute, config.PostCooldown)
		assert.Equal("8000", config.Server.Port)
		assert.Equal([]string{"*"}, config.Server.Origins)
	})

	t.Run("Overrides", func(t *testing.T) {
		config, err := LoadWith(envconfig.MapLookuper(map[string]string{
			"ENV":             "prod",
			"DATA_DIR":        "/var/lib/aura",
			"POST_COOLDOWN":   "30s",
			"PASSWORD_HASHER": "bcrypt",
			"ALLOWED_ORIGINS": "http://localhost:8000,http://127.0.0.1:8000",
		}))
		assert.Nil(err)
		assert.True(config.IsProduction())
		assert.Equal("/var/lib/aura/aura.db", config.StorePath())
		assert.Equal(30*time.Second, config.PostCooldown)
		assert.Equal("bcrypt", config.PasswordHasher)
		assert.Len(config.Server.Origins, 2)
	})

	t.Run("Bad Duration", func(t *testing.T) {
		_, err := LoadWith(envconfig.MapLookuper(map[string]string{"POST_COOLDOWN": "soon"}))
		assert.NotNil(err)
	})
}
