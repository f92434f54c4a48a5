package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"uk.co.dudmesh.aura/internal/model"
)

func run(t *testing.T, args ...string) (string, error) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCommands(t *testing.T) {
	assert := assert.New(t)
	t.Setenv("DATA_DIR", t.TempDir())
	t.Setenv("STORE_FILE", "admin-test.db")

	out, err := run(t, "users", "-p", "owner123")
	require.NoError(t, err)
	var users []userRow
	require.NoError(t, json.Unmarshal([]byte(out), &users))
	if assert.Len(users, 2) {
		assert.Equal("owner", users[0].Username)
		assert.Equal("owner", users[0].Role)
		assert.Equal("admin", users[1].Role)
	}
	admin := string(users[1].ID)
	owner := string(users[0].ID)

	t.Run("Wrong Password", func(t *testing.T) {
		_, err := run(t, "users", "-p", "nope")
		assert.True(errors.Is(err, model.ErrorInvalidUsernameOrPassword))
	})

	t.Run("Owner Is Protected", func(t *testing.T) {
		_, err := run(t, "ban", owner, "-u", "admin", "-p", "admin123")
		assert.Equal(model.ErrorProtectedTarget, err)
	})

	t.Run("Mute With Minutes", func(t *testing.T) {
		out, err := run(t, "mute", admin, "-p", "owner123", "--minutes", "15", "--reason", "testing")
		require.NoError(t, err)
		var row userRow
		require.NoError(t, json.Unmarshal([]byte(out), &row))
		assert.True(row.Muted)

		out, err = run(t, "warnings", "-p", "owner123")
		require.NoError(t, err)
		var warnings []model.Warning
		require.NoError(t, json.Unmarshal([]byte(out), &warnings))
		if assert.Len(warnings, 1) {
			assert.Equal("testing", warnings[0].Reason)
			assert.Equal(model.WarningTypeMute, warnings[0].Type)
		}
	})

	t.Run("Invalid Minutes", func(t *testing.T) {
		_, err := run(t, "mute", admin, "-p", "owner123", "--minutes", "0")
		assert.Equal(model.ErrorInvalidDuration, err)
	})

	t.Run("Settings", func(t *testing.T) {
		_, err := run(t, "settings", "set", "-u", "admin", "-p", "admin123", "--maintenance")
		assert.Equal(model.ErrorForbidden, err)

		out, err := run(t, "settings", "set", "-p", "owner123", "--registration-enabled=false")
		require.NoError(t, err)
		var settings model.SystemSettings
		require.NoError(t, json.Unmarshal([]byte(out), &settings))
		assert.False(settings.RegistrationEnabled)
		assert.True(settings.AntiSpamEnabled)
	})

	t.Run("Reset", func(t *testing.T) {
		_, err := run(t, "reset", "-u", "admin", "-p", "admin123")
		assert.Equal(model.ErrorForbidden, err)

		out, err := run(t, "reset", "-p", "owner123")
		require.NoError(t, err)
		assert.Equal("store reset\n", out)

		out, err = run(t, "settings", "get", "-p", "owner123")
		require.NoError(t, err)
		var settings model.SystemSettings
		require.NoError(t, json.Unmarshal([]byte(out), &settings))
		assert.True(settings.RegistrationEnabled)
	})
}
