package app

import (
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"uk.co.dudmesh.aura/internal/boot"
	"uk.co.dudmesh.aura/internal/localstore"
	"uk.co.dudmesh.aura/internal/model"
	"uk.co.dudmesh.aura/internal/service/session"
)

func testConfig(t *testing.T) *boot.Config {
	config, err := boot.LoadWith(envconfig.MapLookuper(map[string]string{
		"SESSION_SECRET": "test-secret",
		"POST_COOLDOWN":  "5m",
	}))
	require.NoError(t, err)
	return config
}

func newApp(t *testing.T, slots Slots, clock clockwork.Clock) *App {
	app, err := New(testConfig(t), slots, clock)
	require.NoError(t, err)
	_, err = app.Start()
	require.NoError(t, err)
	return app
}

func register(t *testing.T, app *App, username string) {
	_, err := app.Register(&model.RegisterParams{
		Name:            username,
		Username:        username,
		Email:           username + "@example.com",
		Password:        "password123",
		ConfirmPassword: "password123",
	})
	require.NoError(t, err)
}

func TestModerationScenario(t *testing.T) {
	assert := assert.New(t)

	slots, err := localstore.NewMemory(t.Name())
	require.NoError(t, err)
	defer slots.Close()
	clock := clockwork.NewFakeClock()
	app := newApp(t, slots, clock)

	register(t, app, "alice")
	_, err = app.Login("alice", "password123")
	require.NoError(t, err)

	_, err = app.CreatePost("hello world")
	require.NoError(t, err)
	assert.Equal(1, app.Current().PostsCount)

	_, err = app.ListUsers()
	assert.Equal(model.ErrorForbidden, err)

	alice := app.Current().ID
	_, err = app.Login("admin", "admin123")
	require.NoError(t, err)
	assert.Equal(model.RoleAdmin, app.Current().Role())

	for i := 0; i < 3; i++ {
		_, err := app.WarnUser(alice, "")
		require.NoError(t, err)
	}

	warnings, err := app.ListWarnings()
	require.NoError(t, err)
	assert.Len(warnings, 3)

	users, err := app.ListUsers()
	require.NoError(t, err)
	assert.Equal("owner", users[0].Username)

	owner := users[0].ID
	_, err = app.BanUser(owner, "")
	assert.Equal(model.ErrorProtectedTarget, err)

	stats, err := app.SecurityStats()
	require.NoError(t, err)
	assert.Equal(1, stats.BannedUsers)

	_, err = app.Login("alice", "password123")
	var banned *model.BannedError
	if assert.True(errors.As(err, &banned)) {
		assert.Equal(30, banned.RemainingDays())
	}
	assert.Equal("admin", app.Current().Username)

	t.Run("Restart Restores Session", func(t *testing.T) {
		restarted := newApp(t, slots, clock)
		assert.Equal(session.StateAuthenticated, restarted.State())
		assert.Equal("admin", restarted.Current().Username)

		posts, err := restarted.ListFeed()
		require.NoError(t, err)
		assert.Len(posts, 1)
	})

	t.Run("Ban Lapses", func(t *testing.T) {
		clock.Advance(31 * 24 * time.Hour)
		_, err := app.Login("alice", "password123")
		assert.Nil(err)
	})
}

func TestCooldownAcrossUsers(t *testing.T) {
	assert := assert.New(t)

	slots, err := localstore.NewMemory(t.Name())
	require.NoError(t, err)
	defer slots.Close()
	clock := clockwork.NewFakeClock()
	app := newApp(t, slots, clock)

	_, err = app.Login("admin", "admin123")
	require.NoError(t, err)
	_, err = app.CreatePost("first")
	require.NoError(t, err)

	_, err = app.Login("owner", "owner123")
	require.NoError(t, err)
	_, err = app.CreatePost("second")
	assert.True(errors.Is(err, model.ErrorCooldownActive))

	clock.Advance(5 * time.Minute)
	_, err = app.CreatePost("second")
	assert.Nil(err)
}

func TestClanRefreshesSession(t *testing.T) {
	assert := assert.New(t)

	slots, err := localstore.NewMemory(t.Name())
	require.NoError(t, err)
	defer slots.Close()
	app := newApp(t, slots, clockwork.NewFakeClock())

	register(t, app, "alice")
	_, err = app.Login("alice", "password123")
	require.NoError(t, err)

	clan, err := app.CreateClan(&model.CreateClanParams{Name: "Wolves", Tag: "@wolves"})
	require.NoError(t, err)
	if assert.NotNil(app.Current().ClanID) {
		assert.Equal(clan.ID, *app.Current().ClanID)
	}

	_, err = app.JoinClan(clan.ID)
	assert.Equal(model.ErrorAlreadyInClan, err)
}

func TestReset(t *testing.T) {
	assert := assert.New(t)

	slots, err := localstore.NewMemory(t.Name())
	require.NoError(t, err)
	defer slots.Close()
	app := newApp(t, slots, clockwork.NewFakeClock())

	register(t, app, "alice")
	_, err = app.Login("alice", "password123")
	require.NoError(t, err)

	assert.Nil(app.Reset())
	assert.Nil(app.Current())
	_, err = app.Login("alice", "password123")
	assert.Equal(model.ErrorInvalidUsernameOrPassword, err)
}
