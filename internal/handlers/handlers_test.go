package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"uk.co.dudmesh.aura/internal/app"
	"uk.co.dudmesh.aura/internal/boot"
	"uk.co.dudmesh.aura/internal/localstore"
	"uk.co.dudmesh.aura/internal/model"
)

type harness struct {
	server *echo.Echo
	app    *app.App
}

func newHarness(t *testing.T) *harness {
	config, err := boot.LoadWith(envconfig.MapLookuper(map[string]string{"SESSION_SECRET": "test-secret"}))
	require.NoError(t, err)

	slots, err := localstore.NewMemory(t.Name())
	require.NoError(t, err)
	t.Cleanup(func() { slots.Close() })

	a, err := app.New(config, slots, clockwork.NewFakeClock())
	require.NoError(t, err)
	_, err = a.Start()
	require.NoError(t, err)

	server := echo.New()
	server.HTTPErrorHandler = ErrorHandler(server.DefaultHTTPErrorHandler)
	return &harness{server: server, app: a}
}

func (h *harness) call(handler echo.HandlerFunc, method, body string, params ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := h.server.NewContext(req, rec)
	var names, values []string
	for i := 0; i+1 < len(params); i += 2 {
		names = append(names, params[i])
		values = append(values, params[i+1])
	}
	c.SetParamNames(names...)
	c.SetParamValues(values...)
	if err := handler(c); err != nil {
		h.server.HTTPErrorHandler(err, c)
	}
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestSessionEndpoints(t *testing.T) {
	assert := assert.New(t)
	h := newHarness(t)

	rec := h.call(RestoreSession(h.app), http.MethodGet, "")
	assert.Equal(http.StatusOK, rec.Code)
	assert.Equal("anonymous", decode(t, rec)["state"])

	rec = h.call(Login(h.app), http.MethodPost, `{"username":"admin","password":"wrong"}`)
	assert.Equal(http.StatusUnauthorized, rec.Code)
	assert.Equal("invalid_credentials", decode(t, rec)["error"])

	rec = h.call(Login(h.app), http.MethodPost, `{"username":"admin","password":"admin123"}`)
	assert.Equal(http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal("authenticated", body["state"])
	assert.Equal(true, body["isModerator"])
	user := body["user"].(map[string]interface{})
	assert.Equal("admin", user["username"])
	assert.NotContains(user, "password")

	rec = h.call(CurrentUser(h.app), http.MethodGet, "")
	assert.Equal(http.StatusOK, rec.Code)

	rec = h.call(Logout(h.app), http.MethodPost, "")
	assert.Equal(http.StatusNoContent, rec.Code)

	rec = h.call(CurrentUser(h.app), http.MethodGet, "")
	assert.Equal(http.StatusUnauthorized, rec.Code)
}

func TestRegisterValidation(t *testing.T) {
	assert := assert.New(t)
	h := newHarness(t)

	rec := h.call(Register(h.app), http.MethodPost, `{"name":"Alice","username":"al","email":"alice@example.com","password":"password123","confirmPassword":"password123"}`)
	assert.Equal(http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(map[string]interface{}{"error": "validation", "field": "username", "rule": model.RuleMinLength}, decode(t, rec))

	rec = h.call(Register(h.app), http.MethodPost, `{"name":"Alice","username":"alice","email":"alice@example.com","password":"password123","confirmPassword":"password123"}`)
	assert.Equal(http.StatusCreated, rec.Code)
	assert.NotContains(decode(t, rec), "password")
}

func TestPostEndpoints(t *testing.T) {
	assert := assert.New(t)
	h := newHarness(t)

	rec := h.call(CreatePost(h.app), http.MethodPost, `{"content":"hello"}`)
	assert.Equal(http.StatusUnauthorized, rec.Code)

	_, err := h.app.Login("admin", "admin123")
	require.NoError(t, err)

	rec = h.call(CreatePost(h.app), http.MethodPost, `{"content":"   "}`)
	assert.Equal(http.StatusUnprocessableEntity, rec.Code)
	assert.Equal("empty_content", decode(t, rec)["error"])

	rec = h.call(CreatePost(h.app), http.MethodPost, `{"content":"hello"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	postID := decode(t, rec)["id"].(string)

	rec = h.call(CreatePost(h.app), http.MethodPost, `{"content":"again"}`)
	assert.Equal(http.StatusTooManyRequests, rec.Code)
	body := decode(t, rec)
	assert.Equal("cooldown", body["error"])
	assert.Equal(float64(300), body["remainingSeconds"])

	rec = h.call(ListFeed(h.app), http.MethodGet, "")
	assert.Equal(http.StatusOK, rec.Code)
	var posts []model.Post
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &posts))
	assert.Len(posts, 1)

	rec = h.call(DeletePost(h.app), http.MethodDelete, "", "postId", postID)
	assert.Equal(http.StatusNoContent, rec.Code)

	rec = h.call(DeletePost(h.app), http.MethodDelete, "", "postId", postID)
	assert.Equal(http.StatusNotFound, rec.Code)
}

func TestModerateUser(t *testing.T) {
	assert := assert.New(t)
	h := newHarness(t)

	_, err := h.app.Register(&model.RegisterParams{Name: "Alice", Username: "alice", Email: "alice@example.com", Password: "password123", ConfirmPassword: "password123"})
	require.NoError(t, err)
	_, err = h.app.Login("admin", "admin123")
	require.NoError(t, err)

	users, err := h.app.ListUsers()
	require.NoError(t, err)
	var alice, owner model.UserID
	for _, u := range users {
		switch u.Username {
		case "alice":
			alice = u.ID
		case "owner":
			owner = u.ID
		}
	}

	rec := h.call(ModerateUser(h.app), http.MethodPost, `{"minutes":15}`, "userId", string(alice), "action", "mute")
	assert.Equal(http.StatusOK, rec.Code)
	assert.Equal(true, decode(t, rec)["muted"])

	rec = h.call(ModerateUser(h.app), http.MethodPost, "", "userId", string(alice), "action", "verified")
	assert.Equal(http.StatusOK, rec.Code)
	assert.Equal(true, decode(t, rec)["verified"])

	rec = h.call(ModerateUser(h.app), http.MethodPost, `{"reason":"nope"}`, "userId", string(owner), "action", "ban")
	assert.Equal(http.StatusForbidden, rec.Code)
	assert.Equal("protected_target", decode(t, rec)["error"])

	rec = h.call(ModerateUser(h.app), http.MethodPost, "", "userId", string(alice), "action", "explode")
	assert.Equal(http.StatusNotFound, rec.Code)

	rec = h.call(ListWarnings(h.app), http.MethodGet, "")
	assert.Equal(http.StatusOK, rec.Code)
	var warnings []model.Warning
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &warnings))
	if assert.Len(warnings, 1) {
		assert.Equal(model.WarningTypeMute, warnings[0].Type)
	}

	rec = h.call(UpdateSettings(h.app), http.MethodPut, `{"maintenanceMode":true}`)
	assert.Equal(http.StatusForbidden, rec.Code)
}

func TestUpdateAvatar(t *testing.T) {
	assert := assert.New(t)
	h := newHarness(t)
	_, err := h.app.Login("admin", "admin123")
	require.NoError(t, err)

	upload := func(contentType string, data []byte) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		writer := multipart.NewWriter(&buf)
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="avatar"; filename="avatar"`)
		header.Set(echo.HeaderContentType, contentType)
		part, err := writer.CreatePart(header)
		require.NoError(t, err)
		part.Write(data)
		require.NoError(t, writer.Close())

		req := httptest.NewRequest(http.MethodPost, "/", &buf)
		req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
		rec := httptest.NewRecorder()
		c := h.server.NewContext(req, rec)
		if err := UpdateAvatar(h.app)(c); err != nil {
			h.server.HTTPErrorHandler(err, c)
		}
		return rec
	}

	rec := upload("image/bmp", []byte("bmp"))
	assert.Equal(http.StatusUnprocessableEntity, rec.Code)

	rec = upload("image/gif", []byte("gif"))
	assert.Equal(http.StatusOK, rec.Code)
	assert.Equal("data:image/gif;base64,Z2lm", decode(t, rec)["avatar"])
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"Banned", &model.BannedError{Remaining: time.Hour}, http.StatusForbidden, "banned"},
		{"Muted", &model.MutedError{Remaining: time.Minute}, http.StatusForbidden, "muted"},
		{"Wrapped Not Found", model.ErrorClanNotFound, http.StatusNotFound, "not_found"},
		{"Maintenance", model.ErrorMaintenance, http.StatusServiceUnavailable, "maintenance"},
		{"Taken", model.ErrorClanTagTaken, http.StatusUnprocessableEntity, "validation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body, ok := describe(tt.err)
			assert.True(t, ok)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, body.Error)
		})
	}

	_, _, ok := describe(errors.New("boom"))
	assert.False(t, ok)
}
