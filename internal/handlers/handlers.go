package handlers

import (
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"uk.co.dudmesh.aura/internal/model"
	"uk.co.dudmesh.aura/internal/service/session"
)

type App interface {
	RestoreSession() (*session.Result, error)
	Login(username, password string) (*session.Result, error)
	Register(params *model.RegisterParams) (*model.User, error)
	Logout() error
	Current() *model.Session
	SaveProfile(params *model.ProfileParams) (*model.Session, error)
	ChangePassword(oldPassword, newPassword, confirmPassword string) error
	UpdateAvatar(contentType string, data []byte) (*model.Session, error)

	CreatePost(content string) (*model.Post, error)
	ListFeed() ([]model.Post, error)
	ListUserPosts(userID model.UserID) ([]model.Post, error)

	CreateClan(params *model.CreateClanParams) (*model.Clan, error)
	JoinClan(clanID model.ClanID) (*model.Clan, error)
	ListClans() ([]model.Clan, error)

	ListUsers() ([]model.User, error)
	ToggleVerified(targetID model.UserID) (*model.User, error)
	ToggleOfficial(targetID model.UserID) (*model.User, error)
	ToggleContentCreator(targetID model.UserID) (*model.User, error)
	BanUser(targetID model.UserID, reason string) (*model.User, error)
	MuteUser(targetID model.UserID, reason string, minutes *int) (*model.User, error)
	WarnUser(targetID model.UserID, reason string) (*model.User, error)
	DeletePost(postID model.PostID) error
	ListWarnings() ([]model.Warning, error)
	SecurityStats() (*model.SecurityStats, error)
	Settings() (*model.SystemSettings, error)
	UpdateSettings(patch *model.SettingsPatch) (*model.SystemSettings, error)
}

// sessionView and userView hide the stored password from responses.
type sessionView struct {
	*model.Session
	Password string `json:"password,omitempty"`
}

type userView struct {
	*model.User
	Password string `json:"password,omitempty"`
}

type sessionResponse struct {
	State       string       `json:"state"`
	User        *sessionView `json:"user,omitempty"`
	MutedUntil  *int64       `json:"mutedUntil,omitempty"`
	MutedFor    int          `json:"mutedMinutes,omitempty"`
	IsModerator bool         `json:"isModerator"`
}

func newSessionResponse(result *session.Result) *sessionResponse {
	response := &sessionResponse{State: result.State.String()}
	if result.Session != nil {
		response.User = &sessionView{Session: result.Session}
		response.IsModerator = result.Session.Role().CanModerate()
	}
	if result.Muted != nil {
		response.MutedFor = result.Muted.RemainingMinutes()
		if result.Session != nil && result.Session.MutedUntil != nil {
			until := result.Session.MutedUntil.UnixMilli()
			response.MutedUntil = &until
		}
	}
	return response
}

type errorResponse struct {
	Error            string `json:"error"`
	Field            string `json:"field,omitempty"`
	Rule             string `json:"rule,omitempty"`
	RemainingSeconds int64  `json:"remainingSeconds,omitempty"`
}

type errorMapping struct {
	err    error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{model.ErrorUnauthenticated, http.StatusUnauthorized, "unauthenticated"},
	{model.ErrorInvalidUsernameOrPassword, http.StatusUnauthorized, "invalid_credentials"},
	{model.ErrorForbidden, http.StatusForbidden, "forbidden"},
	{model.ErrorProtectedTarget, http.StatusForbidden, "protected_target"},
	{model.ErrorRegistrationClosed, http.StatusForbidden, "registration_closed"},
	{model.ErrorNotFound, http.StatusNotFound, "not_found"},
	{model.ErrorMaintenance, http.StatusServiceUnavailable, "maintenance"},
	{model.ErrorTooManyAttempts, http.StatusTooManyRequests, "too_many_attempts"},
	{model.ErrorRateLimited, http.StatusTooManyRequests, "rate_limited"},
	{model.ErrorPostLimitReached, http.StatusTooManyRequests, "post_limit_reached"},
	{model.ErrorEmptyContent, http.StatusUnprocessableEntity, "empty_content"},
	{model.ErrorInvalidDuration, http.StatusUnprocessableEntity, "invalid_duration"},
	{model.ErrorInvalidAvatar, http.StatusUnprocessableEntity, "invalid_avatar"},
	{model.ErrorAlreadyInClan, http.StatusConflict, "already_in_clan"},
	{model.ErrorAlreadyMember, http.StatusConflict, "already_member"},
}

func describe(err error) (int, *errorResponse, bool) {
	var validation model.ValidationError
	if errors.As(err, &validation) {
		return http.StatusUnprocessableEntity, &errorResponse{Error: "validation", Field: validation.Field, Rule: validation.Rule}, true
	}
	var banned *model.BannedError
	if errors.As(err, &banned) {
		return http.StatusForbidden, &errorResponse{Error: "banned", RemainingSeconds: seconds(banned.Remaining)}, true
	}
	var muted *model.MutedError
	if errors.As(err, &muted) {
		return http.StatusForbidden, &errorResponse{Error: "muted", RemainingSeconds: seconds(muted.Remaining)}, true
	}
	var cooldown *model.CooldownError
	if errors.As(err, &cooldown) {
		return http.StatusTooManyRequests, &errorResponse{Error: "cooldown", RemainingSeconds: seconds(cooldown.Remaining)}, true
	}
	for _, mapping := range errorMappings {
		if errors.Is(err, mapping.err) {
			return mapping.status, &errorResponse{Error: mapping.code}, true
		}
	}
	return 0, nil, false
}

func seconds(d time.Duration) int64 {
	return int64(math.Ceil(d.Seconds()))
}

// ErrorHandler renders domain errors as JSON and hands anything else to next.
func ErrorHandler(next echo.HTTPErrorHandler) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		status, body, ok := describe(err)
		if !ok {
			next(err, c)
			return
		}
		if c.Response().Committed {
			return
		}
		if err := c.JSON(status, body); err != nil {
			c.Logger().Error(err)
		}
	}
}
