package session

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/gommon/log"
	"github.com/nrednav/cuid2"
	"uk.co.dudmesh.aura/internal/crypt"
	"uk.co.dudmesh.aura/internal/model"
)

const (
	SessionSlot       = "currentUser"
	MinPasswordLength = 8
	MaxAvatarSize     = 5 * 1024 * 1024
	LoginWindow       = time.Minute
	placeholderAvatar = "https://via.placeholder.com/150/6366f1/ffffff?text="
)

var avatarTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/gif":  true,
}

type State int

const (
	StateAnonymous State = iota
	StateAuthenticating
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "anonymous"
	}
}

type Store interface {
	Update(fn func(doc *model.Document) error) error
	View(fn func(doc *model.Document) error) error
}

type Slots interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Remove(key string) error
}

// Result of a restore or login. Muted is set when the account may read but
// not post.
type Result struct {
	State   State
	Session *model.Session
	Muted   *model.MutedError
}

type service struct {
	store   Store
	slots   Slots
	clock   clockwork.Clock
	hasher  crypt.Hasher
	secret  []byte
	state   State
	current *model.Session
}

func New(store Store, slots Slots, clock clockwork.Clock, hasher crypt.Hasher, secret string) *service {
	return &service{
		store:  store,
		slots:  slots,
		clock:  clock,
		hasher: hasher,
		secret: []byte(secret),
	}
}

func (s *service) State() State {
	return s.state
}

// Current returns the authenticated session, or nil.
func (s *service) Current() *model.Session {
	return s.current
}

// Restore re-establishes the persisted session against the store's
// authoritative user record.
func (s *service) Restore() (*Result, error) {
	raw, err := s.slots.Get(SessionSlot)
	if err != nil {
		if errors.Is(err, model.ErrorSlotNotFound) {
			s.reset()
			return &Result{State: StateAnonymous}, nil
		}
		if !errors.Is(err, model.ErrorStorageCorrupted) {
			return nil, fmt.Errorf("reading session slot: %w", err)
		}
		log.Warnf("discarding session: %v", err)
		return s.discard()
	}

	snapshot, err := decodeToken(raw, s.secret)
	if err != nil {
		log.Warnf("discarding session: %v", err)
		return s.discard()
	}

	s.state = StateAuthenticating
	var result *Result
	err = s.store.Update(func(doc *model.Document) error {
		user := doc.UserByID(snapshot.ID)
		if user == nil {
			return model.ErrorUserNotFound
		}
		now := s.clock.Now()
		if user.BanActive(now) {
			return &model.BannedError{Remaining: user.BannedUntil.Sub(now)}
		}
		result = s.authenticate(user, now)
		return nil
	})
	if err != nil {
		if errors.Is(err, model.ErrorUserNotFound) {
			log.Warnf("user %s not found, clearing session", snapshot.ID)
			return s.discard()
		}
		if errors.Is(err, model.ErrorBanned) {
			if logoutErr := s.Logout(); logoutErr != nil {
				return nil, logoutErr
			}
			return nil, err
		}
		s.reset()
		return nil, err
	}

	return s.establish(result)
}

func (s *service) Login(username, password string) (*Result, error) {
	previous := s.state
	s.state = StateAuthenticating

	var result *Result
	var loginErr error
	err := s.store.Update(func(doc *model.Document) error {
		now := s.clock.Now()
		settings := doc.Settings()

		if s.lockedOut(doc, username, now, settings.MaxLoginAttempts) {
			appendSecurityLog(doc, model.SecurityEventLoginLocked, username, "", now)
			loginErr = model.ErrorTooManyAttempts
			return nil
		}

		user := doc.UserByUsername(username)
		if user == nil || !s.hasher.Verify(user.Password, password) {
			appendSecurityLog(doc, model.SecurityEventLoginFailed, username, "", now)
			loginErr = model.ErrorInvalidUsernameOrPassword
			return nil
		}

		if settings.MaintenanceMode && !user.Role().CanModerate() {
			loginErr = model.ErrorMaintenance
			return nil
		}

		if user.BanActive(now) {
			appendSecurityLog(doc, model.SecurityEventLoginBanned, username, user.ID, now)
			loginErr = &model.BannedError{Remaining: user.BannedUntil.Sub(now)}
			return nil
		}

		result = s.authenticate(user, now)
		return nil
	})
	if err == nil {
		err = loginErr
	}
	if err != nil {
		s.state = previous
		return nil, err
	}

	log.Infof("user %s logged in", username)
	return s.establish(result)
}

func (s *service) Register(params *model.RegisterParams) (*model.User, error) {
	params.Name = strings.TrimSpace(params.Name)
	params.Username = strings.TrimSpace(params.Username)
	params.Email = strings.TrimSpace(params.Email)

	var user *model.User
	err := s.store.Update(func(doc *model.Document) error {
		if !doc.Settings().RegistrationEnabled {
			return model.ErrorRegistrationClosed
		}
		if err := model.Validate(params); err != nil {
			return err
		}
		if doc.UserByUsername(params.Username) != nil {
			return model.ErrorUsernameTaken
		}
		if doc.UserByEmail(params.Email) != nil {
			return model.ErrorEmailTaken
		}

		password, err := s.hasher.Hash(params.Password)
		if err != nil {
			return err
		}

		now := model.NewTimestamp(s.clock.Now())
		user = &model.User{
			ID:            model.NewUserID(),
			Name:          params.Name,
			Username:      params.Username,
			Password:      password,
			Email:         params.Email,
			Avatar:        placeholderAvatar + initial(params.Name),
			CreatedAt:     *now,
			LastLogin:     *now,
			SecurityLevel: 1,
		}
		doc.Users = append(doc.Users, user)
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Infof("registered user %s", user.Username)
	return user, nil
}

// Logout clears the session. Calling it while anonymous is a no-op.
func (s *service) Logout() error {
	s.reset()
	if err := s.slots.Remove(SessionSlot); err != nil {
		return fmt.Errorf("clearing session slot: %w", err)
	}
	return nil
}

func (s *service) SaveProfile(params *model.ProfileParams) (*model.Session, error) {
	if s.current == nil {
		return nil, model.ErrorUnauthenticated
	}
	params.Name = strings.TrimSpace(params.Name)
	params.Username = strings.TrimSpace(params.Username)
	params.Email = strings.TrimSpace(params.Email)

	err := s.store.Update(func(doc *model.Document) error {
		user := doc.UserByID(s.current.ID)
		if user == nil {
			return model.ErrorUserNotFound
		}
		if err := model.Validate(params); err != nil {
			return err
		}
		if other := doc.UserByUsername(params.Username); other != nil && other.ID != user.ID {
			return model.ErrorUsernameTaken
		}
		if other := doc.UserByEmail(params.Email); other != nil && other.ID != user.ID {
			return model.ErrorEmailTaken
		}
		user.Name = params.Name
		user.Username = params.Username
		user.Email = params.Email
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := s.Refresh(); err != nil {
		return nil, err
	}
	return s.current, nil
}

func (s *service) ChangePassword(oldPassword, newPassword, confirmPassword string) error {
	if s.current == nil {
		return model.ErrorUnauthenticated
	}

	err := s.store.Update(func(doc *model.Document) error {
		user := doc.UserByID(s.current.ID)
		if user == nil {
			return model.ErrorUserNotFound
		}
		if !s.hasher.Verify(user.Password, oldPassword) {
			return model.ErrorWrongPassword
		}
		if utf8.RuneCountInString(newPassword) < MinPasswordLength {
			return model.ErrorPasswordTooShort
		}
		if newPassword == oldPassword {
			return model.ErrorPasswordUnchanged
		}
		if newPassword != confirmPassword {
			return model.ErrorPasswordMismatch
		}
		password, err := s.hasher.Hash(newPassword)
		if err != nil {
			return err
		}
		user.Password = password
		return nil
	})
	if err != nil {
		return err
	}
	return s.Refresh()
}

// UpdateAvatar stores the image inline as a data URL.
func (s *service) UpdateAvatar(contentType string, data []byte) (*model.Session, error) {
	if s.current == nil {
		return nil, model.ErrorUnauthenticated
	}
	if !avatarTypes[contentType] || len(data) == 0 || len(data) > MaxAvatarSize {
		return nil, model.ErrorInvalidAvatar
	}

	avatar := "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
	err := s.store.Update(func(doc *model.Document) error {
		user := doc.UserByID(s.current.ID)
		if user == nil {
			return model.ErrorUserNotFound
		}
		user.Avatar = avatar
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := s.Refresh(); err != nil {
		return nil, err
	}
	return s.current, nil
}

// Refresh rebuilds the snapshot from the store after another operation
// changed the current user. A user that no longer exists is logged out.
func (s *service) Refresh() error {
	if s.current == nil {
		return nil
	}
	var user *model.User
	err := s.store.View(func(doc *model.Document) error {
		user = doc.UserByID(s.current.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("refreshing session: %w", err)
	}
	if user == nil {
		return s.Logout()
	}
	s.current = model.NewSession(user)
	return s.save()
}

func (s *service) authenticate(user *model.User, now time.Time) *Result {
	user.ClearExpired(now)
	user.LastLogin = *model.NewTimestamp(now)

	result := &Result{
		State:   StateAuthenticated,
		Session: model.NewSession(user),
	}
	if user.MuteActive(now) {
		result.Muted = &model.MutedError{Remaining: user.MutedUntil.Sub(now)}
	}
	return result
}

func (s *service) establish(result *Result) (*Result, error) {
	s.current = result.Session
	if err := s.save(); err != nil {
		s.reset()
		return nil, err
	}
	s.state = StateAuthenticated
	return result, nil
}

func (s *service) save() error {
	token, err := encodeToken(s.current, s.secret)
	if err != nil {
		return err
	}
	if err := s.slots.Set(SessionSlot, token); err != nil {
		return fmt.Errorf("writing session slot: %w", err)
	}
	return nil
}

func (s *service) discard() (*Result, error) {
	if err := s.Logout(); err != nil {
		return nil, err
	}
	return &Result{State: StateAnonymous}, nil
}

func (s *service) reset() {
	s.current = nil
	s.state = StateAnonymous
}

func (s *service) lockedOut(doc *model.Document, username string, now time.Time, maxAttempts int) bool {
	if maxAttempts <= 0 {
		return false
	}
	failures := 0
	for _, entry := range doc.SecurityLogs {
		if entry.Event == model.SecurityEventLoginFailed &&
			entry.Username == username &&
			now.Sub(entry.Timestamp.Time) < LoginWindow {
			failures++
		}
	}
	return failures >= maxAttempts
}

func appendSecurityLog(doc *model.Document, event model.SecurityEvent, username string, userID model.UserID, now time.Time) {
	doc.SecurityLogs = append(doc.SecurityLogs, &model.SecurityLog{
		ID:        "log_" + cuid2.Generate(),
		Event:     event,
		Username:  username,
		UserID:    userID,
		Timestamp: *model.NewTimestamp(now),
	})
}

func initial(name string) string {
	r, _ := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError {
		return ""
	}
	return string(unicode.ToUpper(r))
}
