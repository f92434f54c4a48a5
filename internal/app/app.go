package app

import (
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/gommon/log"
	"uk.co.dudmesh.aura/internal/boot"
	"uk.co.dudmesh.aura/internal/crypt"
	"uk.co.dudmesh.aura/internal/docstore"
	"uk.co.dudmesh.aura/internal/localstore"
	"uk.co.dudmesh.aura/internal/model"
	"uk.co.dudmesh.aura/internal/service/clan"
	"uk.co.dudmesh.aura/internal/service/feed"
	"uk.co.dudmesh.aura/internal/service/moderation"
	"uk.co.dudmesh.aura/internal/service/session"
)

type Slots interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Remove(key string) error
	Close() error
}

type Sessions interface {
	Restore() (*session.Result, error)
	Login(username, password string) (*session.Result, error)
	Register(params *model.RegisterParams) (*model.User, error)
	Logout() error
	Current() *model.Session
	State() session.State
	Refresh() error
	SaveProfile(params *model.ProfileParams) (*model.Session, error)
	ChangePassword(oldPassword, newPassword, confirmPassword string) error
	UpdateAvatar(contentType string, data []byte) (*model.Session, error)
}

type Feed interface {
	CreatePost(content string) (*model.Post, error)
	ListFeed() ([]model.Post, error)
	ListUserPosts(userID model.UserID) ([]model.Post, error)
}

type Clans interface {
	CreateClan(params *model.CreateClanParams) (*model.Clan, error)
	JoinClan(clanID model.ClanID) (*model.Clan, error)
	ListClans() ([]model.Clan, error)
}

type Moderation interface {
	ToggleVerified(targetID model.UserID) (*model.User, error)
	ToggleOfficial(targetID model.UserID) (*model.User, error)
	ToggleContentCreator(targetID model.UserID) (*model.User, error)
	BanUser(targetID model.UserID, reason string) (*model.User, error)
	MuteUser(targetID model.UserID, reason string, minutes *int) (*model.User, error)
	WarnUser(targetID model.UserID, reason string) (*model.User, error)
	DeletePost(postID model.PostID) error
	ListUsers() ([]model.User, error)
	ListWarnings() ([]model.Warning, error)
	SecurityStats() (*model.SecurityStats, error)
	Settings() (*model.SystemSettings, error)
	UpdateSettings(patch *model.SettingsPatch) (*model.SystemSettings, error)
}

// App is the call surface of the core. Every method runs under one lock, so
// operations never interleave.
type App struct {
	mu         sync.Mutex
	slots      Slots
	store      *docstore.Store
	sessions   Sessions
	feed       Feed
	clans      Clans
	moderation Moderation
}

// Open creates an App backed by the configured store file.
func Open(config *boot.Config) (*App, error) {
	slots, err := localstore.New(config)
	if err != nil {
		return nil, fmt.Errorf("opening local store: %w", err)
	}
	app, err := New(config, slots, clockwork.NewRealClock())
	if err != nil {
		slots.Close()
		return nil, err
	}
	return app, nil
}

func New(config *boot.Config, slots Slots, clock clockwork.Clock) (*App, error) {
	hasher, err := crypt.NewHasher(config.PasswordHasher)
	if err != nil {
		return nil, err
	}

	store := docstore.New(slots, clock, hasher)
	sessions := session.New(store, slots, clock, hasher, config.SessionSecret)

	return &App{
		slots:      slots,
		store:      store,
		sessions:   sessions,
		feed:       feed.New(store, sessions, clock, config.PostCooldown),
		clans:      clan.New(store, sessions, clock),
		moderation: moderation.New(store, sessions, clock, config.PostCooldown),
	}, nil
}

// Start loads the document and restores the persisted session.
func (a *App) Start() (*session.Result, error) {
	if err := a.InitStore(); err != nil {
		return nil, err
	}
	return a.RestoreSession()
}

func (a *App) InitStore() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.store.Load()
}

func (a *App) RestoreSession() (*session.Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sessions.Restore()
}

func (a *App) Login(username, password string) (*session.Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sessions.Login(username, password)
}

func (a *App) Register(params *model.RegisterParams) (*model.User, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sessions.Register(params)
}

func (a *App) Logout() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sessions.Logout()
}

// Current returns a copy of the session snapshot, or nil when anonymous.
func (a *App) Current() *model.Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	current := a.sessions.Current()
	if current == nil {
		return nil
	}
	snapshot := *current
	return &snapshot
}

func (a *App) State() session.State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sessions.State()
}

func (a *App) SaveProfile(params *model.ProfileParams) (*model.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return copySession(a.sessions.SaveProfile(params))
}

func (a *App) ChangePassword(oldPassword, newPassword, confirmPassword string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sessions.ChangePassword(oldPassword, newPassword, confirmPassword)
}

func (a *App) UpdateAvatar(contentType string, data []byte) (*model.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return copySession(a.sessions.UpdateAvatar(contentType, data))
}

func (a *App) CreatePost(content string) (*model.Post, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	post, err := a.feed.CreatePost(content)
	if err != nil {
		return nil, err
	}
	a.refresh()
	return post, nil
}

func (a *App) ListFeed() ([]model.Post, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.feed.ListFeed()
}

func (a *App) ListUserPosts(userID model.UserID) ([]model.Post, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.feed.ListUserPosts(userID)
}

func (a *App) CreateClan(params *model.CreateClanParams) (*model.Clan, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	clan, err := a.clans.CreateClan(params)
	if err != nil {
		return nil, err
	}
	a.refresh()
	return clan, nil
}

func (a *App) JoinClan(clanID model.ClanID) (*model.Clan, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	clan, err := a.clans.JoinClan(clanID)
	if err != nil {
		return nil, err
	}
	a.refresh()
	return clan, nil
}

func (a *App) ListClans() ([]model.Clan, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.clans.ListClans()
}

func (a *App) ListUsers() ([]model.User, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.moderation.ListUsers()
}

func (a *App) ToggleVerified(targetID model.UserID) (*model.User, error) {
	return a.moderate(func() (*model.User, error) { return a.moderation.ToggleVerified(targetID) })
}

func (a *App) ToggleOfficial(targetID model.UserID) (*model.User, error) {
	return a.moderate(func() (*model.User, error) { return a.moderation.ToggleOfficial(targetID) })
}

func (a *App) ToggleContentCreator(targetID model.UserID) (*model.User, error) {
	return a.moderate(func() (*model.User, error) { return a.moderation.ToggleContentCreator(targetID) })
}

func (a *App) BanUser(targetID model.UserID, reason string) (*model.User, error) {
	return a.moderate(func() (*model.User, error) { return a.moderation.BanUser(targetID, reason) })
}

func (a *App) MuteUser(targetID model.UserID, reason string, minutes *int) (*model.User, error) {
	return a.moderate(func() (*model.User, error) { return a.moderation.MuteUser(targetID, reason, minutes) })
}

func (a *App) WarnUser(targetID model.UserID, reason string) (*model.User, error) {
	return a.moderate(func() (*model.User, error) { return a.moderation.WarnUser(targetID, reason) })
}

func (a *App) DeletePost(postID model.PostID) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.moderation.DeletePost(postID)
}

func (a *App) ListWarnings() ([]model.Warning, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.moderation.ListWarnings()
}

func (a *App) SecurityStats() (*model.SecurityStats, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.moderation.SecurityStats()
}

func (a *App) Settings() (*model.SystemSettings, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.moderation.Settings()
}

func (a *App) UpdateSettings(patch *model.SettingsPatch) (*model.SystemSettings, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.moderation.UpdateSettings(patch)
}

// Reset wipes the document back to its seeded state and logs out.
func (a *App) Reset() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.store.Reset(); err != nil {
		return err
	}
	return a.sessions.Logout()
}

func (a *App) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.slots.Close()
}

func (a *App) moderate(fn func() (*model.User, error)) (*model.User, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	user, err := fn()
	if err != nil {
		return nil, err
	}
	a.refresh()
	return user, nil
}

// refresh rebuilds the session snapshot after a mutation. The mutation has
// already been persisted, so a failure here is only logged.
func (a *App) refresh() {
	if err := a.sessions.Refresh(); err != nil {
		log.Warnf("refreshing session: %v", err)
	}
}

func copySession(current *model.Session, err error) (*model.Session, error) {
	if err != nil {
		return nil, err
	}
	snapshot := *current
	return &snapshot, nil
}
