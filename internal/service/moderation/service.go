package moderation

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/gommon/log"
	"uk.co.dudmesh.aura/internal/model"
)

const (
	BanDuration        = 30 * 24 * time.Hour
	DefaultMuteMinutes = 60
	WarningLimit       = 3
)

const (
	reasonBan     = "Banned by administrator for 30 days"
	reasonUnban   = "Unbanned by administrator"
	reasonUnmute  = "Unmuted by administrator"
	reasonWarning = "Warned by administrator"
)

type Store interface {
	Update(fn func(doc *model.Document) error) error
	View(fn func(doc *model.Document) error) error
}

type Sessions interface {
	Current() *model.Session
}

type service struct {
	store        Store
	sessions     Sessions
	clock        clockwork.Clock
	postCooldown time.Duration
}

func New(store Store, sessions Sessions, clock clockwork.Clock, postCooldown time.Duration) *service {
	return &service{
		store:        store,
		sessions:     sessions,
		clock:        clock,
		postCooldown: postCooldown,
	}
}

type mutation func(doc *model.Document, actor, target *model.User, now time.Time) error

// moderate checks the caller and the target, in that order, before handing
// both to fn. Owners can never be targeted.
func (s *service) moderate(targetID model.UserID, fn mutation) (*model.User, error) {
	current := s.sessions.Current()
	if current == nil {
		return nil, model.ErrorUnauthenticated
	}

	var result model.User
	err := s.store.Update(func(doc *model.Document) error {
		actor, err := authorise(doc, current, model.Role.CanModerate)
		if err != nil {
			return err
		}
		target := doc.UserByID(targetID)
		if target == nil {
			return model.ErrorUserNotFound
		}
		if target.IsOwner {
			return model.ErrorProtectedTarget
		}
		if err := fn(doc, actor, target, s.clock.Now()); err != nil {
			return err
		}
		result = *target
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func authorise(doc *model.Document, current *model.Session, allowed func(model.Role) bool) (*model.User, error) {
	actor := doc.UserByID(current.ID)
	if actor == nil {
		return nil, model.ErrorUnauthenticated
	}
	if !allowed(actor.Role()) {
		return nil, model.ErrorForbidden
	}
	return actor, nil
}

func (s *service) ToggleVerified(targetID model.UserID) (*model.User, error) {
	return s.moderate(targetID, func(doc *model.Document, actor, target *model.User, now time.Time) error {
		target.Verified = !target.Verified
		return nil
	})
}

func (s *service) ToggleOfficial(targetID model.UserID) (*model.User, error) {
	return s.moderate(targetID, func(doc *model.Document, actor, target *model.User, now time.Time) error {
		target.IsOfficial = !target.IsOfficial
		return nil
	})
}

func (s *service) ToggleContentCreator(targetID model.UserID) (*model.User, error) {
	return s.moderate(targetID, func(doc *model.Document, actor, target *model.User, now time.Time) error {
		target.IsContentCreator = !target.IsContentCreator
		return nil
	})
}

// BanUser lifts an active ban, or bans for BanDuration otherwise.
func (s *service) BanUser(targetID model.UserID, reason string) (*model.User, error) {
	return s.moderate(targetID, func(doc *model.Document, actor, target *model.User, now time.Time) error {
		target.ClearExpired(now)
		if target.Banned {
			target.Unban()
			logAction(doc, actor, target, model.WarningTypeUnban, reason, reasonUnban, now)
			log.Infof("%s unbanned %s", actor.Username, target.Username)
			return nil
		}
		target.Ban(now.Add(BanDuration))
		logAction(doc, actor, target, model.WarningTypeBan, reason, reasonBan, now)
		log.Infof("%s banned %s", actor.Username, target.Username)
		return nil
	})
}

// MuteUser lifts an active mute, or mutes for the given number of minutes.
// A nil duration means DefaultMuteMinutes.
func (s *service) MuteUser(targetID model.UserID, reason string, minutes *int) (*model.User, error) {
	duration := DefaultMuteMinutes
	if minutes != nil {
		duration = *minutes
	}

	return s.moderate(targetID, func(doc *model.Document, actor, target *model.User, now time.Time) error {
		if duration <= 0 {
			return model.ErrorInvalidDuration
		}
		target.ClearExpired(now)
		if target.Muted {
			target.Unmute()
			logAction(doc, actor, target, model.WarningTypeUnmute, reason, reasonUnmute, now)
			log.Infof("%s unmuted %s", actor.Username, target.Username)
			return nil
		}
		target.Mute(now.Add(time.Duration(duration) * time.Minute))
		logAction(doc, actor, target, model.WarningTypeMute, reason, fmt.Sprintf("Muted for %d minutes", duration), now)
		log.Infof("%s muted %s for %d minutes", actor.Username, target.Username, duration)
		return nil
	})
}

// WarnUser adds a warning; reaching WarningLimit bans the user for
// BanDuration. Only the warning itself is logged.
func (s *service) WarnUser(targetID model.UserID, reason string) (*model.User, error) {
	return s.moderate(targetID, func(doc *model.Document, actor, target *model.User, now time.Time) error {
		target.Warnings++
		if target.Warnings >= WarningLimit {
			target.Ban(now.Add(BanDuration))
			log.Infof("%s reached %d warnings and was banned", target.Username, target.Warnings)
		}
		logAction(doc, actor, target, model.WarningTypeWarning, reason, reasonWarning, now)
		return nil
	})
}

func (s *service) DeletePost(postID model.PostID) error {
	current := s.sessions.Current()
	if current == nil {
		return model.ErrorUnauthenticated
	}

	return s.store.Update(func(doc *model.Document) error {
		actor, err := authorise(doc, current, model.Role.CanModerate)
		if err != nil {
			return err
		}
		i := doc.PostIndex(postID)
		if i < 0 {
			return model.ErrorPostNotFound
		}
		doc.Posts = append(doc.Posts[:i], doc.Posts[i+1:]...)
		log.Infof("%s deleted post %s", actor.Username, postID)
		return nil
	})
}

// ListUsers returns owners, then admins, then everyone else newest first.
// Lapsed bans and mutes are cleared on the way.
func (s *service) ListUsers() ([]model.User, error) {
	current := s.sessions.Current()
	if current == nil {
		return nil, model.ErrorUnauthenticated
	}

	var users []model.User
	err := s.store.Update(func(doc *model.Document) error {
		if _, err := authorise(doc, current, model.Role.CanModerate); err != nil {
			return err
		}
		now := s.clock.Now()
		users = make([]model.User, 0, len(doc.Users))
		for _, u := range doc.Users {
			u.ClearExpired(now)
			users = append(users, *u)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(users, func(i, j int) bool {
		a, b := users[i], users[j]
		if a.IsOwner != b.IsOwner {
			return a.IsOwner
		}
		if a.IsAdmin != b.IsAdmin {
			return a.IsAdmin
		}
		return a.CreatedAt.After(b.CreatedAt.Time)
	})
	return users, nil
}

// ListWarnings returns the moderation log newest first.
func (s *service) ListWarnings() ([]model.Warning, error) {
	current := s.sessions.Current()
	if current == nil {
		return nil, model.ErrorUnauthenticated
	}

	var warnings []model.Warning
	err := s.store.View(func(doc *model.Document) error {
		if _, err := authorise(doc, current, model.Role.CanModerate); err != nil {
			return err
		}
		warnings = make([]model.Warning, 0, len(doc.Warnings))
		for i := len(doc.Warnings) - 1; i >= 0; i-- {
			warnings = append(warnings, *doc.Warnings[i])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(warnings, func(i, j int) bool {
		return warnings[i].Timestamp.After(warnings[j].Timestamp.Time)
	})
	return warnings, nil
}

func (s *service) SecurityStats() (*model.SecurityStats, error) {
	current := s.sessions.Current()
	if current == nil {
		return nil, model.ErrorUnauthenticated
	}

	stats := &model.SecurityStats{PostCooldownMins: int64(s.postCooldown / time.Minute)}
	err := s.store.View(func(doc *model.Document) error {
		if _, err := authorise(doc, current, model.Role.CanModerate); err != nil {
			return err
		}
		now := s.clock.Now()
		settings := doc.Settings()
		stats.SecurityLogs = len(doc.SecurityLogs)
		stats.AntiSpamEnabled = settings.AntiSpamEnabled
		stats.MaxLoginAttempts = settings.MaxLoginAttempts
		for _, u := range doc.Users {
			if u.BanActive(now) {
				stats.BannedUsers++
			}
			if u.MuteActive(now) {
				stats.MutedUsers++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *service) Settings() (*model.SystemSettings, error) {
	current := s.sessions.Current()
	if current == nil {
		return nil, model.ErrorUnauthenticated
	}

	var settings model.SystemSettings
	err := s.store.View(func(doc *model.Document) error {
		if _, err := authorise(doc, current, model.Role.CanModerate); err != nil {
			return err
		}
		settings = doc.Settings()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

// UpdateSettings applies the patch. Only the owner may change settings.
func (s *service) UpdateSettings(patch *model.SettingsPatch) (*model.SystemSettings, error) {
	current := s.sessions.Current()
	if current == nil {
		return nil, model.ErrorUnauthenticated
	}

	var settings model.SystemSettings
	err := s.store.Update(func(doc *model.Document) error {
		actor, err := authorise(doc, current, model.Role.CanConfigure)
		if err != nil {
			return err
		}
		if err := model.Validate(patch); err != nil {
			return err
		}
		settings = doc.Settings()
		patch.Apply(&settings)
		updated := settings
		doc.SystemSettings = &updated
		log.Infof("%s updated system settings", actor.Username)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

func logAction(doc *model.Document, actor, target *model.User, kind model.WarningType, reason, fallback string, now time.Time) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = fallback
	}
	doc.Warnings = append(doc.Warnings, &model.Warning{
		ID:        model.NewWarningID(),
		UserID:    target.ID,
		UserName:  target.Name,
		AdminID:   actor.ID,
		AdminName: actor.Name,
		Reason:    reason,
		Type:      kind,
		Timestamp: *model.NewTimestamp(now),
	})
}
