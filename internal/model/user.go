package model

import "time"

type UserID string // e.g. user_3GFQNuSg3dPqDD1emxv5bqX42oxq

type Role int

const (
	RoleGuest Role = iota
	RoleMember
	RoleAdmin
	RoleOwner
)

func (r Role) String() string {
	switch r {
	case RoleMember:
		return "member"
	case RoleAdmin:
		return "admin"
	case RoleOwner:
		return "owner"
	default:
		return "guest"
	}
}

// CanModerate reports whether the role may run moderation mutators.
func (r Role) CanModerate() bool {
	return r == RoleAdmin || r == RoleOwner
}

// CanConfigure reports whether the role may change system settings.
func (r Role) CanConfigure() bool {
	return r == RoleOwner
}

func roleFromFlags(isAdmin, isOwner bool) Role {
	switch {
	case isOwner:
		return RoleOwner
	case isAdmin:
		return RoleAdmin
	default:
		return RoleMember
	}
}

type RegisterParams struct {
	Name            string `json:"name" validate:"min=2"`
	Username        string `json:"username" validate:"min=3"`
	Email           string `json:"email" validate:"simpleemail"`
	Password        string `json:"password" validate:"min=8"`
	ConfirmPassword string `json:"confirmPassword" validate:"eqfield=Password"`
}

type ProfileParams struct {
	Name     string `json:"name" validate:"min=2"`
	Username string `json:"username" validate:"min=3"`
	Email    string `json:"email" validate:"simpleemail"`
}

type User struct {
	ID               UserID     `json:"id"`
	Name             string     `json:"name"`
	Username         string     `json:"username"`
	Password         string     `json:"password"`
	Email            string     `json:"email"`
	Avatar           string     `json:"avatar"`
	Verified         bool       `json:"verified"`
	IsOfficial       bool       `json:"isOfficial"`
	IsContentCreator bool       `json:"isYoutuber"`
	IsAdmin          bool       `json:"isAdmin"`
	IsOwner          bool       `json:"isOwner"`
	Banned           bool       `json:"banned"`
	BannedUntil      *Timestamp `json:"bannedUntil"`
	Muted            bool       `json:"muted"`
	MutedUntil       *Timestamp `json:"mutedUntil"`
	Warnings         int        `json:"warnings"`
	PostsCount       int        `json:"postsCount"`
	ClanID           *ClanID    `json:"clanId"`
	CreatedAt        Timestamp  `json:"createdAt"`
	LastLogin        Timestamp  `json:"lastLogin"`
	SecurityLevel    int        `json:"securityLevel"`
}

func (u *User) Role() Role {
	return roleFromFlags(u.IsAdmin, u.IsOwner)
}

func (u *User) BanActive(now time.Time) bool {
	return u.Banned && IsActive(u.BannedUntil, now)
}

func (u *User) MuteActive(now time.Time) bool {
	return u.Muted && IsActive(u.MutedUntil, now)
}

// ClearExpired lifts a ban or mute whose deadline has passed. It reports
// whether the record changed.
func (u *User) ClearExpired(now time.Time) bool {
	changed := false
	if u.Banned && !IsActive(u.BannedUntil, now) {
		u.Banned = false
		u.BannedUntil = nil
		changed = true
	}
	if u.Muted && !IsActive(u.MutedUntil, now) {
		u.Muted = false
		u.MutedUntil = nil
		changed = true
	}
	return changed
}

func (u *User) Ban(until time.Time) {
	u.Banned = true
	u.BannedUntil = NewTimestamp(until)
}

func (u *User) Unban() {
	u.Banned = false
	u.BannedUntil = nil
}

func (u *User) Mute(until time.Time) {
	u.Muted = true
	u.MutedUntil = NewTimestamp(until)
}

func (u *User) Unmute() {
	u.Muted = false
	u.MutedUntil = nil
}

// IsActive is the lazy-expiry predicate shared by bans and mutes: a deadline
// is in force while now is strictly before it.
func IsActive(until *Timestamp, now time.Time) bool {
	return until != nil && now.Before(until.Time)
}
