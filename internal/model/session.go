package model

// Session is the denormalised snapshot of the authenticated user. It is a
// read model: the store's User record is authoritative and the snapshot is
// rebuilt from it on every restore.
type Session struct {
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
	SecurityLevel    int        `json:"securityLevel"`
}

func NewSession(u *User) *Session {
	s := &Session{
		ID:               u.ID,
		Name:             u.Name,
		Username:         u.Username,
		Password:         u.Password,
		Email:            u.Email,
		Avatar:           u.Avatar,
		Verified:         u.Verified,
		IsOfficial:       u.IsOfficial,
		IsContentCreator: u.IsContentCreator,
		IsAdmin:          u.IsAdmin,
		IsOwner:          u.IsOwner,
		Banned:           u.Banned,
		Muted:            u.Muted,
		Warnings:         u.Warnings,
		PostsCount:       u.PostsCount,
		SecurityLevel:    u.SecurityLevel,
	}
	if u.BannedUntil != nil {
		until := *u.BannedUntil
		s.BannedUntil = &until
	}
	if u.MutedUntil != nil {
		until := *u.MutedUntil
		s.MutedUntil = &until
	}
	if u.ClanID != nil {
		clanID := *u.ClanID
		s.ClanID = &clanID
	}
	return s
}

// Role of a nil session is RoleGuest.
func (s *Session) Role() Role {
	if s == nil {
		return RoleGuest
	}
	return roleFromFlags(s.IsAdmin, s.IsOwner)
}
