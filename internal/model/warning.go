package model

type WarningID string

type WarningType string

const (
	WarningTypeWarning WarningType = "warning"
	WarningTypeBan     WarningType = "ban"
	WarningTypeUnban   WarningType = "unban"
	WarningTypeMute    WarningType = "mute"
	WarningTypeUnmute  WarningType = "unmute"
)

// Warning is an append-only moderation log entry.
type Warning struct {
	ID        WarningID   `json:"id"`
	UserID    UserID      `json:"userId"`
	UserName  string      `json:"userName"`
	AdminID   UserID      `json:"adminId"`
	AdminName string      `json:"adminName"`
	Reason    string      `json:"reason"`
	Type      WarningType `json:"type"`
	Timestamp Timestamp   `json:"timestamp"`
}

type SecurityEvent string

const (
	SecurityEventLoginFailed SecurityEvent = "login_failed"
	SecurityEventLoginBanned SecurityEvent = "login_banned"
	SecurityEventLoginLocked SecurityEvent = "login_locked"
)

type SecurityLog struct {
	ID        string        `json:"id"`
	Event     SecurityEvent `json:"event"`
	Username  string        `json:"username"`
	UserID    UserID        `json:"userId,omitempty"`
	Timestamp Timestamp     `json:"timestamp"`
}

type SecurityStats struct {
	SecurityLogs     int   `json:"securityLogs"`
	BannedUsers      int   `json:"bannedUsers"`
	MutedUsers       int   `json:"mutedUsers"`
	AntiSpamEnabled  bool  `json:"antiSpamEnabled"`
	MaxLoginAttempts int   `json:"maxLoginAttempts"`
	PostCooldownMins int64 `json:"postCooldownMinutes"`
}
