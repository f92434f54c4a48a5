package model

type SystemSettings struct {
	RegistrationEnabled bool `json:"registrationEnabled"`
	MaxPostsPerUser     int  `json:"maxPostsPerUser"`
	MaxCommentsPerPost  int  `json:"maxCommentsPerPost"`
	AntiSpamEnabled     bool `json:"antiSpamEnabled"`
	MaxLoginAttempts    int  `json:"maxLoginAttempts"`
	MaintenanceMode     bool `json:"maintenanceMode"`
}

func DefaultSystemSettings() SystemSettings {
	return SystemSettings{
		RegistrationEnabled: true,
		MaxPostsPerUser:     100,
		MaxCommentsPerPost:  50,
		AntiSpamEnabled:     true,
		MaxLoginAttempts:    5,
		MaintenanceMode:     false,
	}
}

// SettingsPatch carries the fields an owner wants to change; nil fields are
// left untouched.
type SettingsPatch struct {
	RegistrationEnabled *bool `json:"registrationEnabled,omitempty"`
	MaxPostsPerUser     *int  `json:"maxPostsPerUser,omitempty" validate:"omitempty,min=0"`
	MaxCommentsPerPost  *int  `json:"maxCommentsPerPost,omitempty" validate:"omitempty,min=0"`
	AntiSpamEnabled     *bool `json:"antiSpamEnabled,omitempty"`
	MaxLoginAttempts    *int  `json:"maxLoginAttempts,omitempty" validate:"omitempty,min=0"`
	MaintenanceMode     *bool `json:"maintenanceMode,omitempty"`
}

func (p SettingsPatch) Apply(s *SystemSettings) {
	if p.RegistrationEnabled != nil {
		s.RegistrationEnabled = *p.RegistrationEnabled
	}
	if p.MaxPostsPerUser != nil {
		s.MaxPostsPerUser = *p.MaxPostsPerUser
	}
	if p.MaxCommentsPerPost != nil {
		s.MaxCommentsPerPost = *p.MaxCommentsPerPost
	}
	if p.AntiSpamEnabled != nil {
		s.AntiSpamEnabled = *p.AntiSpamEnabled
	}
	if p.MaxLoginAttempts != nil {
		s.MaxLoginAttempts = *p.MaxLoginAttempts
	}
	if p.MaintenanceMode != nil {
		s.MaintenanceMode = *p.MaintenanceMode
	}
}
