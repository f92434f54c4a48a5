package model

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var ErrorInvalidUsernameOrPassword = errors.New("invalid username or password")
var ErrorNotFound = errors.New("not found")
var ErrorUserNotFound = fmt.Errorf("user %w", ErrorNotFound)
var ErrorClanNotFound = fmt.Errorf("clan %w", ErrorNotFound)
var ErrorPostNotFound = fmt.Errorf("post %w", ErrorNotFound)
var ErrorUnauthenticated = errors.New("not authenticated")
var ErrorForbidden = errors.New("forbidden")
var ErrorProtectedTarget = errors.New("target is protected")
var ErrorRegistrationClosed = errors.New("registration is closed")
var ErrorMaintenance = errors.New("maintenance mode")
var ErrorTooManyAttempts = errors.New("too many login attempts")
var ErrorBanned = errors.New("account banned")
var ErrorMuted = errors.New("account muted")
var ErrorCooldownActive = errors.New("post cooldown active")
var ErrorRateLimited = errors.New("too many posts")
var ErrorPostLimitReached = errors.New("post limit reached")
var ErrorEmptyContent = errors.New("empty content")
var ErrorAlreadyInClan = errors.New("already in a clan")
var ErrorAlreadyMember = errors.New("already a member of this clan")
var ErrorInvalidDuration = errors.New("invalid duration")
var ErrorInvalidAvatar = errors.New("invalid avatar")
var ErrorStorageCorrupted = errors.New("storage corrupted")
var ErrorSlotNotFound = errors.New("slot not found")

const (
	RuleMinLength = "min_length"
	RuleMaxLength = "max_length"
	RuleFormat    = "format"
	RuleMatch     = "match"
	RuleUnique    = "unique"
	RuleDifferent = "different"
)

// ValidationError is comparable, so errors.Is matches it against the
// predefined values below.
type ValidationError struct {
	Field string
	Rule  string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Rule)
}

var (
	ErrorNameTooShort      = ValidationError{Field: "name", Rule: RuleMinLength}
	ErrorUsernameTooShort  = ValidationError{Field: "username", Rule: RuleMinLength}
	ErrorInvalidEmail      = ValidationError{Field: "email", Rule: RuleFormat}
	ErrorPasswordTooShort  = ValidationError{Field: "password", Rule: RuleMinLength}
	ErrorPasswordTooLong   = ValidationError{Field: "password", Rule: RuleMaxLength}
	ErrorPasswordMismatch  = ValidationError{Field: "confirmPassword", Rule: RuleMatch}
	ErrorPasswordUnchanged = ValidationError{Field: "password", Rule: RuleDifferent}
	ErrorWrongPassword     = ValidationError{Field: "oldPassword", Rule: RuleMatch}
	ErrorUsernameTaken     = ValidationError{Field: "username", Rule: RuleUnique}
	ErrorEmailTaken        = ValidationError{Field: "email", Rule: RuleUnique}
	ErrorClanNameTooShort  = ValidationError{Field: "clanName", Rule: RuleMinLength}
	ErrorInvalidTag        = ValidationError{Field: "clanTag", Rule: RuleFormat}
	ErrorClanNameTaken     = ValidationError{Field: "clanName", Rule: RuleUnique}
	ErrorClanTagTaken      = ValidationError{Field: "clanTag", Rule: RuleUnique}
)

type BannedError struct {
	Remaining time.Duration
}

func (e *BannedError) Error() string {
	return fmt.Sprintf("account banned for %d more days", e.RemainingDays())
}

func (e *BannedError) Is(target error) bool {
	return target == ErrorBanned
}

func (e *BannedError) RemainingDays() int {
	return ceilUnits(e.Remaining, 24*time.Hour)
}

type MutedError struct {
	Remaining time.Duration
}

func (e *MutedError) Error() string {
	return fmt.Sprintf("account muted for %d more minutes", e.RemainingMinutes())
}

func (e *MutedError) Is(target error) bool {
	return target == ErrorMuted
}

func (e *MutedError) RemainingMinutes() int {
	return ceilUnits(e.Remaining, time.Minute)
}

type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("wait %d more minutes before posting", e.RemainingMinutes())
}

func (e *CooldownError) Is(target error) bool {
	return target == ErrorCooldownActive
}

func (e *CooldownError) RemainingMinutes() int {
	return ceilUnits(e.Remaining, time.Minute)
}

func ceilUnits(d, unit time.Duration) int {
	return int(math.Ceil(float64(d) / float64(unit)))
}
