package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Role is the coarse-grained permission level of a user.
type Role string

// Possible role values
const (
	RoleUser    Role = "user"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

// Password length limits. The upper bound is bcrypt's input limit.
const (
	MinPasswordLength = 6
	MaxPasswordLength = 72
)

// Common validation errors for User
var (
	ErrEmptyUserID      = errors.New("user ID cannot be empty")
	ErrEmptyUserName    = errors.New("name is required")
	ErrEmptyEmail       = errors.New("email cannot be empty")
	ErrInvalidEmail     = errors.New("invalid email format")
	ErrInvalidRole      = errors.New("invalid role")
	ErrPasswordTooShort = errors.New("password must be at least 6 characters")
	ErrPasswordTooLong  = errors.New("password must be at most 72 characters")
	ErrEmptyPassword    = errors.New("password cannot be empty")
)

var validate = validator.New()

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// NotificationPreferences controls how a user receives notifications.
// Muted suppresses all notifications regardless of type or channel.
type NotificationPreferences struct {
	Email bool `json:"email"`
	InApp bool `json:"inApp"`
	Muted bool `json:"muted"`
}

// DefaultNotificationPreferences returns the preferences every new user starts with.
func DefaultNotificationPreferences() NotificationPreferences {
	return NotificationPreferences{Email: true, InApp: true, Muted: false}
}

// WantsNotification reports whether a notification may be created for this user.
func (p NotificationPreferences) WantsNotification() bool {
	return !p.Muted
}

// WantsEmail reports whether an email should accompany a notification.
func (p NotificationPreferences) WantsEmail() bool {
	return p.Email && !p.Muted
}

// PreferencesPatch is a partial update of NotificationPreferences.
// Nil fields are left untouched.
type PreferencesPatch struct {
	Email *bool `json:"email"`
	InApp *bool `json:"inApp"`
	Muted *bool `json:"muted"`
}

// IsEmpty reports whether the patch changes nothing.
func (p PreferencesPatch) IsEmpty() bool {
	return p.Email == nil && p.InApp == nil && p.Muted == nil
}

// Apply returns prefs with the patch applied.
func (p PreferencesPatch) Apply(prefs NotificationPreferences) NotificationPreferences {
	if p.Email != nil {
		prefs.Email = *p.Email
	}
	if p.InApp != nil {
		prefs.InApp = *p.InApp
	}
	if p.Muted != nil {
		prefs.Muted = *p.Muted
	}
	return prefs
}

// User represents a member of the team.
type User struct {
	ID             uuid.UUID               `json:"id"`
	Name           string                  `json:"name"`
	Email          string                  `json:"email"`
	Role           Role                    `json:"role"`
	Avatar         string                  `json:"avatar"`
	Preferences    NotificationPreferences `json:"notificationPreferences"`
	HashedPassword string                  `json:"-"`
	CreatedAt      time.Time               `json:"created_at"`
	UpdatedAt      time.Time               `json:"updated_at"`
}

// UserSummary is the public projection of a user embedded in tasks.
type UserSummary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// NewUser creates a new User with default notification preferences.
// The caller must set HashedPassword before persisting.
func NewUser(name, email string, role Role) (*User, error) {
	if role == "" {
		role = RoleUser
	}

	now := time.Now().UTC()
	user := &User{
		ID:          uuid.New(),
		Name:        strings.TrimSpace(name),
		Email:       NormalizeEmail(email),
		Role:        role,
		Preferences: DefaultNotificationPreferences(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := user.Validate(); err != nil {
		return nil, err
	}

	return user, nil
}

// Validate checks if the User has valid data.
func (u *User) Validate() error {
	if u.ID == uuid.Nil {
		return ErrEmptyUserID
	}
	if u.Name == "" {
		return NewValidationError("name", "is required", ErrEmptyUserName)
	}
	if err := ValidateEmail(u.Email); err != nil {
		return err
	}
	if !u.Role.IsValid() {
		return NewValidationError("role", "is invalid", ErrInvalidRole)
	}
	return nil
}

// Actor returns the acting identity for this user.
func (u *User) Actor() Actor {
	return Actor{ID: u.ID, Role: u.Role}
}

// Summary returns the public projection of the user.
func (u *User) Summary() *UserSummary {
	return &UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks that email is present and well formed.
func ValidateEmail(email string) error {
	if email == "" {
		return NewValidationError("email", "is required", ErrEmptyEmail)
	}
	if err := validate.Var(email, "email"); err != nil {
		return NewValidationError("email", "must be a valid email", ErrInvalidEmail)
	}
	return nil
}

// ValidatePassword checks a plaintext password against the length limits.
func ValidatePassword(password string) error {
	switch {
	case password == "":
		return NewValidationError("password", "is required", ErrEmptyPassword)
	case len(password) < MinPasswordLength:
		return NewValidationError("password", "must be at least 6 characters", ErrPasswordTooShort)
	case len(password) > MaxPasswordLength:
		return NewValidationError("password", "must be at most 72 characters", ErrPasswordTooLong)
	}
	return nil
}

// Actor is the authenticated identity performing a request.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

// IsAuthenticated reports whether the actor carries an identity.
func (a Actor) IsAuthenticated() bool {
	return a.ID != uuid.Nil
}

// IsAdmin reports whether the actor has the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
