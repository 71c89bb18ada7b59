package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/teamtasks-api/internal/domain"
)

// UserStore defines the interface for user data persistence.
type UserStore interface {
	// Create saves a new user. The caller sets HashedPassword beforehand.
	// Returns ErrEmailExists if the email is already taken.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique ID.
	// Returns ErrUserNotFound if the user does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetByEmail retrieves a user by their (normalized) email address.
	// Returns ErrUserNotFound if the user does not exist.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// List returns all users except the one with excludeID, ordered by name.
	List(ctx context.Context, excludeID uuid.UUID) ([]domain.User, error)

	// Update modifies name, email, avatar, role and password hash.
	// Preferences are changed only through UpdatePreferences.
	// Returns ErrUserNotFound if the user does not exist.
	// Returns ErrEmailExists if updating to an email that already exists.
	Update(ctx context.Context, user *domain.User) error

	// UpdatePreferences applies patch atomically and returns the resulting preferences.
	// Fields absent from the patch keep their stored values even under concurrent updates.
	// Returns ErrUserNotFound if the user does not exist.
	UpdatePreferences(ctx context.Context, id uuid.UUID, patch domain.PreferencesPatch) (domain.NotificationPreferences, error)

	// WithTx returns a UserStore that runs its queries inside tx.
	WithTx(tx *sqlx.Tx) UserStore
}
