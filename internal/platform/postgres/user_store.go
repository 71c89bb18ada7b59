package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/teamtasks-api/internal/domain"
	"github.com/phrazzld/teamtasks-api/internal/platform/logger"
	"github.com/phrazzld/teamtasks-api/internal/store"
)

const userColumns = `id, name, email, role, avatar, hashed_password,
	notify_email, notify_in_app, notify_muted, created_at, updated_at`

type userRow struct {
	ID             uuid.UUID `db:"id"`
	Name           string    `db:"name"`
	Email          string    `db:"email"`
	Role           string    `db:"role"`
	Avatar         string    `db:"avatar"`
	HashedPassword string    `db:"hashed_password"`
	NotifyEmail    bool      `db:"notify_email"`
	NotifyInApp    bool      `db:"notify_in_app"`
	NotifyMuted    bool      `db:"notify_muted"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

func toUserRow(u *domain.User) userRow {
	return userRow{
		ID:             u.ID,
		Name:           u.Name,
		Email:          u.Email,
		Role:           string(u.Role),
		Avatar:         u.Avatar,
		HashedPassword: u.HashedPassword,
		NotifyEmail:    u.Preferences.Email,
		NotifyInApp:    u.Preferences.InApp,
		NotifyMuted:    u.Preferences.Muted,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

func (r userRow) toDomain() domain.User {
	return domain.User{
		ID:             r.ID,
		Name:           r.Name,
		Email:          r.Email,
		Role:           domain.Role(r.Role),
		Avatar:         r.Avatar,
		HashedPassword: r.HashedPassword,
		Preferences: domain.NotificationPreferences{
			Email: r.NotifyEmail,
			InApp: r.NotifyInApp,
			Muted: r.NotifyMuted,
		},
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

// UserStore implements store.UserStore on PostgreSQL.
type UserStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewUserStore creates a UserStore. If logger is nil, slog.Default() is used.
func NewUserStore(db store.DBTX, logger *slog.Logger) *UserStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &UserStore{
		db:     db,
		logger: logger.With(slog.String("component", "user_store")),
	}
}

var _ store.UserStore = (*UserStore)(nil)

// WithTx implements store.UserStore.WithTx.
func (s *UserStore) WithTx(tx *sqlx.Tx) store.UserStore {
	return &UserStore{db: tx, logger: s.logger}
}

// Create implements store.UserStore.Create.
func (s *UserStore) Create(ctx context.Context, user *domain.User) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := user.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES (:id, :name, :email, :role, :avatar, :hashed_password,
		        :notify_email, :notify_in_app, :notify_muted, :created_at, :updated_at)
	`
	if _, err := s.db.NamedExecContext(ctx, query, toUserRow(user)); err != nil {
		if IsUniqueViolation(err) {
			log.Debug("email already registered", slog.String("user_id", user.ID.String()))
			return store.ErrEmailExists
		}
		log.Error("failed to create user",
			slog.String("error", err.Error()),
			slog.String("user_id", user.ID.String()))
		return MapError(err)
	}

	log.Info("user created", slog.String("user_id", user.ID.String()))
	return nil
}

func (s *UserStore) getOne(ctx context.Context, query string, arg any) (*domain.User, error) {
	var row userRow
	if err := s.db.GetContext(ctx, &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrUserNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get user",
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	u := row.toDomain()
	return &u, nil
}

// GetByID implements store.UserStore.GetByID.
func (s *UserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// GetByEmail implements store.UserStore.GetByEmail.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, domain.NormalizeEmail(email))
}

// List implements store.UserStore.List.
func (s *UserStore) List(ctx context.Context, excludeID uuid.UUID) ([]domain.User, error) {
	var rows []userRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT `+userColumns+` FROM users WHERE id <> $1 ORDER BY name, id`, excludeID)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list users",
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	users := make([]domain.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.toDomain())
	}
	return users, nil
}

// Update implements store.UserStore.Update.
func (s *UserStore) Update(ctx context.Context, user *domain.User) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := user.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	query := `
		UPDATE users
		SET name = :name, email = :email, role = :role, avatar = :avatar,
		    hashed_password = :hashed_password, updated_at = :updated_at
		WHERE id = :id
	`
	result, err := s.db.NamedExecContext(ctx, query, toUserRow(user))
	if err != nil {
		if IsUniqueViolation(err) {
			return store.ErrEmailExists
		}
		log.Error("failed to update user",
			slog.String("error", err.Error()),
			slog.String("user_id", user.ID.String()))
		return MapError(err)
	}

	return CheckRowsAffected(result, store.ErrUserNotFound)
}

// UpdatePreferences implements store.UserStore.UpdatePreferences.
// NULL parameters keep the stored column value, so concurrent patches touching
// different fields do not overwrite each other.
func (s *UserStore) UpdatePreferences(
	ctx context.Context,
	id uuid.UUID,
	patch domain.PreferencesPatch,
) (domain.NotificationPreferences, error) {
	var row struct {
		Email bool `db:"notify_email"`
		InApp bool `db:"notify_in_app"`
		Muted bool `db:"notify_muted"`
	}

	err := s.db.GetContext(ctx, &row, `
		UPDATE users
		SET notify_email = COALESCE($1, notify_email),
		    notify_in_app = COALESCE($2, notify_in_app),
		    notify_muted = COALESCE($3, notify_muted),
		    updated_at = NOW()
		WHERE id = $4
		RETURNING notify_email, notify_in_app, notify_muted`,
		patch.Email, patch.InApp, patch.Muted, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotificationPreferences{}, store.ErrUserNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to update notification preferences",
			slog.String("error", err.Error()),
			slog.String("user_id", id.String()))
		return domain.NotificationPreferences{}, MapError(err)
	}

	return domain.NotificationPreferences{Email: row.Email, InApp: row.InApp, Muted: row.Muted}, nil
}
