package mocks

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/teamtasks-api/internal/domain"
	"github.com/phrazzld/teamtasks-api/internal/store"
)

// MemoryUserStore implements store.UserStore on a MemoryDB.
type MemoryUserStore struct {
	db *MemoryDB
}

var _ store.UserStore = (*MemoryUserStore)(nil)

// WithTx implements store.UserStore.
func (s *MemoryUserStore) WithTx(*sqlx.Tx) store.UserStore { return s }

func (s *MemoryUserStore) emailTaken(email string, except uuid.UUID) bool {
	for _, u := range s.db.users {
		if u.Email == email && u.ID != except {
			return true
		}
	}
	return false
}

// Create implements store.UserStore.
func (s *MemoryUserStore) Create(ctx context.Context, user *domain.User) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.fail("Users.Create"); err != nil {
		return err
	}
	if err := user.Validate(); err != nil {
		return err
	}
	if s.emailTaken(user.Email, user.ID) {
		return store.ErrEmailExists
	}
	s.db.users[user.ID] = *user
	return nil
}

// GetByID implements store.UserStore.
func (s *MemoryUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.fail("Users.GetByID"); err != nil {
		return nil, err
	}
	u, ok := s.db.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return &u, nil
}

// GetByEmail implements store.UserStore.
func (s *MemoryUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.fail("Users.GetByEmail"); err != nil {
		return nil, err
	}
	email = domain.NormalizeEmail(email)
	for _, u := range s.db.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, store.ErrUserNotFound
}

// List implements store.UserStore.
func (s *MemoryUserStore) List(ctx context.Context, excludeID uuid.UUID) ([]domain.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.fail("Users.List"); err != nil {
		return nil, err
	}
	out := []domain.User{}
	for _, u := range s.db.users {
		if u.ID != excludeID {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Update implements store.UserStore. Preferences are not written.
func (s *MemoryUserStore) Update(ctx context.Context, user *domain.User) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.fail("Users.Update"); err != nil {
		return err
	}
	existing, ok := s.db.users[user.ID]
	if !ok {
		return store.ErrUserNotFound
	}
	if err := user.Validate(); err != nil {
		return err
	}
	if s.emailTaken(user.Email, user.ID) {
		return store.ErrEmailExists
	}
	updated := *user
	updated.Preferences = existing.Preferences
	s.db.users[user.ID] = updated
	return nil
}

// UpdatePreferences implements store.UserStore.
func (s *MemoryUserStore) UpdatePreferences(
	ctx context.Context,
	id uuid.UUID,
	patch domain.PreferencesPatch,
) (domain.NotificationPreferences, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.fail("Users.UpdatePreferences"); err != nil {
		return domain.NotificationPreferences{}, err
	}
	u, ok := s.db.users[id]
	if !ok {
		return domain.NotificationPreferences{}, store.ErrUserNotFound
	}
	u.Preferences = patch.Apply(u.Preferences)
	s.db.users[id] = u
	return u.Preferences, nil
}
