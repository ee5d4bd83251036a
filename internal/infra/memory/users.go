package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/harvestline/backend/internal/platform/user"
)

type userStore struct{ v view }

func copyUser(u *user.User) *user.User {
	c := *u
	return &c
}

func (s userStore) Create(_ context.Context, u *user.User) error {
	st, release := s.v.acquire()
	defer release()

	if _, ok := st.emails[u.Email]; ok {
		return user.ErrUserAlreadyExists
	}
	if _, ok := st.users[u.ID]; ok {
		return user.ErrUserAlreadyExists
	}
	st.users[u.ID] = copyUser(u)
	st.emails[u.Email] = u.ID
	return nil
}

func (s userStore) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	st, release := s.v.acquire()
	defer release()

	u, ok := st.users[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	return copyUser(u), nil
}

func (s userStore) GetByEmail(_ context.Context, email string) (*user.User, error) {
	st, release := s.v.acquire()
	defer release()

	id, ok := st.emails[email]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	return copyUser(st.users[id]), nil
}

// GetForUpdate needs no lock: units of work are already serialized
func (s userStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return s.GetByID(ctx, id)
}

func (s userStore) update(id uuid.UUID, mutate func(u *user.User)) error {
	st, release := s.v.acquire()
	defer release()

	u, ok := st.users[id]
	if !ok {
		return user.ErrUserNotFound
	}
	next := copyUser(u)
	mutate(next)
	next.UpdatedAt = time.Now().UTC()
	st.users[id] = next
	return nil
}

func (s userStore) UpdateWalletBalance(_ context.Context, id uuid.UUID, balance decimal.Decimal) error {
	return s.update(id, func(u *user.User) { u.WalletBalance = balance })
}

func (s userStore) UpdateFlags(_ context.Context, id uuid.UUID, flags user.Flags) error {
	return s.update(id, func(u *user.User) {
		u.Role = flags.Role
		u.KYCStatus = flags.KYCStatus
		u.WalletFrozen = flags.WalletFrozen
		u.Disabled = flags.Disabled
	})
}

func (s userStore) TouchLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	return s.update(id, func(u *user.User) { u.LastLoginAt = &at })
}
