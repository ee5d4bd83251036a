package memory

import (
	"context"

	"github.com/google/uuid"

	"github.com/harvestline/backend/internal/platform/idemkey"
)

type idemKeyStore struct{ v view }

func copyKey(k *idemkey.Key) *idemkey.Key {
	c := *k
	c.Response = append([]byte(nil), k.Response...)
	return &c
}

func (s idemKeyStore) GetForUpdate(_ context.Context, userID uuid.UUID, scope, key string) (*idemkey.Key, error) {
	st, release := s.v.acquire()
	defer release()

	k, ok := st.idemKeys[idemKeyID{userID: userID, scope: scope, key: key}]
	if !ok {
		return nil, idemkey.ErrNotFound
	}
	return copyKey(k), nil
}

func (s idemKeyStore) Insert(_ context.Context, k *idemkey.Key) error {
	st, release := s.v.acquire()
	defer release()

	id := idemKeyID{userID: k.UserID, scope: k.Scope, key: k.Key}
	if _, ok := st.idemKeys[id]; ok {
		return idemkey.ErrDuplicate
	}
	st.idemKeys[id] = copyKey(k)
	return nil
}

func (s idemKeyStore) Update(_ context.Context, k *idemkey.Key) error {
	st, release := s.v.acquire()
	defer release()

	id := idemKeyID{userID: k.UserID, scope: k.Scope, key: k.Key}
	if _, ok := st.idemKeys[id]; !ok {
		return idemkey.ErrNotFound
	}
	st.idemKeys[id] = copyKey(k)
	return nil
}
