package userrepofake

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/OliverPistillo/Doflow-PaaS-sub003/users"
)

var _ users.UserRepo = (*FakeUserRepo)(nil)

type FakeUserRepo struct {
	users map[string]*users.User
	lock  sync.RWMutex
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{
		users: make(map[string]*users.User),
	}
}

func (ur *FakeUserRepo) Upsert(user *users.User) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	ur.users[user.ID] = user
	return nil
}

func (ur *FakeUserRepo) Delete(userID string) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()
	delete(ur.users, userID)
	return nil
}

func (ur *FakeUserRepo) GetByID(userID string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()
	user, ok := ur.users[userID]
	if !ok {
		return nil, errors.New("not found")
	}
	return user, nil
}

func (ur *FakeUserRepo) GetByEmail(email string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()
	for _, user := range ur.users {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return nil, errors.New("not found")
}

func (ur *FakeUserRepo) List(tenantID string, offset, limit int) ([]*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	all := make([]*users.User, 0, len(ur.users))
	for _, u := range ur.users {
		if tenantID == "" || u.TenantID == tenantID {
			all = append(all, u)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	if offset < 0 {
		offset = 0
	}
	if offset >= len(all) {
		return []*users.User{}, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}
