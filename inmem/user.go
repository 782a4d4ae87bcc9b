package inmem

import (
	"context"
	"sync"
	"time"

	"github.com/mugshot-app/mugshot"
)

type UserStore struct {
	users map[mugshot.UserId]mugshot.User
	mutex sync.RWMutex
}

func NewUserStore() UserStore {
	return UserStore{
		users: map[mugshot.UserId]mugshot.User{},
		mutex: sync.RWMutex{},
	}
}

func (s *UserStore) Create(ctx context.Context, nu mugshot.NewUser) (mugshot.User, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.users[nu.Id]; ok {
		return mugshot.User{}, mugshot.ErrUserExists
	}
	user := mugshot.User{
		Id:        nu.Id,
		CreatedAt: time.Now(),
		FirstName: nu.FirstName,
		LastName:  nu.LastName,
		Email:     nu.Email,
	}
	s.users[nu.Id] = user

	return user, nil
}

func (s *UserStore) ById(ctx context.Context, userId mugshot.UserId) (mugshot.User, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	u, ok := s.users[userId]
	if !ok {
		return u, mugshot.ErrUserNotFound
	}
	return u, nil
}

func (s *UserStore) Update(ctx context.Context, user mugshot.User) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.users[user.Id]; !ok {
		return mugshot.ErrUserNotFound
	}
	s.users[user.Id] = user
	return nil
}
