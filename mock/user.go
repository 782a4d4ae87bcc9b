package mock

import (
	"context"

	"github.com/mugshot-app/mugshot"
)

type UserStore struct {
	CreateFn func(ctx context.Context, nu mugshot.NewUser) (mugshot.User, error)

	ByIdFn func(ctx context.Context, userId mugshot.UserId) (mugshot.User, error)

	UpdateFn func(ctx context.Context, user mugshot.User) error
}

func (s UserStore) Create(ctx context.Context, nu mugshot.NewUser) (mugshot.User, error) {
	return s.CreateFn(ctx, nu)
}

func (s UserStore) ById(ctx context.Context, userId mugshot.UserId) (mugshot.User, error) {
	return s.ByIdFn(ctx, userId)
}

func (s UserStore) Update(ctx context.Context, user mugshot.User) error {
	return s.UpdateFn(ctx, user)
}
