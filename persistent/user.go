package persistent

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mugshot-app/mugshot"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

type User struct {
	bun.BaseModel `bun:"table:user"`

	Id         int64     `bun:",pk,autoincrement"`
	CreatedAt  time.Time `bun:",nullzero,notnull,default:current_timestamp"`
	ExternalId int64     `bun:",notnull,unique"`
	FirstName  string    `bun:",notnull"`
	LastName   string    `bun:",notnull"`
	Email      string    `bun:"email,notnull"`
	Avatar     string    `bun:",nullzero"`
}

func (u User) toDomain() mugshot.User {
	return mugshot.User{
		Id:        mugshot.UserId(u.ExternalId),
		CreatedAt: u.CreatedAt,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     mugshot.Email(u.Email),
		Avatar:    u.Avatar,
	}
}

type UserStore struct {
	DB *bun.DB
}

var _ mugshot.UserStore = (*UserStore)(nil)

func (s *UserStore) Create(ctx context.Context, nu mugshot.NewUser) (mugshot.User, error) {
	user := &User{
		ExternalId: int64(nu.Id),
		FirstName:  nu.FirstName,
		LastName:   nu.LastName,
		Email:      string(nu.Email),
	}
	_, err := s.DB.NewInsert().
		Model(user).
		Returning("*").
		Exec(ctx)
	if err != nil {
		var pgErr pgdriver.Error
		if errors.As(err, &pgErr) && pgErr.Field('C') == "23505" {
			return mugshot.User{}, mugshot.ErrUserExists
		}
		return mugshot.User{}, fmt.Errorf("insert user: %w", err)
	}
	return user.toDomain(), nil
}

func (s *UserStore) ById(ctx context.Context, userId mugshot.UserId) (mugshot.User, error) {
	user := new(User)
	err := s.DB.NewSelect().
		Model(user).
		Where(`external_id=?`, userId).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return mugshot.User{}, mugshot.ErrUserNotFound
		}
		return mugshot.User{}, fmt.Errorf("select user: %w", err)
	}
	return user.toDomain(), nil
}

func (s *UserStore) Update(ctx context.Context, user mugshot.User) error {
	res, err := s.DB.NewUpdate().
		Model((*User)(nil)).
		Set(`first_name=?`, user.FirstName).
		Set(`last_name=?`, user.LastName).
		Set(`email=?`, string(user.Email)).
		Set(`avatar=?`, sql.NullString{String: user.Avatar, Valid: user.Avatar != ""}).
		Where(`external_id=?`, user.Id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return mugshot.ErrUserNotFound
	}
	return nil
}
