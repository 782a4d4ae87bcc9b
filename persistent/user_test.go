package persistent

import (
	"context"
	"testing"

	"github.com/mugshot-app/mugshot"
	"github.com/mugshot-app/mugshot/pgdb"
	"github.com/stretchr/testify/assert"
)

func TestUserStoreLifecycle(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
		return
	}
	assert := assert.New(t)
	ctx := context.Background()

	db := pgdb.OpenTest(ctx)
	defer db.Close()

	_, err := db.NewCreateTable().
		IfNotExists().
		Model((*User)(nil)).
		Exec(ctx)
	assert.NoError(err)

	store := UserStore{DB: db}

	nu := mugshot.NewUser{
		Id:        101,
		FirstName: "Janet",
		LastName:  "Weaver",
		Email:     "janet.weaver@reqres.in",
	}
	user, err := store.Create(ctx, nu)
	if !assert.NoError(err) {
		return
	}
	assert.Equal(nu.Id, user.Id)
	assert.Equal(nu.Email, user.Email)
	assert.Empty(user.Avatar)
	assert.False(user.CreatedAt.IsZero())

	t.Run("duplicate external id", func(t *testing.T) {
		_, err := store.Create(ctx, nu)
		assert.ErrorIs(err, mugshot.ErrUserExists)
	})

	t.Run("lookup", func(t *testing.T) {
		userSel, err := store.ById(ctx, user.Id)
		if !assert.NoError(err) {
			return
		}
		assert.Equal(user.Id, userSel.Id)
		assert.Equal(user.FirstName, userSel.FirstName)

		_, err = store.ById(ctx, 40404)
		assert.ErrorIs(err, mugshot.ErrUserNotFound)
	})

	t.Run("avatar reference update", func(t *testing.T) {
		user.Avatar = "101_cafe.jpg"
		assert.NoError(store.Update(ctx, user))

		userSel, err := store.ById(ctx, user.Id)
		assert.NoError(err)
		assert.Equal("101_cafe.jpg", userSel.Avatar)

		user.Avatar = ""
		assert.NoError(store.Update(ctx, user))
		userSel, err = store.ById(ctx, user.Id)
		assert.NoError(err)
		assert.Empty(userSel.Avatar)
	})

	t.Run("update unknown user", func(t *testing.T) {
		err := store.Update(ctx, mugshot.User{Id: 50505})
		assert.ErrorIs(err, mugshot.ErrUserNotFound)
	})
}
