package rest

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/mugshot-app/mugshot"
	"github.com/mugshot-app/mugshot/inmem"
	"github.com/mugshot-app/mugshot/mock"
	"github.com/mugshot-app/mugshot/upstream"
	"github.com/stretchr/testify/assert"
)

func newTestApp(controller *UserController) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	controller.InstallTo(app)
	return app
}

func TestUserControllerCreate(t *testing.T) {
	assert := assert.New(t)

	store := inmem.NewUserStore()
	controller := &UserController{
		Users: &mugshot.UserService{
			Store: &store,
			Mail: mock.Producer{
				EnqueueFn: func(ctx context.Context, payload string) error { return nil },
			},
		},
	}
	app := newTestApp(controller)

	postUser := func(body string) (int, string) {
		req := httptest.NewRequest("POST", "/users", bytes.NewReader([]byte(body)))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		if !assert.NoError(err) {
			t.FailNow()
		}
		defer resp.Body.Close()
		respBody, err := ioutil.ReadAll(resp.Body)
		assert.NoError(err)
		return resp.StatusCode, string(respBody)
	}

	status, body := postUser(`{"id":2,"first_name":"Janet","last_name":"Weaver","email":"janet.weaver@reqres.in"}`)
	assert.Equal(fiber.StatusCreated, status)
	assert.Contains(body, `"first_name":"Janet"`)
	assert.Contains(body, `"id":2`)

	status, body = postUser(`{"id":2,"first_name":"Janet","last_name":"Weaver","email":"janet.weaver@reqres.in"}`)
	assert.Equal(fiber.StatusConflict, status)
	assert.Contains(body, "user already exists")

	status, _ = postUser(`{"id":3,"first_name":"","last_name":"Weaver","email":"x@y.z"}`)
	assert.Equal(fiber.StatusBadRequest, status)

	status, _ = postUser(`{"id":0,"first_name":"a","last_name":"b","email":"x@y.z"}`)
	assert.Equal(fiber.StatusBadRequest, status)

	status, _ = postUser(`{invalid`)
	assert.Equal(fiber.StatusBadRequest, status)
}

func TestUserControllerAvatar(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	content := []byte("jpeg body")
	store := inmem.NewUserStore()
	_, err := store.Create(ctx, mugshot.NewUser{
		Id: 1, FirstName: "George", LastName: "Bluth", Email: "george.bluth@reqres.in",
	})
	assert.NoError(err)

	entries := map[string][]byte{}
	controller := &UserController{
		Avatars: &mugshot.AvatarCache{
			Users: &store,
			Files: mock.ContentStore{
				PutFn: func(key string, c []byte) (string, error) {
					entries[key] = c
					return "avatars/" + key, nil
				},
				GetFn: func(key string) ([]byte, error) {
					c, ok := entries[key]
					if !ok {
						return nil, mugshot.ErrEntryNotFound
					}
					return c, nil
				},
				DeleteFn: func(key string) error {
					delete(entries, key)
					return nil
				},
			},
			FetchProfile: func(userId int64) (upstream.Profile, error) {
				return upstream.Profile{AvatarUrl: "https://x/img.jpg"}, nil
			},
			FetchBytes: func(url string) ([]byte, error) {
				return content, nil
			},
		},
	}
	app := newTestApp(controller)

	t.Run("populate and encode", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/user/1/avatar", nil)
		resp, err := app.Test(req)
		if !assert.NoError(err) {
			return
		}
		defer resp.Body.Close()
		assert.Equal(fiber.StatusOK, resp.StatusCode)

		body, err := ioutil.ReadAll(resp.Body)
		assert.NoError(err)
		expected, err := json.Marshal(map[string]string{
			"avatar": base64.StdEncoding.EncodeToString(content),
		})
		assert.NoError(err)
		assert.JSONEq(string(expected), string(body))
	})

	t.Run("unknown user", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/user/123/avatar", nil)
		resp, err := app.Test(req)
		if !assert.NoError(err) {
			return
		}
		defer resp.Body.Close()
		assert.Equal(fiber.StatusNotFound, resp.StatusCode)
	})

	t.Run("invalid user id", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/user/garbage/avatar", nil)
		resp, err := app.Test(req)
		if !assert.NoError(err) {
			return
		}
		defer resp.Body.Close()
		assert.Equal(fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("delete clears reference", func(t *testing.T) {
		req := httptest.NewRequest("DELETE", "/user/1/avatar", nil)
		resp, err := app.Test(req)
		if !assert.NoError(err) {
			return
		}
		defer resp.Body.Close()
		assert.Equal(fiber.StatusOK, resp.StatusCode)

		body, err := ioutil.ReadAll(resp.Body)
		assert.NoError(err)
		assert.NotContains(string(body), "avatar")
		assert.Empty(entries)
	})

	t.Run("upstream failure", func(t *testing.T) {
		controller.Avatars.FetchBytes = func(url string) ([]byte, error) {
			return nil, fmt.Errorf("%w: status 503", upstream.ErrUpstream)
		}
		req := httptest.NewRequest("GET", "/user/1/avatar", nil)
		resp, err := app.Test(req)
		if !assert.NoError(err) {
			return
		}
		defer resp.Body.Close()
		assert.Equal(fiber.StatusBadGateway, resp.StatusCode)
	})
}

func TestUserControllerProfilePassthrough(t *testing.T) {
	assert := assert.New(t)

	controller := &UserController{
		FetchProfile: func(userId int64) (upstream.Profile, error) {
			return upstream.Profile{
				FirstName: "Tracey",
				LastName:  "Ramos",
				AvatarUrl: fmt.Sprintf("https://reqres.in/img/faces/%d-image.jpg", userId),
			}, nil
		},
	}
	app := newTestApp(controller)

	req := httptest.NewRequest("GET", "/user/6", nil)
	resp, err := app.Test(req)
	if !assert.NoError(err) {
		return
	}
	defer resp.Body.Close()
	assert.Equal(fiber.StatusOK, resp.StatusCode)

	body, err := ioutil.ReadAll(resp.Body)
	assert.NoError(err)
	assert.Equal(
		`{"first_name":"Tracey","last_name":"Ramos","avatar":"https://reqres.in/img/faces/6-image.jpg"}`,
		string(body))

	controller.FetchProfile = func(userId int64) (upstream.Profile, error) {
		return upstream.Profile{}, fmt.Errorf("%w: status 404", upstream.ErrUpstream)
	}
	req = httptest.NewRequest("GET", "/user/6", nil)
	resp, err = app.Test(req)
	if !assert.NoError(err) {
		return
	}
	defer resp.Body.Close()
	assert.Equal(fiber.StatusBadGateway, resp.StatusCode)
}
