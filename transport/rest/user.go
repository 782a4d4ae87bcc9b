package rest

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/mugshot-app/mugshot"
	"github.com/mugshot-app/mugshot/upstream"
)

type UserController struct {
	Users        *mugshot.UserService
	Avatars      *mugshot.AvatarCache
	FetchProfile upstream.ProfileProvider
}

func (c *UserController) InstallTo(app *fiber.App) {
	app.Post("/users", c.serveCreateUser)
	app.Get("/user/:user_id", c.serveUser)
	app.Get("/user/:user_id/avatar", c.serveAvatar)
	app.Delete("/user/:user_id/avatar", c.serveDeleteAvatar)
}

type UserResponse struct {
	Id        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Avatar    string `json:"avatar,omitempty"`
}

func userResponse(user mugshot.User) UserResponse {
	return UserResponse{
		Id:        int64(user.Id),
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     string(user.Email),
		Avatar:    user.Avatar,
	}
}

func (c *UserController) serveCreateUser(ctx *fiber.Ctx) error {
	body := struct {
		Id        int64  `json:"id"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Email     string `json:"email"`
	}{}
	if err := ctx.BodyParser(&body); err != nil {
		requestLog(ctx).WithError(err).Infoln("Invalid body.")
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	if body.Id <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}
	if body.FirstName == "" || body.LastName == "" || body.Email == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing fields")
	}

	user, err := c.Users.Create(ctx.Context(), mugshot.NewUser{
		Id:        mugshot.UserId(body.Id),
		FirstName: body.FirstName,
		LastName:  body.LastName,
		Email:     mugshot.Email(body.Email),
	})
	if err != nil {
		if errors.Is(err, mugshot.ErrUserExists) {
			return fiber.NewError(fiber.StatusConflict, "user already exists")
		}
		return fmt.Errorf("create user: %w", err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(userResponse(user))
}

// Live passthrough to the upstream profile, distinct from the avatar cache.
func (c *UserController) serveUser(ctx *fiber.Ctx) error {
	userId, err := userIdParam(ctx)
	if err != nil {
		return err
	}

	profile, err := c.FetchProfile(int64(userId))
	if err != nil {
		if errors.Is(err, upstream.ErrUpstream) {
			return fiber.NewError(fiber.StatusBadGateway, "upstream request failed")
		}
		return fmt.Errorf("fetch profile: %w", err)
	}
	return ctx.JSON(profile)
}

func (c *UserController) serveAvatar(ctx *fiber.Ctx) error {
	userId, err := userIdParam(ctx)
	if err != nil {
		return err
	}

	avatar, err := c.Avatars.GetAvatar(ctx.Context(), userId)
	if err != nil {
		switch {
		case errors.Is(err, mugshot.ErrUserNotFound):
			return fiber.NewError(fiber.StatusNotFound, "user not found")
		case errors.Is(err, upstream.ErrUpstream):
			return fiber.NewError(fiber.StatusBadGateway, "avatar fetch failed")
		default:
			return fmt.Errorf("get avatar: %w", err)
		}
	}
	return ctx.JSON(map[string]string{"avatar": avatar})
}

func (c *UserController) serveDeleteAvatar(ctx *fiber.Ctx) error {
	userId, err := userIdParam(ctx)
	if err != nil {
		return err
	}

	user, err := c.Avatars.DeleteAvatar(ctx.Context(), userId)
	if err != nil {
		if errors.Is(err, mugshot.ErrUserNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "user not found")
		}
		return fmt.Errorf("delete avatar: %w", err)
	}
	return ctx.JSON(userResponse(user))
}

func userIdParam(ctx *fiber.Ctx) (mugshot.UserId, error) {
	userIdStr := ctx.Params("user_id")
	if userIdStr == "" {
		return 0, fiber.NewError(fiber.StatusBadRequest, "no user id")
	}
	userId, err := strconv.ParseInt(userIdStr, 10, 64)
	if err != nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid user id")
	}
	return mugshot.UserId(userId), nil
}
