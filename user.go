package mugshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mugshot-app/mugshot/mailer"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
)

// External id assigned by the upstream profile service. Unique across records.
type UserId int64

type Email string

// User is the read model handed to callers. Mutations go back through
// UserStore, never through a shared record.
type User struct {
	Id        UserId
	CreatedAt time.Time
	FirstName string
	LastName  string
	Email     Email

	// Content store key of the cached avatar. Empty when nothing is cached.
	Avatar string
}

type NewUser struct {
	Id        UserId
	FirstName string
	LastName  string
	Email     Email
}

type UserStore interface {
	// Create persists a new record. Returns ErrUserExists when a record
	// with the same external id is already present.
	Create(ctx context.Context, user NewUser) (User, error)

	ById(ctx context.Context, userId UserId) (User, error)

	Update(ctx context.Context, user User) error
}

// Producer appends a serialized notification to the outbound queue.
// Delivery and retries belong to the queue consumer.
type Producer interface {
	Enqueue(ctx context.Context, payload string) error
}

type UserService struct {
	Store UserStore
	Mail  Producer
}

// Create registers a user and queues their welcome mail.
//
// The mail is enqueued before the record is persisted: an enqueue failure
// aborts creation, while a persist failure after a successful enqueue can
// leave a spurious welcome mail in the queue.
func (s *UserService) Create(ctx context.Context, nu NewUser) (User, error) {
	payload, err := welcomePayload(nu)
	if err != nil {
		return User{}, fmt.Errorf("welcome payload: %w", err)
	}
	if err := s.Mail.Enqueue(ctx, payload); err != nil {
		return User{}, fmt.Errorf("enqueue welcome mail: %w", err)
	}

	user, err := s.Store.Create(ctx, nu)
	if err != nil {
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func welcomePayload(nu NewUser) (string, error) {
	msg := mailer.Message{
		Id:      uuid.New().String(),
		Email:   string(nu.Email),
		Subject: "Welcome to Our Community",
		Body: fmt.Sprintf("Hello %s,\n\n"+
			"Welcome to our community! Your account is now active.\n\n"+
			"Enjoy your time with us!", nu.FirstName),
	}
	serialized, err := json.Marshal(&msg)
	if err != nil {
		return "", fmt.Errorf("message serialize: %w", err)
	}
	return string(serialized), nil
}
