package upstream

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

var ErrUpstream = errors.New("upstream request failed")

// Profile as reported live by the upstream service. Never cached locally.
type Profile struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email,omitempty"`
	AvatarUrl string `json:"avatar"`
}

type ProfileProvider = func(userId int64) (Profile, error)

type BytesFetcher = func(url string) ([]byte, error)

// Impl of the profile api GET {base}/api/users/{id}
func RestProfileProvider(baseUrl string) ProfileProvider {
	return func(userId int64) (Profile, error) {
		agent := fiber.AcquireAgent()
		defer fiber.ReleaseAgent(agent)

		req := agent.Request()
		req.Header.SetMethod(fiber.MethodGet)
		req.SetRequestURI(fmt.Sprintf("%s/api/users/%d", baseUrl, userId))

		err := agent.Parse()
		if err != nil {
			return Profile{}, fmt.Errorf("agent parse: %w", err)
		}

		statusCode, body, errs := agent.Bytes()
		if errs != nil {
			return Profile{}, fmt.Errorf("%w: agent bytes: %v", ErrUpstream, errs)
		}
		if statusCode != fiber.StatusOK {
			return Profile{}, fmt.Errorf("%w: invalid status code %d: %s",
				ErrUpstream, statusCode, string(body))
		}

		var response struct {
			Data Profile `json:"data"`
		}
		if err = json.Unmarshal(body, &response); err != nil {
			return Profile{}, fmt.Errorf("%w: unmarshal body: %v", ErrUpstream, err)
		}
		return response.Data, nil
	}
}

// Raw GET against an absolute url, used for avatar image downloads.
func RestBytesFetcher() BytesFetcher {
	return func(url string) ([]byte, error) {
		agent := fiber.AcquireAgent()
		defer fiber.ReleaseAgent(agent)

		req := agent.Request()
		req.Header.SetMethod(fiber.MethodGet)
		req.SetRequestURI(url)

		err := agent.Parse()
		if err != nil {
			return nil, fmt.Errorf("agent parse: %w", err)
		}

		statusCode, body, errs := agent.Bytes()
		if errs != nil {
			return nil, fmt.Errorf("%w: agent bytes: %v", ErrUpstream, errs)
		}
		if statusCode != fiber.StatusOK {
			return nil, fmt.Errorf("%w: invalid status code %d", ErrUpstream, statusCode)
		}

		// body buffer goes back to the agent pool on release
		content := make([]byte, len(body))
		copy(content, body)
		return content, nil
	}
}
