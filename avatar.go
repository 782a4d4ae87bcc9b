package mugshot

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"

	"github.com/mugshot-app/mugshot/upstream"
)

var (
	ErrEntryNotFound  = errors.New("content entry not found")
	ErrCacheCorrupted = errors.New("avatar cache corrupted")
)

// ContentStore keeps raw avatar bytes addressed by key. Entries are
// write-once: a key always resolves to the same content.
type ContentStore interface {
	// Put writes content under key and returns the backing path.
	// Re-writing the same key with identical content is a no-op.
	Put(key string, content []byte) (string, error)

	// Get returns ErrEntryNotFound when no entry exists for key.
	Get(key string) ([]byte, error)

	// Delete is idempotent: a missing entry counts as deleted.
	Delete(key string) error
}

// AvatarKey derives the content store key for a user's avatar. The key
// binds the entry to both the owning user and the exact content, so two
// users never collide and changed upstream content maps to a fresh key.
func AvatarKey(userId UserId, content []byte) string {
	return fmt.Sprintf("%d_%x.jpg", userId, sha256.Sum256(content))
}

// AvatarCache resolves avatars cache-aside: the user record is the index,
// the content store the backing blob store. On populate the file commits
// strictly before the record, on invalidate the record clears strictly
// after the file delete, so a crash leaves at worst an orphaned file and
// never a dangling reference.
type AvatarCache struct {
	Users        UserStore
	Files        ContentStore
	FetchProfile upstream.ProfileProvider
	FetchBytes   upstream.BytesFetcher

	locks userLocks
}

// GetAvatar returns the user's avatar base64-encoded, fetching and caching
// it on first use. A record pointing at a missing entry surfaces as
// ErrCacheCorrupted, not as a miss.
func (c *AvatarCache) GetAvatar(ctx context.Context, userId UserId) (string, error) {
	unlock := c.locks.lock(userId)
	defer unlock()

	user, err := c.Users.ById(ctx, userId)
	if err != nil {
		return "", fmt.Errorf("user lookup: %w", err)
	}

	if user.Avatar != "" {
		content, err := c.Files.Get(user.Avatar)
		if err != nil {
			if errors.Is(err, ErrEntryNotFound) {
				return "", fmt.Errorf("%w: record references missing entry %q",
					ErrCacheCorrupted, user.Avatar)
			}
			return "", fmt.Errorf("read cached avatar: %w", err)
		}
		return base64.StdEncoding.EncodeToString(content), nil
	}

	content, err := c.populate(ctx, user)
	if err != nil {
		return "", fmt.Errorf("populate avatar: %w", err)
	}
	return base64.StdEncoding.EncodeToString(content), nil
}

func (c *AvatarCache) populate(ctx context.Context, user User) ([]byte, error) {
	profile, err := c.FetchProfile(int64(user.Id))
	if err != nil {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}
	content, err := c.FetchBytes(profile.AvatarUrl)
	if err != nil {
		return nil, fmt.Errorf("fetch avatar content: %w", err)
	}

	key := AvatarKey(user.Id, content)
	if _, err := c.Files.Put(key, content); err != nil {
		return nil, fmt.Errorf("put avatar: %w", err)
	}

	// Reference commits only after the file is fully written.
	user.Avatar = key
	if err := c.Users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("persist avatar reference: %w", err)
	}
	return content, nil
}

// DeleteAvatar removes the cached avatar and clears the record's reference.
// Deleting when nothing is cached succeeds without touching the store. A
// failed file delete aborts with the reference left in place.
func (c *AvatarCache) DeleteAvatar(ctx context.Context, userId UserId) (User, error) {
	unlock := c.locks.lock(userId)
	defer unlock()

	user, err := c.Users.ById(ctx, userId)
	if err != nil {
		return User{}, fmt.Errorf("user lookup: %w", err)
	}

	if user.Avatar != "" {
		if err := c.Files.Delete(user.Avatar); err != nil {
			return User{}, fmt.Errorf("delete avatar file: %w", err)
		}
	}

	user.Avatar = ""
	if err := c.Users.Update(ctx, user); err != nil {
		return User{}, fmt.Errorf("clear avatar reference: %w", err)
	}
	return user, nil
}

// Per-user mutex so concurrent populates for one user serialize instead of
// double-fetching. Entries are never evicted.
type userLocks struct {
	mutex sync.Mutex
	held  map[UserId]*sync.Mutex
}

func (l *userLocks) lock(userId UserId) func() {
	l.mutex.Lock()
	if l.held == nil {
		l.held = map[UserId]*sync.Mutex{}
	}
	m, ok := l.held[userId]
	if !ok {
		m = &sync.Mutex{}
		l.held[userId] = m
	}
	l.mutex.Unlock()

	m.Lock()
	return m.Unlock
}
