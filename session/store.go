package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/trustkit/twofa/internal"
)

// ErrNotFound is returned when the session does not exist or has expired.
var ErrNotFound = errors.New("session not found")

// ErrCorrupt is returned when a stored session blob fails to decode.
var ErrCorrupt = errors.New("session record corrupt")

// ErrBackendUnavailable is returned when Redis fails.
var ErrBackendUnavailable = errors.New("session backend unavailable")

// Store persists sessions in Redis under a key prefix.
type Store struct {
	redis  *redis.Client
	prefix string
}

// NewStore creates a Store. An empty prefix defaults to "tfs".
func NewStore(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = "tfs"
	}
	return &Store{redis: client, prefix: prefix}
}

func (s *Store) key(sessionID string) string {
	return s.prefix + ":" + sessionID
}

// New creates and persists a fresh anonymous session.
func (s *Store) New(ctx context.Context, ttl time.Duration) (*Session, error) {
	id, err := internal.NewSessionID()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	sess := &Session{
		ID:        id.String(),
		CreatedAt: now.Unix(),
		ExpiresAt: now.Add(ttl).Unix(),
	}
	if err := s.Save(ctx, sess, ttl); err != nil {
		return nil, err
	}
	return sess, nil
}

// Save encodes and writes the session under its TTL.
func (s *Store) Save(ctx context.Context, sess *Session, ttl time.Duration) error {
	if sess == nil || sess.ID == "" {
		return errors.New("session id required")
	}
	encoded, err := Encode(sess)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(sess.ID), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}

// Get loads a session. Expired records are deleted and reported as not
// found.
func (s *Store) Get(ctx context.Context, sessionID string) (*Session, error) {
	data, err := s.redis.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	sess, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	sess.ID = sessionID

	if time.Now().Unix() > sess.ExpiresAt {
		_, _ = s.redis.Del(ctx, s.key(sessionID)).Result()
		return nil, ErrNotFound
	}
	return sess, nil
}

// Delete removes a session, reporting whether it existed.
func (s *Store) Delete(ctx context.Context, sessionID string) (bool, error) {
	n, err := s.redis.Del(ctx, s.key(sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return n > 0, nil
}

// Regenerate persists sess under a fresh identifier with a fresh lifetime
// and deletes the old record. The new record is written before the old one
// is removed so a crash between the two steps cannot strand the user without
// any session.
func (s *Store) Regenerate(ctx context.Context, sess *Session, ttl time.Duration) (*Session, error) {
	if sess == nil || sess.ID == "" {
		return nil, errors.New("session id required")
	}
	id, err := internal.NewSessionID()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	rotated := &Session{
		ID:                id.String(),
		UserID:            sess.UserID,
		PendingUserID:     sess.PendingUserID,
		TwoFactorVerified: sess.TwoFactorVerified,
		CreatedAt:         now.Unix(),
		ExpiresAt:         now.Add(ttl).Unix(),
	}
	if err := s.Save(ctx, rotated, ttl); err != nil {
		return nil, err
	}
	if _, err := s.Delete(ctx, sess.ID); err != nil {
		// Roll back: keep exactly one live session.
		_, _ = s.redis.Del(ctx, s.key(rotated.ID)).Result()
		return nil, err
	}
	return rotated, nil
}
