package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	sessionKeyPrefix = "janus:session:"
	ticketKeyPrefix  = "janus:ticket:"
)

// RedisSessionStore implements SessionStore on Redis. Expiry is delegated
// to key TTLs, so DeleteExpired is a no-op.
type RedisSessionStore struct {
	client *redis.Client
}

// NewRedisSessionStore creates a Redis-backed session store
func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client}
}

func (s *RedisSessionStore) Create(ctx context.Context, session *Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}

	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session %s already expired", session.ID)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, sessionKeyPrefix+session.ID, payload, ttl)
	if session.Ticket != "" {
		pipe.Set(ctx, ticketKeyPrefix+session.Ticket, session.ID, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("storing session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) Get(ctx context.Context, id string) (*Session, error) {
	payload, err := s.client.Get(ctx, sessionKeyPrefix+id).Bytes()
	if err == redis.Nil {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading session: %w", err)
	}

	var session Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}
	return &session, nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, id string) error {
	session, err := s.Get(ctx, id)
	if err == ErrSessionNotFound {
		return nil
	}
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, sessionKeyPrefix+id)
	if session.Ticket != "" {
		pipe.Del(ctx, ticketKeyPrefix+session.Ticket)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) DeleteByTicket(ctx context.Context, ticket string) (int64, error) {
	if ticket == "" {
		return 0, nil
	}

	id, err := s.client.Get(ctx, ticketKeyPrefix+ticket).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("resolving ticket: %w", err)
	}

	pipe := s.client.TxPipeline()
	sessionDel := pipe.Del(ctx, sessionKeyPrefix+id)
	pipe.Del(ctx, ticketKeyPrefix+ticket)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("deleting session by ticket: %w", err)
	}
	// the session key may have hit its TTL after the ticket lookup; the
	// Del result is the true count
	return sessionDel.Val(), nil
}

// DeleteExpired is a no-op: Redis evicts sessions via key TTLs
func (s *RedisSessionStore) DeleteExpired(ctx context.Context) (int64, error) {
	return 0, nil
}
