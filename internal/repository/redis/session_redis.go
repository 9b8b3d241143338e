package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/EightfoldWitch/the-hermit/internal/models"
	"github.com/EightfoldWitch/the-hermit/internal/repository"
)

const (
	sessionKeyPrefix = "session:"
	scanBatch        = 200
	maxTxRetries     = 5
)

// RedisSessionRepository implements SessionRepository using Redis.
//
// Each session is a JSON string under session:<token>; user_sessions:<id> is a set
// of the user's tokens. Index entries may outlive their session key when a key
// TTL fires, so readers skip and prune them.
type RedisSessionRepository struct {
	client *redis.Client
	ttl    time.Duration
}

var _ repository.SessionRepository = (*RedisSessionRepository)(nil)

// Helper to construct session key
func makeSessionKey(token string) string {
	return sessionKeyPrefix + token
}

// Helper to construct user index key
func makeUserSessionsKey(userID int64) string {
	return fmt.Sprintf("user_sessions:%d", userID)
}

// NewRedisSessionRepository creates a repository on client. A positive ttl is set on
// every session key as a backstop for rows the refresher never gets to.
func NewRedisSessionRepository(client *redis.Client, ttl time.Duration) *RedisSessionRepository {
	return &RedisSessionRepository{
		client: client,
		ttl:    ttl,
	}
}

// ReplaceSession evicts the user's sessions at the same location and stores session
// in one MULTI/EXEC, retried while the user's index changes under it.
func (r *RedisSessionRepository) ReplaceSession(ctx context.Context, session *models.Session) ([]string, error) {
	if session == nil || session.Token == "" || session.UserID <= 0 {
		return nil, repository.ErrInvalidSession
	}

	jsonData, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session: %w", err)
	}

	userKey := makeUserSessionsKey(session.UserID)
	var evicted []string

	txf := func(tx *redis.Tx) error {
		evicted = evicted[:0]
		tokens, err := tx.SMembers(ctx, userKey).Result()
		if err != nil {
			return fmt.Errorf("failed to get user sessions with SMEMBERS: %w", err)
		}
		existing, stale, err := r.loadSessions(ctx, tx, tokens)
		if err != nil {
			return err
		}
		for _, s := range existing {
			if s.Location == session.Location {
				evicted = append(evicted, s.Token)
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, token := range evicted {
				pipe.Del(ctx, makeSessionKey(token))
			}
			if drop := append(stale, evicted...); len(drop) > 0 {
				pipe.SRem(ctx, userKey, toArgs(drop)...)
			}
			pipe.Set(ctx, makeSessionKey(session.Token), jsonData, r.ttl)
			pipe.SAdd(ctx, userKey, session.Token)
			return nil
		})
		return err
	}

	if err := r.watch(ctx, txf, userKey); err != nil {
		return nil, fmt.Errorf("failed to replace session: %w", err)
	}
	return evicted, nil
}

// GetSession retrieves a session by its token.
func (r *RedisSessionRepository) GetSession(ctx context.Context, token string) (*models.Session, error) {
	jsonData, err := r.client.Get(ctx, makeSessionKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, repository.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis GET failed: %w", err)
	}

	var session models.Session
	if err := json.Unmarshal(jsonData, &session); err != nil {
		return nil, fmt.Errorf("json unmarshal failed: %w", err)
	}
	return &session, nil
}

// UpdateActivity moves LastActivityAt forward, keeping the key's remaining TTL.
func (r *RedisSessionRepository) UpdateActivity(ctx context.Context, token string, at time.Time) error {
	sessionKey := makeSessionKey(token)

	txf := func(tx *redis.Tx) error {
		jsonData, err := tx.Get(ctx, sessionKey).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("redis GET failed during touch: %w", err)
		}

		var session models.Session
		if err := json.Unmarshal(jsonData, &session); err != nil {
			return fmt.Errorf("json unmarshal failed during touch: %w", err)
		}
		if !at.After(session.LastActivityAt) {
			return nil
		}
		session.LastActivityAt = at
		updated, err := json.Marshal(session)
		if err != nil {
			return fmt.Errorf("json marshal failed during touch: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, sessionKey, updated, redis.KeepTTL)
			return nil
		})
		return err
	}

	if err := r.watch(ctx, txf, sessionKey); err != nil {
		return fmt.Errorf("failed to update session activity: %w", err)
	}
	return nil
}

// DeleteSession removes a session and its index entry.
func (r *RedisSessionRepository) DeleteSession(ctx context.Context, token string) error {
	sessionKey := makeSessionKey(token)

	// Get the session data to find the userID.
	jsonData, err := r.client.Get(ctx, sessionKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get session before delete: %w", err)
	}

	var session models.Session
	if err := json.Unmarshal(jsonData, &session); err != nil {
		if delErr := r.client.Del(ctx, sessionKey).Err(); delErr != nil {
			return fmt.Errorf("failed to delete unreadable session: %w", delErr)
		}
		return nil
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, sessionKey)
	if session.UserID > 0 {
		pipe.SRem(ctx, makeUserSessionsKey(session.UserID), token)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to execute session delete pipeline: %w", err)
	}
	return nil
}

// DeleteUserSessions deletes all sessions for a user and returns the tokens whose
// session key was actually removed.
func (r *RedisSessionRepository) DeleteUserSessions(ctx context.Context, userID int64) ([]string, error) {
	userKey := makeUserSessionsKey(userID)
	var deleted []string

	txf := func(tx *redis.Tx) error {
		deleted = deleted[:0]
		tokens, err := tx.SMembers(ctx, userKey).Result()
		if err != nil {
			return fmt.Errorf("failed to get user sessions with SMEMBERS: %w", err)
		}
		if len(tokens) == 0 {
			return nil
		}

		dels := make([]*redis.IntCmd, len(tokens))
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for i, token := range tokens {
				dels[i] = pipe.Del(ctx, makeSessionKey(token))
			}
			pipe.Del(ctx, userKey)
			return nil
		})
		if err != nil {
			return err
		}
		for i, cmd := range dels {
			if cmd.Val() > 0 {
				deleted = append(deleted, tokens[i])
			}
		}
		return nil
	}

	if err := r.watch(ctx, txf, userKey); err != nil {
		return nil, fmt.Errorf("failed to delete user sessions: %w", err)
	}
	return deleted, nil
}

// ListSessions walks every session key with SCAN. Keys holding a record that no
// longer decodes are deleted on the way.
func (r *RedisSessionRepository) ListSessions(ctx context.Context) ([]*models.Session, error) {
	var (
		sessions []*models.Session
		cursor   uint64
	)
	for {
		keys, next, err := r.client.Scan(ctx, cursor, sessionKeyPrefix+"*", scanBatch).Result()
		if err != nil {
			return nil, fmt.Errorf("redis SCAN failed: %w", err)
		}
		if len(keys) > 0 {
			tokens := make([]string, len(keys))
			for i, key := range keys {
				tokens[i] = strings.TrimPrefix(key, sessionKeyPrefix)
			}
			batch, unreadable, err := r.loadSessions(ctx, r.client, tokens)
			if err != nil {
				return nil, err
			}
			sessions = append(sessions, batch...)
			if err := r.purge(ctx, unreadable); err != nil {
				return nil, err
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return sessions, nil
}

// purge deletes the session keys of tokens. Their user index entries are
// pruned by the next ReplaceSession of that user.
func (r *RedisSessionRepository) purge(ctx context.Context, tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}
	keys := make([]string, len(tokens))
	for i, token := range tokens {
		keys[i] = makeSessionKey(token)
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis DEL of unreadable sessions failed: %w", err)
	}
	log.Warn().Int("count", len(tokens)).Msg("Deleted unreadable session records")
	return nil
}

// Ping reports whether Redis is reachable.
func (r *RedisSessionRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// loadSessions MGETs tokens and returns the sessions found plus the tokens whose
// key is gone or unreadable.
func (r *RedisSessionRepository) loadSessions(ctx context.Context, c redis.Cmdable, tokens []string) ([]*models.Session, []string, error) {
	if len(tokens) == 0 {
		return nil, nil, nil
	}
	keys := make([]string, len(tokens))
	for i, token := range tokens {
		keys[i] = makeSessionKey(token)
	}
	values, err := c.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, nil, fmt.Errorf("redis MGET failed: %w", err)
	}

	sessions := make([]*models.Session, 0, len(values))
	var missing []string
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			missing = append(missing, tokens[i])
			continue
		}
		var session models.Session
		if err := json.Unmarshal([]byte(raw), &session); err != nil {
			missing = append(missing, tokens[i])
			continue
		}
		sessions = append(sessions, &session)
	}
	return sessions, missing, nil
}

// watch runs txf under WATCH keys, retrying when another client touched them.
func (r *RedisSessionRepository) watch(ctx context.Context, txf func(*redis.Tx) error, keys ...string) error {
	for i := 0; i < maxTxRetries; i++ {
		err := r.client.Watch(ctx, txf, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return redis.TxFailedErr
}

func toArgs(values []string) []interface{} {
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}
