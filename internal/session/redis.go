package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps session:<sid> -> uid with a TTL and an index set per user.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func sessionKey(sid string) string {
	return "session:" + sid
}

func userKey(uid uint64) string {
	return fmt.Sprintf("user_sessions:%d", uid)
}

func (s *RedisStore) Create(ctx context.Context, sid string, uid uint64, ttl time.Duration) error {
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, sessionKey(sid), uid, ttl)
		p.SAdd(ctx, userKey(uid), sid)
		p.Expire(ctx, userKey(uid), ttl)
		return nil
	})
	return err
}

func (s *RedisStore) Lookup(ctx context.Context, sid string) (uint64, error) {
	v, err := s.client.Get(ctx, sessionKey(sid)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrNoSession
		}
		return 0, err
	}
	uid, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt session %s: %w", sid, err)
	}
	return uid, nil
}

func (s *RedisStore) Delete(ctx context.Context, sid string) error {
	uid, err := s.Lookup(ctx, sid)
	if errors.Is(err, ErrNoSession) {
		return nil
	}
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, sessionKey(sid))
		p.SRem(ctx, userKey(uid), sid)
		return nil
	})
	return err
}

func (s *RedisStore) DeleteUser(ctx context.Context, uid uint64, keep string) error {
	sids, err := s.client.SMembers(ctx, userKey(uid)).Result()
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, sid := range sids {
			if sid == keep {
				continue
			}
			p.Del(ctx, sessionKey(sid))
			p.SRem(ctx, userKey(uid), sid)
		}
		return nil
	})
	return err
}
