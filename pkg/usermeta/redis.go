package usermeta

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each document as a hash: field = top-level key, value =
// raw JSON. HSET gives shallow-merge semantics for free.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) publicKey(id string) string  { return s.prefix + "user:" + id + ":public" }
func (s *RedisStore) privateKey(id string) string { return s.prefix + "user:" + id + ":private" }
func (s *RedisStore) indexKey() string            { return s.prefix + "users" }

func (s *RedisStore) GetUser(ctx context.Context, userID string) (*User, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}

	var pub, priv *redis.MapStringStringCmd
	_, err := s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		pub = p.HGetAll(ctx, s.publicKey(userID))
		priv = p.HGetAll(ctx, s.privateKey(userID))
		return nil
	})
	if err != nil {
		return nil, errors.Join(ErrFetchFailed, err)
	}

	u := newUser(userID)
	for k, v := range pub.Val() {
		u.PublicMetadata[k] = json.RawMessage(v)
	}
	for k, v := range priv.Val() {
		u.PrivateMetadata[k] = json.RawMessage(v)
	}
	return u, nil
}

func (s *RedisStore) UpdateUserMetadata(ctx context.Context, userID string, upd Update) error {
	if userID == "" {
		return ErrEmptyUserID
	}

	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.SAdd(ctx, s.indexKey(), userID)
		if len(upd.Public) > 0 {
			p.HSet(ctx, s.publicKey(userID), hashValues(upd.Public))
		}
		if len(upd.Private) > 0 {
			p.HSet(ctx, s.privateKey(userID), hashValues(upd.Private))
		}
		return nil
	})
	if err != nil {
		return errors.Join(ErrUpdateFailed, err)
	}
	return nil
}

func (s *RedisStore) ListUserIDs(ctx context.Context, fn func(string) error) error {
	iter := s.client.SScan(ctx, s.indexKey(), 0, "", 100).Iterator()
	for iter.Next(ctx) {
		if err := fn(iter.Val()); err != nil {
			return err
		}
	}
	if err := iter.Err(); err != nil {
		return errors.Join(ErrListFailed, err)
	}
	return nil
}

func hashValues(m Metadata) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = string(v)
	}
	return out
}
