package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/redis/go-redis/v9"
)

// Store 保存 WebAuthn 注册/登录过程中的 challenge。
type Store struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewStore(rdb redis.Cmdable, ttl time.Duration) *Store { return &Store{rdb: rdb, ttl: ttl} }

func regKey(username string) string   { return fmt.Sprintf("webauthn:reg:%s", username) }
func authKey(sid string) string       { return fmt.Sprintf("webauthn:auth:%s", sid) }
func regTokenKey(token string) string { return fmt.Sprintf("webauthn:reg:inv:%s", token) }

func (s *Store) save(ctx context.Context, key string, sd *webauthn.SessionData) error {
	b, err := json.Marshal(sd)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, key, b, s.ttl).Err()
}

// take 读取并删除，challenge 只能用一次
func (s *Store) take(ctx context.Context, key string) (*webauthn.SessionData, error) {
	b, err := s.rdb.GetDel(ctx, key).Bytes()
	if err != nil {
		return nil, err
	}
	var sd webauthn.SessionData
	if err := json.Unmarshal(b, &sd); err != nil {
		return nil, err
	}
	return &sd, nil
}

func (s *Store) SaveReg(ctx context.Context, username string, sd *webauthn.SessionData) error {
	return s.save(ctx, regKey(username), sd)
}

func (s *Store) TakeReg(ctx context.Context, username string) (*webauthn.SessionData, error) {
	return s.take(ctx, regKey(username))
}

func (s *Store) SaveAuth(ctx context.Context, sid string, sd *webauthn.SessionData) error {
	return s.save(ctx, authKey(sid), sd)
}

func (s *Store) TakeAuth(ctx context.Context, sid string) (*webauthn.SessionData, error) {
	return s.take(ctx, authKey(sid))
}

func (s *Store) SaveRegByToken(ctx context.Context, token string, sd *webauthn.SessionData) error {
	return s.save(ctx, regTokenKey(token), sd)
}

func (s *Store) TakeRegByToken(ctx context.Context, token string) (*webauthn.SessionData, error) {
	return s.take(ctx, regTokenKey(token))
}
