package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"marketplace/internal/models"
	"marketplace/internal/storage"

	"github.com/redis/go-redis/v9"
)

type RedisRepo struct {
	client *redis.Client
}

func New(ctx context.Context, addr, pass string, db int) (*RedisRepo, error) {
	const op = "storage.redis.New"

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     pass,
		DB:           db,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &RedisRepo{
		client: client,
	}, nil
}

// NewWithClient wraps an already configured client.
func NewWithClient(client *redis.Client) *RedisRepo {
	return &RedisRepo{client: client}
}

func reservationKey(email string) string {
	return "signup:reservation:" + email
}

func usernameHoldKey(username string) string {
	return "signup:username:" + username
}

func cooldownKey(scope, subject string) string {
	return fmt.Sprintf("cooldown:%s:%s", scope, subject)
}

func oauthSessionKey(id string) string {
	return "oauth:session:" + id
}

// * SaveReservation stores the reservation until its absolute expiry.
func (r *RedisRepo) SaveReservation(ctx context.Context, res models.Reservation) error {
	const op = "storage.redis.SaveReservation"

	ttl := time.Until(res.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrReservationNotFound)
	}

	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := r.client.Set(ctx, reservationKey(res.Email), data, ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *RedisRepo) Reservation(ctx context.Context, email string) (models.Reservation, error) {
	const op = "storage.redis.Reservation"

	data, err := r.client.Get(ctx, reservationKey(email)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.Reservation{}, storage.ErrReservationNotFound
		}
		return models.Reservation{}, fmt.Errorf("%s: %w", op, err)
	}

	var res models.Reservation
	if err := json.Unmarshal(data, &res); err != nil {
		return models.Reservation{}, fmt.Errorf("%s: %w", op, err)
	}

	return res, nil
}

// * DeleteReservation drops the reservation and releases its username hold.
func (r *RedisRepo) DeleteReservation(ctx context.Context, email, username string) error {
	const op = "storage.redis.DeleteReservation"

	pipe := r.client.Pipeline()
	pipe.Del(ctx, reservationKey(email))
	pipe.Del(ctx, cooldownKey("otp", email))
	if username != "" {
		pipe.Del(ctx, usernameHoldKey(username))
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// * HoldUsername reserves username for email (SETNX). Re-holding by the same
// email succeeds and refreshes the TTL.
func (r *RedisRepo) HoldUsername(ctx context.Context, username, email string, ttl time.Duration) (bool, error) {
	const op = "storage.redis.HoldUsername"

	key := usernameHoldKey(username)

	ok, err := r.client.SetNX(ctx, key, email, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if ok {
		return true, nil
	}

	owner, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// expired between SETNX and GET
			return r.HoldUsername(ctx, username, email, ttl)
		}
		return false, fmt.Errorf("%s: %w", op, err)
	}

	if owner != email {
		return false, nil
	}

	if err := r.client.Expire(ctx, key, ttl).Err(); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return true, nil
}

func (r *RedisRepo) ReleaseUsername(ctx context.Context, username string) error {
	const op = "storage.redis.ReleaseUsername"

	if err := r.client.Del(ctx, usernameHoldKey(username)).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *RedisRepo) UsernameHeld(ctx context.Context, username string) (bool, error) {
	const op = "storage.redis.UsernameHeld"

	n, err := r.client.Exists(ctx, usernameHoldKey(username)).Result()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return n > 0, nil
}

// * StartCooldown atomically opens a cooldown window for subject. When a window
// is already open it returns false and the remaining wait.
func (r *RedisRepo) StartCooldown(ctx context.Context, scope, subject string, ttl time.Duration) (bool, time.Duration, error) {
	const op = "storage.redis.StartCooldown"

	key := cooldownKey(scope, subject)

	ok, err := r.client.SetNX(ctx, key, time.Now().Unix(), ttl).Result()
	if err != nil {
		return false, 0, fmt.Errorf("%s: %w", op, err)
	}
	if ok {
		return true, 0, nil
	}

	remaining, err := r.client.PTTL(ctx, key).Result()
	if err != nil {
		return false, 0, fmt.Errorf("%s: %w", op, err)
	}
	if remaining < 0 {
		// key vanished or has no TTL; treat as open
		return r.client.Set(ctx, key, time.Now().Unix(), ttl).Err() == nil, 0, nil
	}

	return false, remaining, nil
}

// * ClearCooldown closes a window early, used when the guarded action failed.
func (r *RedisRepo) ClearCooldown(ctx context.Context, scope, subject string) error {
	const op = "storage.redis.ClearCooldown"

	if err := r.client.Del(ctx, cooldownKey(scope, subject)).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *RedisRepo) SaveOAuthSession(ctx context.Context, s models.OAuthSession, ttl time.Duration) error {
	const op = "storage.redis.SaveOAuthSession"

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := r.client.Set(ctx, oauthSessionKey(s.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *RedisRepo) OAuthSession(ctx context.Context, id string) (models.OAuthSession, error) {
	const op = "storage.redis.OAuthSession"

	data, err := r.client.Get(ctx, oauthSessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.OAuthSession{}, storage.ErrOAuthSessionNotFound
		}
		return models.OAuthSession{}, fmt.Errorf("%s: %w", op, err)
	}

	var s models.OAuthSession
	if err := json.Unmarshal(data, &s); err != nil {
		return models.OAuthSession{}, fmt.Errorf("%s: %w", op, err)
	}

	return s, nil
}

func (r *RedisRepo) DeleteOAuthSession(ctx context.Context, id string) error {
	const op = "storage.redis.DeleteOAuthSession"

	if err := r.client.Del(ctx, oauthSessionKey(id)).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *RedisRepo) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// * Close closes the underlying client.
func (r *RedisRepo) Close() {
	r.client.Close()
}
