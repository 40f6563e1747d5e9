package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MaezenDigital/Enemamar-backend/internal/repository"
)

// RedisOTPStore implements OTPStore backed by Redis.
type RedisOTPStore struct {
	client redis.UniversalClient
}

var _ repository.OTPStore = (*RedisOTPStore)(nil)

// NewRedisOTPStore constructs a Redis-backed OTP store.
func NewRedisOTPStore(client redis.UniversalClient) *RedisOTPStore {
	return &RedisOTPStore{client: client}
}

// SaveCode stores the verification code for a phone number with TTL.
func (s *RedisOTPStore) SaveCode(ctx context.Context, phone, code string, ttl time.Duration) error {
	if err := s.client.Set(ctx, otpKey(phone), code, ttl).Err(); err != nil {
		return fmt.Errorf("persist otp: %w", err)
	}
	return nil
}

// GetCode loads the code for a phone number. Returns empty string when
// no code is pending or it has expired.
func (s *RedisOTPStore) GetCode(ctx context.Context, phone string) (string, error) {
	code, err := s.client.Get(ctx, otpKey(phone)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil
		}
		return "", fmt.Errorf("load otp: %w", err)
	}
	return code, nil
}

// DeleteCode removes the pending code.
func (s *RedisOTPStore) DeleteCode(ctx context.Context, phone string) error {
	if err := s.client.Del(ctx, otpKey(phone)).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("delete otp: %w", err)
	}
	return nil
}

// ReserveSend claims the per-phone send slot. It returns false when a
// code was already sent within the interval.
func (s *RedisOTPStore) ReserveSend(ctx context.Context, phone string, interval time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, otpSendKey(phone), "1", interval).Result()
	if err != nil {
		return false, fmt.Errorf("reserve otp send: %w", err)
	}
	return ok, nil
}

func otpKey(phone string) string {
	return "otp:code:" + phone
}

func otpSendKey(phone string) string {
	return "otp:send:" + phone
}
