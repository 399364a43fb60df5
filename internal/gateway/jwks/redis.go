package jwks

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/tollgate/pkg/jwtx"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultRedisKey = "tollgate:gateway:jwks"
	DefaultRedisTTL = 5 * time.Minute
)

// RedisTier shares fetched key sets between gateway replicas so only one of
// them hits the authority per TTL. Redis failures fall through to the
// wrapped fetcher; they never fail a fetch on their own.
type RedisTier struct {
	Client redis.UniversalClient
	Key    string
	TTL    time.Duration
	Next   FetchFunc
	Logger *slog.Logger
}

// NewRedisClient connects to addr, which may be a redis:// URL or host:port.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	opts := &redis.Options{Addr: addr}
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, err
		}
		opts = parsed
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// Fetch implements FetchFunc.
func (t *RedisTier) Fetch(ctx context.Context) (jwtx.JWKS, error) {
	log := t.logger()

	raw, err := t.Client.Get(ctx, t.key()).Bytes()
	switch {
	case err == nil:
		var set jwtx.JWKS
		if jerr := json.Unmarshal(raw, &set); jerr == nil && len(set.Keys) > 0 {
			return set, nil
		}
		log.Warn("discarding unreadable cached jwks", "key", t.key())
	case errors.Is(err, redis.Nil):
	default:
		log.Warn("redis jwks lookup failed", "err", err)
	}

	set, err := t.Next(ctx)
	if err != nil {
		return jwtx.JWKS{}, err
	}

	if data, err := json.Marshal(set); err == nil {
		if err := t.Client.Set(ctx, t.key(), data, t.ttl()).Err(); err != nil {
			log.Warn("redis jwks store failed", "err", err)
		}
	}
	return set, nil
}

func (t *RedisTier) key() string {
	if t.Key == "" {
		return DefaultRedisKey
	}
	return t.Key
}

func (t *RedisTier) ttl() time.Duration {
	if t.TTL <= 0 {
		return DefaultRedisTTL
	}
	return t.TTL
}

func (t *RedisTier) logger() *slog.Logger {
	if t.Logger == nil {
		return slog.Default()
	}
	return t.Logger
}
