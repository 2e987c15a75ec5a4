package state

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisTimeout bounds every request so that a slow server does not hold
// the relay loop.
const redisTimeout = 2 * time.Second

type redisEngine struct {
	db     *redis.Client
	prefix string
	ttl    time.Duration
}

// openRedis parses the URL without connecting. The ttl query parameter makes
// the templates of silent sessions expire.
func openRedis(urlParsed *url.URL, prefix string) (*redisEngine, error) {
	query := urlParsed.Query()
	var ttl time.Duration
	if raw := query.Get("ttl"); raw != "" {
		var err error
		if ttl, err = time.ParseDuration(raw); err != nil {
			return nil, fmt.Errorf("invalid ttl: %w", err)
		}
	}
	query.Del("prefix")
	query.Del("ttl")
	clean := *urlParsed
	clean.RawQuery = query.Encode()

	opts, err := redis.ParseURL(clean.String())
	if err != nil {
		return nil, err
	}
	return &redisEngine{
		db:     redis.NewClient(opts),
		prefix: prefix,
		ttl:    ttl,
	}, nil
}

func (r *redisEngine) Get(session string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()
	value, err := r.db.Get(ctx, r.prefix+session).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	return value, err
}

func (r *redisEngine) Set(session string, value []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()
	return r.db.Set(ctx, r.prefix+session, value, r.ttl).Err()
}

func (r *redisEngine) Close() error {
	return r.db.Close()
}
