package redis

import (
	"context"

	goredis "github.com/redis/go-redis/v9"
)

func NewClient(addr, password string, db int) *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// Pinger adapts a client to a plain error-returning health check.
type Pinger struct {
	Client *goredis.Client
}

func (p Pinger) Ping(ctx context.Context) error {
	if p.Client == nil {
		return errNilClient
	}
	return p.Client.Ping(ctx).Err()
}
