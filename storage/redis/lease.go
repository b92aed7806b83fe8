package redisstore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/maendeleo/core"
	"github.com/trezcool/maendeleo/core/report"
)

// releaseScript deletes the lease key only if this holder still owns it, so
// a lease that expired and was re-acquired elsewhere is never released by the
// old holder.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// LeaseLocker grants short-lived exclusive compile leases via SETNX with a
// TTL. The TTL bounds how long a crashed holder can block others.
type LeaseLocker struct {
	client *redis.Client
	ttl    time.Duration
}

var _ report.Leaser = (*LeaseLocker)(nil) // interface compliance check

func NewLeaseLocker(client *redis.Client, conf *core.Config) *LeaseLocker {
	return &LeaseLocker{client: client, ttl: conf.Redis.LeaseTimeout}
}

func (l *LeaseLocker) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.New().String()
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, report.ErrCompilationInProgress
	}

	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, l.client, []string{key}, token).Err()
	}
	return release, nil
}
