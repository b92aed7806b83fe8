package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/trezcool/maendeleo/core/analytics"
)

// AnalyticsCache stores serialized analytics records under a TTL. Records
// are regenerable, so any redis hiccup degrades to a recompute.
type AnalyticsCache struct {
	client *redis.Client
}

var _ analytics.Cache = (*AnalyticsCache)(nil) // interface compliance check

func NewAnalyticsCache(client *redis.Client) *AnalyticsCache {
	return &AnalyticsCache{client: client}
}

func recordKey(studentID, termID string) string {
	return fmt.Sprintf("analytics:%s:%s", studentID, termID)
}

func (c *AnalyticsCache) GetRecord(ctx context.Context, studentID, termID string) (analytics.Record, error) {
	raw, err := c.client.Get(ctx, recordKey(studentID, termID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return analytics.Record{}, analytics.ErrCacheMiss
		}
		return analytics.Record{}, err
	}

	var rec analytics.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		// a corrupt entry reads as a miss; the next Set overwrites it
		return analytics.Record{}, analytics.ErrCacheMiss
	}
	return rec, nil
}

func (c *AnalyticsCache) SetRecord(ctx context.Context, rec analytics.Record, ttl time.Duration) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, recordKey(rec.StudentID, rec.TermID), raw, ttl).Err()
}

func (c *AnalyticsCache) DeleteRecord(ctx context.Context, studentID, termID string) error {
	return c.client.Del(ctx, recordKey(studentID, termID)).Err()
}
