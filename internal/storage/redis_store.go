package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"sidehug/internal/model"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("storage: not found")

// CategoryDoc is the stored form of a category bucket.
type CategoryDoc struct {
	Category  string             `json:"category"`
	UpdatedAt time.Time          `json:"updated_at"`
	Posts     []model.PostRecord `json:"posts"`
}

type RedisStore struct {
	rdb *redis.Client
	now func() time.Time
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb, now: time.Now}
}

func categoryKey(name string) string {
	return fmt.Sprintf("sidehug:category:%s", name)
}

func trendKey(topic string) string {
	return fmt.Sprintf("sidehug:trend:%s", topic)
}

func handledKey(uri string) string {
	return fmt.Sprintf("sidehug:mention:handled:%s", uri)
}

const (
	categoryIndexKey = "sidehug:index:categories"
	trendIndexKey    = "sidehug:index:trends"
)

// SaveCategoryPosts replaces the stored bucket for category and records it in
// the category index scored by update time.
func (s *RedisStore) SaveCategoryPosts(ctx context.Context, category string, posts []model.PostRecord) error {
	now := s.now().UTC()
	b, err := json.Marshal(CategoryDoc{Category: category, UpdatedAt: now, Posts: posts})
	if err != nil {
		return err
	}
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, categoryKey(category), b, 0)
	pipe.ZAdd(ctx, categoryIndexKey, redis.Z{Score: float64(now.Unix()), Member: category})
	_, err = pipe.Exec(ctx)
	return err
}

// CategoryPosts loads a stored bucket.
func (s *RedisStore) CategoryPosts(ctx context.Context, category string) (*CategoryDoc, error) {
	b, err := s.rdb.Get(ctx, categoryKey(category)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var doc CategoryDoc
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// SaveTrendReport replaces the stored report for the report's topic.
func (s *RedisStore) SaveTrendReport(ctx context.Context, report model.TrendReport) error {
	b, err := json.Marshal(report)
	if err != nil {
		return err
	}
	ts := report.GeneratedAt
	if ts.IsZero() {
		ts = s.now()
	}
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, trendKey(report.Topic), b, 0)
	pipe.ZAdd(ctx, trendIndexKey, redis.Z{Score: float64(ts.Unix()), Member: report.Topic})
	_, err = pipe.Exec(ctx)
	return err
}

// TrendReport loads the latest report for topic.
func (s *RedisStore) TrendReport(ctx context.Context, topic string) (*model.TrendReport, error) {
	b, err := s.rdb.Get(ctx, trendKey(topic)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var r model.TrendReport
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// TrendTopics lists stored topics, most recently updated first.
func (s *RedisStore) TrendTopics(ctx context.Context) ([]string, error) {
	return s.rdb.ZRevRange(ctx, trendIndexKey, 0, -1).Result()
}

// Categories lists stored categories, most recently updated first.
func (s *RedisStore) Categories(ctx context.Context) ([]string, error) {
	return s.rdb.ZRevRange(ctx, categoryIndexKey, 0, -1).Result()
}

// IsHandled reports whether a mention was already answered.
func (s *RedisStore) IsHandled(ctx context.Context, uri string) (bool, error) {
	_, err := s.rdb.Get(ctx, handledKey(uri)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// MarkHandled records a mention as answered for the given duration.
func (s *RedisStore) MarkHandled(ctx context.Context, uri string, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	return s.rdb.Set(ctx, handledKey(uri), "1", d).Err()
}
