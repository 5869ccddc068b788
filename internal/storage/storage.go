// Package storage is the persistence sink for the cron ingestion path:
// idempotent article upserts into Postgres, with a short-TTL Redis cache
// over list reads.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/newsfold/newsfold/internal/model"
)

// Article is the articles table row. Unlike the archive path, this path
// truncates descriptions at ingestion and carries no archivedAt.
type Article struct {
	ID          string            `gorm:"primaryKey;size:128" json:"id"`
	Title       string            `gorm:"size:512" json:"title"`
	URL         string            `gorm:"size:1024;index" json:"url"`
	Description string            `gorm:"size:600" json:"description"`
	ImageURL    string            `gorm:"size:1024" json:"imageUrl"`
	Source      string            `gorm:"size:128;index" json:"source"`
	Category    string            `gorm:"size:64;index" json:"category"`
	PublishedAt time.Time         `gorm:"index" json:"publishedAt"`
	IsActive    bool              `json:"is_active"`
	Raw         datatypes.JSONMap `gorm:"type:jsonb" json:"raw,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Store struct {
	DB    *gorm.DB
	Redis *redis.Client
}

func NewStore(dsn, redisAddr string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&Article{}); err != nil {
		return nil, err
	}

	var rdb *redis.Client
	if redisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: redisAddr})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Printf("warn: redis ping failed: %v", err)
		}
	}

	return &Store{DB: db, Redis: rdb}, nil
}

// toValidUTF8 normalizes strings to legal UTF-8 so Postgres never rejects
// a row over a stray byte sequence from an upstream payload.
func toValidUTF8(s string) string {
	return strings.ToValidUTF8(s, "�")
}

// UpsertBatch writes a batch keyed by article id: an existing row with the
// same id is overwritten, never duplicated. A write failure is fatal for
// the whole batch.
func (s *Store) UpsertBatch(items []model.Article) (int, error) {
	written := 0
	for _, it := range items {
		row := &Article{
			ID:          it.ID,
			Title:       toValidUTF8(it.Title),
			URL:         it.URL,
			Description: toValidUTF8(model.TruncateDescription(it.Description)),
			ImageURL:    it.ImageURL,
			Source:      it.Source,
			Category:    it.Category,
			PublishedAt: time.UnixMilli(it.EffectiveTs()),
			IsActive:    true,
		}
		if it.Content != "" {
			// Full text survives here; the description column is truncated.
			row.Raw = datatypes.JSONMap{"content": it.Content}
		}

		if err := s.DB.Where("id = ?", it.ID).FirstOrCreate(row).Error; err != nil {
			return written, fmt.Errorf("storage: upsert %s: %w", it.ID, err)
		}
		if err := s.DB.Model(row).Updates(map[string]any{
			"title":        row.Title,
			"url":          row.URL,
			"description":  row.Description,
			"image_url":    row.ImageURL,
			"source":       row.Source,
			"category":     row.Category,
			"published_at": row.PublishedAt,
			"is_active":    true,
		}).Error; err != nil {
			return written, fmt.Errorf("storage: update %s: %w", it.ID, err)
		}
		written++
	}

	// Cached lists expire on their own short TTL; no invalidation sweep.
	return written, nil
}

const listCacheTTL = 5 * time.Minute

// ListArticles returns a page of stored articles, newest first, with a
// Redis read-through cache keyed on the full query.
func (s *Store) ListArticles(category string, page, pageSize int) ([]Article, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	ctx := context.Background()
	cacheKey := fmt.Sprintf("articles:list:%s:%d:%d", category, page, pageSize)

	if s.Redis != nil {
		if bs, err := s.Redis.Get(ctx, cacheKey).Bytes(); err == nil {
			var cached []Article
			if err := json.Unmarshal(bs, &cached); err == nil {
				return cached, nil
			}
		}
	}

	var list []Article
	db := s.DB.Model(&Article{}).Where("is_active = ?", true)
	if category != "" {
		db = db.Where("category = ?", category)
	}
	if err := db.Order("published_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&list).Error; err != nil {
		return nil, err
	}

	if s.Redis != nil && len(list) > 0 {
		if bs, err := json.Marshal(list); err == nil {
			_ = s.Redis.Set(ctx, cacheKey, bs, listCacheTTL).Err()
		}
	}

	return list, nil
}
