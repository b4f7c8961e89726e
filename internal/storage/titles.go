package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ledgerlens/internal/cache"
	"ledgerlens/internal/filters"
)

// Title implements filters.TitleLookup over the <entity>_view relations.
// Records with a blank title count as not found.
func (r *SQLiteRepository) Title(ctx context.Context, entity filters.Entity, id string) (string, bool, error) {
	rel := filters.Relation(entity, filters.TargetView)
	if err := checkIdentifier(rel.Name()); err != nil {
		return "", false, err
	}

	var title sql.NullString
	err := r.db.QueryRowContext(ctx,
		"SELECT NULLIF(title, '') FROM "+rel.Name()+" WHERE id = ?", id).Scan(&title)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read %s title: %w", entity, err)
	}
	return title.String, title.Valid, nil
}

type cachedTitle struct {
	title string
	found bool
}

// TitleCache remembers titles across describe calls.
type TitleCache struct {
	next  filters.TitleLookup
	cache *cache.LRUCache[cachedTitle]
}

// NewTitleCache wraps next with an LRU of size entries expiring after ttl.
func NewTitleCache(next filters.TitleLookup, size int, ttl time.Duration) *TitleCache {
	return &TitleCache{next: next, cache: cache.NewLRUCache[cachedTitle](size, ttl)}
}

func (c *TitleCache) Title(ctx context.Context, entity filters.Entity, id string) (string, bool, error) {
	v, err := cache.GetOrLoad(ctx, c.cache, string(entity)+":"+id, func(ctx context.Context, _ string) (cachedTitle, error) {
		title, found, err := c.next.Title(ctx, entity, id)
		return cachedTitle{title: title, found: found}, err
	})
	return v.title, v.found, err
}

// CleanExpired implements cache.Cleaner.
func (c *TitleCache) CleanExpired() int { return c.cache.CleanExpired() }

// Size is the number of cached titles.
func (c *TitleCache) Size() int { return c.cache.Size() }
