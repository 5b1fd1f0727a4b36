package knowledge

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru"
)

// SnapshotCache keeps fully loaded bases keyed by (organization, base id) so the
// agent test console does not reread rows on every turn. Entries are dropped on
// re-import through Invalidate.
type SnapshotCache struct {
	cache  *lru.Cache
	loader Loader
}

func NewSnapshotCache(size int, loader Loader) (*SnapshotCache, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("create snapshot cache: %w", err)
	}
	return &SnapshotCache{cache: cache, loader: loader}, nil
}

func snapshotKey(orgID, id string) string {
	return orgID + "/" + id
}

func (c *SnapshotCache) LoadBase(ctx context.Context, orgID, id string) (*Base, error) {
	key := snapshotKey(orgID, id)
	if v, ok := c.cache.Get(key); ok {
		return v.(*Base), nil
	}

	base, err := c.loader.LoadBase(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, base)
	return base, nil
}

func (c *SnapshotCache) Invalidate(orgID, id string) {
	c.cache.Remove(snapshotKey(orgID, id))
}

func (c *SnapshotCache) Len() int {
	return c.cache.Len()
}
