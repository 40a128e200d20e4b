package service

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/latoalla/roster-server/internal/model"
)

var _ model.ProfileStore = (*CachedProfiles)(nil)

// CachedProfiles keeps recently read profiles in an expiring LRU.
// Failed lookups are not cached.
type CachedProfiles struct {
	store model.ProfileStore
	cache *expirable.LRU[string, model.Profile]
}

func NewCachedProfiles(store model.ProfileStore, size int, ttl time.Duration) *CachedProfiles {
	return &CachedProfiles{
		store: store,
		cache: expirable.NewLRU[string, model.Profile](size, nil, ttl),
	}
}

func (c *CachedProfiles) GetByID(ctx context.Context, ownerID string) (model.Profile, error) {
	if p, ok := c.cache.Get(ownerID); ok {
		return p, nil
	}
	p, err := c.store.GetByID(ctx, ownerID)
	if err != nil {
		return model.Profile{}, err
	}
	c.cache.Add(ownerID, p)
	return p, nil
}

// displayName prefers the username, then the full name.
func displayName(p model.Profile) string {
	if name := strings.TrimSpace(p.Username); name != "" {
		return name
	}
	return strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName))
}
