package store

import (
	"context"
	"encoding/json"
	"time"

	"sitepulse/api/database"
	"sitepulse/api/models"
)

const projectCacheTTL = 60 * time.Second

// ProjectCache fronts the ProjectStore with a short-TTL Redis cache for the
// three lookups every beacon needs: the project, its consent settings and
// its internal IP rules. Cache failures fall through to Postgres.
type ProjectCache struct {
	store *ProjectStore
	redis *database.RedisClient
}

func NewProjectCache(store *ProjectStore, redis *database.RedisClient) *ProjectCache {
	return &ProjectCache{store: store, redis: redis}
}

func (c *ProjectCache) GetProject(ctx context.Context, id string) (*models.Project, error) {
	key := "project:" + id
	if cached, ok := c.redis.Get(ctx, key); ok {
		p := &models.Project{}
		if err := json.Unmarshal([]byte(cached), p); err == nil {
			return p, nil
		}
	}

	p, err := c.store.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	if encoded, err := json.Marshal(p); err == nil {
		c.redis.Set(ctx, key, string(encoded), projectCacheTTL)
	}
	return p, nil
}

func (c *ProjectCache) GetConsentSettings(ctx context.Context, projectID string) (models.ConsentSettings, error) {
	key := "consent:" + projectID
	if cached, ok := c.redis.Get(ctx, key); ok {
		var cs models.ConsentSettings
		if err := json.Unmarshal([]byte(cached), &cs); err == nil {
			return cs, nil
		}
	}

	cs, err := c.store.GetConsentSettings(ctx, projectID)
	if err != nil {
		return cs, err
	}
	if encoded, err := json.Marshal(cs); err == nil {
		c.redis.Set(ctx, key, string(encoded), projectCacheTTL)
	}
	return cs, nil
}

func (c *ProjectCache) GetInternalIPRules(ctx context.Context, projectID string) ([]models.InternalIPRule, error) {
	key := "iprules:" + projectID
	if cached, ok := c.redis.Get(ctx, key); ok {
		var rules []models.InternalIPRule
		if err := json.Unmarshal([]byte(cached), &rules); err == nil {
			return rules, nil
		}
	}

	rules, err := c.store.ListInternalIPRules(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if encoded, err := json.Marshal(rules); err == nil {
		c.redis.Set(ctx, key, string(encoded), projectCacheTTL)
	}
	return rules, nil
}

// Invalidate drops a project's cached entries after a settings or rule
// change so the ingestion path picks the change up immediately.
func (c *ProjectCache) Invalidate(ctx context.Context, projectID string) {
	c.redis.Delete(ctx, "project:"+projectID, "consent:"+projectID, "iprules:"+projectID)
}
