package registry

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/ehr/intake/internal/domain/attributes"
	"github.com/ehr/intake/internal/platform/cache"
)

const schemaCacheKey = "person-attribute-types"

// SchemaSource lists person-attribute types.
type SchemaSource interface {
	ListAttributeTypes(ctx context.Context) ([]attributes.Type, error)
}

// SchemaCache serves attribute types from a shared store and collapses
// concurrent misses into a single registry fetch. Store failures fall through
// to the registry.
type SchemaCache struct {
	source SchemaSource
	store  cache.Store
	ttl    time.Duration
	group  singleflight.Group
	logger zerolog.Logger
}

// NewSchemaCache wraps source. A ttl <= 0 disables caching but keeps fetch
// de-duplication.
func NewSchemaCache(source SchemaSource, store cache.Store, ttl time.Duration, logger zerolog.Logger) *SchemaCache {
	return &SchemaCache{source: source, store: store, ttl: ttl, logger: logger}
}

func (c *SchemaCache) ListAttributeTypes(ctx context.Context) ([]attributes.Type, error) {
	if c.ttl > 0 {
		if types, ok := c.lookup(ctx); ok {
			return types, nil
		}
	}

	v, err, _ := c.group.Do(schemaCacheKey, func() (interface{}, error) {
		types, err := c.source.ListAttributeTypes(ctx)
		if err != nil {
			return nil, err
		}
		c.save(ctx, types)
		return types, nil
	})
	if err != nil {
		return nil, err
	}
	types := v.([]attributes.Type)
	out := make([]attributes.Type, len(types))
	copy(out, types)
	return out, nil
}

// Invalidate drops the cached schema.
func (c *SchemaCache) Invalidate(ctx context.Context) error {
	return c.store.Delete(ctx, schemaCacheKey)
}

func (c *SchemaCache) lookup(ctx context.Context) ([]attributes.Type, bool) {
	raw, ok, err := c.store.Get(ctx, schemaCacheKey)
	if err != nil {
		c.logger.Warn().Err(err).Msg("schema cache read failed")
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var types []attributes.Type
	if err := json.Unmarshal(raw, &types); err != nil {
		c.logger.Warn().Err(err).Msg("schema cache entry corrupt")
		return nil, false
	}
	return types, true
}

func (c *SchemaCache) save(ctx context.Context, types []attributes.Type) {
	if c.ttl <= 0 {
		return
	}
	raw, err := json.Marshal(types)
	if err != nil {
		return
	}
	if err := c.store.Set(ctx, schemaCacheKey, raw, c.ttl); err != nil {
		c.logger.Warn().Err(err).Msg("schema cache write failed")
	}
}
