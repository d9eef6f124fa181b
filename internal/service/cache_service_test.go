package service

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/consultant-content-api/pkg/errors"
)

type mapCacheRepo struct {
	values  map[string]string
	ttls    map[string]time.Duration
	getErr  error
	deleted []string
}

func (m *mapCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	if m.getErr != nil {
		return m.getErr
	}
	v, ok := m.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	*(dest.(*string)) = v
	return nil
}

func (m *mapCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.values[key] = value.(string)
	m.ttls[key] = ttl
	return nil
}

func (m *mapCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	m.deleted = append(m.deleted, pattern)
	return nil
}

func TestCacheKeys(t *testing.T) {
	assert.Equal(t, "ccapi:reviews:c1:1:20", CacheKey("reviews", "c1", "1", "20"))
	assert.Equal(t, "ccapi:reviews:c1:*", CachePattern("reviews", "c1"))
	assert.Equal(t, "ccapi:published:*", CachePattern("published"))
}

func TestCacheServiceGetSet(t *testing.T) {
	repo := &mapCacheRepo{values: map[string]string{}, ttls: map[string]time.Duration{}}
	metrics := NewMetricsService()
	svc := NewCacheService(repo, metrics, 0, zap.NewNop(), true)
	ctx := context.Background()

	var out string
	assert.False(t, svc.Get(ctx, "k", &out))

	svc.Set(ctx, "k", "v", 0)
	assert.Equal(t, 2*time.Minute, repo.ttls["k"])
	require.True(t, svc.Get(ctx, "k", &out))
	assert.Equal(t, "v", out)

	repo.getErr = errors.New("connection refused")
	assert.False(t, svc.Get(ctx, "k", &out))

	svc.Invalidate(ctx, "ccapi:published:*")
	assert.Equal(t, []string{"ccapi:published:*"}, repo.deleted)

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "cache_hits_total 1")
}

func TestCacheServiceDisabled(t *testing.T) {
	repo := &mapCacheRepo{values: map[string]string{}, ttls: map[string]time.Duration{}}
	svc := NewCacheService(repo, nil, time.Minute, nil, false)
	ctx := context.Background()

	svc.Set(ctx, "k", "v", 0)
	assert.Empty(t, repo.values)
	var out string
	assert.False(t, svc.Get(ctx, "k", &out))
	svc.Invalidate(ctx, "x")
	assert.Empty(t, repo.deleted)

	var nilSvc *CacheService
	assert.False(t, nilSvc.Enabled())
}
