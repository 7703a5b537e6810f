package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helpdesk-insights-be/internal/insights"
)

type countingClassifier struct {
	calls int
	cats  []insights.Category
	err   error
}

func (c *countingClassifier) GroupReasons(context.Context, []insights.ReasonCount) ([]insights.Category, error) {
	c.calls++
	return c.cats, c.err
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	srv := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return srv, rdb
}

func boletoCategories() []insights.Category {
	return []insights.Category{
		{Label: "Boleto", Count: 8, AbsorbedReasons: []string{"erro no boleto", "boleto não chegou"}},
		{Label: "Acesso", Count: 3, AbsorbedReasons: []string{"senha bloqueada", "esqueci a senha"}},
	}
}

func TestCachedClassifierHit(t *testing.T) {
	srv, rdb := newTestRedis(t)
	next := &countingClassifier{cats: boletoCategories()}
	c := NewCachedClassifier(next, rdb, time.Hour, nil)

	first, err := c.GroupReasons(context.Background(), sampleReasons())
	require.NoError(t, err)
	second, err := c.GroupReasons(context.Background(), sampleReasons())
	require.NoError(t, err)

	assert.Equal(t, 1, next.calls)
	assert.Equal(t, first, second)

	key, err := groupingCacheKey(sampleReasons())
	require.NoError(t, err)
	assert.True(t, srv.Exists(key))
	assert.Equal(t, time.Hour, srv.TTL(key))
}

func TestCachedClassifierKeyDependsOnCounts(t *testing.T) {
	a, err := groupingCacheKey(sampleReasons())
	require.NoError(t, err)
	changed := sampleReasons()
	changed[0].Count++
	b, err := groupingCacheKey(changed)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestCachedClassifierDoesNotCacheFailures(t *testing.T) {
	srv, rdb := newTestRedis(t)
	next := &countingClassifier{err: insights.ErrClassificationUnavailable}
	c := NewCachedClassifier(next, rdb, time.Hour, nil)

	_, err := c.GroupReasons(context.Background(), sampleReasons())
	assert.ErrorIs(t, err, insights.ErrClassificationUnavailable)
	_, err = c.GroupReasons(context.Background(), sampleReasons())
	assert.Error(t, err)

	assert.Equal(t, 2, next.calls)
	assert.Empty(t, srv.Keys())
}

func TestCachedClassifierDoesNotCacheInvalidGroupings(t *testing.T) {
	srv, rdb := newTestRedis(t)
	next := &countingClassifier{cats: []insights.Category{{Label: "Vazio", Count: 0}}}
	c := NewCachedClassifier(next, rdb, time.Hour, nil)

	_, err := c.GroupReasons(context.Background(), sampleReasons())

	require.NoError(t, err)
	assert.Empty(t, srv.Keys())
}

func TestCachedClassifierSurvivesRedisOutage(t *testing.T) {
	srv, rdb := newTestRedis(t)
	srv.Close()
	next := &countingClassifier{cats: boletoCategories()}
	c := NewCachedClassifier(next, rdb, time.Hour, nil)

	cats, err := c.GroupReasons(context.Background(), sampleReasons())

	require.NoError(t, err)
	assert.Equal(t, boletoCategories(), cats)
}

func TestCachedClassifierIgnoresCorruptEntries(t *testing.T) {
	srv, rdb := newTestRedis(t)
	key, err := groupingCacheKey(sampleReasons())
	require.NoError(t, err)
	require.NoError(t, srv.Set(key, "{not json"))
	next := &countingClassifier{cats: boletoCategories()}

	cats, err := NewCachedClassifier(next, rdb, time.Hour, nil).GroupReasons(context.Background(), sampleReasons())

	require.NoError(t, err)
	assert.Equal(t, 1, next.calls)
	assert.Equal(t, boletoCategories(), cats)
}

func TestCachedClassifierPropagatesContextErrors(t *testing.T) {
	_, rdb := newTestRedis(t)
	next := &countingClassifier{err: context.DeadlineExceeded}

	_, err := NewCachedClassifier(next, rdb, time.Hour, nil).GroupReasons(context.Background(), sampleReasons())

	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
