package cache

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/tokmz/qibot/pkg/errors"
)

type story struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

func exercise(t *testing.T, c Cache) {
	ctx := context.Background()

	t.Run("Set/Get", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "story:1", story{ID: 1, Title: "Go 1.25"}, time.Minute))
		var got story
		require.NoError(t, c.Get(ctx, "story:1", &got))
		assert.Equal(t, story{ID: 1, Title: "Go 1.25"}, got)
	})

	t.Run("Miss", func(t *testing.T) {
		var got story
		assert.ErrorIs(t, c.Get(ctx, "story:404", &got), ErrCacheMiss)
	})

	t.Run("SetNX", func(t *testing.T) {
		ok, err := c.SetNX(ctx, "pushed:2026-10-19", true, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = c.SetNX(ctx, "pushed:2026-10-19", true, time.Minute)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Delete/Exists", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
		found, err := c.Exists(ctx, "k")
		require.NoError(t, err)
		assert.True(t, found)

		require.NoError(t, c.Delete(ctx, "k"))
		found, err = c.Exists(ctx, "k")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("Expire", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "short", 1, 50*time.Millisecond))
		time.Sleep(120 * time.Millisecond)
		var v int
		assert.ErrorIs(t, c.Get(ctx, "short", &v), ErrCacheMiss)
	})
}

func TestMemoryCache(t *testing.T) {
	c, err := NewWithOptions(WithKeyPrefix("test:"))
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Ping(context.Background()))
	exercise(t, c)
}

// 需要本地 Redis：QIBOT_TEST_REDIS=localhost:6379
func TestRedisCache(t *testing.T) {
	addr := os.Getenv("QIBOT_TEST_REDIS")
	if addr == "" {
		t.Skip("QIBOT_TEST_REDIS not set")
	}
	rc := DefaultRedisConfig()
	rc.Addr = addr
	c, err := NewWithOptions(WithRedis(rc), WithKeyPrefix("qibot-test:"))
	require.NoError(t, err)
	defer c.Close()

	exercise(t, c)
}

func TestValidate(t *testing.T) {
	_, err := NewWithOptions(WithRedis(&RedisConfig{}))
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)

	_, err = New(&Config{Driver: "memcached"})
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)
}

func TestRemember(t *testing.T) {
	c, err := NewWithOptions()
	require.NoError(t, err)
	l := NewLoader(c)
	ctx := context.Background()

	var calls atomic.Int32
	load := func(context.Context) (story, error) {
		calls.Add(1)
		time.Sleep(20 * time.Millisecond)
		return story{ID: 7, Title: "singleflight"}, nil
	}

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := Remember(ctx, l, "story:7", time.Minute, load)
			assert.NoError(t, err)
			assert.Equal(t, int64(7), s.ID)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), calls.Load())

	// 已缓存，不再加载
	_, err = Remember(ctx, l, "story:7", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRememberError(t *testing.T) {
	c, err := NewWithOptions()
	require.NoError(t, err)
	l := NewLoader(c)

	boom := errors.ErrTransport.WithMessage("boom")
	_, err = Remember(context.Background(), l, "x", time.Minute, func(context.Context) (int, error) {
		return 0, boom
	})
	assert.ErrorIs(t, err, errors.ErrTransport)

	found, _ := c.Exists(context.Background(), "x")
	assert.False(t, found)
}

func TestTracing(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(prev)

	c, err := NewWithOptions(WithTracing(true))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", 1, time.Minute))
	var v int
	assert.ErrorIs(t, c.Get(ctx, "missing", &v), ErrCacheMiss)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "cache.Set", spans[0].Name())
	assert.Equal(t, "cache.Get", spans[1].Name())
}
