package censor

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/qaboard/qa-service/internal/config"
	apperrors "github.com/qaboard/qa-service/pkg/util/errorutil"
)

const testKey = "test-api-key"

func badWordsServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func clientFor(url string, opts ...Option) Censor {
	return New(config.CensorConfig{
		Enabled:         true,
		URL:             url,
		APIKey:          testKey,
		TimeoutSeconds:  2,
		CacheTTLSeconds: 60,
	}, zap.NewNop(), opts...)
}

func requireKind(t *testing.T, err error, want apperrors.Kind) {
	t.Helper()
	kind, ok := apperrors.KindOf(err)
	require.True(t, ok, "expected service error, got %v", err)
	assert.Equal(t, want, kind)
}

func TestClient_Censor(t *testing.T) {
	srv, _ := badWordsServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, testKey, r.Header.Get(APIKeyHeader))
		assert.Equal(t, "*", r.URL.Query().Get("censor_character"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "what the heck", string(body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"content":"what the heck","bad_words_total":1,"bad_words_list":[],"censored_content":"what the ****"}`)
	})

	out, err := clientFor(srv.URL).Censor(context.Background(), "what the heck")
	require.NoError(t, err)
	assert.Equal(t, "what the ****", out)
}

func TestClient_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"non-2xx", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"message":"Invalid authentication credentials"}`)
		}},
		{"server error without body", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}},
		{"invalid json", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, `{"censored_content":`)
		}},
		{"missing field", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, `{"content":"x"}`)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := badWordsServer(t, tt.handler)
			_, err := clientFor(srv.URL).Censor(context.Background(), "x")
			requireKind(t, err, apperrors.KindExternalAPIError)
		})
	}
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := clientFor(url).Censor(context.Background(), "x")
	requireKind(t, err, apperrors.KindExternalAPIError)
}

func TestClient_MissingAPIKey(t *testing.T) {
	srv, calls := badWordsServer(t, func(w http.ResponseWriter, _ *http.Request) {})
	c := New(config.CensorConfig{Enabled: true, URL: srv.URL}, zap.NewNop())

	_, err := c.Censor(context.Background(), "x")
	requireKind(t, err, apperrors.KindEnvVarUnset)
	assert.Zero(t, atomic.LoadInt32(calls))
}

func TestNew_Disabled(t *testing.T) {
	c := New(config.CensorConfig{Enabled: false}, zap.NewNop())
	out, err := c.Censor(context.Background(), "darn")
	require.NoError(t, err)
	assert.Equal(t, "darn", out)
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[string]string
	failGet bool
}

func (m *memoryCache) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet {
		return "", false, errors.New("cache down")
	}
	v, ok := m.entries[key]
	return v, ok, nil
}

func (m *memoryCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = value
	return nil
}

func TestClient_CachesResults(t *testing.T) {
	srv, calls := badWordsServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"censored_content":"clean"}`)
	})
	cache := &memoryCache{entries: map[string]string{}}
	c := clientFor(srv.URL, WithCache(cache))

	for i := 0; i < 3; i++ {
		out, err := c.Censor(context.Background(), "dirty")
		require.NoError(t, err)
		assert.Equal(t, "clean", out)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
	assert.Equal(t, "clean", cache.entries[cacheKey("dirty")])
}

func TestClient_CacheFailureBypassed(t *testing.T) {
	srv, calls := badWordsServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"censored_content":"clean"}`)
	})
	c := clientFor(srv.URL, WithCache(&memoryCache{entries: map[string]string{}, failGet: true}))

	out, err := c.Censor(context.Background(), "dirty")
	require.NoError(t, err)
	assert.Equal(t, "clean", out)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestClient_CanceledWhileThrottled(t *testing.T) {
	srv, calls := badWordsServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"censored_content":"ok"}`)
	})
	c := New(config.CensorConfig{
		Enabled:        true,
		URL:            srv.URL,
		APIKey:         testKey,
		TimeoutSeconds: 2,
		RatePerSecond:  1,
		Burst:          1,
	}, zap.NewNop())

	_, err := c.Censor(context.Background(), "first")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = c.Censor(ctx, "second")
	requireKind(t, err, apperrors.KindExternalAPIError)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestClient_RequestDeadlineReachesCall(t *testing.T) {
	srv, _ := badWordsServer(t, func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(time.Second)
		_, _ = io.WriteString(w, `{"censored_content":"late"}`)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := clientFor(srv.URL).Censor(ctx, "slow")
	requireKind(t, err, apperrors.KindExternalAPIError)
	assert.Less(t, time.Since(start), 800*time.Millisecond)
}

func TestClient_CanceledBeforeCall(t *testing.T) {
	srv, calls := badWordsServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"censored_content":"ok"}`)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := clientFor(srv.URL).Censor(ctx, "x")
	requireKind(t, err, apperrors.KindExternalAPIError)
	assert.Zero(t, atomic.LoadInt32(calls))
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, cacheKey("a"), cacheKey("a"))
	assert.NotEqual(t, cacheKey("a"), cacheKey("b"))
	assert.Len(t, cacheKey("a"), len("censor:")+64)
}

type fakeRedis struct {
	redis.Cmdable
	values map[string]string
	err    error
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	f.values[key] = value.(string)
	return redis.NewStatusResult("OK", nil)
}

func TestRedisCache(t *testing.T) {
	ctx := context.Background()
	cache := NewRedisCache(&fakeRedis{values: map[string]string{}})

	_, ok, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, "k", "v", time.Minute))
	v, ok, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	broken := NewRedisCache(&fakeRedis{values: map[string]string{}, err: errors.New("conn refused")})
	_, _, err = broken.Get(ctx, "k")
	assert.Error(t, err)
}
