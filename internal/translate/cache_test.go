package translate

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryCache struct {
	mu      sync.Mutex
	entries map[string]string
	getErr  error
	putErr  error
	gets    int
	puts    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string]string)}
}

func cacheKey(text, sourceLang, targetLang string) string {
	return sourceLang + "|" + targetLang + "|" + text
}

func (c *memoryCache) GetTranslation(ctx context.Context, text, sourceLang, targetLang string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.getErr != nil {
		return "", false, c.getErr
	}
	v, ok := c.entries[cacheKey(text, sourceLang, targetLang)]
	return v, ok, nil
}

func (c *memoryCache) PutTranslation(ctx context.Context, text, sourceLang, targetLang, translated string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.puts++
	if c.putErr != nil {
		return c.putErr
	}
	c.entries[cacheKey(text, sourceLang, targetLang)] = translated
	return nil
}

func TestCachingBackend_HitSkipsBackend(t *testing.T) {
	cache := newMemoryCache()
	cache.entries[cacheKey("hello", "en", "de")] = "hallo"
	backend := &fakeBackend{}
	b := NewCachingBackend(backend, cache)

	resp, err := b.Translate(context.Background(), Request{Text: "hello", SourceLang: "en", TargetLang: "de"})

	require.NoError(t, err)
	assert.Equal(t, "hallo", resp.TranslatedText)
	assert.Zero(t, backend.callCount())
}

func TestCachingBackend_MissDispatchesAndCaches(t *testing.T) {
	cache := newMemoryCache()
	backend := &fakeBackend{}
	b := NewCachingBackend(backend, cache)

	resp, err := b.Translate(context.Background(), Request{Text: "hello", SourceLang: "en", TargetLang: "de"})

	require.NoError(t, err)
	assert.Equal(t, "[de] hello", resp.TranslatedText)
	assert.Equal(t, 1, backend.callCount())
	assert.Equal(t, "[de] hello", cache.entries[cacheKey("hello", "en", "de")])
}

func TestCachingBackend_LanguagePairScopesKey(t *testing.T) {
	cache := newMemoryCache()
	cache.entries[cacheKey("hello", "en", "de")] = "hallo"
	backend := &fakeBackend{}
	b := NewCachingBackend(backend, cache)

	_, err := b.Translate(context.Background(), Request{Text: "hello", SourceLang: "en", TargetLang: "fr"})

	require.NoError(t, err)
	assert.Equal(t, 1, backend.callCount(), "a different target language must not hit the cache")
}

func TestCachingBackend_CacheErrorsDegrade(t *testing.T) {
	cache := newMemoryCache()
	cache.getErr = assert.AnError
	cache.putErr = assert.AnError
	backend := &fakeBackend{}
	b := NewCachingBackend(backend, cache)

	resp, err := b.Translate(context.Background(), Request{Text: "hello", SourceLang: "en", TargetLang: "de"})

	require.NoError(t, err)
	assert.Equal(t, "[de] hello", resp.TranslatedText)
}

func TestCachingBackend_FailuresNotCached(t *testing.T) {
	cache := newMemoryCache()
	backend := &fakeBackend{err: assert.AnError}
	b := NewCachingBackend(backend, cache)

	_, err := b.Translate(context.Background(), Request{Text: "hello", SourceLang: "en", TargetLang: "de"})

	require.Error(t, err)
	assert.Zero(t, cache.puts)
	assert.Empty(t, cache.entries)
}
