package translate

import (
	"context"

	"github.com/capoverlay/capsync/pkg/log"
)

// TranslationCache persists translation results across sessions of the
// same material. Failed attempts are never cached.
type TranslationCache interface {
	GetTranslation(ctx context.Context, text, sourceLang, targetLang string) (string, bool, error)
	PutTranslation(ctx context.Context, text, sourceLang, targetLang, translated string) error
}

// CachingBackend consults the cache before dispatching to the wrapped
// backend and stores successful results. Cache errors degrade to a plain
// backend call; they never fail a translation.
type CachingBackend struct {
	backend Backend
	cache   TranslationCache
}

func NewCachingBackend(backend Backend, cache TranslationCache) *CachingBackend {
	return &CachingBackend{
		backend: backend,
		cache:   cache,
	}
}

func (b *CachingBackend) Translate(ctx context.Context, req Request) (Response, error) {
	cached, found, err := b.cache.GetTranslation(ctx, req.Text, req.SourceLang, req.TargetLang)
	if err != nil {
		log.Warn("Translation cache lookup failed: %v", err)
	} else if found {
		return Response{TranslatedText: cached}, nil
	}

	resp, err := b.backend.Translate(ctx, req)
	if err != nil {
		return Response{}, err
	}

	if err := b.cache.PutTranslation(ctx, req.Text, req.SourceLang, req.TargetLang, resp.TranslatedText); err != nil {
		log.Warn("Failed to cache translation: %v", err)
	}
	return resp, nil
}
