package store

import (
	"context"

	"github.com/rs/zerolog"

	"topicmon/internal/core"
)

// Annotator extracts topics for one article
type Annotator interface {
	Annotate(ctx context.Context, article core.Article) (core.TopicAnnotation, error)
}

// CachedAnnotator serves annotations from the store and only calls the
// wrapped annotator for new or changed articles. Cache errors are logged and
// never fail an extraction.
type CachedAnnotator struct {
	next   Annotator
	store  *Store
	log    zerolog.Logger
	hits   int
	misses int
}

// NewCachedAnnotator wraps next with the store
func NewCachedAnnotator(next Annotator, store *Store, log zerolog.Logger) *CachedAnnotator {
	return &CachedAnnotator{next: next, store: store, log: log}
}

// Annotate returns a cached annotation when available.
func (c *CachedAnnotator) Annotate(ctx context.Context, article core.Article) (core.TopicAnnotation, error) {
	cached, ok, err := c.store.GetCachedAnnotation(article)
	if err != nil {
		c.log.Warn().Err(err).Str("article", article.Link).Msg("Annotation cache read failed")
	}
	if ok {
		c.hits++
		return cached, nil
	}

	c.misses++
	annotation, err := c.next.Annotate(ctx, article)
	if err != nil {
		return annotation, err
	}

	if err := c.store.CacheAnnotation(article, annotation); err != nil {
		c.log.Warn().Err(err).Str("article", article.Link).Msg("Annotation cache write failed")
	}
	return annotation, nil
}

// Stats returns cache hits and misses since creation.
func (c *CachedAnnotator) Stats() (hits, misses int) {
	return c.hits, c.misses
}
