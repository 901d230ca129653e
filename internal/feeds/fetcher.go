// Package feeds reads the OPML source list and fetches recent articles.
package feeds

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"

	"topicmon/internal/core"
)

// Options controls fetching behaviour
type Options struct {
	Timeout         time.Duration // per HTTP request
	Retries         int           // attempts per source
	RetryDelay      time.Duration // pause between attempts
	UserAgent       string
	MaxContentChars int
}

// DefaultOptions returns the standard fetch settings
func DefaultOptions() Options {
	return Options{
		Timeout:         15 * time.Second,
		Retries:         2,
		RetryDelay:      2 * time.Second,
		UserAgent:       "Mozilla/5.0 (compatible; topicmon/1.0)",
		MaxContentChars: 2000,
	}
}

// Fetcher downloads feeds and keeps the entries published inside a window.
type Fetcher struct {
	client *http.Client
	opts   Options
	log    zerolog.Logger
}

// NewFetcher creates a new fetcher
func NewFetcher(opts Options, log zerolog.Logger) *Fetcher {
	if opts.Retries < 1 {
		opts.Retries = 1
	}
	return &Fetcher{
		client: &http.Client{Timeout: opts.Timeout},
		opts:   opts,
		log:    log,
	}
}

// Result is the outcome of fetching every source.
type Result struct {
	Articles  []core.Article
	Sources   int // sources attempted
	Succeeded int // sources that returned at least one article
	Failed    int // sources that failed on every attempt
}

// FetchAll fetches the sources one after another. A failing source is
// logged and skipped. Articles are unique by link; the first occurrence wins.
func (f *Fetcher) FetchAll(ctx context.Context, sources []Source, window core.TimeWindow) (Result, error) {
	result := Result{Sources: len(sources)}
	seen := make(map[string]struct{})

	f.log.Info().
		Time("window_start", window.Start).
		Time("window_end", window.End).
		Int("sources", len(sources)).
		Msg("Fetching articles")

	for i, src := range sources {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		articles, err := f.FetchSource(ctx, src, window)
		if err != nil {
			result.Failed++
			f.log.Error().Err(err).Str("source", src.Title).Str("url", src.XMLURL).Msg("Source failed")
			continue
		}

		added := 0
		for _, a := range articles {
			if _, dup := seen[a.Link]; dup {
				continue
			}
			seen[a.Link] = struct{}{}
			result.Articles = append(result.Articles, a)
			added++
		}
		if added > 0 {
			result.Succeeded++
		}
		f.log.Debug().
			Int("progress", i+1).
			Int("of", len(sources)).
			Str("source", src.Title).
			Int("articles", added).
			Msg("Fetched source")
	}

	f.log.Info().
		Int("effective_sources", result.Succeeded).
		Int("failed_sources", result.Failed).
		Int("sources", result.Sources).
		Int("articles", len(result.Articles)).
		Msg("Fetch finished")

	return result, nil
}

// FetchSource fetches one source with retries.
func (f *Fetcher) FetchSource(ctx context.Context, src Source, window core.TimeWindow) ([]core.Article, error) {
	var lastErr error
	for attempt := 1; attempt <= f.opts.Retries; attempt++ {
		feed, err := f.download(ctx, src.XMLURL)
		if err == nil {
			return f.articlesFrom(feed, src, window), nil
		}
		lastErr = err
		f.log.Warn().
			Err(err).
			Str("source", src.Title).
			Int("attempt", attempt).
			Int("retries", f.opts.Retries).
			Msg("Fetch attempt failed")

		if attempt < f.opts.Retries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(f.opts.RetryDelay):
			}
		}
	}
	return nil, fmt.Errorf("fetch %s: %w", src.XMLURL, lastErr)
}

func (f *Fetcher) download(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if f.opts.UserAgent != "" {
		req.Header.Set("User-Agent", f.opts.UserAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}
	return feed, nil
}

// articlesFrom converts the entries published inside the window. Entries
// without a usable date or link are skipped.
func (f *Fetcher) articlesFrom(feed *gofeed.Feed, src Source, window core.TimeWindow) []core.Article {
	var articles []core.Article
	for _, item := range feed.Items {
		published := itemTime(item)
		if published == nil || !window.Contains(*published) {
			continue
		}
		link := strings.TrimSpace(item.Link)
		if link == "" {
			continue
		}

		summary := CleanText(item.Description)
		content := CleanText(item.Content)
		if content == "" {
			content = summary
		}

		title := strings.TrimSpace(item.Title)
		if title == "" {
			title = "Untitled"
		}

		articles = append(articles, core.Article{
			Title:     title,
			Link:      link,
			Source:    src.Title,
			SourceURL: feed.Link,
			Summary:   summary,
			Content:   truncateRunes(content, f.opts.MaxContentChars),
			Published: published.In(window.End.Location()),
			WordCount: len([]rune(content)),
		})
	}
	return articles
}

func itemTime(item *gofeed.Item) *time.Time {
	if item.PublishedParsed != nil {
		return item.PublishedParsed
	}
	return item.UpdatedParsed
}

// Window returns the fetch window ending at end and spanning hours.
func Window(end time.Time, hours int) core.TimeWindow {
	return core.TimeWindow{
		Start: end.Add(-time.Duration(hours) * time.Hour),
		End:   end,
	}
}
