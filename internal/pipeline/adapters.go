package pipeline

import (
	"context"
	"fmt"

	"topicmon/internal/core"
	"topicmon/internal/feeds"
)

// FeedAdapter wraps internal/feeds to implement ArticleSource. The OPML list
// is read on every fetch so edits apply to a running daemon.
type FeedAdapter struct {
	fetcher  *feeds.Fetcher
	opmlPath string
}

func NewFeedAdapter(fetcher *feeds.Fetcher, opmlPath string) *FeedAdapter {
	return &FeedAdapter{
		fetcher:  fetcher,
		opmlPath: opmlPath,
	}
}

func (a *FeedAdapter) Fetch(ctx context.Context, window core.TimeWindow) (*FetchResult, error) {
	sources, err := feeds.LoadOPML(a.opmlPath)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no RSS sources in %s", a.opmlPath)
	}

	result, err := a.fetcher.FetchAll(ctx, sources, window)
	if err != nil {
		return nil, err
	}

	return &FetchResult{
		Articles: result.Articles,
		Sources:  result.Sources,
		Healthy:  result.Succeeded,
	}, nil
}
