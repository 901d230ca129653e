// Package topics turns annotated articles into mutually exclusive topic clusters.
package topics

import (
	"topicmon/internal/core"
)

// DefaultDepth is assumed for a topic the extractor did not give a depth for.
const DefaultDepth = 0.5

// Instance is one (topic label, article, depth) tuple before clustering.
// Article is a read-only reference into the caller's article slice.
type Instance struct {
	Label    string
	Depth    float64
	Category string
	Article  *core.Article
}

// Link returns the identity of the referenced article.
func (i Instance) Link() string {
	return i.Article.Link
}

// snapshot copies the article fields a cluster carries.
func (i Instance) snapshot() core.ClusterArticle {
	return core.ClusterArticle{
		Title:     i.Article.Title,
		Link:      i.Article.Link,
		Source:    i.Article.Source,
		Summary:   i.Article.Summary,
		Content:   i.Article.Content,
		Depth:     i.Depth,
		Published: i.Article.Published,
		Category:  i.Category,
	}
}

// ExtractInstances returns one instance per non-empty label in the article's
// main topics, in annotation order.
func ExtractInstances(a *core.AnnotatedArticle) []Instance {
	var instances []Instance
	for _, label := range a.Annotation.MainTopics {
		if label == "" {
			continue
		}
		depth, ok := a.Annotation.DiscussionDepth[label]
		if !ok {
			depth = DefaultDepth
		}
		instances = append(instances, Instance{
			Label:    label,
			Depth:    depth,
			Category: a.Annotation.Category,
			Article:  &a.Article,
		})
	}
	return instances
}

// ExtractAll flattens every article's instances, article order first and
// topic order within an article second.
func ExtractAll(articles []core.AnnotatedArticle) []Instance {
	var instances []Instance
	for i := range articles {
		instances = append(instances, ExtractInstances(&articles[i])...)
	}
	return instances
}

// UniqueLabels returns the distinct labels in first-seen order.
func UniqueLabels(instances []Instance) []string {
	seen := make(map[string]struct{}, len(instances))
	var labels []string
	for _, inst := range instances {
		if _, ok := seen[inst.Label]; ok {
			continue
		}
		seen[inst.Label] = struct{}{}
		labels = append(labels, inst.Label)
	}
	return labels
}

// ClampDepth bounds a depth score to [0,1].
func ClampDepth(d float64) float64 {
	switch {
	case d < 0:
		return 0
	case d > 1:
		return 1
	default:
		return d
	}
}
