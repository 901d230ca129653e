// Package heat scores, ranks and selects topic clusters.
package heat

import (
	"math"
	"sort"

	"topicmon/internal/core"
)

const (
	// MentionCap is the mention count at which the mention score saturates.
	MentionCap = 10.0
	// MentionPoints is the maximum contribution of mentions.
	MentionPoints = 60.0
	// DepthPoints is the contribution of an average depth of 1.0.
	DepthPoints = 30.0
	// CategoryPoints is the contribution of a category weight of 1.0.
	CategoryPoints = 10.0
)

// WeightFunc returns the priority weight of a category.
type WeightFunc func(category string) float64

// Breakdown splits a heat score into its three parts.
type Breakdown struct {
	Mentions float64
	Depth    float64
	Category float64
}

// Total returns the unrounded sum of the parts.
func (b Breakdown) Total() float64 {
	return b.Mentions + b.Depth + b.Category
}

// Compute returns the score components for the given inputs.
func Compute(totalMentions int, avgDepth, categoryWeight float64) Breakdown {
	return Breakdown{
		Mentions: math.Min(float64(totalMentions)/MentionCap*MentionPoints, MentionPoints),
		Depth:    avgDepth * DepthPoints,
		Category: categoryWeight * CategoryPoints,
	}
}

// Score returns the heat score rounded to one decimal place. Inputs with
// avgDepth and categoryWeight in [0,1] produce a score in [0,100].
func Score(totalMentions int, avgDepth, categoryWeight float64) float64 {
	return round1(Compute(totalMentions, avgDepth, categoryWeight).Total())
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Scorer applies Score to clusters using a category weight lookup.
type Scorer struct {
	weight WeightFunc
}

// NewScorer creates a scorer backed by the given weight lookup
func NewScorer(weight WeightFunc) *Scorer {
	return &Scorer{weight: weight}
}

// ScoreCluster computes the heat score of one cluster.
func (s *Scorer) ScoreCluster(c core.TopicCluster) float64 {
	return Score(c.TotalMentions, c.AvgDepth, s.weight(c.Category))
}

// Rank returns scored copies of the clusters sorted by heat descending, with
// ties kept in input order, and 1-based ranks assigned. The input is not modified.
func (s *Scorer) Rank(clusters []core.TopicCluster) []core.TopicCluster {
	ranked := make([]core.TopicCluster, len(clusters))
	copy(ranked, clusters)

	for i := range ranked {
		ranked[i].HeatScore = s.ScoreCluster(ranked[i])
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].HeatScore > ranked[j].HeatScore
	})

	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

// TopN returns the first n ranked clusters, clamped to the available count.
func TopN(ranked []core.TopicCluster, n int) []core.TopicCluster {
	if n < 0 {
		n = 0
	}
	if n > len(ranked) {
		n = len(ranked)
	}
	return ranked[:n]
}
