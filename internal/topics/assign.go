package topics

import (
	"topicmon/internal/core"
)

// claimSet records which article links already belong to a cluster.
type claimSet map[string]struct{}

func (c claimSet) claimed(link string) bool {
	_, ok := c[link]
	return ok
}

func (c claimSet) claim(link string) {
	c[link] = struct{}{}
}

// AssignGrouped partitions instances into the proposed groups. Groups are
// processed in the order given and an article goes to the first group that
// reaches it; groups left without articles are dropped.
func AssignGrouped(instances []Instance, groups []core.ProposedGroup, defaultCategory string) []core.TopicCluster {
	claims := make(claimSet)
	var clusters []core.TopicCluster

	for _, group := range groups {
		cluster, ok := assignGroup(instances, group, claims, defaultCategory)
		if !ok {
			continue
		}
		clusters = append(clusters, cluster)
	}
	return clusters
}

// assignGroup collects the unclaimed instances whose label belongs to group,
// claiming each article it takes.
func assignGroup(instances []Instance, group core.ProposedGroup, claims claimSet, defaultCategory string) (core.TopicCluster, bool) {
	members := make(map[string]struct{}, len(group.MergedTopics))
	for _, label := range group.MergedTopics {
		members[label] = struct{}{}
	}

	var articles []core.ClusterArticle
	for _, inst := range instances {
		if _, ok := members[inst.Label]; !ok {
			continue
		}
		if claims.claimed(inst.Link()) {
			continue
		}
		articles = append(articles, inst.snapshot())
		claims.claim(inst.Link())
	}

	if len(articles) == 0 {
		return core.TopicCluster{}, false
	}

	category := group.Category
	if category == "" {
		category = defaultCategory
	}
	return newCluster(group.CanonicalName, category, articles), true
}

// AssignDegraded builds one cluster per raw topic label. Each article stays
// with the first label it was seen with; clusters keep first-seen label order.
func AssignDegraded(instances []Instance, defaultCategory string) []core.TopicCluster {
	assigned := make(map[string]string) // article link -> label
	index := make(map[string]int)       // label -> position in order
	var order []string
	var buckets [][]core.ClusterArticle
	var categories []string

	for _, inst := range instances {
		if _, ok := assigned[inst.Link()]; ok {
			continue
		}
		assigned[inst.Link()] = inst.Label

		pos, ok := index[inst.Label]
		if !ok {
			pos = len(order)
			index[inst.Label] = pos
			order = append(order, inst.Label)
			buckets = append(buckets, nil)

			category := inst.Category
			if category == "" {
				category = defaultCategory
			}
			categories = append(categories, category)
		}
		buckets[pos] = append(buckets[pos], inst.snapshot())
	}

	clusters := make([]core.TopicCluster, 0, len(order))
	for i, label := range order {
		clusters = append(clusters, newCluster(label, categories[i], buckets[i]))
	}
	return clusters
}

func newCluster(name, category string, articles []core.ClusterArticle) core.TopicCluster {
	return core.TopicCluster{
		CanonicalName: name,
		Category:      category,
		Articles:      articles,
		TotalMentions: len(articles),
		AvgDepth:      averageDepth(articles),
	}
}

func averageDepth(articles []core.ClusterArticle) float64 {
	if len(articles) == 0 {
		return DefaultDepth
	}
	var sum float64
	for _, a := range articles {
		sum += a.Depth
	}
	return sum / float64(len(articles))
}
