package pipeline

import (
	"fmt"

	"topicmon/internal/topics"
)

// GateResult is the decision taken between two stages
type GateResult struct {
	Abort   bool
	Reason  string // why the run stops
	Warning string // logged when the run continues
}

// FetchGate stops a run without articles and warns on low volume.
func FetchGate(articles, minArticles int) GateResult {
	if articles == 0 {
		return GateResult{Abort: true, Reason: "no articles fetched in the time window"}
	}
	if articles < minArticles {
		return GateResult{Warning: fmt.Sprintf("only %d articles fetched, below the threshold of %d", articles, minArticles)}
	}
	return GateResult{}
}

// ClusterGate stops a run whose assignment produced no non-empty cluster.
func ClusterGate(outcome topics.Outcome, instances int) GateResult {
	if len(outcome.Clusters) > 0 {
		return GateResult{}
	}
	if instances == 0 {
		return GateResult{Abort: true, Reason: "no topics were extracted from any article"}
	}
	return GateResult{Abort: true, Reason: fmt.Sprintf("%s clustering produced no clusters", outcome.Mode)}
}
