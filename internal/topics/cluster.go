package topics

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"topicmon/internal/core"
)

// ErrMalformedGrouping reports a grouping that cannot be applied to the instances.
var ErrMalformedGrouping = errors.New("malformed topic grouping")

// Grouper proposes semantic groups for a list of topic labels.
type Grouper interface {
	Group(ctx context.Context, labels []string) ([]core.ProposedGroup, error)
}

// Mode tells which assignment path produced an Outcome.
type Mode int

const (
	// Grouped means the proposed groups were applied.
	Grouped Mode = iota
	// Degraded means every raw label became its own cluster.
	Degraded
)

func (m Mode) String() string {
	switch m {
	case Grouped:
		return "grouped"
	case Degraded:
		return "degraded"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Outcome is the result of clustering. Both modes produce the same cluster shape;
// Cause holds the grouping error when Mode is Degraded.
type Outcome struct {
	Mode     Mode
	Clusters []core.TopicCluster
	Cause    error
}

// ValidateGroups rejects groupings that cannot be applied.
func ValidateGroups(groups []core.ProposedGroup) error {
	if len(groups) == 0 {
		return fmt.Errorf("%w: no groups returned", ErrMalformedGrouping)
	}
	for i, g := range groups {
		if g.CanonicalName == "" {
			return fmt.Errorf("%w: group %d has no canonical name", ErrMalformedGrouping, i)
		}
	}
	return nil
}

// Cluster asks the grouper for semantic groups over the distinct labels and
// assigns articles to them. Any grouping failure falls back to AssignDegraded.
func Cluster(ctx context.Context, instances []Instance, grouper Grouper, defaultCategory string, logger zerolog.Logger) Outcome {
	if len(instances) == 0 {
		return Outcome{Mode: Grouped}
	}

	labels := UniqueLabels(instances)
	logger.Info().
		Int("instances", len(instances)).
		Int("labels", len(labels)).
		Msg("Clustering topic labels")

	groups, err := grouper.Group(ctx, labels)
	if err == nil {
		err = ValidateGroups(groups)
	}
	if err == nil {
		clusters := AssignGrouped(instances, groups, defaultCategory)
		if len(clusters) > 0 {
			return Outcome{Mode: Grouped, Clusters: clusters}
		}
		// A grouping that matches no label degrades rather than aborting
		// the run with no clusters.
		err = fmt.Errorf("%w: none of %d groups matched an extracted topic", ErrMalformedGrouping, len(groups))
	}

	logger.Error().
		Err(err).
		Str("fallback", Degraded.String()).
		Msg("Topic grouping failed, clustering one topic per label")

	return Outcome{
		Mode:     Degraded,
		Clusters: AssignDegraded(instances, defaultCategory),
		Cause:    err,
	}
}
