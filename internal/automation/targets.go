package automation

import (
	"context"
	"fmt"

	"linkedboost/internal/domain"
)

var simulatedTargetCounts = map[domain.TargetType]int{
	domain.TargetNewConnections: 10,
	domain.TargetAllNetwork:     20,
	domain.TargetSpecificList:   5,
	domain.TargetIndustry:       15,
	domain.TargetCustomSearch:   8,
}

var simulatedTargetPrefixes = map[domain.TargetType]string{
	domain.TargetNewConnections: "new_conn",
	domain.TargetAllNetwork:     "network",
	domain.TargetSpecificList:   "list",
	domain.TargetIndustry:       "industry",
	domain.TargetCustomSearch:   "search",
}

// SimulatedTargets resolves target descriptors to fixed-size simulated
// audiences. A real deployment would query LinkedIn search behind the same
// interface.
type SimulatedTargets struct{}

func (SimulatedTargets) Targets(ctx context.Context, target domain.AutomationTarget) ([]Target, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n, ok := simulatedTargetCounts[target.Type]
	if !ok {
		return []Target{}, nil
	}
	prefix := simulatedTargetPrefixes[target.Type]
	targets := make([]Target, n)
	for i := range targets {
		targets[i] = Target{ID: fmt.Sprintf("%s_%d", prefix, i), Type: "connection"}
	}
	return targets, nil
}

func (SimulatedTargets) RecentPosts(ctx context.Context, targetID string) ([]Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []Post{
		{ID: fmt.Sprintf("post_%s_1", targetID), Content: "Post 1"},
		{ID: fmt.Sprintf("post_%s_2", targetID), Content: "Post 2"},
	}, nil
}
