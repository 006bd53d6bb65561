package leaderduty

import (
	"fmt"
	"log/slog"
	"sort"
)

// JobAssigner matches queued jobs to active nodes respecting weight,
// version, and priority ordering (C10, spec §4.4).
type JobAssigner struct {
	Group string
	Clock Clock
	Nodes NodeRegistry
	Jobs  JobStore
	State *LeaderState
	Config LeaderConfig
}

// AssignQueuedJobs is leader-only. Processes the queued set in
// (priority asc, jobId asc) order; each job either lands on the
// eligible node with the greatest remaining capacity or stays queued.
// Partial assignment is allowed — this is not all-or-nothing.
func (a *JobAssigner) AssignQueuedJobs() error {
	if !a.State.IsLeader() {
		return nil
	}

	allNodes, err := a.Nodes.GetAllNodes()
	if err != nil {
		return &StoreUnavailable{Op: "GetAllNodes", Err: err}
	}

	var nodes []Node
	for _, n := range allNodes {
		if n.Group == a.Group {
			nodes = append(nodes, n)
		}
	}

	queued := a.State.Queued()
	if len(queued) == 0 || len(nodes) == 0 {
		return nil
	}
	sort.Slice(queued, func(i, j int) bool {
		if queued[i].Priority != queued[j].Priority {
			return queued[i].Priority < queued[j].Priority
		}
		return queued[i].JobId < queued[j].JobId
	})

	running := a.State.Running()
	remaining := make(map[string]int, len(nodes))
	for _, n := range nodes {
		budget := a.Config.MaxWeightPerNode
		for _, r := range running {
			if r.AssignedNodeId == n.NodeId {
				budget -= r.Weight
			}
		}
		remaining[n.NodeId] = budget
	}

	now := a.Clock.Now()

	for _, q := range queued {
		node, ok := pickEligibleNode(nodes, remaining, q)
		if !ok {
			continue // no eligible node: leave q queued, try the next job
		}

		r, err := a.Jobs.MoveQueuedToRunning(q, node.NodeId, now)
		if err != nil {
			return &StoreUnavailable{Op: "MoveQueuedToRunning", Err: err}
		}

		a.State.moveQueuedToRunning(q.JobId, r)
		remaining[node.NodeId] -= q.Weight

		slog.Info(fmt.Sprintf("assigned job `%s` (lock `%s`) to node `%s`", q.JobId, q.Lock, node.NodeId))
	}

	return nil
}

// pickEligibleNode returns the eligible node with the greatest
// remaining capacity, tie-broken by nodeId ascending.
func pickEligibleNode(nodes []Node, remaining map[string]int, q QueuedJob) (Node, bool) {
	var best Node
	found := false

	for _, n := range nodes {
		if !n.Active {
			continue
		}
		if remaining[n.NodeId] < q.Weight {
			continue
		}
		if !q.EligibleVersion(n.Version) {
			continue
		}
		if !found || remaining[n.NodeId] > remaining[best.NodeId] ||
			(remaining[n.NodeId] == remaining[best.NodeId] && n.NodeId < best.NodeId) {
			best = n
			found = true
		}
	}

	return best, found
}
