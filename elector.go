package leaderduty

import (
	"fmt"
	"log/slog"
	"sort"
)

// LeaderElector periodically recomputes whether this node should hold
// leadership for its group (C7, spec §4.1).
type LeaderElector struct {
	NodeId  string
	Group   string
	Clock   Clock
	Config  LeaderConfig
	Nodes   NodeRegistry
	Jobs    JobStore
	Sched   ScheduleSource
	State   *LeaderState
}

// ElectClusterLeader recomputes this node's leader flag. A false->true
// transition synchronously refreshes LeaderState from the store; a
// true->false transition atomically clears it. Both must be
// observable as a single step to callers reading LeaderState.
func (e *LeaderElector) ElectClusterLeader() error {
	nodes, err := e.Nodes.GetAllNodes()
	if err != nil {
		return &StoreUnavailable{Op: "GetAllNodes", Err: err}
	}

	var candidates []Node
	for _, n := range nodes {
		if n.Group == e.Group && n.Active {
			candidates = append(candidates, n)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if !candidates[i].JoinTime.Equal(candidates[j].JoinTime) {
			return candidates[i].JoinTime.Before(candidates[j].JoinTime)
		}
		return candidates[i].NodeId < candidates[j].NodeId
	})

	now := e.Clock.Now()
	wasLeader := e.State.IsLeader()
	isLeader := false

	if len(candidates) > 0 {
		head := candidates[0]
		if head.Age(now) >= e.Config.YoungestLeaderAge {
			isLeader = head.NodeId == e.NodeId
		}
	}

	switch {
	case isLeader && !wasLeader:
		if err := e.becomeLeader(); err != nil {
			return err
		}
		slog.Info(fmt.Sprintf("node `%s` became leader of group `%s`", e.NodeId, e.Group))
	case !isLeader && wasLeader:
		e.State.loseLeader()
		slog.Info(fmt.Sprintf("node `%s` lost leadership of group `%s`", e.NodeId, e.Group))
	}

	return nil
}

func (e *LeaderElector) becomeLeader() error {
	schedule, err := e.Sched.GetJobsSchedule()
	if err != nil {
		return &StoreUnavailable{Op: "GetJobsSchedule", Err: err}
	}
	queued, err := e.Jobs.GetQueuedJobs()
	if err != nil {
		return &StoreUnavailable{Op: "GetQueuedJobs", Err: err}
	}
	running, err := e.Jobs.GetRunningJobs()
	if err != nil {
		return &StoreUnavailable{Op: "GetRunningJobs", Err: err}
	}

	e.State.becomeLeader(schedule, queued, running)
	return nil
}
