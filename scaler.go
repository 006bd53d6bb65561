package leaderduty

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ScaleController drives CloudManager through a hysteretic
// autoscaling control loop with cool-down and evaluation windows
// (C12, spec §4.6). Leader-only, like every other duty: its timers are
// per-node in-memory state, so a follower running this loop would
// issue its own independent ScaleUp/ScaleDown calls alongside the
// leader's. Its three timers are single-writer, joint state — they
// are updated together under one mutex rather than as independent
// atomics (spec §9 design note).
type ScaleController struct {
	Group string
	Clock Clock
	Config ScaleConfig
	Nodes NodeRegistry
	Cloud CloudManager
	State *LeaderState

	mu                    sync.Mutex
	lastScaleActivity     time.Time // zero value = no scale activity yet: no cool-down on first call
	scaleUpNeededSince    *time.Time
	scaleDownNeededSince  *time.Time
}

// ScaleCluster evaluates utilisation = (W/C)*100 against the
// configured thresholds and advances the up/down pending-since
// timers. Cool-down dominates any signal.
func (s *ScaleController) ScaleCluster(queuedAndRunningWeight float64, activeNodesCapacity float64) error {
	if !s.State.IsLeader() {
		return nil
	}

	now := s.Clock.Now()

	s.mu.Lock()
	if !s.lastScaleActivity.IsZero() && now.Sub(s.lastScaleActivity) < s.Config.CoolDownPeriod {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	util := (queuedAndRunningWeight / activeNodesCapacity) * 100

	switch {
	case util > float64(s.Config.ScaleUpThreshold):
		s.clearScaleDownNeededSince()
		return s.scaleUpIfDue(now)
	case util < float64(s.Config.ScaleDownThreshold):
		s.clearScaleUpNeededSince()
		return s.scaleDownIfDue(now)
	default:
		s.clearScaleUpNeededSince()
		s.clearScaleDownNeededSince()
		return nil
	}
}

func (s *ScaleController) clearScaleUpNeededSince() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scaleUpNeededSince = nil
}

func (s *ScaleController) clearScaleDownNeededSince() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scaleDownNeededSince = nil
}

// scaleUpIfDue starts the sustained-demand window on first breach,
// and once it has persisted for >= EvaluationPeriod, requests new
// nodes from CloudManager up to MaxNodes.
func (s *ScaleController) scaleUpIfDue(now time.Time) error {
	s.mu.Lock()
	since := s.scaleUpNeededSince
	if since == nil {
		s.scaleUpNeededSince = &now
		s.mu.Unlock()
		return nil
	}
	elapsed := now.Sub(*since) >= s.Config.EvaluationPeriod
	s.mu.Unlock()

	if !elapsed {
		return nil
	}

	k, err := s.Nodes.GetAllActiveNodesCountByGroup(s.Group)
	if err != nil {
		return &StoreUnavailable{Op: "GetAllActiveNodesCountByGroup", Err: err}
	}
	if k >= s.Config.MaxNodes {
		// Ceiling is a resource fact, not a signal change: leave the
		// timer running.
		return nil
	}

	n := min(s.Config.ScaleUpStep, s.Config.MaxNodes-k)
	if err := s.Cloud.ScaleUp(n); err != nil {
		// Treat as no-op for this tick; do not clear the pending
		// timer so the decision re-fires once the cloud recovers.
		return &CloudUnavailable{Op: "ScaleUp", Err: err}
	}

	s.mu.Lock()
	s.lastScaleActivity = now
	s.scaleUpNeededSince = nil
	s.mu.Unlock()

	slog.Info(fmt.Sprintf("scale up: requested %d node(s) for group `%s`", n, s.Group))
	return nil
}

// scaleDownIfDue mirrors scaleUpIfDue with MinNodes as the floor.
// Drain is two-phase: nodes are only marked inactive here; physical
// removal happens via CleanInactiveNodes once they are idle.
func (s *ScaleController) scaleDownIfDue(now time.Time) error {
	s.mu.Lock()
	since := s.scaleDownNeededSince
	if since == nil {
		s.scaleDownNeededSince = &now
		s.mu.Unlock()
		return nil
	}
	elapsed := now.Sub(*since) >= s.Config.EvaluationPeriod
	s.mu.Unlock()

	if !elapsed {
		return nil
	}

	k, err := s.Nodes.GetAllActiveNodesCountByGroup(s.Group)
	if err != nil {
		return &StoreUnavailable{Op: "GetAllActiveNodesCountByGroup", Err: err}
	}
	if k <= s.Config.MinNodes {
		return nil
	}

	count := min(s.Config.ScaleDownStep, k-s.Config.MinNodes)
	youngest, err := s.Nodes.GetYoungestActiveNodesByGroup(s.Group, count)
	if err != nil {
		return &StoreUnavailable{Op: "GetYoungestActiveNodesByGroup", Err: err}
	}

	for _, node := range youngest {
		if err := s.Nodes.UpdateNodeStatus(node.NodeId, false); err != nil {
			return &StoreUnavailable{Op: "UpdateNodeStatus", Err: err}
		}
		slog.Info(fmt.Sprintf("scale down: marked node `%s` inactive in group `%s`", node.NodeId, s.Group))
	}

	s.mu.Lock()
	s.lastScaleActivity = now
	s.scaleDownNeededSince = nil
	s.mu.Unlock()

	return nil
}

// CleanInactiveNodes physically removes inactive nodes that are no
// longer executing a job. currentNodesRunningJobs is the set of node
// ids still holding at least one running job.
func (s *ScaleController) CleanInactiveNodes(currentNodesRunningJobs map[string]bool) error {
	if !s.State.IsLeader() {
		return nil
	}

	inactive, err := s.Nodes.GetAllInactiveNodesByGroup(s.Group)
	if err != nil {
		return &StoreUnavailable{Op: "GetAllInactiveNodesByGroup", Err: err}
	}

	var idle []string
	for _, n := range inactive {
		if !currentNodesRunningJobs[n.NodeId] {
			idle = append(idle, n.NodeId)
		}
	}
	if len(idle) == 0 {
		return nil
	}

	if err := s.Cloud.ScaleDown(idle); err != nil {
		return &CloudUnavailable{Op: "ScaleDown", Err: err}
	}

	slog.Info(fmt.Sprintf("removed %d idle inactive node(s) from group `%s`", len(idle), s.Group))
	return nil
}
