package leaderduty

import (
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// DeadNodeRecoverer detects jobs running on absent/inactive nodes and
// requeues or finalizes them (C11, spec §4.5).
type DeadNodeRecoverer struct {
	Group string
	Clock Clock
	Nodes NodeRegistry
	Jobs  JobStore
	State *LeaderState
}

// CleanDeadNodesJobs is leader-only. It takes a single snapshot of
// NodeRegistry for this group and does not re-read it between jobs
// (determinism, spec §4.5).
func (d *DeadNodeRecoverer) CleanDeadNodesJobs() error {
	if !d.State.IsLeader() {
		return nil
	}

	allNodes, err := d.Nodes.GetAllNodes()
	if err != nil {
		return &StoreUnavailable{Op: "GetAllNodes", Err: err}
	}

	alive := make(map[string]bool)
	for _, n := range allNodes {
		if n.Group == d.Group && n.Active {
			alive[n.NodeId] = true
		}
	}

	now := d.Clock.Now()

	var dead []RunningJob
	for _, r := range d.State.Running() {
		if !alive[r.AssignedNodeId] {
			dead = append(dead, r)
		}
	}
	if len(dead) == 0 {
		return nil
	}

	// Each dead job's requeue/finalize is independent of the others:
	// distinct store keys, and LeaderState's mirror updates already
	// take their own lock per call. Fan them out instead of walking
	// them one at a time.
	var eg errgroup.Group
	for _, r := range dead {
		r := r
		eg.Go(func() error { return d.recoverOne(r, now) })
	}
	return eg.Wait()
}

func (d *DeadNodeRecoverer) recoverOne(r RunningJob, now time.Time) error {
	if r.Attempts < r.MaxAttempts {
		q, err := d.Jobs.MoveRunningToQueued(r)
		if err != nil {
			return &StoreUnavailable{Op: "MoveRunningToQueued", Err: err}
		}
		d.State.moveRunningToQueued(r.JobId, q)

		slog.Info(fmt.Sprintf("requeued job `%s` from dead node `%s` (attempt %d/%d)", r.JobId, r.AssignedNodeId, r.Attempts, r.MaxAttempts))
		return nil
	}

	message := fmt.Sprintf("%s is dead and max attempts has been reached", r.AssignedNodeId)
	if _, err := d.Jobs.MoveRunningToFinished(r, Failure, message, now); err != nil {
		return &StoreUnavailable{Op: "MoveRunningToFinished", Err: err}
	}
	d.State.removeRunningJob(r.JobId)

	slog.Warn(fmt.Sprintf("job `%s` finished failed: %s", r.JobId, message))
	return nil
}
