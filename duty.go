package leaderduty

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ScaleInputs is queried by the Supervisor just before each scale
// tick to obtain the current queued+running weight and active-node
// capacity the ScaleController needs (spec §4.6 precondition C > 0).
type ScaleInputs interface {
	CurrentWeights() (queuedAndRunning float64, activeCapacity float64, err error)
	CurrentNodesRunningJobs() (map[string]bool, error)
}

// DutyIntervals configures how often each periodic duty runs. A
// single logical executor per node suffices (spec §5); Supervisor
// runs every duty from one goroutine so LeaderState mutations are
// always serial.
type DutyIntervals struct {
	Election        time.Duration
	ScheduleRefresh time.Duration
	Queue           time.Duration
	Assign          time.Duration
	Recover         time.Duration
	Scale           time.Duration
}

// Supervisor is the periodic timer described in spec §2 that fires
// each duty on the local node. Every duty first consults LeaderState;
// non-leader invocations are no-ops for leader-only duties.
type Supervisor struct {
	Intervals DutyIntervals

	Elector   *LeaderElector
	Refresher *ScheduleRefresher
	Queuer    *JobQueuer
	Assigner  *JobAssigner
	Recoverer *DeadNodeRecoverer
	Scaler    *ScaleController
	Inputs    ScaleInputs
}

// Run drives all duties until ctx is cancelled. ctx is checked
// between ticks and again before each duty starts, so no new duty
// begins after cancellation. The duties themselves take no ctx: a
// duty that has already started runs to completion, including its
// store and cloud calls, before Run observes the cancellation.
func (s *Supervisor) Run(ctx context.Context) {
	election := time.NewTicker(s.Intervals.Election)
	scheduleRefresh := time.NewTicker(s.Intervals.ScheduleRefresh)
	queue := time.NewTicker(s.Intervals.Queue)
	assign := time.NewTicker(s.Intervals.Assign)
	recoverTick := time.NewTicker(s.Intervals.Recover)
	scale := time.NewTicker(s.Intervals.Scale)
	defer election.Stop()
	defer scheduleRefresh.Stop()
	defer queue.Stop()
	defer assign.Stop()
	defer recoverTick.Stop()
	defer scale.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("supervisor stopping")
			return
		case <-election.C:
			s.runDuty(ctx, "election", s.Elector.ElectClusterLeader)
		case <-scheduleRefresh.C:
			s.runDuty(ctx, "schedule_refresh", func() error {
				return s.Refresher.RefreshJobsSchedule(false)
			})
		case <-queue.C:
			s.runDuty(ctx, "queue", s.Queuer.QueueScheduledJobs)
		case <-assign.C:
			s.runDuty(ctx, "assign", s.Assigner.AssignQueuedJobs)
		case <-recoverTick.C:
			s.runDuty(ctx, "recover", s.Recoverer.CleanDeadNodesJobs)
		case <-scale.C:
			s.runDuty(ctx, "scale", s.runScale)
		}
	}
}

func (s *Supervisor) runScale() error {
	w, c, err := s.Inputs.CurrentWeights()
	if err != nil {
		return &StoreUnavailable{Op: "CurrentWeights", Err: err}
	}
	if c > 0 {
		if err := s.Scaler.ScaleCluster(w, c); err != nil {
			return err
		}
	}

	running, err := s.Inputs.CurrentNodesRunningJobs()
	if err != nil {
		return &StoreUnavailable{Op: "CurrentNodesRunningJobs", Err: err}
	}
	return s.Scaler.CleanInactiveNodes(running)
}

// runDuty surfaces errors to the operator via slog rather than
// crashing the loop, except InvariantViolation which is fatal
// in-process (spec §7): the leader duty stops and re-election follows
// when this node restarts.
func (s *Supervisor) runDuty(ctx context.Context, name string, fn func() error) {
	if ctx.Err() != nil {
		return
	}

	if err := fn(); err != nil {
		var inv *InvariantViolation
		if errors.As(err, &inv) {
			slog.Error(fmt.Sprintf("duty `%s` invariant violation: %s - stopping leader duty", name, inv))
			panic(inv)
		}
		slog.Error(fmt.Sprintf("duty `%s` error: %s", name, err))
	}
}
