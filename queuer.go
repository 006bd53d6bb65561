package leaderduty

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gorhill/cronexpr"
)

// nextFireTimesSince returns a lazy ascending sequence of firing
// times for cron, as a generator: each call returns the next fire
// strictly after the previous one returned (or after t0 on the first
// call). Returns the zero time once cronexpr can no longer produce a
// next firing (spec §9 design note).
func nextFireTimesSince(cron string, t0 time.Time) (func() time.Time, error) {
	expr, err := cronexpr.Parse(cron)
	if err != nil {
		return nil, err
	}

	cursor := t0
	return func() time.Time {
		next := expr.Next(cursor)
		cursor = next
		return next
	}, nil
}

// dueNow reports whether s has a firing t with t <= now and
// now-t <= s.Schedule.MaxJobAge. Late firings beyond MaxJobAge are
// skipped, not backfilled (spec §4.3, §9 OQ2).
func dueNow(s ScheduledJob, now time.Time) (bool, time.Time, error) {
	lowerBound := now.Add(-s.Schedule.MaxJobAge).Add(-time.Nanosecond)

	next, err := nextFireTimesSince(s.Schedule.Cron, lowerBound)
	if err != nil {
		return false, time.Time{}, fmt.Errorf("job `%s` cron `%s` error: %w", s.JobId, s.Schedule.Cron, err)
	}

	t := next()
	if t.IsZero() || t.After(now) {
		return false, time.Time{}, nil
	}
	return true, t, nil
}

// JobQueuer turns due schedule entries into QueuedJob records (C9,
// spec §4.3).
type JobQueuer struct {
	Clock Clock
	Jobs  JobStore
	State *LeaderState
}

// QueueScheduledJobs is leader-only. For each ScheduledJob in the
// current mirror: skip if its lock is already queued or running
// (invariants 1+4); otherwise, if due, persist a fresh QueuedJob and
// mirror it. Persistence always precedes the mirror update.
func (q *JobQueuer) QueueScheduledJobs() error {
	if !q.State.IsLeader() {
		return nil
	}

	now := q.Clock.Now()

	for _, s := range q.State.Schedule() {
		if q.State.hasLock(s.Lock) {
			continue
		}

		due, _, err := dueNow(s, now)
		if err != nil {
			slog.Error(fmt.Sprintf("queue scheduled job `%s` error: %s", s.JobId, err))
			continue
		}
		if !due {
			continue
		}

		qj := s.ToQueuedJob(now)
		if err := q.Jobs.CreateQueuedJob(qj); err != nil {
			return &StoreUnavailable{Op: "CreateQueuedJob", Err: err}
		}
		q.State.insertQueued(qj)

		slog.Info(fmt.Sprintf("queued job `%s` (lock `%s`) at `%s`", qj.JobId, qj.Lock, now))
	}

	return nil
}
