package leaderduty

// ScheduleRefresher periodically pulls the declared schedule from
// ScheduleSource into LeaderState (C8, spec §4.2).
type ScheduleRefresher struct {
	Sched ScheduleSource
	State *LeaderState
}

// RefreshJobsSchedule replaces LeaderState's schedule mirror with the
// full current snapshot from ScheduleSource. If ignoreLeader is false
// and this node is not leader, it is a no-op — but ignoreLeader lets
// any node warm its schedule cache ahead of possibly becoming leader.
func (r *ScheduleRefresher) RefreshJobsSchedule(ignoreLeader bool) error {
	if !ignoreLeader && !r.State.IsLeader() {
		return nil
	}

	schedule, err := r.Sched.GetJobsSchedule()
	if err != nil {
		return &StoreUnavailable{Op: "GetJobsSchedule", Err: err}
	}

	r.State.replaceSchedule(schedule)
	return nil
}
