// Package leaderduty implements the leader-only control loops of a
// distributed job-scheduling cluster: leader election by node age,
// turning a cron schedule into queued jobs, assigning queued jobs to
// active nodes under weight and version constraints, recovering jobs
// whose owner node has died, and a hysteretic autoscaler.
//
// Every duty in this package is a no-op on a node that does not
// currently hold leadership for its group, except LeaderElector, which
// runs on every node to decide leadership, and ScheduleRefresher,
// which can be told to ignore leadership so any node may warm its
// schedule cache.
package leaderduty
