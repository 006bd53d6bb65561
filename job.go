package leaderduty

import (
	"time"

	"github.com/google/uuid"
)

// Result is the terminal outcome of a FinishedJob.
type Result string

const (
	Success Result = "success"
	Failure Result = "failure"
)

// Schedule pairs a cron expression with the maximum staleness a
// firing may have before it is skipped instead of backfilled (§3, §9).
type Schedule struct {
	Cron      string
	MaxJobAge time.Duration
}

// ScheduledJob is the eternal, declarative definition pulled from
// ScheduleSource (C4). Lock serializes instances of the same
// scheduled job: at most one of {queued, running} per lock at a time.
type ScheduledJob struct {
	JobId           string
	Lock            string
	JobType         string
	Weight          int
	Data            map[string]any
	Schedule        Schedule
	MaxAttempts     int
	Priority        int
	VersionRequired string // empty means "any node version is eligible"
}

// ToQueuedJob derives a fresh QueuedJob instance from this
// ScheduledJob at queuedTime, with attempts reset to zero.
func (s ScheduledJob) ToQueuedJob(queuedTime time.Time) QueuedJob {
	return QueuedJob{
		JobId:           uuid.NewString(),
		Lock:            s.Lock,
		JobType:         s.JobType,
		Weight:          s.Weight,
		Data:            s.Data,
		MaxAttempts:     s.MaxAttempts,
		Priority:        s.Priority,
		VersionRequired: s.VersionRequired,
		QueuedTime:      queuedTime,
		Attempts:        0,
	}
}

// QueuedJob is a ScheduledJob firing waiting for a node (§3).
type QueuedJob struct {
	JobId           string
	Lock            string
	JobType         string
	Weight          int
	Data            map[string]any
	MaxAttempts     int
	Priority        int
	VersionRequired string
	QueuedTime      time.Time
	Attempts        int
}

// EligibleVersion reports whether a node's version satisfies this
// job's version requirement.
func (q QueuedJob) EligibleVersion(nodeVersion string) bool {
	return q.VersionRequired == "" || q.VersionRequired == nodeVersion
}

// ToRunningJob transitions a queued instance onto a node, incrementing
// attempts (§4.4).
func (q QueuedJob) ToRunningJob(nodeId string, startTime time.Time) RunningJob {
	return RunningJob{
		QueuedJob:      q,
		AssignedNodeId: nodeId,
		StartTime:      startTime,
		Attempts:       q.Attempts + 1,
	}
}

// RunningJob is a QueuedJob currently assigned to a node (§3).
// Attempts on a RunningJob is always >= 1.
type RunningJob struct {
	QueuedJob
	AssignedNodeId string
	StartTime      time.Time
	// Attempts shadows QueuedJob.Attempts post-assignment so callers
	// see the count including the in-flight attempt.
	Attempts int
}

// ToQueuedJob transitions a running instance back to queued after its
// node was found dead, counting the lost run as a consumed attempt
// (used on dead-node recovery, §4.5). Callers decide retry-vs-finalize
// against r.Attempts/r.MaxAttempts before calling this. ToRunningJob
// also bumps attempts on reassignment, so a die→requeue→reassign cycle
// consumes two attempts per real run: the effective retry budget is
// roughly maxAttempts/2, not maxAttempts.
func (r RunningJob) ToQueuedJob() QueuedJob {
	q := r.QueuedJob
	q.Attempts = r.Attempts + 1
	return q
}

// ToFinishedJob terminalizes a running instance.
func (r RunningJob) ToFinishedJob(result Result, message string, finishTime time.Time) FinishedJob {
	return FinishedJob{
		RunningJob: r,
		FinishTime: finishTime,
		Result:     result,
		Message:    message,
	}
}

// FinishedJob is a RunningJob terminalized with a result (§3).
type FinishedJob struct {
	RunningJob
	FinishTime time.Time
	Result     Result
	Message    string
}
