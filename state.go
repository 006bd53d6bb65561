package leaderduty

import "sync"

// LeaderState is the per-node in-memory mirror of the subset of
// cluster state the leader needs (C6): the current schedule, queued
// jobs, running jobs, and whether this node is leader. It is owned by
// the local duty executor (single-writer); external readers see a
// consistent snapshot under the RWMutex. Followers may read it too —
// their mirrors are simply empty until they become leader.
type LeaderState struct {
	mu sync.RWMutex

	isLeader bool
	schedule []ScheduledJob
	queued   []QueuedJob
	running  []RunningJob
}

// IsLeader reports whether this node currently holds leadership for
// its group.
func (s *LeaderState) IsLeader() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isLeader
}

// Schedule returns a snapshot of the mirrored schedule.
func (s *LeaderState) Schedule() []ScheduledJob {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]ScheduledJob(nil), s.schedule...)
}

// Queued returns a snapshot of the mirrored queued jobs.
func (s *LeaderState) Queued() []QueuedJob {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]QueuedJob(nil), s.queued...)
}

// Running returns a snapshot of the mirrored running jobs.
func (s *LeaderState) Running() []RunningJob {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]RunningJob(nil), s.running...)
}

// becomeLeader atomically flips isLeader true and loads full mirrors.
// Called only by LeaderElector on a false->true transition; this must
// be observable as a single step to callers reading LeaderState
// (spec §4.1).
func (s *LeaderState) becomeLeader(schedule []ScheduledJob, queued []QueuedJob, running []RunningJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isLeader = true
	s.schedule = schedule
	s.queued = queued
	s.running = running
}

// loseLeader atomically flips isLeader false and clears the mirrors.
func (s *LeaderState) loseLeader() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isLeader = false
	s.schedule = nil
	s.queued = nil
	s.running = nil
}

// replaceSchedule atomically swaps the mirrored schedule. Replacement
// is atomic with respect to JobQueuer reads (spec §4.2).
func (s *LeaderState) replaceSchedule(schedule []ScheduledJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schedule = schedule
}

// insertQueued appends a newly persisted QueuedJob to the mirror.
func (s *LeaderState) insertQueued(q QueuedJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queued = append(s.queued, q)
}

// hasLock reports whether lock is present in either the queued or
// running mirror (invariant 1 + 4).
func (s *LeaderState) hasLock(lock string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, q := range s.queued {
		if q.Lock == lock {
			return true
		}
	}
	for _, r := range s.running {
		if r.Lock == lock {
			return true
		}
	}
	return false
}

// moveQueuedToRunning removes the queued instance with the given
// JobId and appends the RunningJob, as a single locked step.
func (s *LeaderState) moveQueuedToRunning(jobId string, r RunningJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queued = removeQueued(s.queued, jobId)
	s.running = append(s.running, r)
}

// moveRunningToQueued removes the running instance with the given
// JobId and appends the QueuedJob, as a single locked step.
func (s *LeaderState) moveRunningToQueued(jobId string, q QueuedJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = removeRunning(s.running, jobId)
	s.queued = append(s.queued, q)
}

// removeRunningJob removes a running instance with no queued
// replacement (terminal transition to FinishedJob).
func (s *LeaderState) removeRunningJob(jobId string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = removeRunning(s.running, jobId)
}

func removeQueued(js []QueuedJob, jobId string) []QueuedJob {
	out := make([]QueuedJob, 0, len(js))
	for _, j := range js {
		if j.JobId != jobId {
			out = append(out, j)
		}
	}
	return out
}

func removeRunning(js []RunningJob, jobId string) []RunningJob {
	out := make([]RunningJob, 0, len(js))
	for _, j := range js {
		if j.JobId != jobId {
			out = append(out, j)
		}
	}
	return out
}
