// Package memory provides in-memory reference implementations of
// leaderduty's external collaborators (NodeRegistry, JobStore,
// ScheduleSource), used by the core duty tests. They are not meant for production use — see stores/sql,
// stores/mongostore, and cloud/rediscloud for durable adapters.
package memory

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/agscheduler/leaderduty"
)

// NodeStore is a mutex-guarded, in-memory NodeRegistry.
type NodeStore struct {
	mu    sync.Mutex
	nodes map[string]leaderduty.Node
}

// NewNodeStore returns an empty NodeStore.
func NewNodeStore() *NodeStore {
	return &NodeStore{nodes: make(map[string]leaderduty.Node)}
}

// Put inserts or replaces a node record. Test/example helper — not
// part of the NodeRegistry contract.
func (s *NodeStore) Put(n leaderduty.Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes[n.NodeId] = n
}

// Remove deletes a node record entirely (used to simulate a node
// vanishing from the registry, e.g. after physical removal).
func (s *NodeStore) Remove(nodeId string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.nodes, nodeId)
}

func (s *NodeStore) GetAllNodes() ([]leaderduty.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]leaderduty.Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NodeId < out[j].NodeId })
	return out, nil
}

func (s *NodeStore) GetYoungestActiveNodesByGroup(group string, n int) ([]leaderduty.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var active []leaderduty.Node
	for _, node := range s.nodes {
		if node.Group == group && node.Active {
			active = append(active, node)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		if !active[i].JoinTime.Equal(active[j].JoinTime) {
			return active[i].JoinTime.After(active[j].JoinTime) // youngest (latest join) first
		}
		return active[i].NodeId < active[j].NodeId
	})

	if n > len(active) {
		n = len(active)
	}
	return append([]leaderduty.Node(nil), active[:n]...), nil
}

func (s *NodeStore) GetAllActiveNodesCountByGroup(group string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, n := range s.nodes {
		if n.Group == group && n.Active {
			count++
		}
	}
	return count, nil
}

func (s *NodeStore) GetAllInactiveNodesByGroup(group string) ([]leaderduty.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []leaderduty.Node
	for _, n := range s.nodes {
		if n.Group == group && !n.Active {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NodeId < out[j].NodeId })
	return out, nil
}

func (s *NodeStore) UpdateNodeStatus(nodeId string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nodes[nodeId]
	if !ok {
		return fmt.Errorf("node `%s` not found", nodeId)
	}
	n.Active = active
	s.nodes[nodeId] = n
	return nil
}

// JobStoreMem is a mutex-guarded, in-memory JobStore. Lock uniqueness
// across queued+running is checked when a queued job is created
// (invariant 1); moves keep a job's lock and are not re-checked.
type JobStoreMem struct {
	mu       sync.Mutex
	queued   map[string]leaderduty.QueuedJob
	running  map[string]leaderduty.RunningJob
	finished []leaderduty.FinishedJob
}

// NewJobStore returns an empty JobStoreMem.
func NewJobStore() *JobStoreMem {
	return &JobStoreMem{
		queued:  make(map[string]leaderduty.QueuedJob),
		running: make(map[string]leaderduty.RunningJob),
	}
}

// GetFinishedJobs returns everything terminalized via
// MoveRunningToFinished so far. Test/example helper — archival is out
// of scope for the JobStore contract itself.
func (s *JobStoreMem) GetFinishedJobs() ([]leaderduty.FinishedJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]leaderduty.FinishedJob(nil), s.finished...), nil
}

func (s *JobStoreMem) GetQueuedJobs() ([]leaderduty.QueuedJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]leaderduty.QueuedJob, 0, len(s.queued))
	for _, q := range s.queued {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JobId < out[j].JobId })
	return out, nil
}

func (s *JobStoreMem) GetRunningJobs() ([]leaderduty.RunningJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]leaderduty.RunningJob, 0, len(s.running))
	for _, r := range s.running {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JobId < out[j].JobId })
	return out, nil
}

func (s *JobStoreMem) CreateQueuedJob(q leaderduty.QueuedJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkLockFree(q.Lock); err != nil {
		return err
	}
	s.queued[q.JobId] = q
	return nil
}

func (s *JobStoreMem) MoveQueuedToRunning(q leaderduty.QueuedJob, nodeId string, now time.Time) (leaderduty.RunningJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.queued[q.JobId]; !ok {
		return leaderduty.RunningJob{}, fmt.Errorf("queued job `%s` not found", q.JobId)
	}
	r := q.ToRunningJob(nodeId, now)
	delete(s.queued, q.JobId)
	s.running[r.JobId] = r
	return r, nil
}

func (s *JobStoreMem) MoveRunningToQueued(r leaderduty.RunningJob) (leaderduty.QueuedJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.running[r.JobId]; !ok {
		return leaderduty.QueuedJob{}, fmt.Errorf("running job `%s` not found", r.JobId)
	}
	q := r.ToQueuedJob()
	delete(s.running, r.JobId)
	s.queued[q.JobId] = q
	return q, nil
}

func (s *JobStoreMem) MoveRunningToFinished(r leaderduty.RunningJob, result leaderduty.Result, message string, now time.Time) (leaderduty.FinishedJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.running[r.JobId]; !ok {
		return leaderduty.FinishedJob{}, fmt.Errorf("running job `%s` not found", r.JobId)
	}
	delete(s.running, r.JobId)
	f := r.ToFinishedJob(result, message, now)
	s.finished = append(s.finished, f)
	return f, nil
}

// checkLockFree must be called with mu held.
func (s *JobStoreMem) checkLockFree(lock string) error {
	for _, q := range s.queued {
		if q.Lock == lock {
			return &leaderduty.InvariantViolation{Reason: fmt.Sprintf("lock `%s` already queued", lock)}
		}
	}
	for _, r := range s.running {
		if r.Lock == lock {
			return &leaderduty.InvariantViolation{Reason: fmt.Sprintf("lock `%s` already running", lock)}
		}
	}
	return nil
}

// ScheduleStore is a static, in-memory ScheduleSource.
type ScheduleStore struct {
	mu   sync.Mutex
	jobs []leaderduty.ScheduledJob
}

// NewScheduleStore returns a ScheduleSource over the given jobs.
func NewScheduleStore(jobs ...leaderduty.ScheduledJob) *ScheduleStore {
	return &ScheduleStore{jobs: jobs}
}

// Set replaces the declared schedule.
func (s *ScheduleStore) Set(jobs []leaderduty.ScheduledJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = jobs
}

func (s *ScheduleStore) GetJobsSchedule() ([]leaderduty.ScheduledJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]leaderduty.ScheduledJob(nil), s.jobs...), nil
}
