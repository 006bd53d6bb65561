package leaderduty

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Internal package test: exercises the unexported single-locked-step
// transitions directly, since the duty structs that normally drive
// them live in the same package.

func TestLeaderState_BecomeLoseLeaderAtomicSwap(t *testing.T) {
	s := &LeaderState{}
	assert.False(t, s.IsLeader())

	sched := []ScheduledJob{{JobId: "s1", Lock: "l1"}}
	queued := []QueuedJob{{JobId: "q1", Lock: "l2"}}
	running := []RunningJob{{QueuedJob: QueuedJob{JobId: "r1", Lock: "l3"}}}
	s.becomeLeader(sched, queued, running)

	assert.True(t, s.IsLeader())
	assert.Len(t, s.Schedule(), 1)
	assert.Len(t, s.Queued(), 1)
	assert.Len(t, s.Running(), 1)

	s.loseLeader()
	assert.False(t, s.IsLeader())
	assert.Empty(t, s.Schedule())
	assert.Empty(t, s.Queued())
	assert.Empty(t, s.Running())
}

func TestLeaderState_HasLockAcrossQueuedAndRunning(t *testing.T) {
	s := &LeaderState{}
	s.becomeLeader(nil, []QueuedJob{{JobId: "q1", Lock: "queued-lock"}}, []RunningJob{{QueuedJob: QueuedJob{JobId: "r1", Lock: "running-lock"}}})

	assert.True(t, s.hasLock("queued-lock"))
	assert.True(t, s.hasLock("running-lock"))
	assert.False(t, s.hasLock("absent-lock"))
}

func TestLeaderState_MoveQueuedToRunning(t *testing.T) {
	s := &LeaderState{}
	s.becomeLeader(nil, []QueuedJob{{JobId: "q1", Lock: "l1"}}, nil)

	now := time.Unix(1_700_000_000, 0).UTC()
	r := RunningJob{QueuedJob: QueuedJob{JobId: "q1", Lock: "l1"}, AssignedNodeId: "n1", StartTime: now}
	s.moveQueuedToRunning("q1", r)

	assert.Empty(t, s.Queued())
	require.Len(t, s.Running(), 1)
	assert.Equal(t, "n1", s.Running()[0].AssignedNodeId)
}

func TestLeaderState_MoveRunningToQueuedAndRemove(t *testing.T) {
	s := &LeaderState{}
	running := []RunningJob{
		{QueuedJob: QueuedJob{JobId: "r1", Lock: "l1"}},
		{QueuedJob: QueuedJob{JobId: "r2", Lock: "l2"}},
	}
	s.becomeLeader(nil, nil, running)

	s.moveRunningToQueued("r1", QueuedJob{JobId: "r1", Lock: "l1", Attempts: 2})
	assert.Len(t, s.Running(), 1)
	assert.Equal(t, "r2", s.Running()[0].JobId)
	require.Len(t, s.Queued(), 1)
	assert.Equal(t, 2, s.Queued()[0].Attempts)

	s.removeRunningJob("r2")
	assert.Empty(t, s.Running())
}
