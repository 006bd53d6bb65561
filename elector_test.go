package leaderduty_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agscheduler/leaderduty"
	"github.com/agscheduler/leaderduty/stores/memory"
)

func newElector(nodeId, group string, now time.Time, nodes leaderduty.NodeRegistry, jobs leaderduty.JobStore, sched leaderduty.ScheduleSource, state *leaderduty.LeaderState) *leaderduty.LeaderElector {
	return &leaderduty.LeaderElector{
		NodeId: nodeId,
		Group:  group,
		Clock:  leaderduty.FixedClock{At: now},
		Config: leaderduty.LeaderConfig{YoungestLeaderAge: 10 * time.Second},
		Nodes:  nodes,
		Jobs:   jobs,
		Sched:  sched,
		State:  state,
	}
}

// Scenario 1 (spec §8): election by age. A(join=T-120s), B(T-60s),
// C(T-0s), all group=g, all active, youngestLeaderAge=10s.
func TestElectClusterLeader_ElectionByAge(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()
	ns := memory.NewNodeStore()
	ns.Put(leaderduty.Node{NodeId: "A", Group: "g", JoinTime: now.Add(-120 * time.Second), Active: true})
	ns.Put(leaderduty.Node{NodeId: "B", Group: "g", JoinTime: now.Add(-60 * time.Second), Active: true})
	ns.Put(leaderduty.Node{NodeId: "C", Group: "g", JoinTime: now, Active: true})

	js := memory.NewJobStore()
	sched := memory.NewScheduleStore()

	for nodeId, want := range map[string]bool{"A": true, "B": false, "C": false} {
		state := &leaderduty.LeaderState{}
		e := newElector(nodeId, "g", now, ns, js, sched, state)
		require.NoError(t, e.ElectClusterLeader())
		assert.Equal(t, want, state.IsLeader(), "node %s", nodeId)
	}
}

// Scenario 2 (spec §8): election blocked by youth. A(T-2s), B(T-1s),
// youngestLeaderAge=10s => no leader.
func TestElectClusterLeader_BlockedByYouth(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()
	ns := memory.NewNodeStore()
	ns.Put(leaderduty.Node{NodeId: "A", Group: "g", JoinTime: now.Add(-2 * time.Second), Active: true})
	ns.Put(leaderduty.Node{NodeId: "B", Group: "g", JoinTime: now.Add(-1 * time.Second), Active: true})

	js := memory.NewJobStore()
	sched := memory.NewScheduleStore()

	for _, nodeId := range []string{"A", "B"} {
		state := &leaderduty.LeaderState{}
		e := newElector(nodeId, "g", now, ns, js, sched, state)
		require.NoError(t, e.ElectClusterLeader())
		assert.False(t, state.IsLeader(), "node %s", nodeId)
	}
}

// Leader-singleton property (spec §8): at most one node per group is
// leader after all nodes run election against the same snapshot.
func TestElectClusterLeader_Singleton(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()
	ns := memory.NewNodeStore()
	ids := []string{"n1", "n2", "n3", "n4"}
	for i, id := range ids {
		ns.Put(leaderduty.Node{NodeId: id, Group: "g", JoinTime: now.Add(-time.Duration(100-i) * time.Minute), Active: true})
	}
	js := memory.NewJobStore()
	sched := memory.NewScheduleStore()

	leaders := 0
	for _, id := range ids {
		state := &leaderduty.LeaderState{}
		e := newElector(id, "g", now, ns, js, sched, state)
		require.NoError(t, e.ElectClusterLeader())
		if state.IsLeader() {
			leaders++
		}
	}
	assert.Equal(t, 1, leaders)
}

// A true->false transition atomically clears the mirrors.
func TestElectClusterLeader_TransitionClearsMirrors(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()
	ns := memory.NewNodeStore()
	ns.Put(leaderduty.Node{NodeId: "A", Group: "g", JoinTime: now.Add(-time.Hour), Active: true})
	js := memory.NewJobStore()
	sched := memory.NewScheduleStore(leaderduty.ScheduledJob{JobId: "s1", Lock: "l1"})

	state := &leaderduty.LeaderState{}
	e := newElector("A", "g", now, ns, js, sched, state)
	require.NoError(t, e.ElectClusterLeader())
	require.True(t, state.IsLeader())
	assert.Len(t, state.Schedule(), 1)

	ns.Remove("A")
	require.NoError(t, e.ElectClusterLeader())
	assert.False(t, state.IsLeader())
	assert.Empty(t, state.Schedule())
	assert.Empty(t, state.Queued())
	assert.Empty(t, state.Running())
}
