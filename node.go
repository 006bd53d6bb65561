package leaderduty

import "time"

// Node is a homogeneous worker in the cluster (C2 data model §3).
// active=false means "being drained": still present in the registry,
// no longer eligible for new assignments.
type Node struct {
	NodeId   string
	Group    string
	JoinTime time.Time
	Active   bool
	Version  string
}

// Age reports how long this node has been joined, as of now.
func (n Node) Age(now time.Time) time.Duration {
	return now.Sub(n.JoinTime)
}

// NodeRegistry is the external, durable record of every node's id,
// group, join time, active flag, and version (C2, spec §6).
type NodeRegistry interface {
	GetAllNodes() ([]Node, error)
	GetYoungestActiveNodesByGroup(group string, n int) ([]Node, error)
	GetAllActiveNodesCountByGroup(group string) (int, error)
	GetAllInactiveNodesByGroup(group string) ([]Node, error)
	UpdateNodeStatus(nodeId string, active bool) error
}
