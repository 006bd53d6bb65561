// Package sql provides a MySQL-backed leaderduty.NodeRegistry, using
// the teacher's gorm/mysql stack (gorm.io/gorm, gorm.io/driver/mysql).
package sql

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/agscheduler/leaderduty"
)

// nodeRecord is the gorm model backing the `nodes` table.
type nodeRecord struct {
	NodeId   string `gorm:"primaryKey;column:node_id"`
	Group    string `gorm:"column:node_group;index"`
	JoinTime time.Time
	Active   bool
	Version  string
}

func (nodeRecord) TableName() string { return "nodes" }

// NodeStore is a gorm/MySQL-backed leaderduty.NodeRegistry.
type NodeStore struct {
	db *gorm.DB
}

// Open connects to MySQL via dsn and ensures the `nodes` table exists.
func Open(dsn string) (*NodeStore, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open mysql node store: %w", err)
	}
	if err := db.AutoMigrate(&nodeRecord{}); err != nil {
		return nil, fmt.Errorf("migrate node store: %w", err)
	}
	return &NodeStore{db: db}, nil
}

func toNode(r nodeRecord) leaderduty.Node {
	return leaderduty.Node{
		NodeId:   r.NodeId,
		Group:    r.Group,
		JoinTime: r.JoinTime,
		Active:   r.Active,
		Version:  r.Version,
	}
}

func (s *NodeStore) GetAllNodes() ([]leaderduty.Node, error) {
	var records []nodeRecord
	if err := s.db.Order("node_id").Find(&records).Error; err != nil {
		return nil, err
	}
	out := make([]leaderduty.Node, 0, len(records))
	for _, r := range records {
		out = append(out, toNode(r))
	}
	return out, nil
}

func (s *NodeStore) GetYoungestActiveNodesByGroup(group string, n int) ([]leaderduty.Node, error) {
	var records []nodeRecord
	err := s.db.
		Where("node_group = ? AND active = ?", group, true).
		Order("join_time DESC, node_id ASC").
		Limit(n).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	out := make([]leaderduty.Node, 0, len(records))
	for _, r := range records {
		out = append(out, toNode(r))
	}
	return out, nil
}

func (s *NodeStore) GetAllActiveNodesCountByGroup(group string) (int, error) {
	var count int64
	err := s.db.Model(&nodeRecord{}).
		Where("node_group = ? AND active = ?", group, true).
		Count(&count).Error
	return int(count), err
}

func (s *NodeStore) GetAllInactiveNodesByGroup(group string) ([]leaderduty.Node, error) {
	var records []nodeRecord
	err := s.db.
		Where("node_group = ? AND active = ?", group, false).
		Order("node_id").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	out := make([]leaderduty.Node, 0, len(records))
	for _, r := range records {
		out = append(out, toNode(r))
	}
	return out, nil
}

func (s *NodeStore) UpdateNodeStatus(nodeId string, active bool) error {
	return s.db.Model(&nodeRecord{}).
		Where("node_id = ?", nodeId).
		Update("active", active).Error
}
