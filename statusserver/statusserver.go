// Package statusserver exposes a read-only introspection view of a
// node's LeaderState over HTTP, adapted from the teacher's
// services.HTTPService/bHTTPService.info pattern. It is diagnostics
// tooling only — it never mutates cluster state, unlike the
// job-execution RPC transport spec.md places out of scope.
package statusserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/agscheduler/leaderduty"
)

// Server serves /leader, /nodes (via a caller-supplied NodeRegistry),
// and /jobs (queued + running from LeaderState).
type Server struct {
	NodeId  string
	Group   string
	State   *leaderduty.LeaderState
	Nodes   leaderduty.NodeRegistry

	// Default: "127.0.0.1:36371"
	Address string

	srv *http.Server
}

func (s *Server) leaderHandler(c *gin.Context) {
	c.JSON(200, gin.H{
		"data": gin.H{
			"node_id":   s.NodeId,
			"group":     s.Group,
			"is_leader": s.State.IsLeader(),
		},
		"error": "",
	})
}

func (s *Server) nodesHandler(c *gin.Context) {
	nodes, err := s.Nodes.GetAllNodes()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"data": nil, "error": err.Error()})
		return
	}
	c.JSON(200, gin.H{"data": nodes, "error": ""})
}

func (s *Server) jobsHandler(c *gin.Context) {
	c.JSON(200, gin.H{
		"data": gin.H{
			"queued":  s.State.Queued(),
			"running": s.State.Running(),
		},
		"error": "",
	})
}

// Start launches the HTTP server in a background goroutine.
func (s *Server) Start() error {
	if s.Address == "" {
		s.Address = "127.0.0.1:36371"
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.Default()
	r.Use(cors.Default())

	r.GET("/leader", s.leaderHandler)
	r.GET("/nodes", s.nodesHandler)
	r.GET("/jobs", s.jobsHandler)

	s.srv = &http.Server{Addr: s.Address, Handler: r}

	slog.Info(fmt.Sprintf("status server listening at: %s", s.Address))
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error(fmt.Sprintf("status server unavailable: %s", err))
		}
	}()

	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop() error {
	slog.Info("status server stop")
	return s.srv.Shutdown(context.Background())
}
