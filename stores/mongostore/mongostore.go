// Package mongostore provides a MongoDB-backed leaderduty.JobStore,
// using the teacher's go.mongodb.org/mongo-driver dependency. Queued
// and running jobs live in separate collections, keyed by job id.
// A unique index on `lock` in each collection keeps a lock from
// appearing twice among queued jobs or twice among running jobs; a
// lock present in both collections at once is not detected.
package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/agscheduler/leaderduty"
)

type queuedDoc struct {
	JobId           string         `bson:"_id"`
	Lock            string         `bson:"lock"`
	JobType         string         `bson:"job_type"`
	Weight          int            `bson:"weight"`
	Data            map[string]any `bson:"data"`
	MaxAttempts     int            `bson:"max_attempts"`
	Priority        int            `bson:"priority"`
	VersionRequired string         `bson:"version_required"`
	QueuedTime      time.Time      `bson:"queued_time"`
	Attempts        int            `bson:"attempts"`
}

type runningDoc struct {
	queuedDoc      `bson:",inline"`
	AssignedNodeId string    `bson:"assigned_node_id"`
	StartTime      time.Time `bson:"start_time"`
	RunningAttempts int      `bson:"running_attempts"`
}

// JobStore is a mongo-driver-backed leaderduty.JobStore.
type JobStore struct {
	queued  *mongo.Collection
	running *mongo.Collection
}

// Open wires a JobStore against the given database's `queued_jobs`
// and `running_jobs` collections, ensuring the lock-uniqueness index
// on each.
func Open(ctx context.Context, client *mongo.Client, database string) (*JobStore, error) {
	db := client.Database(database)
	s := &JobStore{
		queued:  db.Collection("queued_jobs"),
		running: db.Collection("running_jobs"),
	}

	idx := mongo.IndexModel{
		Keys:    bson.D{{Key: "lock", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := s.queued.Indexes().CreateOne(ctx, idx); err != nil {
		return nil, fmt.Errorf("create queued lock index: %w", err)
	}
	if _, err := s.running.Indexes().CreateOne(ctx, idx); err != nil {
		return nil, fmt.Errorf("create running lock index: %w", err)
	}

	return s, nil
}

func toQueuedDoc(q leaderduty.QueuedJob) queuedDoc {
	return queuedDoc{
		JobId:           q.JobId,
		Lock:            q.Lock,
		JobType:         q.JobType,
		Weight:          q.Weight,
		Data:            q.Data,
		MaxAttempts:     q.MaxAttempts,
		Priority:        q.Priority,
		VersionRequired: q.VersionRequired,
		QueuedTime:      q.QueuedTime,
		Attempts:        q.Attempts,
	}
}

func (d queuedDoc) toQueuedJob() leaderduty.QueuedJob {
	return leaderduty.QueuedJob{
		JobId:           d.JobId,
		Lock:            d.Lock,
		JobType:         d.JobType,
		Weight:          d.Weight,
		Data:            d.Data,
		MaxAttempts:     d.MaxAttempts,
		Priority:        d.Priority,
		VersionRequired: d.VersionRequired,
		QueuedTime:      d.QueuedTime,
		Attempts:        d.Attempts,
	}
}

func toRunningDoc(r leaderduty.RunningJob) runningDoc {
	return runningDoc{
		queuedDoc:       toQueuedDoc(r.QueuedJob),
		AssignedNodeId:  r.AssignedNodeId,
		StartTime:       r.StartTime,
		RunningAttempts: r.Attempts,
	}
}

func (d runningDoc) toRunningJob() leaderduty.RunningJob {
	r := leaderduty.RunningJob{
		QueuedJob:      d.queuedDoc.toQueuedJob(),
		AssignedNodeId: d.AssignedNodeId,
		StartTime:      d.StartTime,
		Attempts:       d.RunningAttempts,
	}
	return r
}

func (s *JobStore) GetQueuedJobs() ([]leaderduty.QueuedJob, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cur, err := s.queued.Find(ctx, bson.D{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []leaderduty.QueuedJob
	for cur.Next(ctx) {
		var d queuedDoc
		if err := cur.Decode(&d); err != nil {
			return nil, err
		}
		out = append(out, d.toQueuedJob())
	}
	return out, cur.Err()
}

func (s *JobStore) GetRunningJobs() ([]leaderduty.RunningJob, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cur, err := s.running.Find(ctx, bson.D{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []leaderduty.RunningJob
	for cur.Next(ctx) {
		var d runningDoc
		if err := cur.Decode(&d); err != nil {
			return nil, err
		}
		out = append(out, d.toRunningJob())
	}
	return out, cur.Err()
}

func (s *JobStore) CreateQueuedJob(q leaderduty.QueuedJob) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := s.queued.InsertOne(ctx, toQueuedDoc(q))
	if mongo.IsDuplicateKeyError(err) {
		return &leaderduty.InvariantViolation{Reason: fmt.Sprintf("lock `%s` already queued", q.Lock)}
	}
	return err
}

// MoveQueuedToRunning deletes the queued document and inserts the
// running one inside a single session transaction, so the move is
// atomic (spec §6).
func (s *JobStore) MoveQueuedToRunning(q leaderduty.QueuedJob, nodeId string, now time.Time) (leaderduty.RunningJob, error) {
	r := q.ToRunningJob(nodeId, now)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := runInTransaction(ctx, s.queued.Database().Client(), func(sc mongo.SessionContext) error {
		if _, err := s.queued.DeleteOne(sc, bson.D{{Key: "_id", Value: q.JobId}}); err != nil {
			return err
		}
		_, err := s.running.InsertOne(sc, toRunningDoc(r))
		return err
	})
	if err != nil {
		return leaderduty.RunningJob{}, err
	}
	return r, nil
}

// MoveRunningToQueued is the reverse move, also transactional.
func (s *JobStore) MoveRunningToQueued(r leaderduty.RunningJob) (leaderduty.QueuedJob, error) {
	q := r.ToQueuedJob()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := runInTransaction(ctx, s.queued.Database().Client(), func(sc mongo.SessionContext) error {
		if _, err := s.running.DeleteOne(sc, bson.D{{Key: "_id", Value: r.JobId}}); err != nil {
			return err
		}
		_, err := s.queued.InsertOne(sc, toQueuedDoc(q))
		return err
	})
	if err != nil {
		return leaderduty.QueuedJob{}, err
	}
	return q, nil
}

// MoveRunningToFinished removes the running document; a real
// deployment would archive the finished record in its own collection
// (omitted here — finished-job archival is outside this module's
// leader-duties scope).
func (s *JobStore) MoveRunningToFinished(r leaderduty.RunningJob, result leaderduty.Result, message string, now time.Time) (leaderduty.FinishedJob, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := s.running.DeleteOne(ctx, bson.D{{Key: "_id", Value: r.JobId}}); err != nil {
		return leaderduty.FinishedJob{}, err
	}
	return r.ToFinishedJob(result, message, now), nil
}

func runInTransaction(ctx context.Context, client *mongo.Client, fn func(mongo.SessionContext) error) error {
	session, err := client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, fn(sc)
	})
	return err
}
