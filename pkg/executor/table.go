/******************************************************************************\
* Pararuna                                                                     *
*                                                                               *
* Copyright 2020-2023 Leandro Motta Barros                                     *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

package executor

import (
	"hash/fnv"
	"sync"
	"time"
)

// numShards controls how many independent locks JobTable spreads its keys
// across. A power of two keeps the hash-to-shard mapping a cheap mask.
const numShards = 32

// jobRecord is everything the executor tracks about one job.
type jobRecord struct {
	status     JobStatus
	location   string
	lastSeen   time.Time
}

type shard struct {
	mu      sync.Mutex
	records map[string]*jobRecord
}

// JobTable is the concurrent map of job status, heartbeat timestamp and
// location shared across every session's VM. Per spec, it's the only mutable
// state shared across VMs: each key is protected by its own shard lock so
// that compound "if current order <= new order, overwrite" updates stay
// atomic without serializing unrelated jobs behind a single global lock.
type JobTable struct {
	shards [numShards]*shard
}

// NewJobTable creates an empty JobTable.
func NewJobTable() *JobTable {
	t := &JobTable{}
	for i := range t.shards {
		t.shards[i] = &shard{records: make(map[string]*jobRecord)}
	}
	return t
}

func (t *JobTable) shardFor(jobID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(jobID))
	return t.shards[h.Sum32()%numShards]
}

// Create registers a new job, transitioning it to Created at the given
// location. It's the only place a job's status moves to Created/CreateFailed,
// since that transition is driven by Schedule rather than by a callback.
func (t *JobTable) Create(jobID, location string, ok bool) {
	s := t.shardFor(jobID)
	s.mu.Lock()
	defer s.mu.Unlock()

	status := StatusCreated
	if !ok {
		status = StatusCreateFailed
	}
	s.records[jobID] = &jobRecord{status: status, location: location, lastSeen: time.Now()}
}

// Status returns the current status of jobID, and whether it's known at all.
func (t *JobTable) Status(jobID string) (JobStatus, bool) {
	s := t.shardFor(jobID)
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[jobID]
	if !ok {
		return StatusUnknown, false
	}
	return r.status, true
}

// Location returns the location chosen for jobID by Schedule, and whether
// it's known at all.
func (t *JobTable) Location(jobID string) (string, bool) {
	s := t.shardFor(jobID)
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[jobID]
	if !ok {
		return "", false
	}
	return r.location, true
}

// Apply applies evt to the table: if it carries a status transition, it's
// only accepted when the job either doesn't exist yet or its current status's
// order doesn't exceed the transition's -- duplicate and out-of-order
// callbacks are silently discarded. A Heartbeat event always resets
// the liveness timer, win or lose the status race. Returns whether the
// transition (if any) was applied.
func (t *JobTable) Apply(evt Event) bool {
	s := t.shardFor(evt.JobID)
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[evt.JobID]
	if !ok {
		r = &jobRecord{status: StatusUnknown}
		s.records[evt.JobID] = r
	}

	if evt.Kind == EventHeartbeat {
		r.lastSeen = time.Now()
		return true
	}

	next, drivesStatus := evt.Status()
	if !drivesStatus {
		return false
	}

	if next.Order() < r.status.Order() {
		return false
	}

	r.status = next
	r.lastSeen = time.Now()
	return true
}

// Stale returns the ids of every job whose status is non-terminal and whose
// last heartbeat (or creation, if it never had one) is older than timeout.
func (t *JobTable) Stale(timeout time.Duration) []string {
	now := time.Now()
	var stale []string

	for _, s := range t.shards {
		s.mu.Lock()
		for id, r := range s.records {
			if r.status.Terminal() {
				continue
			}
			if now.Sub(r.lastSeen) > timeout {
				stale = append(stale, id)
			}
		}
		s.mu.Unlock()
	}

	return stale
}

// MarkFailed force-transitions jobID to Failed; the heartbeat watchdog uses
// it for jobs that went silent. Stopping a job goes through MarkStopped.
func (t *JobTable) MarkFailed(jobID string) {
	t.forceTerminal(jobID, StatusFailed)
}

// MarkStopped force-transitions jobID to Stopped.
func (t *JobTable) MarkStopped(jobID string) {
	t.forceTerminal(jobID, StatusStopped)
}

func (t *JobTable) forceTerminal(jobID string, status JobStatus) {
	s := t.shardFor(jobID)
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[jobID]
	if !ok {
		s.records[jobID] = &jobRecord{status: status, lastSeen: time.Now()}
		return
	}
	if r.status.Terminal() {
		return
	}
	r.status = status
	r.lastSeen = time.Now()
}
