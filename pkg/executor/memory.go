/******************************************************************************\
* Pararuna                                                                     *
*                                                                               *
* Copyright 2020-2023 Leandro Motta Barros                                     *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

package executor

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Memory is an in-process Executor that completes every scheduled job
// synchronously and successfully. It exists for tests and for the "run"
// command-line tool, where there is no real container collaborator to talk
// to.
type Memory struct {
	Table *JobTable

	mu     sync.Mutex
	out    bytes.Buffer
	nextID int64
}

// NewMemory creates a new Memory executor backed by a fresh JobTable.
func NewMemory() *Memory {
	return &Memory{Table: NewJobTable()}
}

// Stdout fulfills the Executor interface.
func (m *Memory) Stdout(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.out.WriteString(text)
	return nil
}

// Output returns everything written via Stdout so far.
func (m *Memory) Output() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.out.String()
}

// Schedule fulfills the Executor interface. It assigns a sequential job id,
// marks it Created, and immediately drives it through Ready, Initialized,
// Started, Completed and Finished.
func (m *Memory) Schedule(ctx context.Context, d JobDescriptor) (JobHandle, error) {
	id := atomic.AddInt64(&m.nextID, 1)
	jobID := fmt.Sprintf("job-%d", id)
	location := "local"

	m.Table.Create(jobID, location, true)

	order := 0
	for _, kind := range []CallbackKind{
		CallbackReady, CallbackInitialized, CallbackStarted, CallbackCompleted, CallbackFinished,
	} {
		order++
		m.Table.Apply(LiftCallback(Callback{JobID: jobID, Kind: kind, Order: order}))
	}

	return JobHandle{JobID: jobID, Location: location}, nil
}

// WaitUntil fulfills the Executor interface. Since Schedule already drove
// every job to completion synchronously, this either succeeds immediately or
// reports the terminal failure the job ended up in.
func (m *Memory) WaitUntil(ctx context.Context, jobID string, target JobStatus) error {
	status, ok := m.Table.Status(jobID)
	if !ok {
		return NewUnknownJobError(jobID)
	}

	deadline := time.Now().Add(time.Second)
	for !status.Reached(target) {
		if status.Terminal() {
			return NewTerminalFailureError(jobID, status)
		}
		if time.Now().After(deadline) {
			return NewTerminalFailureError(jobID, status)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Millisecond):
		}
		status, _ = m.Table.Status(jobID)
	}

	if status.Terminal() && !statusIsSuccess(status) {
		return NewTerminalFailureError(jobID, status)
	}

	return nil
}

func statusIsSuccess(s JobStatus) bool {
	switch s {
	case StatusCreated, StatusReady, StatusInitialized, StatusStarted, StatusCompleted, StatusFinished:
		return true
	default:
		return false
	}
}
