/******************************************************************************\
* Pararuna                                                                     *
*                                                                               *
* Copyright 2020-2023 Leandro Motta Barros                                     *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/stackedboxes/pararuna/pkg/errs"
)

// DefaultHeartbeatTimeout is the default liveness window: at least twice the
// container collaborator's heartbeat period (5s).
const DefaultHeartbeatTimeout = 10 * time.Second

// JobDescriptor is what an external-call opcode builds to ask the executor
// to schedule a job. Arguments are carried pre-rendered to strings: the VM
// renders each argument Value before suspending, so the executor never needs
// to reach back into a session's heap.
type JobDescriptor struct {
	FunctionName string
	FunctionKind string
	Descriptor   string
	Args         []string
}

// JobHandle is what Schedule returns: enough to identify the job and to
// construct a Service instance for it.
type JobHandle struct {
	JobID    string
	Location string
}

// Executor is the capability set a driver gives a VM. It is defined by this
// interface rather than by a concrete type, so the VM (and its tests) never
// depend on how jobs are actually dispatched.
type Executor interface {
	// Stdout forwards text to whatever stream the surrounding driver is
	// connected to.
	Stdout(text string) error

	// Schedule asynchronously dispatches an external function call.
	Schedule(ctx context.Context, d JobDescriptor) (JobHandle, error)

	// WaitUntil suspends until jobID has Reached target, or returns an error
	// if jobID is unknown or the wait is cancelled via ctx.
	WaitUntil(ctx context.Context, jobID string, target JobStatus) error
}

// NewUnknownJobError reports a wait against a job id the executor has never
// heard of.
func NewUnknownJobError(jobID string) error {
	return errs.NewExecutor("unknown job %q", jobID)
}

// NewTerminalFailureError reports that jobID reached a terminal,
// non-successful state while something was waiting on it.
func NewTerminalFailureError(jobID string, status JobStatus) error {
	return errs.NewExecutor("job %q failed with status %v", jobID, status)
}

var _ fmt.Stringer = JobStatus(0)
