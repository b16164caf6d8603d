/******************************************************************************\
* Pararuna                                                                     *
*                                                                               *
* Copyright 2020-2023 Leandro Motta Barros                                     *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

// Package driver is the session-lifecycle layer a front end talks to: it
// hands out session ids, and for each Execute call restores whatever VM
// state that session last captured (or builds a fresh VM), runs a program's
// entry point, and re-captures state before reporting back. It stands in
// for a network-facing service without assuming any particular transport --
// Execute streams its replies over a Go channel rather than a gRPC stream.
package driver

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/stackedboxes/pararuna/pkg/bytecode"
	"github.com/stackedboxes/pararuna/pkg/errs"
	"github.com/stackedboxes/pararuna/pkg/executor"
	"github.com/stackedboxes/pararuna/pkg/vm"
)

// ReplyKind distinguishes the lines an Execute stream can carry.
type ReplyKind int

const (
	ReplyStdout ReplyKind = iota
	ReplyDebug
	ReplyError
)

// ExecuteReply is one message of an Execute stream. Close is set on the
// final reply, mirroring a stream's natural end-of-transmission marker.
type ExecuteReply struct {
	Kind  ReplyKind
	Text  string
	Close bool
}

// ExecutorFactory builds the Executor a session's VM will suspend into,
// given the session id it is running under. Tests and the "serve" command use
// executor.NewMemory; a networked front end would build one that actually
// dispatches to a container collaborator.
type ExecutorFactory func(sessionID string) executor.Executor

// Manager owns the session table: session id to its last captured VM state.
// A session with no captured state yet has never completed a run.
type Manager struct {
	mu       sync.Mutex
	sessions map[string][]byte

	index       vm.PackageIndex
	newExecutor ExecutorFactory
	options     vm.Options
}

// NewManager creates a Manager. index may be nil, matching vm.New. options
// is used for sessions created fresh (no prior captured state); ClearAfterMain
// is forced to true regardless, since a session's VM must be ready to accept
// a different entry point on its next Execute call.
func NewManager(newExecutor ExecutorFactory, index vm.PackageIndex, options vm.Options) *Manager {
	options.ClearAfterMain = true
	return &Manager{
		sessions:    make(map[string][]byte),
		index:       index,
		newExecutor: newExecutor,
		options:     options,
	}
}

// CreateSession allocates a new session id. The session has no VM state
// until its first successful Execute call.
func (m *Manager) CreateSession() string {
	return uuid.NewString()
}

// Execute runs program's entry function under sessionID, restoring that
// session's previously captured VM state if any. Replies stream over the
// returned channel, which is closed after the final reply.
func (m *Manager) Execute(ctx context.Context, sessionID string, program *bytecode.Program, entryPoint string) <-chan ExecuteReply {
	replies := make(chan ExecuteReply, 16)

	go func() {
		defer close(replies)

		ex := m.newExecutor(sessionID)

		m.mu.Lock()
		state, hasState := m.sessions[sessionID]
		m.mu.Unlock()

		var theVM *vm.VM
		if hasState {
			restored, err := vm.NewWithState(ex, m.index, program, m.options, state)
			if err != nil {
				replies <- errorReply(errs.NewExecutor("restoring session %v: %v", sessionID, err))
				return
			}
			theVM = restored
		} else {
			theVM = vm.New(ex, m.index, m.options)
			if err := theVM.Load(program); err != nil {
				replies <- errorReply(err)
				return
			}
		}

		fn, ok := theVM.Global(entryPoint)
		if !ok {
			replies <- errorReply(errs.NewBadUsage("program has no entry point named %q", entryPoint))
			return
		}

		result, runErr := theVM.Main(ctx, fn)

		captured, captureErr := theVM.CaptureState()
		if captureErr == nil && runErr == nil {
			m.mu.Lock()
			m.sessions[sessionID] = captured
			m.mu.Unlock()
		}

		if runErr != nil {
			replies <- errorReply(runErr)
			return
		}
		if captureErr != nil {
			replies <- errorReply(captureErr)
			return
		}

		replies <- ExecuteReply{Kind: ReplyDebug, Text: "execution complete: " + result.String(), Close: true}
	}()

	return replies
}

func errorReply(err error) ExecuteReply {
	return ExecuteReply{Kind: ReplyError, Text: err.Error(), Close: true}
}
