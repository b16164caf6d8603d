/******************************************************************************\
* Pararuna                                                                     *
*                                                                               *
* Copyright 2020-2023 Leandro Motta Barros                                     *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

package driver

import (
	"context"
	"testing"

	"golang.org/x/sync/errgroup"

	"github.com/stackedboxes/pararuna/pkg/bytecode"
	"github.com/stackedboxes/pararuna/pkg/executor"
	"github.com/stackedboxes/pararuna/pkg/vm"
)

// buildAddProgram assembles `main() { return 19 + 23 }`.
func buildAddProgram() *bytecode.Program {
	program := &bytecode.Program{}

	a := program.AddConstant(bytecode.NewIntConstant(19))
	b := program.AddConstant(bytecode.NewIntConstant(23))

	fb := bytecode.NewFunctionBuilder("main", 0)
	fb.EmitOpCode(bytecode.OpConstant, 1)
	fb.EmitUInt31(a, 1)
	fb.EmitOpCode(bytecode.OpConstant, 1)
	fb.EmitUInt31(b, 1)
	fb.EmitOpCode(bytecode.OpAdd, 1)
	fb.EmitOpCode(bytecode.OpReturn, 1)

	chunkIndex := len(program.Chunks)
	program.Chunks = append(program.Chunks, fb.Freeze().Chunk)
	program.FirstChunk = chunkIndex
	program.AddConstant(bytecode.NewFunctionConstant("main", 0, chunkIndex))

	return program
}

func drainReplies(t *testing.T, replies <-chan ExecuteReply) ExecuteReply {
	t.Helper()
	var last ExecuteReply
	for r := range replies {
		last = r
		if r.Kind == ReplyError {
			t.Fatalf("execute reported an error: %v", r.Text)
		}
	}
	return last
}

func TestExecuteRunsAndCapturesSessionState(t *testing.T) {
	mgr := NewManager(func(string) executor.Executor { return executor.NewMemory() }, nil, vm.DefaultOptions())
	sessionID := mgr.CreateSession()

	replies := mgr.Execute(context.Background(), sessionID, buildAddProgram(), "main")
	last := drainReplies(t, replies)
	if !last.Close {
		t.Errorf("expected the final reply to close the stream")
	}

	mgr.mu.Lock()
	_, hasState := mgr.sessions[sessionID]
	mgr.mu.Unlock()
	if !hasState {
		t.Errorf("expected Execute to capture session state after a successful run")
	}
}

func TestExecuteUnknownEntryPointReportsError(t *testing.T) {
	mgr := NewManager(func(string) executor.Executor { return executor.NewMemory() }, nil, vm.DefaultOptions())
	sessionID := mgr.CreateSession()

	replies := mgr.Execute(context.Background(), sessionID, buildAddProgram(), "thereIsNoSuchFunction")
	found := false
	for r := range replies {
		if r.Kind == ReplyError {
			found = true
		}
	}
	if !found {
		t.Errorf("expected an error reply for an unknown entry point")
	}
}

func TestConcurrentSessionsDoNotInterfere(t *testing.T) {
	mgr := NewManager(func(string) executor.Executor { return executor.NewMemory() }, nil, vm.DefaultOptions())

	var g errgroup.Group
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			sessionID := mgr.CreateSession()
			replies := mgr.Execute(context.Background(), sessionID, buildAddProgram(), "main")
			last := drainReplies(t, replies)
			if !last.Close {
				t.Errorf("expected the final reply to close the stream")
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
