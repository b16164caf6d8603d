/******************************************************************************\
* Pararuna                                                                     *
*                                                                               *
* Copyright 2020-2023 Leandro Motta Barros                                     *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

package executor

import "testing"

func TestApplyMonotonicTransitions(t *testing.T) {
	tbl := NewJobTable()
	tbl.Create("j1", "loc", true)

	tbl.Apply(LiftCallback(Callback{JobID: "j1", Kind: CallbackReady, Order: 1}))
	tbl.Apply(LiftCallback(Callback{JobID: "j1", Kind: CallbackStarted, Order: 2}))

	status, ok := tbl.Status("j1")
	if !ok {
		t.Fatalf("expected job to exist")
	}
	if status != StatusStarted {
		t.Fatalf("got %v, want Started", status)
	}
}

func TestApplyDiscardsOutOfOrderCallback(t *testing.T) {
	tbl := NewJobTable()
	tbl.Create("j1", "loc", true)

	tbl.Apply(LiftCallback(Callback{JobID: "j1", Kind: CallbackStarted, Order: 3}))
	applied := tbl.Apply(LiftCallback(Callback{JobID: "j1", Kind: CallbackReady, Order: 1}))

	if applied {
		t.Fatalf("expected stale transition to be discarded")
	}

	status, _ := tbl.Status("j1")
	if status != StatusStarted {
		t.Fatalf("got %v, want Started to be preserved", status)
	}
}

func TestHeartbeatDoesNotChangeStatus(t *testing.T) {
	tbl := NewJobTable()
	tbl.Create("j1", "loc", true)
	tbl.Apply(LiftCallback(Callback{JobID: "j1", Kind: CallbackReady, Order: 1}))

	tbl.Apply(LiftCallback(Callback{JobID: "j1", Kind: CallbackHeartbeat, Order: 2}))

	status, _ := tbl.Status("j1")
	if status != StatusReady {
		t.Fatalf("heartbeat must not change status, got %v", status)
	}
}

func TestMarkStoppedRespectsTerminalState(t *testing.T) {
	tbl := NewJobTable()
	tbl.Create("j1", "loc", true)
	tbl.Apply(LiftCallback(Callback{JobID: "j1", Kind: CallbackFinished, Order: 1}))

	tbl.MarkStopped("j1")

	status, _ := tbl.Status("j1")
	if status != StatusFinished {
		t.Fatalf("a terminal job must not be overridden, got %v", status)
	}
}
