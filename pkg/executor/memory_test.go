/******************************************************************************\
* Pararuna                                                                     *
*                                                                               *
* Copyright 2020-2023 Leandro Motta Barros                                     *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

package executor

import (
	"context"
	"testing"
)

func TestMemoryScheduleAndWait(t *testing.T) {
	m := NewMemory()

	handle, err := m.Schedule(context.Background(), JobDescriptor{FunctionName: "greet"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := m.WaitUntil(context.Background(), handle.JobID, StatusFinished); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMemoryWaitUntilUnknownJob(t *testing.T) {
	m := NewMemory()
	if err := m.WaitUntil(context.Background(), "nope", StatusFinished); err == nil {
		t.Fatalf("expected error for unknown job")
	}
}

func TestMemoryStdoutAccumulates(t *testing.T) {
	m := NewMemory()
	_ = m.Stdout("hello ")
	_ = m.Stdout("world")

	if got := m.Output(); got != "hello world" {
		t.Fatalf("got %q, want %q", got, "hello world")
	}
}
