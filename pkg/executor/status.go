/******************************************************************************\
* Pararuna                                                                     *
*                                                                               *
* Copyright 2020-2023 Leandro Motta Barros                                     *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

// Package executor defines the capability set a driver must provide to a VM
// (stdout, job scheduling, job-lifecycle waiting) and the job-lifecycle state
// machine that rides on top of it.
package executor

import "fmt"

// JobStatus is one state in a job's lifecycle. Its zero value, StatusUnknown,
// is the state of a job identifier nobody has scheduled yet.
type JobStatus int

const (
	StatusUnknown JobStatus = iota
	StatusCreated
	StatusCreateFailed
	StatusReady
	StatusInitialized
	StatusInitializeFailed
	StatusStarted
	StatusStartFailed
	StatusCompleted
	StatusCompleteFailed
	StatusFinished
	StatusFailed
	StatusStopped
	StatusDecodeFailed
)

var statusNames = map[JobStatus]string{
	StatusUnknown:           "Unknown",
	StatusCreated:           "Created",
	StatusCreateFailed:      "CreateFailed",
	StatusReady:             "Ready",
	StatusInitialized:       "Initialized",
	StatusInitializeFailed:  "InitializeFailed",
	StatusStarted:           "Started",
	StatusStartFailed:       "StartFailed",
	StatusCompleted:         "Completed",
	StatusCompleteFailed:    "CompleteFailed",
	StatusFinished:          "Finished",
	StatusFailed:            "Failed",
	StatusStopped:           "Stopped",
	StatusDecodeFailed:      "DecodeFailed",
}

func (s JobStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("JobStatus(%d)", int(s))
}

// statusOrder gives every JobStatus its position in the lifecycle ordering.
// Several variants (e.g. Started and StartFailed) share an order: they are
// alternative outcomes of the same transition.
var statusOrder = map[JobStatus]int{
	StatusUnknown:          0,
	StatusCreated:          1,
	StatusCreateFailed:     1,
	StatusReady:            2,
	StatusInitialized:      3,
	StatusInitializeFailed: 3,
	StatusStarted:          4,
	StatusStartFailed:      4,
	StatusCompleted:        5,
	StatusCompleteFailed:   5,
	StatusFinished:         6,
	StatusFailed:           6,
	StatusStopped:          6,
	StatusDecodeFailed:     6,
}

// Order returns s's position in the lifecycle ordering.
func (s JobStatus) Order() int {
	return statusOrder[s]
}

// Terminal reports whether s is a terminal state: no further transitions are
// expected once a job reaches it.
func (s JobStatus) Terminal() bool {
	switch s {
	case StatusCreateFailed, StatusInitializeFailed, StatusStartFailed, StatusCompleteFailed,
		StatusFinished, StatusFailed, StatusStopped, StatusDecodeFailed:
		return true
	default:
		return false
	}
}

// Reached implements the reached(target) predicate from the job lifecycle:
// current has reached target when current's order is strictly greater than
// target's, or the orders are equal and the variants match exactly. This
// makes the predicate safe to evaluate after the fact, so a wait issued after
// a transition already happened doesn't deadlock.
func (current JobStatus) Reached(target JobStatus) bool {
	if current.Order() > target.Order() {
		return true
	}
	if current.Order() == target.Order() {
		return current == target
	}
	return false
}
