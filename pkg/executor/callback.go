/******************************************************************************\
* Pararuna                                                                     *
*                                                                               *
* Copyright 2020-2023 Leandro Motta Barros                                     *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

package executor

import "fmt"

// CallbackKind identifies the wire-level callback codes a job's container
// collaborator sends back to the executor. These are dense, small positive
// integers, chosen to travel cheaply over the callback channel; EventKind is
// the richer, signed representation LiftCallback turns them into.
type CallbackKind int

const (
	CallbackUnknown CallbackKind = iota
	CallbackReady
	CallbackInitializeFailed
	CallbackInitialized
	CallbackStartFailed
	CallbackStarted
	CallbackHeartbeat
	CallbackCompleteFailed
	CallbackCompleted
	CallbackDecodeFailed
	CallbackStopped
	CallbackFailed
	CallbackFinished
)

// Callback is one inbound message from a job's container collaborator.
type Callback struct {
	JobID string
	Kind  CallbackKind
	Order int
}

// EventKind is the lifted, signed form of a CallbackKind: positive values are
// successful transitions and negative values are failures. Magnitudes grow
// along the lifecycle but are wire numbers, not JobStatus orders (Completed
// is 6 and Finished is 10, while their orders are 5 and 6).
type EventKind int

const (
	EventUnknown          EventKind = 0
	EventCreated          EventKind = 1
	EventCreateFailed     EventKind = -1
	EventReady            EventKind = 2
	EventInitialized      EventKind = 3
	EventInitializeFailed EventKind = -3
	EventStarted          EventKind = 4
	EventStartFailed      EventKind = -4
	EventHeartbeat        EventKind = 5
	EventCompleted        EventKind = 6
	EventCompleteFailed   EventKind = -6
	EventDecodeFailed     EventKind = -8
	EventStopped          EventKind = 9
	EventFailed           EventKind = -10
	EventFinished         EventKind = 10
)

// Event is the lifted form of a Callback, keyed the same way the driver keys
// its per-callback idempotency checks: "{job_id}#{order}".
type Event struct {
	JobID string
	Kind  EventKind
	Key   string
}

// callbackToEvent maps every CallbackKind to its lifted EventKind.
// CallbackCreated doesn't exist: a job's Created/CreateFailed transition is
// driven locally by Schedule, not by an inbound callback.
var callbackToEvent = map[CallbackKind]EventKind{
	CallbackUnknown:          EventUnknown,
	CallbackReady:            EventReady,
	CallbackInitializeFailed: EventInitializeFailed,
	CallbackInitialized:      EventInitialized,
	CallbackStartFailed:      EventStartFailed,
	CallbackStarted:          EventStarted,
	CallbackHeartbeat:        EventHeartbeat,
	CallbackCompleteFailed:   EventCompleteFailed,
	CallbackCompleted:        EventCompleted,
	CallbackDecodeFailed:     EventDecodeFailed,
	CallbackStopped:          EventStopped,
	CallbackFailed:           EventFailed,
	CallbackFinished:         EventFinished,
}

// eventToStatus maps every status-changing EventKind, success or failure, to
// the JobStatus it drives a job to. Heartbeat resets the liveness timer but
// never changes status, so it has no entry here.
var eventToStatus = map[EventKind]JobStatus{
	EventReady:            StatusReady,
	EventInitialized:      StatusInitialized,
	EventInitializeFailed: StatusInitializeFailed,
	EventStarted:          StatusStarted,
	EventStartFailed:      StatusStartFailed,
	EventCompleted:        StatusCompleted,
	EventCompleteFailed:   StatusCompleteFailed,
	EventDecodeFailed:     StatusDecodeFailed,
	EventStopped:          StatusStopped,
	EventFailed:           StatusFailed,
	EventFinished:         StatusFinished,
}

// LiftCallback lifts an inbound Callback into an Event, keyed by
// "{job_id}#{order}" so the caller can discard a callback it has already
// applied.
func LiftCallback(cb Callback) Event {
	kind, ok := callbackToEvent[cb.Kind]
	if !ok {
		kind = EventUnknown
	}
	return Event{
		JobID: cb.JobID,
		Kind:  kind,
		Key:   fmt.Sprintf("%v#%v", cb.JobID, cb.Order),
	}
}

// Status returns the JobStatus this Event's transition drives the job to, and
// whether it drives one at all (Heartbeat and Unknown events don't).
func (e Event) Status() (JobStatus, bool) {
	s, ok := eventToStatus[e.Kind]
	return s, ok
}
