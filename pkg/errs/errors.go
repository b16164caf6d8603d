/******************************************************************************\
* Pararuna                                                                     *
*                                                                               *
* Copyright 2020-2023 Leandro Motta Barros                                     *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

package errs

import (
	"fmt"
)

//
// The Error interface
//

// Error is a Pararuna error: every error that crosses a package boundary in
// this module satisfies it.
type Error interface {
	error
	ExitCode() int
}

//
// CompileTime
//

// CompileTime represents an error reported by the external script compiler.
// The VM itself never produces one of these -- they exist so the driver can
// report a compile failure through the same Error interface as everything
// else.
type CompileTime struct {
	// Message contains a user-friendly error message.
	Message string

	// FileName is the name of the file where the error was detected.
	FileName string

	// Line contains the line number where the error was detected.
	Line int
}

// NewCompileTime is a handy way to create a CompileTime error at some specific
// line of code.
func NewCompileTime(fileName string, line int, format string, a ...any) *CompileTime {
	return &CompileTime{
		Message:  fmt.Sprintf(format, a...),
		FileName: fileName,
		Line:     line,
	}
}

// Error converts the CompileTime to a string. Fulfills the error interface.
func (e *CompileTime) Error() string {
	line := ""
	if e.Line > 0 {
		line = fmt.Sprintf(":%v", e.Line)
	}
	return fmt.Sprintf("%v%v: %v", e.FileName, line, e.Message)
}

// ExitCode fulfills the Error interface.
func (e *CompileTime) ExitCode() int {
	return StatusCodeCompileTimeError
}

//
// Tool
//

// Tool is an error that happened while running the pararuna tool that doesn't
// fit any of the other error types. Could be, e.g., an error opening some
// file, or a malformed serialized blob.
type Tool struct {
	// Message contains a message explaining what went wrong.
	Message string
}

// NewTool is a handy way to create a Tool error.
func NewTool(format string, a ...any) *Tool {
	return &Tool{
		Message: fmt.Sprintf(format, a...),
	}
}

// Error converts the Tool to a string. Fulfills the error interface.
func (e *Tool) Error() string {
	return e.Message
}

// ExitCode fulfills the Error interface.
func (e *Tool) ExitCode() int {
	return StatusCodeToolError
}

//
// BadUsage
//

// BadUsage is an error that happened because the pararuna tool was called in
// the wrong way (like incorrect command-line arguments).
type BadUsage struct {
	// Message contains a message explaining what happened.
	Message string
}

// NewBadUsage is a handy way to create a BadUsage error.
func NewBadUsage(format string, a ...any) *BadUsage {
	return &BadUsage{
		Message: fmt.Sprintf(format, a...),
	}
}

// Error converts the BadUsage to a string. Fulfills the error interface.
func (e *BadUsage) Error() string {
	return "Usage error: " + e.Message
}

// ExitCode fulfills the Error interface.
func (e *BadUsage) ExitCode() int {
	return StatusCodeBadUsage
}

//
// Runtime
//

// Runtime is a generic error that happened while running a session. More
// specific runtime errors (Heap, Frame, Object, Builtin, Executor, State)
// should be preferred where they apply; Runtime is the catch-all for
// everything else the interpreter loop can panic with.
type Runtime struct {
	// Message contains a message explaining what happened.
	Message string
}

// NewRuntime is a handy way to create a Runtime error.
func NewRuntime(format string, a ...any) *Runtime {
	return &Runtime{
		Message: fmt.Sprintf(format, a...),
	}
}

// Error converts the Runtime to a string. Fulfills the error interface.
func (e *Runtime) Error() string {
	return "Runtime error: " + e.Message
}

// ExitCode fulfills the Error interface.
func (e *Runtime) ExitCode() int {
	return StatusCodeRuntimeError
}

//
// Heap
//

// Heap represents heap error kinds: out of memory, illegal
// handle, dangling handle.
type Heap struct {
	Message string
}

// NewHeap is a handy way to create a Heap error.
func NewHeap(format string, a ...any) *Heap {
	return &Heap{Message: fmt.Sprintf(format, a...)}
}

// Error converts the Heap error to a string. Fulfills the error interface.
func (e *Heap) Error() string {
	return "Heap error: " + e.Message
}

// ExitCode fulfills the Error interface.
func (e *Heap) ExitCode() int {
	return StatusCodeRuntimeError
}

//
// Frame
//

// Frame represents call-frame error kinds: IP out of
// bounds, constant out of bounds, illegal/non-function handle.
type Frame struct {
	Message string
}

// NewFrame is a handy way to create a Frame error.
func NewFrame(format string, a ...any) *Frame {
	return &Frame{Message: fmt.Sprintf(format, a...)}
}

// Error converts the Frame error to a string. Fulfills the error interface.
func (e *Frame) Error() string {
	return "Frame error: " + e.Message
}

// ExitCode fulfills the Error interface.
func (e *Frame) ExitCode() int {
	return StatusCodeRuntimeError
}

//
// Object
//

// Object represents object-construction error kinds (currently
// just the heterogeneous-array check).
type Object struct {
	Message string
}

// NewObject is a handy way to create an Object error.
func NewObject(format string, a ...any) *Object {
	return &Object{Message: fmt.Sprintf(format, a...)}
}

// Error converts the Object error to a string. Fulfills the error interface.
func (e *Object) Error() string {
	return e.Message
}

// ExitCode fulfills the Error interface.
func (e *Object) ExitCode() int {
	return StatusCodeRuntimeError
}

//
// Builtin
//

// Builtin represents built-in function error kinds: wrong
// arity, invalid instance argument, scheduling failure, client transmission
// failure, unknown opcode.
type Builtin struct {
	Message string
}

// NewBuiltin is a handy way to create a Builtin error.
func NewBuiltin(format string, a ...any) *Builtin {
	return &Builtin{Message: fmt.Sprintf(format, a...)}
}

// Error converts the Builtin error to a string. Fulfills the error interface.
func (e *Builtin) Error() string {
	return e.Message
}

// ExitCode fulfills the Error interface.
func (e *Builtin) ExitCode() int {
	return StatusCodeRuntimeError
}

//
// Executor
//

// Executor represents executor error kinds: unknown job,
// schedule rejected, transport failure.
type Executor struct {
	Message string
}

// NewExecutor is a handy way to create an Executor error.
func NewExecutor(format string, a ...any) *Executor {
	return &Executor{Message: fmt.Sprintf(format, a...)}
}

// Error converts the Executor error to a string. Fulfills the error
// interface.
func (e *Executor) Error() string {
	return e.Message
}

// ExitCode fulfills the Error interface.
func (e *Executor) ExitCode() int {
	return StatusCodeRuntimeError
}

//
// State
//

// State represents the capture/restore mismatch error kind.
type State struct {
	Message string
}

// NewState is a handy way to create a State error.
func NewState(format string, a ...any) *State {
	return &State{Message: fmt.Sprintf(format, a...)}
}

// Error converts the State error to a string. Fulfills the error interface.
func (e *State) Error() string {
	return "State error: " + e.Message
}

// ExitCode fulfills the Error interface.
func (e *State) ExitCode() int {
	return StatusCodeRuntimeError
}

//
// ICE
//

// ICE is an internal error. Used to report some unexpected issue with
// pararuna itself -- like when we find it is in a state it wasn't expected to
// be. It's always a bug.
type ICE struct {
	// Message contains some message to contextualize the situation in which
	// the error happened. Hopefully will be good enough to help fixing the
	// bug.
	Message string
}

// NewICE is a handy way to create an ICE.
func NewICE(format string, a ...any) *ICE {
	return &ICE{
		Message: fmt.Sprintf(format, a...),
	}
}

// Error converts the ICE to a string. Fulfills the error interface.
func (e *ICE) Error() string {
	return "Internal error: " + e.Message
}

// ExitCode fulfills the Error interface.
func (e *ICE) ExitCode() int {
	return StatusCodeICE
}
