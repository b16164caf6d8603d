/******************************************************************************\
* Pararuna                                                                     *
*                                                                               *
* Copyright 2020-2023 Leandro Motta Barros                                     *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

package errs

const (
	// StatusCodeSuccess indicates a successful execution.
	StatusCodeSuccess = 0

	// StatusCodeCompileTimeError indicates a compile-time error reported by
	// the external script compiler.
	StatusCodeCompileTimeError = 1

	// StatusCodeRuntimeError indicates an error detected while running a
	// session. Heap, frame, object, builtin, executor and state errors all
	// surface with this code: from the CLI's point of view they are all "the
	// script failed to run".
	StatusCodeRuntimeError = 2

	// StatusCodeToolError indicates some error in the tooling itself (e.g.,
	// opening or parsing a file), unrelated to the session being run.
	StatusCodeToolError = 3

	// StatusCodeBadUsage indicates some user error in the usage of the
	// pararuna tool (e.g., passing the wrong number of arguments, or passing
	// a nonexisting command-line flag).
	StatusCodeBadUsage = 50

	// StatusCodeICE indicates an internal error -- a bug in pararuna itself,
	// as opposed to anything in the script being run.
	StatusCodeICE = 125
)
