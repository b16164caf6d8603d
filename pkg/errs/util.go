/******************************************************************************\
* Pararuna                                                                     *
*                                                                               *
* Copyright 2020-2023 Leandro Motta Barros                                     *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

package errs

import (
	"fmt"
	"os"
)

// ReportAndExit reports the error err to the end user and exits with the
// appropriate status code. It's fine if err is nil: this just means we had a
// successful execution and therefore we'll exit successfully.
func ReportAndExit(err Error) {
	if err == nil {
		os.Exit(StatusCodeSuccess)
	}
	fmt.Fprintf(os.Stderr, "%v\n", err)
	os.Exit(err.ExitCode())
}

// ReportAndExitOnError is similar to ReportAndExit, but is a no-op if err is
// nil.
func ReportAndExitOnError(err Error) {
	if err == nil {
		return
	}
	ReportAndExit(err)
}
