/******************************************************************************\
* Pararuna                                                                     *
*                                                                               *
* Copyright 2020-2023 Leandro Motta Barros                                     *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "pararuna",
	SilenceUsage: true,
	Short:        "Pararuna is a small asynchronous-dispatch bytecode runtime",
	Long: `Pararuna runs programs whose functions may be external: calling one
doesn't block, it hands a job off to an executor and hands back a Service
value you can later wait on.`,
}

func init() {
	rootCmd.AddCommand(asmCmd, disasmCmd, runCmd, serveCmd)
}
