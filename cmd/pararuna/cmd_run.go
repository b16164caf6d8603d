/******************************************************************************\
* Pararuna                                                                     *
*                                                                               *
* Copyright 2020-2023 Leandro Motta Barros                                     *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stackedboxes/pararuna/pkg/bytecode"
	"github.com/stackedboxes/pararuna/pkg/config"
	"github.com/stackedboxes/pararuna/pkg/errs"
	"github.com/stackedboxes/pararuna/pkg/executor"
	"github.com/stackedboxes/pararuna/pkg/vm"
)

var flagRunEntry string
var flagRunConfig string

var runCmd = &cobra.Command{
	Use:   "run <program-file>",
	Short: "Runs a compiled program's entry point to completion",
	Long: `Runs a compiled program's entry point to completion, using an
in-process executor that completes every external call synchronously.
There is no real container collaborator here -- this is for trying out a
program without standing up a driver and executor pair.`,
	Args: cobra.ExactArgs(1),

	Run: func(cmd *cobra.Command, args []string) {
		f, plainErr := os.Open(args[0])
		if plainErr != nil {
			exitOnPlainError(plainErr)
		}
		defer f.Close()

		program, plainErr := bytecode.Deserialize(f)
		if plainErr != nil {
			exitOnPlainError(plainErr)
		}

		opts := config.Default()
		if flagRunConfig != "" {
			loaded, err := config.Load(flagRunConfig)
			reportAndExitOnError(err)
			opts = loaded
		}

		ex := executor.NewMemory()
		theVM := vm.New(ex, nil, vm.Options{
			ClearAfterMain: opts.ClearAfterMain,
			HeapCapacity:   opts.HeapCapacity,
			Trace:          opts.Trace,
		})

		if err := theVM.Load(program); err != nil {
			reportAndExit(err)
		}

		var entry bytecode.Value
		if flagRunEntry != "" {
			v, ok := theVM.Global(flagRunEntry)
			if !ok {
				reportAndExit(errs.NewBadUsage("program has no global named %q", flagRunEntry))
			}
			entry = v
		} else {
			v, err := theVM.EntryPoint()
			reportAndExitOnError(err)
			entry = v
		}

		result, err := theVM.Main(context.Background(), entry)
		reportAndExitOnError(err)

		fmt.Print(ex.Output())
		fmt.Printf("=> %v\n", result)
		reportAndExit(nil)
	},
}

func init() {
	runCmd.Flags().StringVarP(&flagRunEntry, "entry", "e", "",
		"Global function to run instead of the program's entry point")
	runCmd.Flags().StringVarP(&flagRunConfig, "config", "c", "",
		"Path to a pararuna.toml configuration file")
}
