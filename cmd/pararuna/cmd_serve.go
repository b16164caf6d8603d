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
	"golang.org/x/sync/errgroup"

	"github.com/stackedboxes/pararuna/pkg/bytecode"
	"github.com/stackedboxes/pararuna/pkg/config"
	"github.com/stackedboxes/pararuna/pkg/driver"
	"github.com/stackedboxes/pararuna/pkg/executor"
	"github.com/stackedboxes/pararuna/pkg/vm"
)

var flagServeConfig string
var flagServeSessions int

var serveCmd = &cobra.Command{
	Use:   "serve <program-file>",
	Short: "Runs a session manager over a compiled program",
	Long: `Runs a session manager the way a driver process would: every
session gets its own id, restores its own VM state between calls, and
its own in-memory executor. There is no real network listener here --
this command fans out --sessions concurrent Execute calls against one
program to exercise that machinery end to end.`,
	Args: cobra.ExactArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		program, err := bytecode.Deserialize(f)
		if err != nil {
			return err
		}

		opts := config.Default()
		if flagServeConfig != "" {
			loaded, loadErr := config.Load(flagServeConfig)
			if loadErr != nil {
				return loadErr
			}
			opts = loaded
		}

		fmt.Printf("pararuna serve: listening on %v (simulated, %v concurrent sessions)\n",
			opts.ListenAddress, flagServeSessions)

		mgr := driver.NewManager(
			func(sessionID string) executor.Executor { return executor.NewMemory() },
			nil,
			vm.Options{HeapCapacity: opts.HeapCapacity, Trace: opts.Trace},
		)

		var g errgroup.Group
		for i := 0; i < flagServeSessions; i++ {
			session := i
			g.Go(func() error {
				sessionID := mgr.CreateSession()
				replies := mgr.Execute(context.Background(), sessionID, program, entryPointName(program))
				for r := range replies {
					fmt.Printf("[session %v %v] %v\n", session, sessionID, r.Text)
				}
				return nil
			})
		}

		return g.Wait()
	},
}

func entryPointName(program *bytecode.Program) string {
	for _, c := range program.Constants {
		if c.Kind == bytecode.ConstFunction && c.ChunkIndex == program.FirstChunk {
			return c.FuncName
		}
	}
	return ""
}

func init() {
	serveCmd.Flags().StringVarP(&flagServeConfig, "config", "c", "",
		"Path to a pararuna.toml configuration file")
	serveCmd.Flags().IntVarP(&flagServeSessions, "sessions", "n", 3,
		"Number of concurrent demo sessions to run")
}
