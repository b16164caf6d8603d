/******************************************************************************\
* Pararuna                                                                     *
*                                                                               *
* Copyright 2020-2023 Leandro Motta Barros                                     *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stackedboxes/pararuna/pkg/bytecode"
)

var disasmCmd = &cobra.Command{
	Use:   "disasm <program-file>",
	Short: "Disassembles a compiled program",
	Long:  `Disassembles a compiled program, listing its constants and every chunk.`,
	Args:  cobra.ExactArgs(1),

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

		fmt.Printf("Disassembling %s\n", args[0])
		fmt.Printf("%v constants, %v chunks, entry point chunk %v\n\n",
			len(program.Constants), len(program.Chunks), program.FirstChunk)

		fmt.Println("Constants:")
		for i, c := range program.Constants {
			fmt.Printf("    %5d: %v\n", i, c.DebugString())
		}

		for i, c := range program.Chunks {
			fmt.Printf("\n== chunk %v ==\n", i)
			for offset := 0; offset < len(c.Code); {
				offset = program.DisassembleInstruction(c, os.Stdout, offset, i)
			}
		}

		return nil
	},
}
