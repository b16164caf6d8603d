/******************************************************************************\
* Pararuna                                                                     *
*                                                                               *
* Copyright 2020-2023 Leandro Motta Barros                                     *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/stackedboxes/pararuna/pkg/asm"
)

var flagAsmOutput string

var asmCmd = &cobra.Command{
	Use:   "asm <source-file>",
	Short: "Assembles a textual bytecode listing into a compiled program",
	Long:  `Assembles a textual bytecode listing into a compiled program file.`,
	Args:  cobra.ExactArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		source, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}

		program, err := asm.Assemble(string(source))
		if err != nil {
			return err
		}

		out, err := os.Create(flagAsmOutput)
		if err != nil {
			return err
		}
		defer out.Close()

		return program.Serialize(out)
	},
}

func init() {
	asmCmd.Flags().StringVarP(&flagAsmOutput, "output", "o", "a.prrn",
		"Path to write the assembled compiled program to")
}
