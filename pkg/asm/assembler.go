/******************************************************************************\
* Pararuna                                                                     *
*                                                                               *
* Copyright 2020-2023 Leandro Motta Barros                                     *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

// Package asm is a tiny textual assembler for Pararuna bytecode: it is not a
// compiler for any source language, just a direct, line-oriented notation
// for the opcodes pkg/vm executes. It exists so programs can be authored and
// disassembled by hand, the way the interpreter loop itself is tested.
package asm

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/stackedboxes/pararuna/pkg/bytecode"
)

// Assemble parses source and produces a Program. See the package doc comment
// for background; the grammar is:
//
//	.const <name> int|real|bool|str <value>
//	.extfunc <name> <kind> <descriptor> <arity>
//	.func <name> <arity>
//	    <LABEL>:
//	    <MNEMONIC> [operand]
//	.endfunc
//	.entry <name>
//
// Opcode operands come in three flavors: a `.const` name (for CONSTANT,
// GET_GLOBAL, SET_GLOBAL, DEFINE_GLOBAL, GET_FIELD, SET_FIELD and CLASS,
// all of which index the constant pool), a plain integer (GET_LOCAL,
// SET_LOCAL, ARRAY, CALL and BUILTIN), or a label name (JUMP, JUMP_IF_FALSE
// and LOOP).
func Assemble(source string) (*bytecode.Program, error) {
	p := &parser{
		program:  &bytecode.Program{},
		constIdx: map[string]int{},
	}
	if err := p.run(source); err != nil {
		return nil, err
	}
	return p.program, nil
}

type parser struct {
	program  *bytecode.Program
	constIdx map[string]int

	entryName string
}

func (p *parser) run(source string) error {
	lines := splitLines(source)
	i := 0
	for i < len(lines) {
		lineNo, text := lines[i].no, lines[i].text
		fields := strings.Fields(text)
		if len(fields) == 0 {
			i++
			continue
		}

		switch fields[0] {
		case ".const":
			if err := p.parseConst(lineNo, text, fields); err != nil {
				return err
			}
			i++

		case ".extfunc":
			if err := p.parseExtFunc(lineNo, fields); err != nil {
				return err
			}
			i++

		case ".func":
			consumed, err := p.parseFunc(lineNo, fields, lines[i+1:])
			if err != nil {
				return err
			}
			i += consumed + 1

		case ".entry":
			if len(fields) != 2 {
				return fmt.Errorf("line %v: .entry takes exactly one function name", lineNo)
			}
			p.entryName = fields[1]
			i++

		default:
			return fmt.Errorf("line %v: unexpected directive %q outside a .func block", lineNo, fields[0])
		}
	}

	if p.entryName == "" {
		return nil
	}
	for _, c := range p.program.Constants {
		if c.Kind == bytecode.ConstFunction && c.FuncName == p.entryName {
			p.program.FirstChunk = c.ChunkIndex
			return nil
		}
	}
	return fmt.Errorf(".entry names unknown function %q", p.entryName)
}

type sourceLine struct {
	no   int
	text string
}

// splitLines splits source into lines, stripping comments (from an
// unquoted ';' to end of line) and surrounding whitespace, and recording
// each line's 1-based line number.
func splitLines(source string) []sourceLine {
	var out []sourceLine
	scanner := bufio.NewScanner(strings.NewReader(source))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		out = append(out, sourceLine{no: lineNo, text: strings.TrimSpace(stripComment(scanner.Text()))})
	}
	return out
}

func stripComment(line string) string {
	inQuotes := false
	for i, r := range line {
		switch r {
		case '"':
			inQuotes = !inQuotes
		case ';':
			if !inQuotes {
				return line[:i]
			}
		}
	}
	return line
}

func (p *parser) parseConst(lineNo int, text string, fields []string) error {
	if len(fields) < 3 {
		return fmt.Errorf("line %v: malformed .const directive", lineNo)
	}
	name, kind := fields[1], fields[2]
	if _, exists := p.constIdx[name]; exists {
		return fmt.Errorf("line %v: constant %q redeclared", lineNo, name)
	}

	var c bytecode.Constant
	switch kind {
	case "int":
		v, err := strconv.ParseInt(fields[3], 10, 64)
		if err != nil {
			return fmt.Errorf("line %v: bad int constant: %w", lineNo, err)
		}
		c = bytecode.NewIntConstant(v)

	case "real":
		v, err := strconv.ParseFloat(fields[3], 64)
		if err != nil {
			return fmt.Errorf("line %v: bad real constant: %w", lineNo, err)
		}
		c = bytecode.NewRealConstant(v)

	case "bool":
		v, err := strconv.ParseBool(fields[3])
		if err != nil {
			return fmt.Errorf("line %v: bad bool constant: %w", lineNo, err)
		}
		c = bytecode.NewBoolConstant(v)

	case "str":
		s, err := parseQuotedString(text)
		if err != nil {
			return fmt.Errorf("line %v: %w", lineNo, err)
		}
		c = bytecode.NewStringConstant(s)

	default:
		return fmt.Errorf("line %v: unknown constant kind %q", lineNo, kind)
	}

	p.constIdx[name] = p.program.AddConstant(c)
	return nil
}

// parseQuotedString extracts the text between the first and the last double
// quote of a .const line, so it can contain spaces and semicolons.
func parseQuotedString(text string) (string, error) {
	start := strings.IndexByte(text, '"')
	end := strings.LastIndexByte(text, '"')
	if start < 0 || end <= start {
		return "", fmt.Errorf("expected a quoted string value")
	}
	return text[start+1 : end], nil
}

func (p *parser) parseExtFunc(lineNo int, fields []string) error {
	if len(fields) != 5 {
		return fmt.Errorf("line %v: .extfunc takes name, kind, descriptor and arity", lineNo)
	}
	arity, err := strconv.Atoi(fields[4])
	if err != nil {
		return fmt.Errorf("line %v: bad arity: %w", lineNo, err)
	}
	p.program.AddConstant(bytecode.NewFunctionExtConstant(fields[1], fields[2], arity, fields[3]))
	return nil
}

// parseFunc assembles one .func ... .endfunc block, starting at body[0], and
// returns how many lines (including the closing .endfunc) it consumed.
func (p *parser) parseFunc(lineNo int, header []string, body []sourceLine) (int, error) {
	if len(header) != 3 {
		return 0, fmt.Errorf("line %v: .func takes a name and an arity", lineNo)
	}
	name := header[1]
	arity, err := strconv.Atoi(header[2])
	if err != nil {
		return 0, fmt.Errorf("line %v: bad arity: %w", lineNo, err)
	}

	fb := bytecode.NewFunctionBuilder(name, arity)
	fa := &funcAssembler{parser: p, fb: fb, labels: map[string]int{}, pending: map[string][]int{}}

	consumed := 0
	for _, ln := range body {
		consumed++
		fields := strings.Fields(ln.text)
		if len(fields) == 0 {
			continue
		}
		if fields[0] == ".endfunc" {
			break
		}
		if err := fa.assembleLine(ln.no, ln.text, fields); err != nil {
			return 0, err
		}
	}

	if len(fa.pending) > 0 {
		for label := range fa.pending {
			return 0, fmt.Errorf("function %v: undefined label %q", name, label)
		}
	}

	chunkIndex := len(p.program.Chunks)
	p.program.Chunks = append(p.program.Chunks, fb.Freeze().Chunk)
	p.program.AddConstant(bytecode.NewFunctionConstant(name, arity, chunkIndex))

	return consumed, nil
}

// funcAssembler assembles the body of a single .func block.
type funcAssembler struct {
	parser  *parser
	fb      *bytecode.FunctionBuilder
	labels  map[string]int
	pending map[string][]int
}

func (fa *funcAssembler) assembleLine(lineNo int, text string, fields []string) error {
	if strings.HasSuffix(fields[0], ":") && len(fields) == 1 {
		label := strings.TrimSuffix(fields[0], ":")
		fa.labels[label] = fa.fb.Len()
		for _, offset := range fa.pending[label] {
			if err := fa.fb.PatchJump(offset); err != nil {
				return fmt.Errorf("line %v: %w", lineNo, err)
			}
		}
		delete(fa.pending, label)
		return nil
	}

	mnemonic := fields[0]
	op, ok := mnemonicToOpcode[mnemonic]
	if !ok {
		return fmt.Errorf("line %v: unknown mnemonic %q", lineNo, mnemonic)
	}

	switch op {
	case bytecode.OpNop, bytecode.OpUnit, bytecode.OpTrue, bytecode.OpFalse, bytecode.OpPop,
		bytecode.OpAdd, bytecode.OpSubtract, bytecode.OpMultiply, bytecode.OpDivide,
		bytecode.OpNegate, bytecode.OpNot, bytecode.OpEqual, bytecode.OpGreater,
		bytecode.OpLess, bytecode.OpReturn, bytecode.OpInstance:
		fa.fb.EmitOpCode(op, lineNo)
		return nil

	case bytecode.OpConstant, bytecode.OpGetGlobal, bytecode.OpSetGlobal, bytecode.OpDefineGlobal,
		bytecode.OpGetField, bytecode.OpSetField, bytecode.OpClass:
		if len(fields) != 2 {
			return fmt.Errorf("line %v: %v takes exactly one constant operand", lineNo, mnemonic)
		}
		idx, ok := fa.parser.constIdx[fields[1]]
		if !ok {
			return fmt.Errorf("line %v: undeclared constant %q", lineNo, fields[1])
		}
		fa.fb.EmitOpCode(op, lineNo)
		fa.fb.EmitUInt31(idx, lineNo)
		return nil

	case bytecode.OpGetLocal, bytecode.OpSetLocal, bytecode.OpArray:
		if len(fields) != 2 {
			return fmt.Errorf("line %v: %v takes exactly one integer operand", lineNo, mnemonic)
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			return fmt.Errorf("line %v: bad operand: %w", lineNo, err)
		}
		fa.fb.EmitOpCode(op, lineNo)
		fa.fb.EmitUInt31(n, lineNo)
		return nil

	case bytecode.OpCall, bytecode.OpBuiltin:
		if len(fields) != 2 {
			return fmt.Errorf("line %v: %v takes exactly one byte operand", lineNo, mnemonic)
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			return fmt.Errorf("line %v: bad operand: %w", lineNo, err)
		}
		fa.fb.EmitOpCode(op, lineNo)
		fa.fb.EmitByte(byte(n), lineNo)
		return nil

	case bytecode.OpJump, bytecode.OpJumpIfFalse:
		if len(fields) != 2 {
			return fmt.Errorf("line %v: %v takes exactly one label operand", lineNo, mnemonic)
		}
		label := fields[1]
		if _, defined := fa.labels[label]; defined {
			return fmt.Errorf("line %v: %v must target a label defined later in the function", lineNo, mnemonic)
		}
		offset := fa.fb.EmitJump(op, lineNo)
		fa.pending[label] = append(fa.pending[label], offset)
		return nil

	case bytecode.OpLoop:
		if len(fields) != 2 {
			return fmt.Errorf("line %v: LOOP takes exactly one label operand", lineNo)
		}
		label := fields[1]
		target, defined := fa.labels[label]
		if !defined {
			return fmt.Errorf("line %v: LOOP must target a label already defined earlier in the function", lineNo)
		}
		return fa.fb.EmitLoop(target, lineNo)

	default:
		return fmt.Errorf("line %v: mnemonic %q is not supported by the assembler", lineNo, mnemonic)
	}
}

var mnemonicToOpcode = map[string]bytecode.OpCode{
	"NOP":           bytecode.OpNop,
	"CONSTANT":      bytecode.OpConstant,
	"UNIT":          bytecode.OpUnit,
	"TRUE":          bytecode.OpTrue,
	"FALSE":         bytecode.OpFalse,
	"POP":           bytecode.OpPop,
	"ADD":           bytecode.OpAdd,
	"SUBTRACT":      bytecode.OpSubtract,
	"MULTIPLY":      bytecode.OpMultiply,
	"DIVIDE":        bytecode.OpDivide,
	"NEGATE":        bytecode.OpNegate,
	"NOT":           bytecode.OpNot,
	"EQUAL":         bytecode.OpEqual,
	"GREATER":       bytecode.OpGreater,
	"LESS":          bytecode.OpLess,
	"GET_LOCAL":     bytecode.OpGetLocal,
	"SET_LOCAL":     bytecode.OpSetLocal,
	"GET_GLOBAL":    bytecode.OpGetGlobal,
	"SET_GLOBAL":    bytecode.OpSetGlobal,
	"DEFINE_GLOBAL": bytecode.OpDefineGlobal,
	"JUMP":          bytecode.OpJump,
	"JUMP_IF_FALSE": bytecode.OpJumpIfFalse,
	"LOOP":          bytecode.OpLoop,
	"CALL":          bytecode.OpCall,
	"RETURN":        bytecode.OpReturn,
	"ARRAY":         bytecode.OpArray,
	"CLASS":         bytecode.OpClass,
	"INSTANCE":      bytecode.OpInstance,
	"GET_FIELD":     bytecode.OpGetField,
	"SET_FIELD":     bytecode.OpSetField,
	"BUILTIN":       bytecode.OpBuiltin,
}
