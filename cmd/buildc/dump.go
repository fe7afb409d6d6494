package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/buildc-lang/buildc/internal/ast"
	"github.com/buildc-lang/buildc/internal/compiler"
)

func dumpTokens(result *compiler.Result) error {
	for _, tok := range result.Tokens {
		fmt.Println(tok.String())
	}
	return nil
}

func dumpAST(result *compiler.Result) error {
	if result.Script == nil {
		return nil
	}
	ast.Dump(os.Stdout, result.Script)
	return nil
}

func dumpIR(result *compiler.Result) error {
	for _, cb := range result.CodeBlocks {
		fmt.Printf("%s\n", cb)
		for _, block := range cb.Blocks {
			fmt.Printf("  %s:\n", block)
			for _, stmt := range block.Stmts {
				fmt.Printf("    %+v\n", stmt)
			}
		}
	}
	return nil
}

func dumpBytecode(result *compiler.Result) error {
	for _, a := range result.Assembled {
		fmt.Printf("%s (args=%d vararg=%v)\n", a.Name, a.NumArgs, a.Vararg)
		fmt.Printf("  consts: %v\n", a.Consts)
		fmt.Printf("  code:   %s\n", hex.EncodeToString(a.Bytecode))
		for _, line := range a.Lines {
			fmt.Printf("  line: offset=%d line=%d col=%d\n", line.Offset, line.Line, line.Column)
		}
	}
	return nil
}
