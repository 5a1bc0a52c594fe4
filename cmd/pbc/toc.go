package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pbedn/pbc/internal/ast"
)

var tocCmd = &cobra.Command{
	Use:   "toc [file.pb]",
	Short: "Compile PB source to C99 without linking.",
	Long:  "toc lexes, parses, type-checks, and generates a .h/.c pair per module, then stops.",
	Run: func(cmd *cobra.Command, args []string) {
		p, m := newPipeline(cmd)
		results, err := p.Compile(entryPath(args, m))
		if err != nil {
			reportAndExit(cmd, err)
		}
		if GetFlag(cmd, "debug") {
			for _, sym := range p.Loader.Modules() {
				fmt.Fprintln(os.Stderr, yellow("// AST of "+sym.Name))
				fmt.Fprintln(os.Stderr, ast.Print(sym.Program))
			}
		}
		for _, r := range results {
			if r.Native {
				fmt.Printf("%s %s (native vendor binding, no codegen)\n", green("ok"), r.ModuleName)
				continue
			}
			fmt.Printf("%s %s -> %s\n", green("ok"), r.ModuleName, r.CPath)
		}
	},
}

func init() {
	rootCmd.AddCommand(tocCmd)
}
