// Command pbc is the ahead-of-time compiler's CLI: toc, build, and run.
package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

var rootCmd = &cobra.Command{
	Use:   "pbc",
	Short: "Ahead-of-time compiler for the PB language.",
	Long:  "pbc lexes, parses, type-checks, and compiles PB source to portable C99, then optionally links and runs it.",
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log phase timing and module resolution")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "dump diagnostics as indented JSON")
	rootCmd.PersistentFlags().String("stdlib", "stdlib", "standard library search root")
	rootCmd.PersistentFlags().String("vendor", "vendor", "vendor module search root")
	rootCmd.PersistentFlags().String("runtime", "runtime", "directory holding pb_runtime.h/.c")
	rootCmd.PersistentFlags().String("build-dir", "build", "directory generated .c/.h files are written to")
	rootCmd.PersistentFlags().String("cc", "gcc", "C compiler invoked to link the generated translation units")
	rootCmd.PersistentFlags().StringArray("cflag", []string{"-std=c99", "-W"}, "flag passed to cc (repeatable)")
}

// Execute runs the root command; it is called once from main.main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
