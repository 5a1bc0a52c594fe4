package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run [file.pb]",
	Short: "Build PB source and run the produced executable.",
	Long:  "run builds the entry module, then executes the produced binary with its stdio streamed through, exiting with its exit code.",
	Run: func(cmd *cobra.Command, args []string) {
		p, m := newPipeline(cmd)

		entry := entryPath(args, m)
		exe := filepath.Join(m.BuildDir, defaultExeName(entry)+".exe")

		code, err := p.Run(entry, exe, nil)
		if err != nil {
			reportAndExit(cmd, err)
		}
		os.Exit(code)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
