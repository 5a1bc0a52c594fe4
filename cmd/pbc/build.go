package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var buildCmd = &cobra.Command{
	Use:   "build [file.pb]",
	Short: "Compile PB source and link it into an executable.",
	Long:  "build runs toc, then shells out to cc to link the generated translation units into an executable.",
	Run: func(cmd *cobra.Command, args []string) {
		p, m := newPipeline(cmd)
		entry := entryPath(args, m)
		exe := GetString(cmd, "output")
		if exe == "" {
			exe = defaultExeName(entry)
		}
		if _, err := p.Build(entry, exe); err != nil {
			reportAndExit(cmd, err)
		}
		fmt.Println(green("ok"), exe)
	},
}

func init() {
	buildCmd.Flags().StringP("output", "o", "", "path of the produced executable (default: the entry module's name)")
	rootCmd.AddCommand(buildCmd)
}

func defaultExeName(entryPath string) string {
	base := filepath.Base(entryPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
