package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pbedn/pbc/internal/errorsx"
	"github.com/pbedn/pbc/internal/manifest"
	"github.com/pbedn/pbc/internal/pipeline"
)

// GetFlag gets an expected bool flag, or exits if the flag is misdeclared.
func GetFlag(cmd *cobra.Command, flag string) bool {
	r, err := cmd.Flags().GetBool(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
	return r
}

// GetString gets an expected string flag, or exits if the flag is misdeclared.
func GetString(cmd *cobra.Command, flag string) string {
	r, err := cmd.Flags().GetString(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
	return r
}

// GetStringArray gets an expected string-array flag, or exits if the flag is
// misdeclared.
func GetStringArray(cmd *cobra.Command, flag string) []string {
	r, err := cmd.Flags().GetStringArray(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
	return r
}

// loadManifest resolves pbc.yaml (if present in the working directory) and
// overlays any flags the user actually set on the command line on top of it,
// so a project's pbc.yaml is the baseline and flags are the override.
func loadManifest(cmd *cobra.Command) manifest.Manifest {
	m, err := manifest.Load("pbc.yaml")
	if err != nil {
		fmt.Fprintln(os.Stderr, red(bold("error:")), "reading pbc.yaml:", err)
		os.Exit(1)
	}

	if cmd.Flags().Changed("stdlib") {
		m.StdlibDir = GetString(cmd, "stdlib")
	}
	if cmd.Flags().Changed("vendor") {
		m.VendorDir = GetString(cmd, "vendor")
	}
	if cmd.Flags().Changed("build-dir") {
		m.BuildDir = GetString(cmd, "build-dir")
	}
	if cmd.Flags().Changed("cc") {
		m.CC = GetString(cmd, "cc")
	}
	if cmd.Flags().Changed("cflag") {
		m.CFlags = GetStringArray(cmd, "cflag")
	}
	return m
}

func newPipeline(cmd *cobra.Command) (*pipeline.Pipeline, manifest.Manifest) {
	m := loadManifest(cmd)
	runtimeDir := GetString(cmd, "runtime")
	p := pipeline.New(m.StdlibDir, m.VendorDir, runtimeDir, m.BuildDir, m.CC, m.CFlags, m.SearchPaths...)
	p.SetVerbose(GetFlag(cmd, "verbose"))
	return p, m
}

// entryPath picks the module to compile: the first positional argument if
// given, else the manifest's configured root (main.pb by default).
func entryPath(args []string, m manifest.Manifest) string {
	if len(args) > 0 {
		return args[0]
	}
	return m.Root
}

// reportAndExit renders err to stderr as a colorized one-liner (and, with
// --debug, the full Report as indented JSON) and exits 1. A non-Report error
// (a Go error that never went through errorsx) is printed plainly instead.
func reportAndExit(cmd *cobra.Command, err error) {
	rep, ok := errorsx.AsReport(err)
	if !ok {
		fmt.Fprintln(os.Stderr, red(bold("error:")), err)
		os.Exit(1)
	}

	pos := ""
	if rep.Pos != nil {
		pos = rep.Pos.String() + ": "
	}
	fmt.Fprintf(os.Stderr, "%s%s %s: %s\n", pos, red(bold(rep.Code)), rep.Phase, rep.Message)

	if GetFlag(cmd, "debug") {
		if js, jerr := rep.ToJSON(); jerr == nil {
			fmt.Fprintln(os.Stderr, js)
		}
	}
	os.Exit(1)
}
