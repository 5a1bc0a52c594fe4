package main

import (
	"fmt"
	"os"

	"github.com/pbedn/pbc/internal/errorsx"
)

func main() {
	defer func() {
		// Every phase reports failure through *errorsx.ReportError; nothing
		// in normal operation should panic. If one ever does (an unreachable
		// Go bug, not a PB compile error), surface it as a RUNTIME report
		// instead of letting the process dump a bare stack trace.
		if r := recover(); r != nil {
			rep := &errorsx.Report{Schema: "pb.error/v1", Code: errorsx.RUNTIME, Phase: "pbc", Message: fmt.Sprintf("internal error: %v", r)}
			fmt.Fprintln(os.Stderr, red(bold(rep.Code)), rep.Phase, rep.Message)
			os.Exit(1)
		}
	}()
	Execute()
}
