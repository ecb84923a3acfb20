package internal

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/goplus/srcbuild/internal/build"
	"github.com/goplus/srcbuild/internal/env"
	"github.com/goplus/srcbuild/internal/toolchain"
)

func runBuild(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	var branch string
	if len(args) > 1 {
		branch = args[1]
	}
	tgt, err := env.NewTarget(s.cfg.Root, args[0], branch)
	if err != nil {
		return err
	}

	host := toolchain.Detect(s.runner)
	builder := build.NewBuilder(build.Options{
		Runner:        s.runner,
		Host:          host,
		Log:           s.log,
		Out:           cmd.OutOrStdout(),
		Settle:        s.cfg.Settle,
		Jobs:          s.cfg.Jobs,
		Defines:       s.cfg.Defines,
		ConfigureArgs: s.cfg.ConfigureArgs,
		Use:           s.cfg.Use,
		Env:           s.cfg.Env,
	})

	res, err := builder.Run(context.Background(), tgt)
	if err != nil {
		reportFailure(cmd.OutOrStdout(), err, host)
		return errReported{err}
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "\nBuild process completed successfully!")
	fmt.Fprintf(out, "Output files can be found in: %s\n", res.OutputDir)
	return nil
}

// reportFailure prints err with the remediation that fits it.
func reportFailure(w io.Writer, err error, host toolchain.Host) {
	var missing *build.MissingToolsError
	if errors.As(err, &missing) {
		fmt.Fprintln(w, "\nMissing required tools. Please install them and try again.")
		return
	}
	fmt.Fprintf(w, "\nError during build process: %v\n", err)
	fmt.Fprintln(w, "\nTroubleshooting tips:")
	for i, tip := range host.Troubleshooting() {
		fmt.Fprintf(w, "%d. %s\n", i+1, tip)
	}
}
