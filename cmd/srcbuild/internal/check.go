package internal

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/goplus/srcbuild/internal/prereq"
	"github.com/goplus/srcbuild/internal/toolchain"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that the required build tools are installed",
	Long:  `Check probes git, make and cmake (and MSBuild on Windows) and prints what it found.`,
	Args:  cobra.NoArgs,
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	out := cmd.OutOrStdout()
	checker := &prereq.Checker{
		Runner: s.runner,
		Host:   toolchain.Detect(s.runner),
		Out:    out,
		Log:    s.log,
	}
	rep := checker.Check(context.Background())

	tools := make([]string, 0, len(rep.Versions))
	for tool := range rep.Versions {
		tools = append(tools, tool)
	}
	sort.Strings(tools)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, tool := range tools {
		fmt.Fprintf(tw, "%s\t%s\n", tool, rep.Versions[tool])
	}
	if rep.BuildDriver != "" {
		fmt.Fprintf(tw, "%s\t%s\n", toolchain.MSBuild, rep.BuildDriver)
	}
	tw.Flush()

	if !rep.OK() {
		fmt.Fprintln(out, "\nMissing required tools. Please install them and try again.")
		return errReported{errors.New("missing required tools")}
	}
	return nil
}
