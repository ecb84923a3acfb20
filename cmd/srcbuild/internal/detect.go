package internal

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goplus/srcbuild/pkgs/buildsys"
)

var detectCmd = &cobra.Command{
	Use:   "detect [dir]",
	Short: "Print the build system of a local source tree",
	Long:  `Detect inspects the marker files of dir (default ".") and prints cmake, autotools or make.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDetect,
}

func init() {
	rootCmd.AddCommand(detectCmd)
}

func runDetect(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	kind, err := buildsys.Detect(dir)
	if err != nil {
		return err
	}
	if kind == buildsys.Unknown {
		return fmt.Errorf("%s: %w", dir, buildsys.ErrUnsupported)
	}
	fmt.Fprintln(cmd.OutOrStdout(), kind)
	return nil
}
