package internal

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goplus/srcbuild/internal/config"
	"github.com/goplus/srcbuild/internal/logging"
	"github.com/goplus/srcbuild/internal/shell"
)

var rootCmd = &cobra.Command{
	Use:   "srcbuild <repository-url> [branch]",
	Short: "srcbuild clones a C/C++ repository and builds it from source",
	Long: `srcbuild clones a repository, detects whether it builds with CMake, Autotools
or Make, and installs the result under output/<project> in the workspace root.`,
	Example:       "  srcbuild https://github.com/username/project.git main",
	Args:          buildArgs,
	RunE:          runBuild,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// newRunner is replaced in tests.
var newRunner = func() shell.Runner { return shell.NewExec() }

// errReported marks errors whose details were already printed.
type errReported struct{ err error }

func (e errReported) Error() string { return e.err.Error() }
func (e errReported) Unwrap() error { return e.err }

func init() {
	config.RegisterFlags(rootCmd.PersistentFlags())
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
// Any error exits with status 1.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var reported errReported
		if !errors.As(err, &reported) {
			fmt.Fprintln(rootCmd.ErrOrStderr(), "Error:", err)
		}
		os.Exit(1)
	}
}

func buildArgs(cmd *cobra.Command, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		cmd.SetOut(cmd.ErrOrStderr())
		_ = cmd.Usage()
		return errReported{fmt.Errorf("accepts 1 or 2 arg(s), received %d", len(args))}
	}
	return nil
}

// session is what every command needs once flags are parsed.
type session struct {
	cfg    config.Config
	log    *zap.Logger
	runner shell.Runner
	close  func()
}

func newSession(cmd *cobra.Command) (*session, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, err
	}
	log, closeFn, err := logging.New(logging.Options{
		Verbose: cfg.Verbose,
		File:    cfg.LogFile,
		Console: cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}
	if cfg.File != "" {
		log.Debug("loaded config", zap.String("file", cfg.File))
	}
	return &session{cfg: cfg, log: log, runner: newRunner(), close: closeFn}, nil
}
