// Package prereq verifies that the external build tools are installed.
package prereq

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/mod/semver"

	"github.com/goplus/srcbuild/internal/shell"
	"github.com/goplus/srcbuild/internal/toolchain"
)

// minCMake is the first release supporting "cmake --install".
const minCMake = "v3.15.0"

// Probes lists the tools every build needs, each with a harmless query.
var Probes = []shell.Cmd{
	{Name: toolchain.Git, Args: []string{"--version"}},
	{Name: toolchain.Make, Args: []string{"--version"}},
	{Name: toolchain.CMake, Args: []string{"--version"}},
}

var versionRE = regexp.MustCompile(`(\d+)\.(\d+)(?:\.(\d+))?`)

// Report is the outcome of a dependency check.
type Report struct {
	// Missing holds the names of tools that could not be invoked, in probe order.
	Missing []string
	// Versions maps each present tool to the version it reported, if any.
	Versions map[string]string
	// BuildDriver is the located native build driver, if the host needs one.
	BuildDriver string
}

// OK reports whether every tool is present.
func (r *Report) OK() bool { return len(r.Missing) == 0 }

// Checker probes the host for the build tools.
type Checker struct {
	Runner shell.Runner
	Host   toolchain.Host
	// Out receives installation guidance for missing tools.
	Out io.Writer
	Log *zap.Logger
}

// Check runs every probe. A tool counts as present when its query exits
// successfully, whatever version it reports.
func (c *Checker) Check(ctx context.Context) *Report {
	log := c.logger()
	log.Info("checking build dependencies")

	rep := &Report{Versions: make(map[string]string)}
	for _, probe := range Probes {
		out, err := c.Runner.Output(ctx, probe)
		if err != nil {
			log.Debug("probe failed", zap.String("tool", probe.Name), zap.Error(err))
			c.missing(rep, probe.Name)
			continue
		}
		version := ParseVersion(out)
		rep.Versions[probe.Name] = version
		log.Info("found "+probe.Name, zap.String("version", version))
		if probe.Name == toolchain.CMake && version != "" && semver.Compare("v"+version, minCMake) < 0 {
			log.Warn("cmake is older than 3.15, the install step may fail", zap.String("version", version))
		}
	}

	driver, err := c.Host.LocateBuildDriver(ctx)
	switch {
	case err != nil:
		log.Debug("build driver lookup failed", zap.Error(err))
		c.missing(rep, toolchain.MSBuild)
	case driver != "":
		rep.BuildDriver = driver
		log.Info("found "+toolchain.MSBuild, zap.String("path", driver))
	}
	return rep
}

func (c *Checker) missing(rep *Report, tool string) {
	rep.Missing = append(rep.Missing, tool)
	if c.Out != nil {
		fmt.Fprintln(c.Out, c.Host.Hint(tool))
	}
}

func (c *Checker) logger() *zap.Logger {
	if c.Log == nil {
		return zap.NewNop()
	}
	return c.Log
}

// ParseVersion extracts the first dotted version number from the first line
// of a --version banner. It returns "" when none is found.
func ParseVersion(out string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(out), "\n")
	m := versionRE.FindStringSubmatch(line)
	if m == nil {
		return ""
	}
	if m[3] == "" {
		return m[1] + "." + m[2] + ".0"
	}
	return m[0]
}
