package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kingrea/releasekit/internal/branch"
	"github.com/kingrea/releasekit/internal/logging"
	"github.com/kingrea/releasekit/internal/version"
)

var (
	versionTarget     string
	versionKnown      []string
	versionDocsPolicy string

	versionNextFrom string
	versionNextBump string
	versionNextRC   int
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Version comparison and bump helpers",
}

var versionCompareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Find the versions a target is compared against",
	Long: `Resolve the comparison version for release notes and the comparison
version for documentation. Known versions come from --known or, when that is
empty, from the tags of the local git repository.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := loadRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		if versionDocsPolicy != "" {
			p, err := branch.ParseDocsPolicy(versionDocsPolicy)
			if err != nil {
				return err
			}
			rt.settings.DocsPolicy = p
		}
		planner, err := rt.planner()
		if err != nil {
			return err
		}
		known, err := rt.knownVersions(cmd.Context(), versionKnown)
		if err != nil {
			return err
		}
		res, err := planner.Versions(versionTarget, known)
		if err != nil {
			return err
		}
		logging.LogDiagnostics(rt.logger, res.Diagnostics)

		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"target":          res.Target,
				"comparison":      res.Comparison,
				"docs_comparison": res.DocsComparison,
				"diagnostics":     res.Diagnostics,
			})
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "target:          %s\n", res.Target)
		fmt.Fprintf(out, "comparison:      %s\n", versionOrNone(res.Comparison))
		fmt.Fprintf(out, "docs comparison: %s\n", versionOrNone(res.DocsComparison))
		return nil
	},
}

var versionNextCmd = &cobra.Command{
	Use:   "next",
	Short: "Compute the next version",
	Long: `Bump --from (or the latest tagged version) by major, minor, patch or rc.
An rc bump keeps major.minor.patch and sets the prerelease to rc.<n>; without
--rc, n continues the candidates of the same version.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := loadRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		var known []version.Version
		from := strings.TrimSpace(versionNextFrom)
		if from == "" {
			known, err = rt.knownVersions(cmd.Context(), nil)
			if err != nil {
				return err
			}
			if len(known) == 0 {
				return fmt.Errorf("no tagged versions found; pass --from")
			}
			from = known[len(known)-1].String()
		}
		base, err := version.Parse(from)
		if err != nil {
			return err
		}
		next, err := nextVersion(base, versionNextBump, versionNextRC, known)
		if err != nil {
			return err
		}
		rt.logger.Debug("next version", zap.String("from", base.String()), zap.String("next", next.String()))
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), map[string]any{"from": base, "next": next, "tag": rt.cfg.TagPrefix() + next.String()})
		}
		fmt.Fprintln(cmd.OutOrStdout(), next.String())
		return nil
	},
}

func init() {
	versionCompareCmd.Flags().StringVar(&versionTarget, "target", "", "Target version (required)")
	versionCompareCmd.Flags().StringSliceVar(&versionKnown, "known", nil, "Known versions (defaults to git tags)")
	versionCompareCmd.Flags().StringVar(&versionDocsPolicy, "docs-policy", "", "Docs comparison policy: final-only or include-rcs")
	_ = versionCompareCmd.MarkFlagRequired("target")

	versionNextCmd.Flags().StringVar(&versionNextFrom, "from", "", "Version to bump (defaults to the latest tag)")
	versionNextCmd.Flags().StringVar(&versionNextBump, "bump", "patch", "Bump kind: major, minor, patch or rc")
	versionNextCmd.Flags().IntVar(&versionNextRC, "rc", 0, "Release candidate number for --bump rc")

	versionCmd.AddCommand(versionCompareCmd)
	versionCmd.AddCommand(versionNextCmd)
	rootCmd.AddCommand(versionCmd)
}

// nextVersion applies bump to base. For rc bumps without an explicit number
// the next candidate follows the highest known rc of the same version.
func nextVersion(base version.Version, bump string, rc int, known []version.Version) (version.Version, error) {
	switch strings.ToLower(strings.TrimSpace(bump)) {
	case "major":
		return base.BumpMajor(), nil
	case "minor":
		return base.BumpMinor(), nil
	case "", "patch":
		return base.BumpPatch(), nil
	case "rc":
		if rc < 0 {
			return version.Version{}, fmt.Errorf("rc number must be positive, got %d", rc)
		}
		if rc == 0 {
			rc = nextCandidate(base, known)
		}
		return base.BumpRC(rc), nil
	}
	return version.Version{}, fmt.Errorf("unknown bump %q (want major, minor, patch or rc)", bump)
}

func nextCandidate(base version.Version, known []version.Version) int {
	highest := 0
	candidates := append([]version.Version{base}, known...)
	for _, v := range candidates {
		if !v.SameCore(base) || !v.IsReleaseCandidate() {
			continue
		}
		if n, ok := candidateNumber(v); ok && n > highest {
			highest = n
		}
	}
	return highest + 1
}

func candidateNumber(v version.Version) (int, bool) {
	var n int
	if _, err := fmt.Sscanf(v.Prerelease, "rc.%d", &n); err != nil {
		return 0, false
	}
	return n, true
}

func versionOrNone(v *version.Version) string {
	if v == nil {
		return "(none)"
	}
	return v.String()
}

// knownVersions parses explicit versions or falls back to the git tags of
// the project.
func (rt *runtime) knownVersions(ctx context.Context, explicit []string) ([]version.Version, error) {
	if len(explicit) > 0 {
		out := make([]version.Version, 0, len(explicit))
		for _, text := range explicit {
			v, err := version.Parse(text)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		version.Sort(out)
		return out, nil
	}
	git := rt.git()
	if !git.IsRepo(ctx) {
		rt.logger.Debug("not a git repository; no known versions", zap.String("dir", rt.cfg.ProjectDir))
		return nil, nil
	}
	tags, err := git.Tags(ctx)
	if err != nil {
		return nil, err
	}
	return version.ParseTags(tags, rt.cfg.TagPrefix()), nil
}
