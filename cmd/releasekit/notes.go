package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kingrea/releasekit/internal/branch"
	"github.com/kingrea/releasekit/internal/draft"
	"github.com/kingrea/releasekit/internal/logging"
	"github.com/kingrea/releasekit/internal/model"
	"github.com/kingrea/releasekit/internal/policy"
	"github.com/kingrea/releasekit/internal/release"
	"github.com/kingrea/releasekit/internal/storage"
	"github.com/kingrea/releasekit/internal/tui"
	"github.com/kingrea/releasekit/internal/version"
)

var (
	notesTarget   string
	notesSnapshot string
	notesRepo     string
	notesFromGit  bool
	notesWrite    bool
	notesPreview  bool
	notesDoc      bool
)

var notesCmd = &cobra.Command{
	Use:   "notes",
	Short: "Render release notes for a target version",
	Long: `Plan a release and render its notes.

Repository state comes from --snapshot (a YAML or JSON file with commits,
pull requests, tickets, branches, tags and earlier releases) and/or the local
git checkout with --from-git, which reads tags, branches and the commits
between the comparison tag and the release head. Stored release history is
added to the duplicate check when a database is configured.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := loadRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		if notesSnapshot == "" && !notesFromGit {
			return fmt.Errorf("nothing to read: pass --snapshot, --from-git or both")
		}
		planner, err := rt.planner()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		in := release.Input{Target: notesTarget}
		repo := rt.cfg.Project.Repository.CodeRepo
		if notesSnapshot != "" {
			snap, err := model.LoadSnapshot(notesSnapshot)
			if err != nil {
				return err
			}
			in = release.InputFromSnapshot(notesTarget, snap, rt.cfg.TagPrefix())
			if snap.Repository != "" {
				repo = snap.Repository
			}
		}
		if notesRepo != "" {
			repo = notesRepo
		}
		if notesFromGit {
			if err := rt.readGit(ctx, planner, &in); err != nil {
				return err
			}
		}
		if err := rt.addStoredReleases(ctx, repo, &in); err != nil {
			return err
		}

		res, err := planner.Plan(in)
		if err != nil {
			var violation *policy.Violation
			if errors.As(err, &violation) && len(violation.Samples) > 0 {
				rt.logger.Error("release blocked by policy",
					zap.String("code", violation.Code),
					zap.Strings("samples", violation.Samples))
			}
			return err
		}
		logging.LogDiagnostics(rt.logger, res.Diagnostics)
		rt.logger.Info("release planned",
			zap.String("target", res.Target.String()),
			zap.String("comparison", versionOrNone(res.Comparison)),
			zap.String("branch", res.Branch.Name),
			zap.Int("notes", len(res.Notes)))

		if notesWrite {
			path := draft.Path(rt.cfg.OutputPath(), res.Target)
			if err := draft.Write(path, draft.FromResult(repo, res, time.Now().UTC())); err != nil {
				return err
			}
			rt.logger.Info("draft written", zap.String("path", path))
		}
		if notesPreview {
			return tui.Run(res, planner.Formatter(), tea.WithAltScreen())
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), res)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, strings.TrimRight(res.Output.Release, "\n"))
		if notesDoc && res.Output.Doc != "" {
			fmt.Fprintln(out)
			fmt.Fprintln(out, strings.TrimRight(res.Output.Doc, "\n"))
		}
		return nil
	},
}

func init() {
	notesCmd.Flags().StringVar(&notesTarget, "target", "", "Target version (required)")
	notesCmd.Flags().StringVar(&notesSnapshot, "snapshot", "", "Snapshot file (YAML or JSON)")
	notesCmd.Flags().StringVar(&notesRepo, "repo", "", "owner/name used for release history (defaults to repository.code_repo)")
	notesCmd.Flags().BoolVar(&notesFromGit, "from-git", false, "Read tags, branches and commits from the local git repository")
	notesCmd.Flags().BoolVar(&notesWrite, "write", false, "Write a draft to release_notes.output_path")
	notesCmd.Flags().BoolVar(&notesPreview, "preview", false, "Open an interactive preview")
	notesCmd.Flags().BoolVar(&notesDoc, "doc", false, "Also print the documentation output")
	_ = notesCmd.MarkFlagRequired("target")

	rootCmd.AddCommand(notesCmd)
}

// readGit replaces the versions, branches and commits of in with the state
// of the local repository. Commits run from the comparison tag to the head
// of the release branch, local or remote-tracking, or HEAD when neither
// exists.
func (rt *runtime) readGit(ctx context.Context, planner *release.Planner, in *release.Input) error {
	git := rt.git()
	if !git.IsRepo(ctx) {
		return fmt.Errorf("%s is not a git repository", rt.cfg.ProjectDir)
	}
	tags, err := git.Tags(ctx)
	if err != nil {
		return err
	}
	branches, err := git.Branches(ctx)
	if err != nil {
		return err
	}
	in.KnownVersions = version.ParseTags(tags, rt.cfg.TagPrefix())
	in.Branches = branches

	res, err := planner.Versions(in.Target, in.KnownVersions)
	if err != nil {
		return err
	}
	plan := branch.DetermineReleaseBranch(res.Target, branches, in.KnownVersions, rt.settings.Branch)
	head, ok, err := git.ResolveRef(ctx, plan.HeadRef())
	if err != nil {
		return err
	}
	if !ok {
		head = "HEAD"
	}
	from := ""
	if res.Comparison != nil {
		from = tagFor(tags, rt.cfg.TagPrefix(), *res.Comparison)
	}
	commits, err := git.Commits(ctx, from, head)
	if err != nil {
		return err
	}
	rt.logger.Debug("read git history",
		zap.String("from", from),
		zap.String("to", head),
		zap.Int("commits", len(commits)))
	in.Commits = commits
	return nil
}

// addStoredReleases appends the published releases of repo from the
// configured database.
func (rt *runtime) addStoredReleases(ctx context.Context, repo string, in *release.Input) error {
	if repo == "" || rt.cfg.Project.Storage.DatabaseURL == "" {
		return nil
	}
	store, closeStore, err := rt.openReleases(ctx)
	if err != nil {
		return err
	}
	defer closeStore()
	list, err := store.List(ctx, repo)
	if err != nil {
		return err
	}
	in.EarlierReleases = append(in.EarlierReleases, storage.Records(list)...)
	return nil
}

// tagFor returns the tag name that parses to v.
func tagFor(tags []string, prefix string, v version.Version) string {
	for _, tag := range tags {
		parsed, err := version.Parse(strings.TrimPrefix(strings.TrimSpace(tag), prefix))
		if err == nil && parsed.Equal(v) {
			return strings.TrimSpace(tag)
		}
	}
	return prefix + v.String()
}
