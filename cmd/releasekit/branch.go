package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kingrea/releasekit/internal/branch"
	"github.com/kingrea/releasekit/internal/version"
)

var (
	branchTarget   string
	branchBranches []string
	branchKnown    []string
)

var branchCmd = &cobra.Command{
	Use:   "branch",
	Short: "Release branch helpers",
}

var branchPlanCmd = &cobra.Command{
	Use:   "plan",
	Short: "Decide the release branch for a target version",
	Long: `Print the release branch of --target, the branch it is cut from and
whether it still has to be created. Branches and known versions default to
the local git repository.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := loadRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		target, err := version.Parse(branchTarget)
		if err != nil {
			return err
		}
		known, err := rt.knownVersions(cmd.Context(), branchKnown)
		if err != nil {
			return err
		}
		branches, err := rt.branches(cmd.Context(), branchBranches)
		if err != nil {
			return err
		}
		plan := branch.DetermineReleaseBranch(target, branches, known, rt.settings.Branch)
		create := plan.ShouldCreate && rt.settings.CreateBranches

		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"branch":        plan.Name,
				"source":        plan.Source,
				"should_create": plan.ShouldCreate,
				"create_branch": create,
				"head_ref":      plan.HeadRef(),
			})
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "branch:   %s\n", plan.Name)
		fmt.Fprintf(out, "source:   %s\n", plan.Source)
		fmt.Fprintf(out, "create:   %t\n", create)
		fmt.Fprintf(out, "head ref: %s\n", plan.HeadRef())
		if plan.ShouldCreate && !create {
			fmt.Fprintln(out, "branch creation is disabled by branch_policy.create_branches")
		}
		return nil
	},
}

func init() {
	branchPlanCmd.Flags().StringVar(&branchTarget, "target", "", "Target version (required)")
	branchPlanCmd.Flags().StringSliceVar(&branchBranches, "branches", nil, "Existing branches (defaults to git branches)")
	branchPlanCmd.Flags().StringSliceVar(&branchKnown, "known", nil, "Known versions (defaults to git tags)")
	_ = branchPlanCmd.MarkFlagRequired("target")

	branchCmd.AddCommand(branchPlanCmd)
	rootCmd.AddCommand(branchCmd)
}

// branches returns explicit branch names or the local and remote branches
// of the project repository.
func (rt *runtime) branches(ctx context.Context, explicit []string) ([]string, error) {
	if len(explicit) > 0 {
		return explicit, nil
	}
	git := rt.git()
	if !git.IsRepo(ctx) {
		return nil, nil
	}
	return git.Branches(ctx)
}
