package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/kingrea/releasekit/internal/storage"
)

var (
	historyRepo    string
	historyVersion string
	historyFile    string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect and seed the stored release history",
	Long: `The release history feeds the inter-release duplicate check. It lives in
PostgreSQL when storage.database_url (or RELEASEKIT_DATABASE_URL) is set.`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored releases, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := loadRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		repo, err := rt.historyRepository()
		if err != nil {
			return err
		}
		store, closeStore, err := rt.openReleases(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		list, err := store.List(cmd.Context(), repo)
		if err != nil {
			return err
		}
		if jsonOutput {
			if list == nil {
				list = []storage.Release{}
			}
			return printJSON(cmd.OutOrStdout(), list)
		}
		if len(list) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "No releases stored for %s\n", repo)
			return nil
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "VERSION\tTAG\tDRAFT\tPUBLISHED")
		for _, rel := range list {
			published := "-"
			if rel.PublishedAt != nil {
				published = rel.PublishedAt.Format("2006-01-02")
			}
			fmt.Fprintf(tw, "%s\t%s\t%t\t%s\n", rel.Version, rel.Tag, rel.Draft, published)
		}
		return tw.Flush()
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print one stored release",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := loadRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		repo, err := rt.historyRepository()
		if err != nil {
			return err
		}
		store, closeStore, err := rt.openReleases(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		rel, err := store.Get(cmd.Context(), repo, historyVersion)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), rel)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n\n%s\n", rel.Version, rel.Tag, strings.TrimRight(rel.Body, "\n"))
		return nil
	},
}

var historyImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import releases from a YAML or JSON file",
	Long: `Import a list of releases. Each entry has repository, version, tag, body,
draft and published_at; a missing repository defaults to --repo or
repository.code_repo. The import is all or nothing.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := loadRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		if rt.cfg.Project.Storage.DatabaseURL == "" {
			return fmt.Errorf("no database configured: set storage.database_url or RELEASEKIT_DATABASE_URL")
		}
		data, err := os.ReadFile(historyFile)
		if err != nil {
			return fmt.Errorf("read %s: %w", historyFile, err)
		}
		releases, err := decodeReleases(data)
		if err != nil {
			return fmt.Errorf("parse %s: %w", historyFile, err)
		}
		fallback := historyRepo
		if fallback == "" {
			fallback = rt.cfg.Project.Repository.CodeRepo
		}
		for i := range releases {
			if strings.TrimSpace(releases[i].Repository) == "" {
				releases[i].Repository = fallback
			}
		}

		store, closeStore, err := rt.openReleases(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()
		if err := store.Import(cmd.Context(), releases); err != nil {
			return err
		}
		rt.logger.Info("releases imported", zap.Int("count", len(releases)), zap.String("file", historyFile))
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d releases\n", len(releases))
		return nil
	},
}

func init() {
	historyCmd.PersistentFlags().StringVar(&historyRepo, "repo", "", "owner/name (defaults to repository.code_repo)")
	historyShowCmd.Flags().StringVar(&historyVersion, "version", "", "Version to show (required)")
	historyImportCmd.Flags().StringVar(&historyFile, "file", "", "YAML or JSON file with releases (required)")
	_ = historyShowCmd.MarkFlagRequired("version")
	_ = historyImportCmd.MarkFlagRequired("file")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyImportCmd)
	rootCmd.AddCommand(historyCmd)
}

func (rt *runtime) historyRepository() (string, error) {
	repo := strings.Trim(strings.TrimSpace(historyRepo), "/")
	if repo == "" {
		repo = rt.cfg.Project.Repository.CodeRepo
	}
	if repo == "" {
		return "", fmt.Errorf("no repository: pass --repo or set repository.code_repo")
	}
	return repo, nil
}

// decodeReleases accepts a YAML or JSON list. YAML is converted to JSON so
// both formats share the json tags of storage.Release.
func decodeReleases(data []byte) ([]storage.Release, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	payload, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var releases []storage.Release
	if err := json.Unmarshal(payload, &releases); err != nil {
		return nil, err
	}
	return releases, nil
}
