// cmd/releasekit/main.go
//
// Entry point for the releasekit CLI. Every command resolves the project
// directory, loads .env and .releasekit/config.yaml, and then works on the
// repository state it is given: a snapshot file, the local git checkout, or
// flags.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kingrea/releasekit/internal/config"
	"github.com/kingrea/releasekit/internal/gitmeta"
	"github.com/kingrea/releasekit/internal/logging"
	"github.com/kingrea/releasekit/internal/release"
	"github.com/kingrea/releasekit/internal/storage"
	"github.com/kingrea/releasekit/internal/storage/postgres"
	"github.com/kingrea/releasekit/plugins"
)

var (
	projectDir string
	debugLog   bool
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "releasekit",
	Short: "Plan versions, release branches and release notes",
	Long: `releasekit resolves the version a release is compared against, decides
which release branch it lives on, and renders release notes from commits,
pull requests and tickets.

Project settings live in .releasekit/config.yaml; run "releasekit init" to
create it.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&projectDir, "dir", "", "Project directory (defaults to the working directory)")
	rootCmd.PersistentFlags().BoolVar(&debugLog, "debug", false, "Log debug output to the console")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runtime is the per-invocation state shared by commands.
type runtime struct {
	cfg      *config.Config
	logger   *zap.Logger
	settings release.Settings
	plugins  plugins.Set
	closeLog func()
}

func resolveProjectDir() (string, error) {
	if projectDir != "" {
		return filepath.Abs(projectDir)
	}
	return os.Getwd()
}

// loadEnv reads dir/.env when present. Variables already set win.
func loadEnv(dir string) error {
	err := godotenv.Load(filepath.Join(dir, ".env"))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func loadRuntime() (*runtime, error) {
	dir, err := resolveProjectDir()
	if err != nil {
		return nil, fmt.Errorf("resolve project directory: %w", err)
	}
	if err := loadEnv(dir); err != nil {
		return nil, err
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}

	// Only log to a file inside projects that were initialized.
	logDir := ""
	if info, err := os.Stat(cfg.ProjectStateDir); err == nil && info.IsDir() {
		logDir = cfg.LogsDir()
	}
	logger, closeLog, err := logging.New(logDir, logging.WithDebug(debugLog))
	if err != nil {
		return nil, err
	}

	settings, set, err := plugins.Settings(cfg)
	if err != nil {
		closeLog()
		return nil, err
	}
	for _, file := range set.Files {
		logger.Debug("plugin loaded",
			zap.String("kind", string(file.Definition.Kind)),
			zap.String("name", file.Definition.Name),
			zap.String("path", file.Path))
	}
	return &runtime{cfg: cfg, logger: logger, settings: settings, plugins: set, closeLog: closeLog}, nil
}

func (rt *runtime) Close() {
	_ = rt.logger.Sync()
	rt.closeLog()
}

func (rt *runtime) planner() (*release.Planner, error) {
	return release.NewPlanner(rt.settings)
}

func (rt *runtime) git() gitmeta.Collector {
	return gitmeta.New(rt.cfg.ProjectDir)
}

// openReleases returns the configured release history. Without a database
// URL the history is an empty in-memory store.
func (rt *runtime) openReleases(ctx context.Context) (storage.Repository, func(), error) {
	dsn := rt.cfg.Project.Storage.DatabaseURL
	if dsn == "" {
		return storage.NewMemory(), func() {}, nil
	}
	if err := postgres.Migrate(ctx, dsn); err != nil {
		return nil, nil, err
	}
	pool, err := postgres.Open(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}
	rt.logger.Debug("release history connected")
	return postgres.NewReleaseRepository(pool), pool.Close, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
