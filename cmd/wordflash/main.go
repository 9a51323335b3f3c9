// Package main provides the CLI entrypoint for wordflash.
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/verte-zerg/wordflash/internal/cards"
	"github.com/verte-zerg/wordflash/internal/config"
	"github.com/verte-zerg/wordflash/internal/logging"
	"github.com/verte-zerg/wordflash/internal/model"
	"github.com/verte-zerg/wordflash/internal/review"
	"github.com/verte-zerg/wordflash/internal/selection"
	"github.com/verte-zerg/wordflash/internal/store"
	"github.com/verte-zerg/wordflash/internal/tui"
)

var (
	rootDBPath  string
	rootVerbose bool

	studyTags []string
	studySeed int64
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "wordflash",
		Short:         "Terminal flashcard trainer",
		Long:          "Study word/translation cards. Cards you struggle with come up more often.",
		SilenceUsage:  true,
		SilenceErrors: false,
		Args:          cobra.NoArgs,
		RunE:          runStudyCmd,
	}

	rootCmd.PersistentFlags().StringVar(&rootDBPath, "db", config.DefaultDBPath(), "path to the SQLite database")
	rootCmd.PersistentFlags().BoolVarP(&rootVerbose, "verbose", "v", false, "enable debug logging")

	rootCmd.Flags().StringSliceVar(&studyTags, "tags", nil, "only study cards with any of these tags")
	rootCmd.Flags().Int64Var(&studySeed, "seed", 0, "random seed for card selection (0 = time based)")

	rootCmd.AddCommand(newAddCmd())
	rootCmd.AddCommand(newEditCmd())
	rootCmd.AddCommand(newRmCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newTagsCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newBackupCmd())
	rootCmd.AddCommand(newRestoreCmd())
	rootCmd.AddCommand(newResetCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

// app bundles the services shared by all commands.
type app struct {
	fileCfg config.FileConfig
	log     *zap.Logger
	store   *store.Store
	cards   *cards.Manager
}

func openApp(cmd *cobra.Command) (*app, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	level := ""
	if fileCfg.Log.Level != nil {
		level = *fileCfg.Log.Level
	}
	log, err := logging.New(level, rootVerbose)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	dbPath := rootDBPath
	applyStringConfig(cmd, "db", &dbPath, fileCfg.Store.Path)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	log.Debug("opened store", zap.String("path", dbPath))

	return &app{
		fileCfg: fileCfg,
		log:     log,
		store:   st,
		cards:   cards.NewManager(st, log),
	}, nil
}

func (a *app) Close() {
	if cerr := a.store.Close(); cerr != nil {
		a.log.Warn("failed to close db", zap.Error(cerr))
	}
	// Sync on stderr fails on some terminals.
	_ = a.log.Sync()
}

func runStudyCmd(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	settings, err := a.store.LoadSettings(ctx)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	seed := studySeed
	applyInt64Config(cmd, "seed", &seed, a.fileCfg.Study.Seed)
	cfg := model.StudyConfig{
		Tags: resolveTags(cmd.Flags().Changed("tags"), studyTags, a.fileCfg.Study.Tags, settings.SelectedTags),
		Seed: seed,
	}
	if err := validateStudyConfig(cfg); err != nil {
		return err
	}

	if cmd.Flags().Changed("tags") {
		settings.SelectedTags = cfg.Tags
		if err := a.store.SaveSettings(ctx, settings); err != nil {
			return fmt.Errorf("failed to save settings: %w", err)
		}
	}

	var rnd selection.Random
	if cfg.Seed != 0 {
		rnd = selection.NewSeeded(cfg.Seed)
	}
	tracker := review.NewTracker(a.store, a.log)
	m := tui.NewModel(ctx, a.cards, tracker, selection.New(rnd), cfg.Tags, a.log)
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

// resolveTags picks the study tag filter: an explicit flag wins over the
// config file, which wins over the tags remembered from the last session.
func resolveTags(flagChanged bool, flagTags []string, cfgTags *[]string, saved []string) []string {
	switch {
	case flagChanged:
		return normalizeTags(flagTags)
	case cfgTags != nil:
		return normalizeTags(*cfgTags)
	default:
		return normalizeTags(saved)
	}
}

func normalizeTags(tags []string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

func validateStudyConfig(cfg model.StudyConfig) error {
	if cfg.Seed < 0 {
		return fmt.Errorf("--seed must be >= 0")
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyInt64Config(cmd *cobra.Command, name string, target, value *int64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# wordflash configuration
# Uncomment a value to enable it. CLI flags override config values.

[study]
# tags = ["verbs"]        # Only study cards with any of these tags
# seed = 0                # Random seed for card selection (0 = time based)

[stats]
# curve-window = %d        # Calendar days in the accuracy trend window

[store]
# path = %q

[log]
# level = %q           # debug, info, warn or error
`,
		defaultCurveWindow,
		config.DefaultDBPath(),
		logging.DefaultLevel,
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
