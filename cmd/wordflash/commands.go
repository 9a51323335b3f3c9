package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/verte-zerg/wordflash/internal/backup"
	"github.com/verte-zerg/wordflash/internal/cards"
	"github.com/verte-zerg/wordflash/internal/config"
	"github.com/verte-zerg/wordflash/internal/csvimport"
	"github.com/verte-zerg/wordflash/internal/model"
	"github.com/verte-zerg/wordflash/internal/selection"
	"github.com/verte-zerg/wordflash/internal/stats"
	"github.com/verte-zerg/wordflash/internal/statsui"
)

const defaultCurveWindow = 7

var (
	addTags     []string
	addLanguage string

	editWord        string
	editTranslation string
	editTags        []string
	editLanguage    string

	listTags []string

	restoreMode string

	resetConfirm bool

	statsTags        []string
	statsSince       string
	statsCurveWindow int
	statsPlain       bool
)

func newAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <word> <translation>",
		Short: "Add a card",
		Args:  cobra.ExactArgs(2),
		RunE:  runAddCmd,
	}
	cmd.Flags().StringSliceVar(&addTags, "tags", nil, "card tags")
	cmd.Flags().StringVar(&addLanguage, "language", "", "language code of the word")
	return cmd
}

func runAddCmd(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	card, err := a.cards.Create(cmd.Context(), addInput(args))
	if err != nil {
		return fmt.Errorf("failed to add card: %w", err)
	}
	if _, err := fmt.Fprintln(cmd.OutOrStdout(), card.ID); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func addInput(args []string) model.CardInput {
	return model.CardInput{
		Word:        args[0],
		Translation: args[1],
		Tags:        normalizeTags(addTags),
		Language:    addLanguage,
	}
}

func newEditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a card (statistics are kept)",
		Args:  cobra.ExactArgs(1),
		RunE:  runEditCmd,
	}
	cmd.Flags().StringVar(&editWord, "word", "", "new word")
	cmd.Flags().StringVar(&editTranslation, "translation", "", "new translation")
	cmd.Flags().StringSliceVar(&editTags, "tags", nil, "replace tags")
	cmd.Flags().StringVar(&editLanguage, "language", "", "new language code")
	return cmd
}

func runEditCmd(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	existing, err := a.cards.Get(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to load card: %w", err)
	}
	input := editInput(cmd, existing)
	if _, err := a.cards.Update(ctx, existing.ID, input); err != nil {
		return fmt.Errorf("failed to update card: %w", err)
	}
	return nil
}

// editInput starts from the stored card and applies only the flags given.
func editInput(cmd *cobra.Command, card *model.Card) model.CardInput {
	input := model.CardInput{
		Word:        card.Word,
		Translation: card.Translation,
		Tags:        card.Tags,
		Language:    card.Language,
	}
	flags := cmd.Flags()
	if flags.Changed("word") {
		input.Word = editWord
	}
	if flags.Changed("translation") {
		input.Translation = editTranslation
	}
	if flags.Changed("tags") {
		input.Tags = normalizeTags(editTags)
	}
	if flags.Changed("language") {
		input.Language = editLanguage
	}
	return input
}

func newRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>...",
		Short: "Delete cards and their statistics",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runRmCmd,
	}
}

func runRmCmd(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	var missing []string
	for _, id := range args {
		deleted, err := a.cards.Delete(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("failed to delete card %s: %w", id, err)
		}
		if !deleted {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", model.ErrNotFound, strings.Join(missing, ", "))
	}
	return nil
}

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cards with their statistics",
		Args:  cobra.NoArgs,
		RunE:  runListCmd,
	}
	cmd.Flags().StringSliceVar(&listTags, "tags", nil, "only list cards with any of these tags")
	return cmd
}

func runListCmd(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	list, err := a.cards.ByTags(cmd.Context(), normalizeTags(listTags))
	if err != nil {
		return fmt.Errorf("failed to load cards: %w", err)
	}
	if err := stats.RenderCardTable(cmd.OutOrStdout(), list, stats.TerminalWidth()); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newTagsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tags",
		Short: "List tags in use",
		Args:  cobra.NoArgs,
		RunE:  runTagsCmd,
	}
}

func runTagsCmd(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	tags, err := a.cards.Tags(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load tags: %w", err)
	}
	for _, tag := range tags {
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), tag); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import cards from CSV (columns: word, translation, tags, language)",
		Args:  cobra.ExactArgs(1),
		RunE:  runImportCmd,
	}
}

func runImportCmd(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open csv: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			a.log.Warn("failed to close csv", zap.Error(cerr))
		}
	}()

	parsed, err := csvimport.NewParser(a.log).Parse(f)
	if err != nil {
		return fmt.Errorf("failed to parse csv: %w", err)
	}
	if err := a.cards.Append(cmd.Context(), parsed); err != nil {
		return fmt.Errorf("failed to import cards: %w", err)
	}
	logErrf("Imported %d cards\n", len(parsed))
	return nil
}

func newBackupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backup [file]",
		Short: "Write all cards to a JSON backup (\"-\" for stdout)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runBackupCmd,
	}
}

func runBackupCmd(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	all, err := a.cards.All(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load cards: %w", err)
	}

	path := config.DefaultBackupPath()
	if len(args) == 1 {
		path = args[0]
	}
	if path == "-" {
		return backup.Write(cmd.OutOrStdout(), all, time.Now())
	}
	if err := writeBackupFile(path, all); err != nil {
		return err
	}
	logErrf("Wrote %d cards to %s\n", len(all), path)
	return nil
}

func writeBackupFile(path string, all []*model.Card) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create backup dir: %w", err)
	}
	tmpFile, err := os.CreateTemp(filepath.Dir(path), "backup-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp backup: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if err := backup.Write(tmpFile, all, time.Now()); err != nil {
		return fmt.Errorf("failed to write backup: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close backup: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to write backup: %w", err)
	}
	return nil
}

func newRestoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore <file>",
		Short: "Restore cards from a JSON backup (\"-\" for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE:  runRestoreCmd,
	}
	cmd.Flags().StringVar(&restoreMode, "mode", string(cards.ModeMerge), "merge or overwrite")
	return cmd
}

func runRestoreCmd(cmd *cobra.Command, args []string) error {
	mode, err := cards.ParseMode(restoreMode)
	if err != nil {
		return err
	}
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	var r io.Reader = cmd.InOrStdin()
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open backup: %w", err)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil {
				a.log.Warn("failed to close backup", zap.Error(cerr))
			}
		}()
		r = f
	}

	doc, err := backup.Read(r)
	if err != nil {
		return fmt.Errorf("failed to read backup: %w", err)
	}
	result, err := a.cards.Import(cmd.Context(), doc.Cards, mode)
	if err != nil {
		return fmt.Errorf("failed to restore backup: %w", err)
	}
	logErrf("%s\n", restoreMessage(doc, len(result)))
	return nil
}

func restoreMessage(doc backup.Backup, stored int) string {
	if doc.Timestamp.IsZero() {
		return fmt.Sprintf("Restored backup: %d cards now stored", stored)
	}
	return fmt.Sprintf("Restored backup from %s: %d cards now stored", doc.Timestamp.Format(time.RFC3339), stored)
}

func newResetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all cards, statistics and saved settings",
		Args:  cobra.NoArgs,
		RunE:  runResetCmd,
	}
	cmd.Flags().BoolVar(&resetConfirm, "yes", false, "confirm deleting everything")
	return cmd
}

func runResetCmd(cmd *cobra.Command, _ []string) error {
	if !resetConfirm {
		return errors.New("refusing to delete all data without --yes")
	}
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.store.ClearAll(cmd.Context()); err != nil {
		return fmt.Errorf("failed to reset data: %w", err)
	}
	a.log.Info("all data removed")
	logErrf("All cards, statistics and settings removed\n")
	return nil
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show stats",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringSliceVar(&statsTags, "tags", nil, "tag filter")
	cmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&statsCurveWindow, "curve-window", defaultCurveWindow, "accuracy trend window in calendar days")
	cmd.Flags().BoolVar(&statsPlain, "plain", false, "print a text summary instead of the interactive view")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg, err := buildStatsConfig(cmd, a.fileCfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if statsPlain || stats.TerminalWidth() == 0 {
		report, err := stats.BuildReport(ctx, a.store, cfg)
		if err != nil {
			return err
		}
		return renderPlainStats(cmd.OutOrStdout(), report)
	}

	m := statsui.NewModel(ctx, a.store, cfg)
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run stats TUI: %w", err)
	}
	return nil
}

func buildStatsConfig(cmd *cobra.Command, fileCfg config.FileConfig) (model.StatsConfig, error) {
	var since *time.Time
	if statsSince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", statsSince, time.Local)
		if err != nil {
			return model.StatsConfig{}, fmt.Errorf("invalid --since value: %w", err)
		}
		since = &parsed
	}
	window := statsCurveWindow
	applyIntConfig(cmd, "curve-window", &window, fileCfg.Stats.CurveWindow)
	if window < 1 {
		return model.StatsConfig{}, errors.New("--curve-window must be >= 1")
	}
	return model.StatsConfig{
		Tags:        normalizeTags(statsTags),
		Since:       since,
		CurveWindow: window,
	}, nil
}

func renderPlainStats(w io.Writer, report stats.Report) error {
	if err := stats.RenderSummary(w, report.Summary); err != nil {
		return err
	}
	if len(report.Curve) > 0 {
		if _, err := fmt.Fprintf(w, "Trend: %s\n", stats.Sparkline(report.Curve)); err != nil {
			return err
		}
	}
	if len(report.Hardest) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w, "\nHardest cards"); err != nil {
		return err
	}
	for _, card := range report.Hardest {
		weight, err := selection.Weight(card)
		if err != nil {
			continue
		}
		if _, err := fmt.Fprintf(w, "%.3f  %s -> %s\n", weight, card.Word, card.Translation); err != nil {
			return err
		}
	}
	return nil
}
