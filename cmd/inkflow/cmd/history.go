package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/inkflow/inkflow/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse past generations",
	Long:  "List, show, copy, and delete articles from the local generation history.",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List past generations",
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one generation",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete one generation",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryDelete,
}

var (
	historyLimit  int
	historySearch string
	historyRaw    bool
	historyCopy   bool
)

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyDeleteCmd)

	historyListCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20,
		"maximum number of entries (0 for all)")
	historyListCmd.Flags().StringVarP(&historySearch, "search", "s", "",
		"fuzzy-match topics and titles")

	historyShowCmd.Flags().BoolVar(&historyRaw, "raw", false,
		"print raw markdown without terminal rendering")
	historyShowCmd.Flags().BoolVar(&historyCopy, "copy", false,
		"copy the article markdown to the clipboard")
}

// openStore opens the history database from config.
func openStore() (*history.SQLiteStore, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return history.NewSQLiteStore(cfg.History.DBPath)
}

func runHistoryList(_ *cobra.Command, _ []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	// Search filters after the fetch, so pull everything when searching.
	limit := historyLimit
	if historySearch != "" {
		limit = 0
	}
	records, err := store.List(context.Background(), limit)
	if err != nil {
		return err
	}
	if historySearch != "" {
		records = history.Search(records, historySearch)
		if historyLimit > 0 && len(records) > historyLimit {
			records = records[:historyLimit]
		}
	}

	if len(records) == 0 {
		printf("%s\n", styled(styleMuted, "history is empty"))
		return nil
	}

	for _, rec := range records {
		fmt.Printf("%s  %s  %s\n",
			styled(styleMuted, rec.CreatedAt.Local().Format("2006-01-02 15:04")),
			styled(styleTitle, rec.Title),
			styled(styleMuted, summaryLine(rec)),
		)
		fmt.Printf("      %s  %s\n",
			styled(styleMuted, "id:"), rec.ID)
	}
	return nil
}

// summaryLine condenses a record's stats for list output.
func summaryLine(rec history.Record) string {
	parts := []string{fmt.Sprintf("%d sections", rec.Stats.Sections)}
	if rec.Stats.Images > 0 {
		parts = append(parts, fmt.Sprintf("%d images", rec.Stats.Images))
	}
	if rec.Stats.CodeBlocks > 0 {
		parts = append(parts, fmt.Sprintf("%d code blocks", rec.Stats.CodeBlocks))
	}
	parts = append(parts, fmt.Sprintf("%d words", wordCount(rec.Markdown)))
	return strings.Join(parts, ", ")
}

func wordCount(markdown string) int {
	return len(strings.Fields(markdown))
}

func runHistoryShow(_ *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	rec, err := store.Get(context.Background(), args[0])
	if err != nil {
		return err
	}

	if historyCopy {
		reportClip(rec.Markdown)
	}

	if historyRaw || noColor {
		fmt.Print(rec.Markdown)
		if !strings.HasSuffix(rec.Markdown, "\n") {
			fmt.Println()
		}
		return nil
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		fmt.Print(rec.Markdown)
		return nil
	}
	out, err := renderer.Render(rec.Markdown)
	if err != nil {
		fmt.Print(rec.Markdown)
		return nil
	}
	fmt.Print(out)
	return nil
}

func runHistoryDelete(_ *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Delete(context.Background(), args[0]); err != nil {
		return err
	}
	printf("deleted %s\n", args[0])
	return nil
}
