package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inkflow/inkflow/internal/config"
	"github.com/inkflow/inkflow/internal/diagnostics"
	"github.com/inkflow/inkflow/internal/history"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration and environment",
	Long:  "Verify configuration, service reachability, the history database, and host resources.",
	RunE:  runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(_ *cobra.Command, _ []string) error {
	problems := 0

	fmt.Println("Checking configuration...")
	fmt.Println()
	cfg := checkConfig(&problems)
	fmt.Println()

	if cfg == nil {
		fmt.Println("Fix the configuration before the remaining checks can run.")
		return fmt.Errorf("doctor found problems")
	}

	fmt.Println("Checking generation service...")
	fmt.Println()
	checkServiceReachable(cfg, &problems)
	fmt.Println()

	fmt.Println("Checking history database...")
	fmt.Println()
	checkHistoryDB(cfg, &problems)
	fmt.Println()

	fmt.Println("Host resources...")
	fmt.Println()
	printSystemMetrics()
	fmt.Println()

	if problems > 0 {
		fmt.Printf("%d problem(s) found\n", problems)
		return fmt.Errorf("doctor found problems")
	}
	fmt.Println("Everything looks good")
	return nil
}

// checkConfig loads and validates configuration, listing each violation.
func checkConfig(problems *int) *config.Config {
	loader := config.NewLoader()
	if cfgFile != "" {
		loader.WithConfigFile(cfgFile)
	}
	cfg, err := loader.Load()
	if err != nil {
		fmt.Printf("  ✗ cannot load config: %v\n", err)
		*problems++
		return nil
	}

	if err := config.NewValidator().Validate(cfg); err != nil {
		var verrs config.ValidationErrors
		if errors.As(err, &verrs) {
			for _, verr := range verrs {
				fmt.Printf("  ✗ %s\n", verr.Error())
			}
			*problems += len(verrs)
		} else {
			fmt.Printf("  ✗ %v\n", err)
			*problems++
		}
		return nil
	}

	if path := loader.ConfigFile(); path != "" {
		fmt.Printf("  ✓ config valid (%s)\n", path)
	} else {
		fmt.Println("  ✓ config valid (defaults)")
	}
	return cfg
}

func checkServiceReachable(cfg *config.Config, problems *int) {
	check := diagnostics.CheckService(context.Background(), cfg.Service.BaseURL)
	if check.Reachable {
		fmt.Printf("  ✓ %s reachable (%s)\n", check.URL, check.Latency.Round(1e6))
		return
	}
	fmt.Printf("  ✗ %s unreachable: %s\n", check.URL, check.Error)
	fmt.Println("    hint: 'inkflow serve' starts a local mock service")
	*problems++
}

func checkHistoryDB(cfg *config.Config, problems *int) {
	store, err := history.NewSQLiteStore(cfg.History.DBPath)
	if err != nil {
		fmt.Printf("  ✗ cannot open %s: %v\n", cfg.History.DBPath, err)
		*problems++
		return
	}
	defer store.Close()

	records, err := store.List(context.Background(), 0)
	if err != nil {
		fmt.Printf("  ✗ cannot read %s: %v\n", cfg.History.DBPath, err)
		*problems++
		return
	}
	fmt.Printf("  ✓ %s (%d records)\n", cfg.History.DBPath, len(records))
}

func printSystemMetrics() {
	stats := diagnostics.NewSystemMetricsCollector().Collect()

	if stats.CPUModel != "" {
		fmt.Printf("  cpu:    %s (%d cores, %d threads)\n",
			stats.CPUModel, stats.CPUCores, stats.CPUThreads)
	}
	fmt.Printf("  memory: %.0f / %.0f MB (%.0f%%)%s\n",
		stats.MemUsedMB, stats.MemTotalMB, stats.MemPercent,
		headroomNote(stats.MemPercent))
	fmt.Printf("  disk:   %.1f / %.1f GB (%.0f%%)%s\n",
		stats.DiskUsedGB, stats.DiskTotalGB, stats.DiskPercent,
		headroomNote(stats.DiskPercent))
	if stats.LoadAvg1 > 0 {
		fmt.Printf("  load:   %.2f %.2f %.2f\n",
			stats.LoadAvg1, stats.LoadAvg5, stats.LoadAvg15)
	}
}

// headroomNote flags resources running close to their limit.
func headroomNote(percent float64) string {
	if percent >= 90 {
		return "  ⚠ low headroom"
	}
	return ""
}
