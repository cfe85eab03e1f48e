// bondspread — replication of the He-Kelly-Manela corporate bond decile
// portfolios (Nozawa yield-spread sorts).
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/openbondlab/bondspread/internal/config"
	"github.com/openbondlab/bondspread/internal/infra"
	"github.com/openbondlab/bondspread/internal/metrics"
	"github.com/openbondlab/bondspread/internal/portfolio"
	"github.com/openbondlab/bondspread/internal/provider"
	"github.com/openbondlab/bondspread/internal/providers"
	"github.com/openbondlab/bondspread/internal/report"
	"github.com/openbondlab/bondspread/internal/store"
	"github.com/openbondlab/bondspread/pkg/models"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config
var cfg *config.Config

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "bondspread",
	Short: "bondspread — corporate bond yield-spread decile replication",
	Long: `bondspread replicates the He-Kelly-Manela US corporate bond test
assets: bonds are sorted into deciles by yield spread over duration-matched
Treasuries each month, decile portfolios are weighted by amount outstanding,
and the resulting return series are compared against the published benchmark.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		level := cfg.Logging.Level
		if override, _ := cmd.Flags().GetString("log-level"); override != "" {
			level = override
		}
		infra.InitLogger(level, cfg.Logging.Format)

		return providers.RegisterAll(cfg.WRDS.Username, cfg.WRDS.Password)
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(pullCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(metricsCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
}

// --- Pull Command ---

var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Download the three datasets and cache them in the data directory",
	Long: `Fetches the duration-matched Treasury panel, the WRDS BONDRET
corporate bond panel, and the published He-Kelly-Manela factors, then writes
each to the data directory as CSV. The three downloads run concurrently.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPull(cmd.Context())
	},
}

func runPull(ctx context.Context) error {
	reg := provider.Global()
	st := store.New(cfg.Paths.DataDir)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		res, err := reg.Fetch(gctx, provider.DatasetTreasuryReturns, provider.QueryParams{
			provider.ParamURL:       cfg.Sources.TreasuryURL,
			provider.ParamStartDate: cfg.Sample.StartDate,
			provider.ParamEndDate:   cfg.Sample.EndDate,
		})
		if err != nil {
			return fmt.Errorf("pull treasury returns: %w", err)
		}
		return st.SaveTreasury(res.Data.([]models.TreasuryObservation))
	})

	g.Go(func() error {
		res, err := reg.Fetch(gctx, provider.DatasetBondReturns, provider.QueryParams{
			provider.ParamURL:       cfg.Sources.WRDSURL,
			provider.ParamStartDate: cfg.Sample.StartDate,
			provider.ParamEndDate:   cfg.Sample.EndDate,
		})
		if err != nil {
			return fmt.Errorf("pull bond returns: %w", err)
		}
		return st.SaveBonds(res.Data.([]models.BondObservation))
	})

	g.Go(func() error {
		res, err := reg.Fetch(gctx, provider.DatasetBenchmarkFactors, provider.QueryParams{
			provider.ParamURL: cfg.Sources.FactorsURL,
		})
		if err != nil {
			return fmt.Errorf("pull benchmark factors: %w", err)
		}
		return st.SaveBenchmark(res.Data.(models.DecileTable))
	})

	if err := g.Wait(); err != nil {
		return err
	}
	fmt.Println("✅ all datasets pulled")
	return nil
}

// --- Build Command ---

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Merge the cached panels and build the decile return series",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBuild()
	},
}

func runBuild() error {
	st := store.New(cfg.Paths.DataDir)

	bonds, err := st.LoadBonds()
	if err != nil {
		return fmt.Errorf("load bond returns (run `bondspread pull` first): %w", err)
	}
	treasuries, err := st.LoadTreasury()
	if err != nil {
		return fmt.Errorf("load treasury returns (run `bondspread pull` first): %w", err)
	}

	merged, stats := portfolio.Merge(bonds, treasuries)
	if err := st.SaveMerged(merged); err != nil {
		return err
	}

	returns := portfolio.BuildDecileReturns(merged)
	if err := st.SaveDecileReturns(returns); err != nil {
		return err
	}

	fmt.Printf("✅ merged %d bond months (%d dropped), %d decile-month returns\n",
		stats.Kept, stats.Unmatched+stats.MissingSpread+stats.NegativeAmount, len(returns))
	return nil
}

// --- Metrics Command ---

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Compare the replication against the published benchmark",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMetrics()
	},
}

func runMetrics() error {
	st := store.New(cfg.Paths.DataDir)

	replication, benchmark, err := loadSeries(st)
	if err != nil {
		return err
	}

	comparisons := metrics.Compare(replication, benchmark)

	w := report.NewWriter(cfg.Paths.OutputDir)
	if err := w.WriteAnalysis(comparisons); err != nil {
		return err
	}

	fmt.Println("  decile  n     corr    r²      slope   te")
	for _, c := range comparisons {
		fmt.Printf("  %-7d %-5d %-7.4f %-7.4f %-7.4f %-7.4f\n",
			c.Decile, c.Observations, c.Correlation, c.RSquared, c.Slope, c.TrackingError)
	}
	return nil
}

// --- Report Command ---

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render the LaTeX tables and PNG charts into the output directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReport()
	},
}

func runReport() error {
	st := store.New(cfg.Paths.DataDir)

	returns, err := st.LoadDecileReturns()
	if err != nil {
		return fmt.Errorf("load decile returns (run `bondspread build` first): %w", err)
	}
	merged, err := st.LoadMerged()
	if err != nil {
		return fmt.Errorf("load merged panel (run `bondspread build` first): %w", err)
	}
	replication, benchmark, err := loadSeries(st)
	if err != nil {
		return err
	}

	// The benchmark summary covers the replication's window, matching how
	// the published series is tabulated next to the replication.
	if start, ok := firstMonth(replication); ok {
		benchmark = trimTable(benchmark, start)
	}

	w := report.NewWriter(cfg.Paths.OutputDir)
	if err := w.WriteDecileReturns(returns); err != nil {
		return err
	}
	if err := w.WriteSummaries(metrics.Summarize(replication), metrics.Summarize(benchmark)); err != nil {
		return err
	}
	if err := w.WriteCharts(merged, replication); err != nil {
		return err
	}

	fmt.Printf("✅ report written to %s\n", cfg.Paths.OutputDir)
	return nil
}

// --- Run Command ---

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: pull, build, metrics, report",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := runPull(cmd.Context()); err != nil {
			return err
		}
		if err := runBuild(); err != nil {
			return err
		}
		if err := runMetrics(); err != nil {
			return err
		}
		return runReport()
	},
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration, credential, and dataset status",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  bondspread — Status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:  %s (%s)\n", version, commit)
		fmt.Printf("  Sample:   %s .. %s\n", cfg.Sample.StartDate, cfg.Sample.EndDate)
		fmt.Printf("  Data dir: %s\n", cfg.Paths.DataDir)
		fmt.Printf("  Output:   %s\n", cfg.Paths.OutputDir)
		fmt.Println()

		fmt.Println("  Credentials:")
		for _, k := range config.CheckCredentials(cfg) {
			status := "❌ not set"
			if k.IsSet {
				status = fmt.Sprintf("✅ set (%s: %s)", k.Source, k.Masked)
			}
			fmt.Printf("    %-16s %s\n", k.Name+":", status)
		}
		fmt.Println()

		fmt.Println("  Providers:")
		for _, info := range provider.Global().List() {
			fmt.Printf("    %-10s %s\n", info.Name, info.Description)
		}
		fmt.Println()

		fmt.Println("  Cached datasets:")
		st := store.New(cfg.Paths.DataDir)
		for _, name := range []string{store.TreasuryFile, store.BondsFile, store.BenchmarkFile, store.MergedFile, store.DecileReturnsFile} {
			if ok, mod := st.Exists(name); ok {
				fmt.Printf("    %-28s %s\n", name, mod.Format("2006-01-02 15:04"))
			} else {
				fmt.Printf("    %-28s (missing)\n", name)
			}
		}
		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("bondspread %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Helpers ---

// loadSeries loads the replication decile returns (as a table) and the
// published benchmark from the data directory.
func loadSeries(st *store.Store) (replication, benchmark models.DecileTable, err error) {
	returns, err := st.LoadDecileReturns()
	if err != nil {
		return models.DecileTable{}, models.DecileTable{},
			fmt.Errorf("load decile returns (run `bondspread build` first): %w", err)
	}
	benchmark, err = st.LoadBenchmark()
	if err != nil {
		return models.DecileTable{}, models.DecileTable{},
			fmt.Errorf("load benchmark factors (run `bondspread pull` first): %w", err)
	}
	return portfolio.AsTable(returns), benchmark, nil
}

// firstMonth returns the earliest date present in any series of the table.
func firstMonth(table models.DecileTable) (time.Time, bool) {
	var first time.Time
	for _, d := range table.Deciles() {
		s := table.Series[d]
		if s.Len() == 0 {
			continue
		}
		if first.IsZero() || s.Dates[0].Before(first) {
			first = s.Dates[0]
		}
	}
	return first, !first.IsZero()
}

// trimTable drops observations before from.
func trimTable(table models.DecileTable, from time.Time) models.DecileTable {
	out := models.DecileTable{Series: make(map[int]models.ReturnSeries, len(table.Series))}
	for d, s := range table.Series {
		trimmed := models.ReturnSeries{Decile: d}
		for i := range s.Returns {
			if s.Dates[i].Before(from) {
				continue
			}
			trimmed.Dates = append(trimmed.Dates, s.Dates[i])
			trimmed.Returns = append(trimmed.Returns, s.Returns[i])
		}
		out.Series[d] = trimmed
	}
	return out
}
