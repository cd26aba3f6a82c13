package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"rfm-segmentation/pkg/calculator"
	"rfm-segmentation/pkg/config"
	"rfm-segmentation/pkg/models"
	"rfm-segmentation/pkg/pipeline"
)

var (
	configPath   string
	inputPath    string
	analysisDate string
	offsetDays   int
	outputDir    string
	dsn          string
	summary      bool
	progress     bool
	verbose      bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "rfm-segmentation",
	Short: "Segmentation RFM des clients et export des listes de campagne",
	Long: `Charge le fichier clients, calcule recency / frequency / monetary par master_id,
attribue les scores 1-5 par quantiles, mappe le code RF vers un segment et
exporte une liste de master_id par campagne configurée.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		res, err := pipeline.Run(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if cfg.Summary {
			printSummary(out, res)
		}
		printRun(out, res)
		return nil
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Affiche l'exploration du jeu de données et les moyennes RFM par segment (sans export)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		res, err := pipeline.Analyze(cfg, logger)
		if err != nil {
			return err
		}
		printSummary(cmd.OutOrStdout(), res)
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "Fichier YAML (défaut: $RFM_CONFIG_PATH ou rfm.yaml)")
	pf.StringVarP(&inputPath, "input", "i", "", "Fichier CSV clients")
	pf.StringVar(&analysisDate, "analysis-date", "", "Date d'analyse YYYY-MM-DD (défaut: max(last_order_date) + offset)")
	pf.IntVar(&offsetDays, "offset-days", 2, "Jours ajoutés à la dernière commande observée pour dériver la date d'analyse")
	pf.StringVarP(&outputDir, "output-dir", "o", "", "Dossier des fichiers de campagne")
	pf.StringVar(&dsn, "dsn", "", "Persistance des scores (mysql://, mariadb://, sqlite://)")
	pf.BoolVar(&summary, "summary", false, "Affiche aussi l'exploration et les moyennes par segment")
	pf.BoolVar(&progress, "progress", true, "Barre de progression sur stderr")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Logs de debug")

	rootCmd.AddCommand(summaryCmd)
}

// loadConfig : YAML → env → flags explicitement passés.
func loadConfig(cmd *cobra.Command) (models.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	return applyFlags(cmd, cfg)
}

func applyFlags(cmd *cobra.Command, cfg models.Config) (models.Config, error) {
	flags := cmd.Flags()
	if flags.Changed("input") {
		cfg.InputPath = inputPath
	}
	if flags.Changed("analysis-date") {
		d, err := calculator.ParseDay(analysisDate)
		if err != nil {
			return cfg, fmt.Errorf("--analysis-date: %w", err)
		}
		cfg.AnalysisDate = d
	}
	if flags.Changed("offset-days") {
		cfg.AnalysisOffsetDays = offsetDays
	}
	if flags.Changed("output-dir") {
		cfg.OutputDir = outputDir
	}
	if flags.Changed("dsn") {
		cfg.DSN = dsn
	}
	if flags.Changed("summary") {
		cfg.Summary = summary
	}
	if flags.Changed("progress") {
		cfg.Progress = progress
	}
	cfg.Verbose = verbose
	return cfg, nil
}

func printRun(w io.Writer, res *pipeline.Result) {
	fmt.Fprintf(w, "analysis_date ; %s ; customers=%d ; excluded=%d\n",
		res.AnalysisDate.Format("2006-01-02"), len(res.Scored), len(res.Issues))
	for _, l := range res.Lists {
		fmt.Fprintf(w, "%s ; %s ; selected=%d\n", l.Name, l.Path, len(l.Keys))
	}
	if res.RunID != "" {
		fmt.Fprintf(w, "run_id ; %s ; stored_runs=%d\n", res.RunID, res.StoredRuns)
	}
}

func printSummary(w io.Writer, res *pipeline.Result) {
	ov := calculator.Describe(res.Records)
	fmt.Fprintf(w, "rows=%d ; customers=%d ; missing_interests=%d ; missing_channel=%d ; missing_last_channel=%d ; orders=[%s ; %s]\n",
		ov.Rows, ov.Customers, ov.MissingInterests, ov.MissingChannel, ov.MissingLastChannel,
		ov.FirstOrder.Format("2006-01-02"), ov.LastOrder.Format("2006-01-02"))

	fmt.Fprintln(w, "\n# channels")
	for _, c := range calculator.ChannelSummary(res.Records) {
		fmt.Fprintf(w, "%s ; customers=%d ; orders=%.0f ; value=%.3f\n", c.Channel, c.Customers, c.Orders, c.Value)
	}

	fmt.Fprintln(w, "\n# top 10 by value")
	for _, r := range calculator.TopCustomers(res.Records, calculator.ByValue, 10) {
		fmt.Fprintf(w, "%s ; %.3f\n", r.MasterID, r.ValueOmni)
	}
	fmt.Fprintln(w, "\n# top 10 by orders")
	for _, r := range calculator.TopCustomers(res.Records, calculator.ByOrders, 10) {
		fmt.Fprintf(w, "%s ; %.0f\n", r.MasterID, r.OrderNumOmni)
	}

	fmt.Fprintln(w, "\n# segments")
	for _, s := range res.Segments {
		fmt.Fprintf(w, "%s ; customers=%d ; recency=%.3f ; frequency=%.3f ; monetary=%.3f\n",
			s.Segment, s.Customers, s.MeanRecency, s.MeanFrequency, s.MeanMonetary)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
