package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"rfm-segmentation/pkg/calculator"
	"rfm-segmentation/pkg/campaign"
	"rfm-segmentation/pkg/config"
	"rfm-segmentation/pkg/database"
	"rfm-segmentation/pkg/export"
	"rfm-segmentation/pkg/loader"
	"rfm-segmentation/pkg/models"
	"rfm-segmentation/pkg/scoring"
)

// CampaignList est une liste exportée.
type CampaignList struct {
	Name string
	Path string
	Keys []string
}

// Result regroupe les sorties de chaque étape.
type Result struct {
	AnalysisDate time.Time
	Records      []models.CustomerRecord
	Scored       []models.RFMRecord
	Segments     []models.SegmentSummary
	Lists        []CampaignList
	Issues       []campaign.JoinIssue
	RunID        string // vide sans DSN
	StoredRuns   int    // runs présents dans le store après persistance
}

// Run exécute load → RFM → scores → segments → campagnes → export (→ persistance si DSN).
// Toute erreur est terminale ; seuls les problèmes de jointure sont tolérés (Result.Issues).
func Run(ctx context.Context, cfg models.Config, log *zap.Logger) (*Result, error) {
	table := scoring.DefaultSegmentTable()
	if err := config.Validate(cfg, table); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	steps := analyzeSteps + 2 + len(cfg.Campaigns)
	if cfg.DSN != "" {
		steps++
	}
	bar := newBar(cfg.Progress, steps)
	defer bar.Finish()
	step := func(name string) {
		bar.Describe(name)
		_ = bar.Add(1)
	}

	res, err := analyze(cfg, table, log, step)
	if err != nil {
		return nil, err
	}
	records, scored := res.Records, res.Scored

	candidates, issues := campaign.Join(scored, records)
	res.Issues = issues
	for _, is := range issues {
		log.Warn("customer excluded from campaigns",
			zap.String("master_id", is.MasterID), zap.String("reason", string(is.Kind)), zap.Ints("lines", is.Lines))
	}
	step("join")

	for _, rule := range cfg.Campaigns {
		keys := campaign.Select(candidates, rule)
		path := config.OutputPath(cfg, rule)
		if err := export.WriteKeys(path, keys); err != nil {
			return nil, fmt.Errorf("export %s: %w", rule.Name, err)
		}
		res.Lists = append(res.Lists, CampaignList{Name: rule.Name, Path: path, Keys: keys})
		log.Info("campaign exported", zap.String("campaign", rule.Name), zap.String("path", path), zap.Int("selected", len(keys)))
		step("export " + rule.Name)
	}

	if cfg.DSN != "" {
		runID, stored, err := persist(ctx, cfg, res, log)
		if err != nil {
			return nil, fmt.Errorf("persist: %w", err)
		}
		res.RunID = runID
		res.StoredRuns = stored
		step("persist")
	}

	step("done")
	return res, nil
}

// Analyze exécute uniquement les étapes de calcul (load → segments), sans export.
func Analyze(cfg models.Config, log *zap.Logger) (*Result, error) {
	if cfg.AnalysisOffsetDays < 0 {
		return nil, fmt.Errorf("config: analysis_offset_days must be >= 0, got %d", cfg.AnalysisOffsetDays)
	}
	bar := newBar(cfg.Progress, analyzeSteps)
	defer bar.Finish()
	return analyze(cfg, scoring.DefaultSegmentTable(), log, func(name string) {
		bar.Describe(name)
		_ = bar.Add(1)
	})
}

const analyzeSteps = 4

func analyze(cfg models.Config, table *scoring.SegmentTable, log *zap.Logger, step func(string)) (*Result, error) {
	res := &Result{}

	records, err := loader.Load(cfg.InputPath)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	res.Records = records
	log.Info("dataset loaded", zap.String("path", cfg.InputPath), zap.Int("records", len(records)))
	step("load")

	res.AnalysisDate = cfg.AnalysisDate
	if res.AnalysisDate.IsZero() {
		res.AnalysisDate, err = calculator.DeriveAnalysisDate(records, cfg.AnalysisOffsetDays)
		if err != nil {
			return nil, fmt.Errorf("analysis date: %w", err)
		}
		log.Debug("analysis date derived from data", zap.Int("offset_days", cfg.AnalysisOffsetDays))
	}

	scored, err := calculator.ComputeRFM(records, res.AnalysisDate)
	if err != nil {
		return nil, fmt.Errorf("rfm: %w", err)
	}
	log.Info("rfm computed",
		zap.String("analysis_date", res.AnalysisDate.Format("2006-01-02")),
		zap.Int("customers", len(scored)))
	step("rfm")

	if err := scoring.Score(scored); err != nil {
		return nil, fmt.Errorf("score: %w", err)
	}
	step("score")

	if err := scoring.Segment(scored, table); err != nil {
		return nil, fmt.Errorf("segment: %w", err)
	}
	res.Scored = scored
	res.Segments = scoring.SegmentMeans(scored)
	for _, s := range res.Segments {
		log.Debug("segment",
			zap.String("segment", string(s.Segment)),
			zap.Int("customers", s.Customers),
			zap.Float64("mean_recency", s.MeanRecency),
			zap.Float64("mean_frequency", s.MeanFrequency),
			zap.Float64("mean_monetary", s.MeanMonetary))
	}
	step("segment")
	return res, nil
}

func persist(ctx context.Context, cfg models.Config, res *Result, log *zap.Logger) (string, int, error) {
	db, driver, err := database.Open(cfg.DSN)
	if err != nil {
		return "", 0, err
	}
	defer db.Close()
	log.Debug("store connected", zap.String("driver", driver))

	if err := database.Migrate(ctx, db); err != nil {
		return "", 0, err
	}
	run := database.NewRun(res.AnalysisDate, cfg.InputPath, len(res.Scored))
	n, err := database.SaveRun(ctx, db, run, res.Scored)
	if err != nil {
		return "", 0, err
	}
	runs, err := database.CountRuns(ctx, db)
	if err != nil {
		return "", 0, err
	}
	log.Info("scores persisted", zap.String("run_id", run.ID), zap.Int("rows", n), zap.Int("stored_runs", runs))
	return run.ID, runs, nil
}

func newBar(visible bool, steps int) *progressbar.ProgressBar {
	var w io.Writer = os.Stderr
	if !visible {
		w = io.Discard
	}
	return progressbar.NewOptions(steps,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("rfm"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}
