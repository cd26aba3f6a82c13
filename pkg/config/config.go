package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"rfm-segmentation/pkg/calculator"
	"rfm-segmentation/pkg/models"
	"rfm-segmentation/pkg/scoring"
)

const (
	defaultConfigPath = "rfm.yaml"
	defaultInputPath  = "flo_data_20k.csv"
	defaultOffsetDays = 2
)

// File est la forme YAML de la configuration.
type File struct {
	InputPath          string                `yaml:"input_path"`
	AnalysisDate       string                `yaml:"analysis_date"`
	AnalysisOffsetDays *int                  `yaml:"analysis_offset_days"`
	OutputDir          string                `yaml:"output_dir"`
	DSN                string                `yaml:"dsn"`
	Summary            bool                  `yaml:"summary"`
	Progress           *bool                 `yaml:"progress"`
	Campaigns          []models.CampaignRule `yaml:"campaigns"`
}

// DefaultCampaigns reproduit les deux listes de référence.
func DefaultCampaigns() []models.CampaignRule {
	return []models.CampaignRule{
		{
			Name:            "premium_customers_a",
			Segments:        []models.Segment{models.Champions, models.LoyalCustomers},
			InterestMarkers: []string{"KADIN"},
			OutputPath:      "premium_customers_a.csv",
		},
		{
			Name:            "premium_customers_b",
			Segments:        []models.Segment{models.NeedAttention, models.AboutToSleep, models.NewCustomers},
			InterestMarkers: []string{"ERKEK", "COCUK"},
			OutputPath:      "premium_customers_b.csv",
		},
	}
}

// Load lit le fichier YAML (path, sinon RFM_CONFIG_PATH, sinon rfm.yaml), applique les
// variables d'environnement puis les valeurs par défaut. Un fichier absent n'est une
// erreur que s'il a été demandé explicitement.
func Load(path string) (models.Config, error) {
	explicit := path != ""
	if path == "" {
		path = defaultConfigPath
		if env := os.Getenv("RFM_CONFIG_PATH"); env != "" {
			path = env
			explicit = true
		}
	}

	var f File
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &f); err != nil {
			return models.Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return models.Config{}, fmt.Errorf("read %s: %w", path, err)
	}

	envOverride(&f.InputPath, "RFM_INPUT_PATH")
	envOverride(&f.AnalysisDate, "RFM_ANALYSIS_DATE")
	envOverride(&f.OutputDir, "RFM_OUTPUT_DIR")
	envOverride(&f.DSN, "RFM_DSN")
	if err := envOverrideIntPtr(&f.AnalysisOffsetDays, "RFM_ANALYSIS_OFFSET_DAYS"); err != nil {
		return models.Config{}, err
	}
	if err := envOverrideBool(&f.Summary, "RFM_SUMMARY"); err != nil {
		return models.Config{}, err
	}

	return f.toConfig()
}

func (f File) toConfig() (models.Config, error) {
	cfg := models.Config{
		InputPath:          f.InputPath,
		AnalysisOffsetDays: defaultOffsetDays,
		OutputDir:          f.OutputDir,
		DSN:                f.DSN,
		Summary:            f.Summary,
		Progress:           true,
		Campaigns:          f.Campaigns,
	}
	if cfg.InputPath == "" {
		cfg.InputPath = defaultInputPath
	}
	if f.AnalysisOffsetDays != nil {
		cfg.AnalysisOffsetDays = *f.AnalysisOffsetDays
	}
	if f.Progress != nil {
		cfg.Progress = *f.Progress
	}
	if len(cfg.Campaigns) == 0 {
		cfg.Campaigns = DefaultCampaigns()
	}
	if f.AnalysisDate != "" {
		d, err := calculator.ParseDay(f.AnalysisDate)
		if err != nil {
			return models.Config{}, fmt.Errorf("analysis_date: %w", err)
		}
		cfg.AnalysisDate = d
	}
	return cfg, nil
}

// Validate vérifie la cohérence de la configuration avec la table de segments.
func Validate(cfg models.Config, table *scoring.SegmentTable) error {
	if cfg.InputPath == "" {
		return fmt.Errorf("input_path is required")
	}
	if cfg.AnalysisOffsetDays < 0 {
		return fmt.Errorf("analysis_offset_days must be >= 0, got %d", cfg.AnalysisOffsetDays)
	}
	if len(cfg.Campaigns) == 0 {
		return fmt.Errorf("at least one campaign is required")
	}
	names := map[string]bool{}
	for i, c := range cfg.Campaigns {
		label := c.Name
		if label == "" {
			return fmt.Errorf("campaign %d: name is required", i)
		}
		if names[label] {
			return fmt.Errorf("campaign %q: duplicate name", label)
		}
		names[label] = true
		if c.OutputPath == "" {
			return fmt.Errorf("campaign %q: output_path is required", label)
		}
		if len(c.Segments) == 0 {
			return fmt.Errorf("campaign %q: segments are required", label)
		}
		for _, s := range c.Segments {
			if !table.Has(s) {
				return fmt.Errorf("campaign %q: unknown segment %q (known: %s)", label, s, joinSegments(table.Segments()))
			}
		}
		markers := 0
		for _, m := range c.InterestMarkers {
			if strings.TrimSpace(m) != "" {
				markers++
			}
		}
		if markers == 0 {
			return fmt.Errorf("campaign %q: interest_markers are required", label)
		}
	}
	return nil
}

// OutputPath résout le chemin de sortie d'une campagne relativement à output_dir.
func OutputPath(cfg models.Config, c models.CampaignRule) string {
	if cfg.OutputDir == "" || filepath.IsAbs(c.OutputPath) {
		return c.OutputPath
	}
	return filepath.Join(cfg.OutputDir, c.OutputPath)
}

func envOverride(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envOverrideIntPtr(dst **int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("%s: invalid integer %q", key, v)
	}
	*dst = &n
	return nil
}

func envOverrideBool(dst *bool, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("%s: invalid boolean %q", key, v)
	}
	*dst = b
	return nil
}

func joinSegments(segs []models.Segment) string {
	names := make([]string, len(segs))
	for i, s := range segs {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}
