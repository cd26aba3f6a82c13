package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfm-segmentation/pkg/models"
	"rfm-segmentation/pkg/scoring"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"RFM_CONFIG_PATH", "RFM_INPUT_PATH", "RFM_ANALYSIS_DATE", "RFM_ANALYSIS_OFFSET_DAYS", "RFM_OUTPUT_DIR", "RFM_DSN", "RFM_SUMMARY"} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "flo_data_20k.csv", cfg.InputPath)
	assert.Equal(t, 2, cfg.AnalysisOffsetDays)
	assert.True(t, cfg.AnalysisDate.IsZero())
	assert.True(t, cfg.Progress)
	assert.Equal(t, DefaultCampaigns(), cfg.Campaigns)
	require.NoError(t, Validate(cfg, scoring.DefaultSegmentTable()))
}

func TestLoadYAMLAndEnvOverride(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "rfm.yaml")
	content := `
input_path: "/data/flo.csv"
analysis_date: "2021-06-01"
analysis_offset_days: 0
output_dir: "/tmp/out"
progress: false
campaigns:
  - name: sport
    segments: [champions, potential_loyalists]
    interest_markers: [AKTIFSPOR]
    output_path: sport.csv
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("RFM_INPUT_PATH", "/env/flo.csv")
	t.Setenv("RFM_SUMMARY", "true")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/env/flo.csv", cfg.InputPath)
	assert.True(t, cfg.AnalysisDate.Equal(time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 0, cfg.AnalysisOffsetDays)
	assert.False(t, cfg.Progress)
	assert.True(t, cfg.Summary)
	require.Len(t, cfg.Campaigns, 1)
	assert.Equal(t, []models.Segment{models.Champions, models.PotentialLoyalists}, cfg.Campaigns[0].Segments)
	assert.Equal(t, filepath.Join("/tmp/out", "sport.csv"), OutputPath(cfg, cfg.Campaigns[0]))
	require.NoError(t, Validate(cfg, scoring.DefaultSegmentTable()))
}

func TestLoadEnvConfigPath(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dsn: sqlite:///tmp/rfm.db\n"), 0o644))
	t.Setenv("RFM_CONFIG_PATH", path)
	t.Setenv("RFM_ANALYSIS_OFFSET_DAYS", "5")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sqlite:///tmp/rfm.db", cfg.DSN)
	assert.Equal(t, 5, cfg.AnalysisOffsetDays)
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err, "explicit missing file")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("campaigns: [:"), 0o644))
	_, err = Load(bad)
	assert.Error(t, err, "invalid yaml")

	date := filepath.Join(dir, "date.yaml")
	require.NoError(t, os.WriteFile(date, []byte(`analysis_date: "01/06/2021"`), 0o644))
	_, err = Load(date)
	assert.Error(t, err, "invalid analysis date")

	t.Setenv("RFM_ANALYSIS_OFFSET_DAYS", "two")
	_, err = Load(date)
	assert.Error(t, err, "invalid offset env")
}

func TestValidate(t *testing.T) {
	table := scoring.DefaultSegmentTable()
	base := func() models.Config {
		return models.Config{InputPath: "in.csv", AnalysisOffsetDays: 2, Campaigns: DefaultCampaigns()}
	}
	require.NoError(t, Validate(base(), table))

	cases := map[string]func(*models.Config){
		"no input":        func(c *models.Config) { c.InputPath = "" },
		"negative offset": func(c *models.Config) { c.AnalysisOffsetDays = -1 },
		"no campaigns":    func(c *models.Config) { c.Campaigns = nil },
		"unknown segment": func(c *models.Config) { c.Campaigns[0].Segments = []models.Segment{"vip"} },
		"no markers":      func(c *models.Config) { c.Campaigns[0].InterestMarkers = []string{" "} },
		"no output":       func(c *models.Config) { c.Campaigns[1].OutputPath = "" },
		"no name":         func(c *models.Config) { c.Campaigns[1].Name = "" },
		"duplicate name":  func(c *models.Config) { c.Campaigns[1].Name = c.Campaigns[0].Name },
		"no segments":     func(c *models.Config) { c.Campaigns[0].Segments = nil },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := base()
			mutate(&cfg)
			assert.Error(t, Validate(cfg, table))
		})
	}
}

func TestValidate_UnknownSegmentListsKnown(t *testing.T) {
	cfg := models.Config{InputPath: "in.csv", Campaigns: DefaultCampaigns()}
	cfg.Campaigns[0].Segments = []models.Segment{"vip"}

	err := Validate(cfg, scoring.DefaultSegmentTable())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"vip"`)
	assert.Contains(t, err.Error(), "hibernating, at_risk")
	assert.Contains(t, err.Error(), "champions")
}

func TestOutputPath(t *testing.T) {
	c := models.CampaignRule{OutputPath: "a.csv"}
	assert.Equal(t, "a.csv", OutputPath(models.Config{}, c))
	assert.Equal(t, "/abs/a.csv", OutputPath(models.Config{OutputDir: "out"}, models.CampaignRule{OutputPath: "/abs/a.csv"}))
}
