package scoring

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfm-segmentation/pkg/models"
)

func sampleRFM() []models.RFMRecord {
	out := make([]models.RFMRecord, 10)
	for i := range out {
		out[i] = models.RFMRecord{
			MasterID:  fmt.Sprintf("c%02d", i),
			Recency:   (i + 1) * 10,
			Frequency: float64(10 - i),
			Monetary:  float64(i+1) * 100.5,
		}
	}
	// ties on frequency, broken by record order
	out[8].Frequency, out[9].Frequency = 1, 1
	return out
}

func TestScore(t *testing.T) {
	recs := sampleRFM()
	require.NoError(t, Score(recs))

	assert.Equal(t, 5, recs[0].RecencyScore)
	assert.Equal(t, 1, recs[9].RecencyScore)
	assert.Equal(t, 5, recs[0].FrequencyScore)
	assert.Equal(t, 1, recs[9].FrequencyScore)
	assert.Equal(t, 1, recs[0].MonetaryScore)
	assert.Equal(t, 5, recs[9].MonetaryScore)
	assert.Equal(t, "55", recs[0].RFScore)
	assert.Equal(t, "11", recs[9].RFScore)

	for _, r := range recs {
		for _, s := range []int{r.RecencyScore, r.FrequencyScore, r.MonetaryScore} {
			assert.GreaterOrEqual(t, s, 1)
			assert.LessOrEqual(t, s, 5)
		}
	}
}

func TestScore_BinningErrorNamesMetric(t *testing.T) {
	recs := sampleRFM()
	for i := range recs {
		recs[i].Recency = 3
	}
	err := Score(recs)
	require.ErrorIs(t, err, ErrBinning)
	assert.Contains(t, err.Error(), "recency")
}

func TestScore_DuplicateFrequencyStillScores(t *testing.T) {
	recs := sampleRFM()
	for i := range recs {
		recs[i].Frequency = 1
	}
	require.NoError(t, Score(recs))
	sizes := map[int]int{}
	for _, r := range recs {
		sizes[r.FrequencyScore]++
	}
	for s := 1; s <= 5; s++ {
		assert.Equal(t, 2, sizes[s], "frequency score %d", s)
	}
}

func TestSegment(t *testing.T) {
	recs := []models.RFMRecord{
		{MasterID: "a", RecencyScore: 5, FrequencyScore: 5},
		{MasterID: "b", RecencyScore: 3, FrequencyScore: 3},
		{MasterID: "c", RecencyScore: 4, FrequencyScore: 1},
		{MasterID: "d", RecencyScore: 1, FrequencyScore: 5},
	}
	require.NoError(t, Segment(recs, DefaultSegmentTable()))
	assert.Equal(t, models.Champions, recs[0].Segment)
	assert.Equal(t, models.NeedAttention, recs[1].Segment)
	assert.Equal(t, models.Promising, recs[2].Segment)
	assert.Equal(t, models.CantLoose, recs[3].Segment)
	assert.Equal(t, "15", recs[3].RFScore)
}

func TestSegment_UnscoredRecord(t *testing.T) {
	err := Segment([]models.RFMRecord{{MasterID: "x"}}, DefaultSegmentTable())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "x")
}

func TestSegmentMeans(t *testing.T) {
	recs := []models.RFMRecord{
		{Segment: models.Champions, Recency: 2, Frequency: 10, Monetary: 1000},
		{Segment: models.Champions, Recency: 4, Frequency: 20, Monetary: 3000},
		{Segment: models.AtRisk, Recency: 200, Frequency: 3, Monetary: 90},
	}
	got := SegmentMeans(recs)
	require.Len(t, got, 2)
	assert.Equal(t, models.AtRisk, got[0].Segment)
	assert.Equal(t, models.Champions, got[1].Segment)
	assert.Equal(t, 2, got[1].Customers)
	assert.InDelta(t, 3.0, got[1].MeanRecency, 1e-9)
	assert.InDelta(t, 15.0, got[1].MeanFrequency, 1e-9)
	assert.InDelta(t, 2000.0, got[1].MeanMonetary, 1e-9)
	for _, s := range got {
		assert.False(t, math.IsNaN(s.MeanMonetary) || math.IsInf(s.MeanMonetary, 0))
	}
}
