package scoring

import (
	"fmt"
	"sort"

	"rfm-segmentation/pkg/models"
)

var (
	ascendingLabels  = []int{1, 2, 3, 4, 5}
	descendingLabels = []int{5, 4, 3, 2, 1}
)

// Score attribue les scores 1..5 à chaque enregistrement (modifié en place).
//
//	recency   : quantiles sur les jours, les plus récents → 5
//	frequency : quantiles sur le rang "first" (égalités départagées par l'ordre des enregistrements)
//	monetary  : quantiles sur la valeur brute, plus grosse dépense → 5
//
// L'ordre de records doit être stable (ComputeRFM trie par master_id).
func Score(records []models.RFMRecord) error {
	n := len(records)
	recency := make([]float64, n)
	frequency := make([]float64, n)
	monetary := make([]float64, n)
	for i, r := range records {
		recency[i] = float64(r.Recency)
		frequency[i] = r.Frequency
		monetary[i] = r.Monetary
	}

	rs, err := QCut(recency, descendingLabels)
	if err != nil {
		return fmt.Errorf("recency: %w", err)
	}
	fs, err := QCut(RankFirst(frequency), ascendingLabels)
	if err != nil {
		return fmt.Errorf("frequency: %w", err)
	}
	ms, err := QCut(monetary, ascendingLabels)
	if err != nil {
		return fmt.Errorf("monetary: %w", err)
	}

	for i := range records {
		records[i].RecencyScore = rs[i]
		records[i].FrequencyScore = fs[i]
		records[i].MonetaryScore = ms[i]
		records[i].RFScore = RFCode(rs[i], fs[i])
	}
	return nil
}

// Segment affecte le segment de chaque enregistrement déjà scoré.
func Segment(records []models.RFMRecord, table *SegmentTable) error {
	for i := range records {
		seg, err := table.Classify(records[i].RecencyScore, records[i].FrequencyScore)
		if err != nil {
			return fmt.Errorf("customer %s: %w", records[i].MasterID, err)
		}
		records[i].RFScore = RFCode(records[i].RecencyScore, records[i].FrequencyScore)
		records[i].Segment = seg
	}
	return nil
}

// SegmentMeans calcule recency/frequency/monetary moyens par segment, triés par nom de segment.
// Les segments vides n'apparaissent pas.
func SegmentMeans(records []models.RFMRecord) []models.SegmentSummary {
	type acc struct {
		n       int
		r, f, m float64
	}
	bySegment := map[models.Segment]*acc{}
	for _, rec := range records {
		a, ok := bySegment[rec.Segment]
		if !ok {
			a = &acc{}
			bySegment[rec.Segment] = a
		}
		a.n++
		a.r += float64(rec.Recency)
		a.f += rec.Frequency
		a.m += rec.Monetary
	}
	out := make([]models.SegmentSummary, 0, len(bySegment))
	for seg, a := range bySegment {
		n := float64(a.n)
		out = append(out, models.SegmentSummary{
			Segment:       seg,
			Customers:     a.n,
			MeanRecency:   a.r / n,
			MeanFrequency: a.f / n,
			MeanMonetary:  a.m / n,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Segment < out[j].Segment })
	return out
}
