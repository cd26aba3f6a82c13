package calculator

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"rfm-segmentation/pkg/models"
)

// ErrNegativeRecency : la date d'analyse précède la dernière commande d'au moins un client.
var ErrNegativeRecency = errors.New("negative recency")

const dayLayout = "2006-01-02"

// DeriveAnalysisDate → max(last_order_date) + offsetDays, tronqué au jour (UTC).
func DeriveAnalysisDate(records []models.CustomerRecord, offsetDays int) (time.Time, error) {
	if len(records) == 0 {
		return time.Time{}, fmt.Errorf("no records to derive analysis date from")
	}
	if offsetDays < 0 {
		return time.Time{}, fmt.Errorf("analysis offset must be >= 0, got %d", offsetDays)
	}
	latest := records[0].LastOrderDate
	for _, r := range records[1:] {
		if r.LastOrderDate.After(latest) {
			latest = r.LastOrderDate
		}
	}
	return dayUTC(latest).AddDate(0, 0, offsetDays), nil
}

// ComputeRFM agrège les enregistrements par master_id.
//
//	recency   = jours entiers entre analysisDate et la dernière commande la plus récente
//	frequency = Σ commandes omnicanal
//	monetary  = Σ dépense omnicanal
//
// Le résultat est trié par master_id. Une recency négative est une erreur de
// configuration (date d'analyse trop ancienne) et fait échouer le calcul.
func ComputeRFM(records []models.CustomerRecord, analysisDate time.Time) ([]models.RFMRecord, error) {
	type agg struct {
		last      time.Time
		frequency float64
		monetary  float64
	}
	byClient := make(map[string]*agg, len(records))
	for _, r := range records {
		a, ok := byClient[r.MasterID]
		if !ok {
			a = &agg{last: r.LastOrderDate}
			byClient[r.MasterID] = a
		}
		if r.LastOrderDate.After(a.last) {
			a.last = r.LastOrderDate
		}
		a.frequency += r.OrderNumOmni
		a.monetary += r.ValueOmni
	}

	out := make([]models.RFMRecord, 0, len(byClient))
	var negative []string
	for id, a := range byClient {
		rec := models.RFMRecord{
			MasterID:  id,
			Recency:   daysBetween(a.last, analysisDate),
			Frequency: a.frequency,
			Monetary:  a.monetary,
		}
		if rec.Recency < 0 {
			negative = append(negative, id)
		}
		out = append(out, rec)
	}
	if len(negative) > 0 {
		sort.Strings(negative)
		return nil, fmt.Errorf("%w: analysis date %s precedes last order of %d customer(s) (first: %s)",
			ErrNegativeRecency, formatDay(analysisDate), len(negative), negative[0])
	}

	sort.Slice(out, func(i, j int) bool { return out[i].MasterID < out[j].MasterID })
	return out, nil
}

// daysBetween → nombre de jours entiers (arrondi vers le bas) de from à to.
func daysBetween(from, to time.Time) int {
	return int(math.Floor(to.Sub(from).Hours() / 24))
}

// ParseDay("YYYY-MM-DD") → minuit UTC
func ParseDay(s string) (time.Time, error) {
	t, err := time.ParseInLocation(dayLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("format attendu YYYY-MM-DD (ex: 2021-06-01): %w", err)
	}
	return t, nil
}

func formatDay(t time.Time) string {
	return t.UTC().Format(dayLayout)
}

func dayUTC(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
