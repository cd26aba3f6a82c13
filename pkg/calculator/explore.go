package calculator

import (
	"sort"
	"time"

	"rfm-segmentation/pkg/models"
)

// Overview résume le jeu de données chargé.
type Overview struct {
	Rows               int
	Customers          int
	MissingInterests   int
	MissingChannel     int
	MissingLastChannel int
	FirstOrder         time.Time
	LastOrder          time.Time
}

// Describe calcule l'aperçu du jeu de données (lignes, clients, valeurs manquantes, bornes de dates).
func Describe(records []models.CustomerRecord) Overview {
	ov := Overview{Rows: len(records)}
	seen := make(map[string]struct{}, len(records))
	for i, r := range records {
		seen[r.MasterID] = struct{}{}
		if r.Interests == nil {
			ov.MissingInterests++
		}
		if r.OrderChannel == "" {
			ov.MissingChannel++
		}
		if r.LastOrderChannel == "" {
			ov.MissingLastChannel++
		}
		if i == 0 || r.FirstOrderDate.Before(ov.FirstOrder) {
			ov.FirstOrder = r.FirstOrderDate
		}
		if i == 0 || r.LastOrderDate.After(ov.LastOrder) {
			ov.LastOrder = r.LastOrderDate
		}
	}
	ov.Customers = len(seen)
	return ov
}

// ChannelSummary agrège par order_channel : nombre de clients, Σ commandes, Σ dépense.
// Les lignes sans canal sont regroupées sous "unknown".
func ChannelSummary(records []models.CustomerRecord) []models.ChannelSummary {
	byChannel := map[string]*models.ChannelSummary{}
	for _, r := range records {
		ch := r.OrderChannel
		if ch == "" {
			ch = "unknown"
		}
		s, ok := byChannel[ch]
		if !ok {
			s = &models.ChannelSummary{Channel: ch}
			byChannel[ch] = s
		}
		s.Customers++
		s.Orders += r.OrderNumOmni
		s.Value += r.ValueOmni
	}
	out := make([]models.ChannelSummary, 0, len(byChannel))
	for _, s := range byChannel {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Channel < out[j].Channel })
	return out
}

// RankBy indique la métrique de classement des meilleurs clients.
type RankBy int

const (
	ByValue RankBy = iota
	ByOrders
)

// TopCustomers retourne les n premiers enregistrements selon la métrique, ordre décroissant.
// À égalité, l'ordre du fichier est conservé.
func TopCustomers(records []models.CustomerRecord, by RankBy, n int) []models.CustomerRecord {
	sorted := make([]models.CustomerRecord, len(records))
	copy(sorted, records)
	key := func(r models.CustomerRecord) float64 {
		if by == ByOrders {
			return r.OrderNumOmni
		}
		return r.ValueOmni
	}
	sort.SliceStable(sorted, func(i, j int) bool { return key(sorted[i]) > key(sorted[j]) })
	if n >= 0 && n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}
