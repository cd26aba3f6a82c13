package scoring

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrBinning : le découpage en quantiles ne produit pas le nombre de groupes demandé
// (bornes dupliquées ou groupe vide). Aucun repli vers moins de groupes n'est tenté.
var ErrBinning = errors.New("binning error")

// QCut répartit values en len(labels) groupes d'effectifs égaux (quantiles) et
// retourne, pour chaque valeur, le label de son groupe.
//
// Les bornes sont les quantiles k/q par interpolation linéaire ; chaque groupe est
// l'intervalle ]b(k), b(k+1)], le premier incluant aussi sa borne basse.
func QCut(values []float64, labels []int) ([]int, error) {
	q := len(labels)
	if q < 1 {
		return nil, fmt.Errorf("%w: no labels", ErrBinning)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: no values", ErrBinning)
	}
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: non-finite value %v", ErrBinning, v)
		}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	edges := make([]float64, q+1)
	for k := 0; k <= q; k++ {
		edges[k] = quantile(sorted, float64(k)/float64(q))
	}
	for k := 1; k <= q; k++ {
		if !(edges[k] > edges[k-1]) {
			return nil, fmt.Errorf("%w: quantile edges are not unique (%d distinct values for %d groups)",
				ErrBinning, distinct(sorted), q)
		}
	}

	out := make([]int, len(values))
	counts := make([]int, q)
	for i, v := range values {
		b := sort.SearchFloat64s(edges, v) - 1
		if b < 0 {
			b = 0
		}
		counts[b]++
		out[i] = labels[b]
	}
	for b, c := range counts {
		if c == 0 {
			return nil, fmt.Errorf("%w: group %d of %d is empty (%d values)", ErrBinning, b+1, q, len(values))
		}
	}
	return out, nil
}

// RankFirst retourne le rang (1..n) de chaque valeur ; à égalité, l'ordre d'origine départage.
func RankFirst(values []float64) []float64 {
	idx := make([]int, len(values))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return values[idx[a]] < values[idx[b]] })
	ranks := make([]float64, len(values))
	for r, i := range idx {
		ranks[i] = float64(r + 1)
	}
	return ranks
}

// quantile sur un slice trié, interpolation linéaire entre les deux rangs voisins.
func quantile(sorted []float64, p float64) float64 {
	pos := p * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (sorted[hi]-sorted[lo])*(pos-float64(lo))
}

func distinct(sorted []float64) int {
	n := 0
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			n++
		}
	}
	return n
}
