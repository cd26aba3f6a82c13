package scoring

import (
	"fmt"
	"strconv"

	"rfm-segmentation/pkg/models"
)

const (
	minScore = 1
	maxScore = 5
)

// DigitRange est un intervalle fermé de scores, ex: {1, 2} pour "[1-2]".
type DigitRange struct {
	Min, Max int
}

// Digits construit l'intervalle [min-max].
func Digits(min, max int) DigitRange { return DigitRange{Min: min, Max: max} }

// Digit construit l'intervalle réduit à un seul score.
func Digit(d int) DigitRange { return DigitRange{Min: d, Max: d} }

func (r DigitRange) contains(d int) bool { return d >= r.Min && d <= r.Max }

func (r DigitRange) valid() bool {
	return r.Min >= minScore && r.Max <= maxScore && r.Min <= r.Max
}

func (r DigitRange) String() string {
	if r.Min == r.Max {
		return strconv.Itoa(r.Min)
	}
	return fmt.Sprintf("[%d-%d]", r.Min, r.Max)
}

// Rule associe un couple d'intervalles (recency_score, frequency_score) à un segment.
type Rule struct {
	Recency   DigitRange
	Frequency DigitRange
	Segment   models.Segment
}

func (r Rule) matches(recency, frequency int) bool {
	return r.Recency.contains(recency) && r.Frequency.contains(frequency)
}

func (r Rule) String() string {
	return r.Recency.String() + r.Frequency.String() + " -> " + string(r.Segment)
}

// SegmentTable est une table ordonnée de règles : la première règle qui correspond
// au code RF l'emporte. La table est validée à la construction : chacun des 25 codes
// 11..55 doit correspondre à exactement une règle.
type SegmentTable struct {
	rules []Rule
}

// DefaultRules reproduit la table canonique, dans son ordre d'évaluation.
func DefaultRules() []Rule {
	return []Rule{
		{Digits(1, 2), Digits(1, 2), models.Hibernating},
		{Digits(1, 2), Digits(3, 4), models.AtRisk},
		{Digits(1, 2), Digit(5), models.CantLoose},
		{Digit(3), Digits(1, 2), models.AboutToSleep},
		{Digit(3), Digit(3), models.NeedAttention},
		{Digits(3, 4), Digits(4, 5), models.LoyalCustomers},
		{Digit(4), Digit(1), models.Promising},
		{Digit(5), Digit(1), models.NewCustomers},
		{Digits(4, 5), Digits(2, 3), models.PotentialLoyalists},
		{Digit(5), Digits(4, 5), models.Champions},
	}
}

// NewSegmentTable valide et construit une table à partir de règles ordonnées.
func NewSegmentTable(rules []Rule) (*SegmentTable, error) {
	for i, r := range rules {
		if !r.Recency.valid() || !r.Frequency.valid() {
			return nil, fmt.Errorf("rule %d (%s): ranges must lie within %d..%d", i, r, minScore, maxScore)
		}
		if r.Segment == "" {
			return nil, fmt.Errorf("rule %d (%s): empty segment", i, r)
		}
	}
	for rs := minScore; rs <= maxScore; rs++ {
		for fs := minScore; fs <= maxScore; fs++ {
			var hits []Rule
			for _, r := range rules {
				if r.matches(rs, fs) {
					hits = append(hits, r)
				}
			}
			switch len(hits) {
			case 0:
				return nil, fmt.Errorf("code %s matches no rule", RFCode(rs, fs))
			case 1:
			default:
				return nil, fmt.Errorf("code %s matches %d rules (%s, %s)", RFCode(rs, fs), len(hits), hits[0], hits[1])
			}
		}
	}
	out := make([]Rule, len(rules))
	copy(out, rules)
	return &SegmentTable{rules: out}, nil
}

// DefaultSegmentTable retourne la table canonique validée.
func DefaultSegmentTable() *SegmentTable {
	t, err := NewSegmentTable(DefaultRules())
	if err != nil {
		panic("default segment table: " + err.Error())
	}
	return t
}

// Classify retourne le segment du couple de scores ; première règle correspondante.
func (t *SegmentTable) Classify(recencyScore, frequencyScore int) (models.Segment, error) {
	for _, r := range t.rules {
		if r.matches(recencyScore, frequencyScore) {
			return r.Segment, nil
		}
	}
	return "", fmt.Errorf("no segment for code %s", RFCode(recencyScore, frequencyScore))
}

// ClassifyCode accepte un code RF de deux chiffres, ex: "54".
func (t *SegmentTable) ClassifyCode(code string) (models.Segment, error) {
	if len(code) != 2 || code[0] < '0' || code[0] > '9' || code[1] < '0' || code[1] > '9' {
		return "", fmt.Errorf("invalid RF code %q", code)
	}
	return t.Classify(int(code[0]-'0'), int(code[1]-'0'))
}

// Segments liste les segments de la table, sans doublon, dans l'ordre des règles.
func (t *SegmentTable) Segments() []models.Segment {
	seen := map[models.Segment]bool{}
	var out []models.Segment
	for _, r := range t.rules {
		if !seen[r.Segment] {
			seen[r.Segment] = true
			out = append(out, r.Segment)
		}
	}
	return out
}

// Has indique si le segment existe dans la table.
func (t *SegmentTable) Has(s models.Segment) bool {
	for _, r := range t.rules {
		if r.Segment == s {
			return true
		}
	}
	return false
}

// RFCode concatène les deux scores, ex: (5, 4) → "54".
func RFCode(recencyScore, frequencyScore int) string {
	return strconv.Itoa(recencyScore) + strconv.Itoa(frequencyScore)
}
