package campaign

import (
	"fmt"
	"strings"

	"rfm-segmentation/pkg/models"
)

// Candidate est un client segmenté associé à son champ d'intérêts (nil si absent).
type Candidate struct {
	MasterID  string
	Segment   models.Segment
	Interests *string
}

// IssueKind qualifie un problème de jointure.
type IssueKind string

const (
	// IssueMissing : aucun enregistrement source pour ce client.
	IssueMissing IssueKind = "missing_interest_record"
	// IssueAmbiguous : plusieurs enregistrements source avec des intérêts différents.
	IssueAmbiguous IssueKind = "ambiguous_interest_record"
)

// JoinIssue est un avertissement de qualité de données : le client est exclu
// de toutes les listes, le run continue.
type JoinIssue struct {
	MasterID string
	Kind     IssueKind
	Lines    []int // lignes CSV en cause, vide si IssueMissing
}

func (i JoinIssue) Error() string {
	return fmt.Sprintf("customer %s: %s", i.MasterID, i.Kind)
}

type interest struct {
	value     *string
	ambiguous bool
	lines     []int
}

// Join rattache à chaque client scoré son champ d'intérêts (jointure n→1 sur master_id).
// Les clients sans correspondance unique sont écartés et remontés comme JoinIssue.
func Join(scored []models.RFMRecord, records []models.CustomerRecord) ([]Candidate, []JoinIssue) {
	index := make(map[string]*interest, len(records))
	for _, r := range records {
		cur, ok := index[r.MasterID]
		if !ok {
			index[r.MasterID] = &interest{value: r.Interests, lines: []int{r.Line}}
			continue
		}
		cur.lines = append(cur.lines, r.Line)
		if !sameInterest(cur.value, r.Interests) {
			cur.ambiguous = true
		}
	}

	out := make([]Candidate, 0, len(scored))
	var issues []JoinIssue
	for _, s := range scored {
		in, ok := index[s.MasterID]
		switch {
		case !ok:
			issues = append(issues, JoinIssue{MasterID: s.MasterID, Kind: IssueMissing})
		case in.ambiguous:
			issues = append(issues, JoinIssue{MasterID: s.MasterID, Kind: IssueAmbiguous, Lines: in.lines})
		default:
			out = append(out, Candidate{MasterID: s.MasterID, Segment: s.Segment, Interests: in.value})
		}
	}
	return out, issues
}

// Select retourne, dans l'ordre des candidats, les master_id dont le segment fait partie
// de rule.Segments et dont le champ d'intérêts contient au moins un marqueur
// (sensible à la casse). Un champ absent exclut le client.
func Select(candidates []Candidate, rule models.CampaignRule) []string {
	segments := make(map[models.Segment]struct{}, len(rule.Segments))
	for _, s := range rule.Segments {
		segments[s] = struct{}{}
	}
	out := []string{}
	for _, c := range candidates {
		if _, ok := segments[c.Segment]; !ok {
			continue
		}
		if c.Interests == nil || !containsAny(*c.Interests, rule.InterestMarkers) {
			continue
		}
		out = append(out, c.MasterID)
	}
	return out
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if m != "" && strings.Contains(s, m) {
			return true
		}
	}
	return false
}

func sameInterest(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
