package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"rfm-segmentation/pkg/models"
)

var (
	// ErrSchema : colonne obligatoire absente ou fichier sans en-tête.
	ErrSchema = errors.New("schema error")
	// ErrParse : valeur illisible (date, nombre, clé vide).
	ErrParse = errors.New("parse error")
)

const (
	colMasterID         = "master_id"
	colOrderChannel     = "order_channel"
	colLastOrderChannel = "last_order_channel"
	colFirstOrderDate   = "first_order_date"
	colLastOrderDate    = "last_order_date"
	colLastOnline       = "last_order_date_online"
	colLastOffline      = "last_order_date_offline"
	colOrdersOnline     = "order_num_total_ever_online"
	colOrdersOffline    = "order_num_total_ever_offline"
	colValueOffline     = "customer_value_total_ever_offline"
	colValueOnline      = "customer_value_total_ever_online"
	colInterests        = "interested_in_categories_12"
)

// RequiredColumns liste les colonnes sans lesquelles le run est rejeté.
var RequiredColumns = []string{
	colMasterID,
	colFirstOrderDate,
	colLastOrderDate,
	colLastOnline,
	colLastOffline,
	colOrdersOnline,
	colOrdersOffline,
	colValueOffline,
	colValueOnline,
	colInterests,
}

// Formats acceptés pour les colonnes date, essayés dans l'ordre.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// Load ouvre le fichier CSV et retourne les enregistrements préparés.
func Load(path string) ([]models.CustomerRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}

// Read lit un CSV avec en-tête, calcule les totaux omnicanal et parse les dates.
func Read(r io.Reader) ([]models.CustomerRecord, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = 0 // même nombre de champs que l'en-tête

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty input, header expected", ErrSchema)
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx, err := indexColumns(header)
	if err != nil {
		return nil, err
	}

	var out []models.CustomerRecord
	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrParse, line, err)
		}
		rec, err := parseRow(row, idx, line)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func indexColumns(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		idx[h] = i
	}
	var missing []string
	for _, c := range RequiredColumns {
		if _, ok := idx[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing required columns: %s", ErrSchema, strings.Join(missing, ", "))
	}
	return idx, nil
}

func parseRow(row []string, idx map[string]int, line int) (models.CustomerRecord, error) {
	get := func(col string) string {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	rec := models.CustomerRecord{
		MasterID:         get(colMasterID),
		OrderChannel:     get(colOrderChannel),
		LastOrderChannel: get(colLastOrderChannel),
		Line:             line,
	}
	if rec.MasterID == "" {
		return rec, fmt.Errorf("%w: line %d: empty %s", ErrParse, line, colMasterID)
	}

	dates := []struct {
		col string
		dst *time.Time
	}{
		{colFirstOrderDate, &rec.FirstOrderDate},
		{colLastOrderDate, &rec.LastOrderDate},
		{colLastOnline, &rec.LastOrderDateOnline},
		{colLastOffline, &rec.LastOrderDateOffline},
	}
	for _, d := range dates {
		t, err := parseDate(get(d.col))
		if err != nil {
			return rec, fmt.Errorf("%w: line %d: column %s: %v", ErrParse, line, d.col, err)
		}
		*d.dst = t
	}

	nums := []struct {
		col string
		dst *float64
	}{
		{colOrdersOnline, &rec.OrderNumOnline},
		{colOrdersOffline, &rec.OrderNumOffline},
		{colValueOnline, &rec.ValueOnline},
		{colValueOffline, &rec.ValueOffline},
	}
	for _, n := range nums {
		v, err := parseAmount(get(n.col))
		if err != nil {
			return rec, fmt.Errorf("%w: line %d: column %s: %v", ErrParse, line, n.col, err)
		}
		*n.dst = v
	}

	rec.OrderNumOmni = rec.OrderNumOnline + rec.OrderNumOffline
	rec.ValueOmni = rec.ValueOnline + rec.ValueOffline

	if s := get(colInterests); s != "" {
		rec.Interests = &s
	}
	return rec, nil
}

// parseDate essaie chaque format connu ; le résultat est toujours en UTC.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

func parseAmount(s string) (float64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty value")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	if v < 0 {
		return 0, fmt.Errorf("negative value %q", s)
	}
	return v, nil
}
