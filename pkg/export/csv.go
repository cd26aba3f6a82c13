package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
)

// KeyHeader est l'unique colonne des fichiers de campagne.
const KeyHeader = "master_id"

// WriteKeys écrit un CSV à une colonne (en-tête master_id, une ligne par client).
// Le dossier parent est créé si besoin.
func WriteKeys(path string, keys []string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create folder %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write([]string{KeyHeader}); err != nil {
		f.Close()
		return fmt.Errorf("write header: %w", err)
	}
	for _, k := range keys {
		if err := w.Write([]string{k}); err != nil {
			f.Close()
			return fmt.Errorf("write %s: %w", k, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return f.Close()
}
