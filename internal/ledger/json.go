package ledger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/insightdelivered/statement-insights/internal/models"
)

// Save writes txns to w as an indented JSON array of records.
func Save(w io.Writer, txns []models.Transaction) error {
	records := make([]Record, len(txns))
	for i, t := range txns {
		records[i] = ToRecord(t)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("failed to encode transactions: %w", err)
	}
	return nil
}

// Load reads transactions written by Save.
func Load(r io.Reader) ([]models.Transaction, error) {
	var records []Record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode transactions: %w", err)
	}
	out := make([]models.Transaction, 0, len(records))
	for i, rec := range records {
		t, err := rec.Transaction()
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out = append(out, t)
	}
	return out, nil
}

// SaveFile writes txns to path.
func SaveFile(path string, txns []models.Transaction) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := Save(f, txns); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadFile reads transactions from path.
func LoadFile(path string) ([]models.Transaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}
