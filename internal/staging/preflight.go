package staging

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopstack/shopsync/internal/models"
)

// Expected CSV headers for the two bulk-upload formats. The backend expands
// rows server-side; the preflight only catches a wrong file before any bytes
// are transported.
var (
	catalogHeader  = []string{"product_id", "name", "category", "price", "rating", "brand", "features", "stock"}
	behaviorHeader = []string{"user_id", "product_id", "action", "timestamp"}
)

// PreflightCatalog checks that the file at path starts with the catalog
// header row. Advisory: a failure is a validation error, not a transport
// block enforced elsewhere.
func PreflightCatalog(path string) error {
	return checkHeader(path, catalogHeader)
}

// PreflightBehavior checks the behavior-log header and that every action
// column value is one of the accepted actions.
func PreflightBehavior(path string) error {
	if err := checkHeader(path, behaviorHeader); err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	if _, err := r.Read(); err != nil { // skip header
		return nil
	}

	line := 1
	for {
		record, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("line %d: %w", line+1, err)
		}
		line++
		if len(record) < 3 {
			continue
		}
		if action := strings.TrimSpace(record[2]); !models.ValidAction(action) {
			return fmt.Errorf("line %d: unknown action %q", line, action)
		}
	}
}

func checkHeader(path string, want []string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comment = '#'
	header, err := r.Read()
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}

	if len(header) != len(want) {
		return fmt.Errorf("expected %d columns, got %d", len(want), len(header))
	}
	for i, col := range header {
		if !strings.EqualFold(strings.TrimSpace(col), want[i]) {
			return fmt.Errorf("column %d: expected %q, got %q", i+1, want[i], strings.TrimSpace(col))
		}
	}
	return nil
}
