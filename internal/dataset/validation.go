package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"battery-platform/internal/models"
)

// validationAliases lists the accepted header spellings per field
var validationAliases = map[string][]string{
	"sample_id": {"sample_id", "sample", "sample_name", "cell_id"},
	"cycle":     {"cycle", "cycle_number", "cycle_index"},
	"capacity":  {"capacity", "discharge_capacity", "capacity_mah_g"},
	"type":      {"type", "kind", "source", "tag"},
}

// RowError records a CSV row that could not be converted
type RowError struct {
	Line int
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e RowError) Unwrap() error {
	return e.Err
}

// ReadValidationCSV parses the experimental comparison file. Unparseable rows are
// skipped and reported individually; a broken header fails the whole file.
func ReadValidationCSV(r io.Reader) ([]models.ValidationRecord, []RowError, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read validation header: %w", err)
	}

	index := make(map[string]int, len(validationAliases))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		for field, aliases := range validationAliases {
			for _, alias := range aliases {
				if name == alias {
					if _, seen := index[field]; !seen {
						index[field] = i
					}
				}
			}
		}
	}
	for _, field := range []string{"sample_id", "cycle", "capacity", "type"} {
		if _, ok := index[field]; !ok {
			return nil, nil, fmt.Errorf("missing column: %s", field)
		}
	}

	var (
		records []models.ValidationRecord
		rowErrs []RowError
	)
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			rowErrs = append(rowErrs, RowError{Line: line, Err: err})
			continue
		}

		raw := models.RawValidationRow{
			SampleID: row[index["sample_id"]],
			Cycle:    row[index["cycle"]],
			Capacity: row[index["capacity"]],
			Kind:     row[index["type"]],
		}
		rec, err := raw.ToRecord()
		if err != nil {
			rowErrs = append(rowErrs, RowError{Line: line, Err: err})
			continue
		}
		records = append(records, *rec)
	}

	return records, rowErrs, nil
}
