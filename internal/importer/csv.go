// Package importer parses tabular checklist uploads into typed rows.
// Header validation happens up front: a file missing either required
// column is rejected wholesale before any row reaches the catalog.
package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/jcnich/App-UAT-Tool/internal/database"
)

const (
	colSection  = "section_name"
	colCriteria = "criteria"
)

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	return strings.ToLower(strings.TrimSpace(h))
}

// ParseCSV reads a CSV stream with section_name and criteria columns
// (case and whitespace insensitive, BOM tolerated) into import rows.
func ParseCSV(r io.Reader) ([]database.ImportRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: file is empty", database.ErrValidation)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: could not read CSV header", database.ErrValidation)
	}

	sectionIdx, criteriaIdx := -1, -1
	for i, col := range header {
		switch normalizeHeader(col) {
		case colSection:
			sectionIdx = i
		case colCriteria:
			criteriaIdx = i
		}
	}
	if sectionIdx < 0 || criteriaIdx < 0 {
		return nil, fmt.Errorf("%w: CSV must have columns: %s, %s", database.ErrValidation, colSection, colCriteria)
	}

	var rows []database.ImportRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: malformed CSV row", database.ErrValidation)
		}
		if sectionIdx >= len(record) || criteriaIdx >= len(record) {
			continue
		}
		rows = append(rows, database.ImportRow{
			SectionName: strings.TrimSpace(record[sectionIdx]),
			Criteria:    strings.TrimSpace(record[criteriaIdx]),
		})
	}
	return rows, nil
}
