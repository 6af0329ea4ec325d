package carset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// Expected header column names, matched case-insensitively. Extra columns
// are ignored; missing optional columns yield empty fields.
const (
	colMake       = "make"
	colModel      = "model"
	colYear       = "year"
	colCylinders  = "cylinders"
	colHorsepower = "horsepower"
	colFuelGal    = "fuel capacity (gal)"
	colFuelL      = "fuel capacity (l)"
	colCountry    = "country"
)

// LoadCSV reads the car dataset from path and builds the Pool.
func LoadCSV(path string) (*Pool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("carset: open %s: %w", path, err)
	}
	defer f.Close()
	p, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("carset: %s: %w", path, err)
	}
	return p, nil
}

// ReadCSV parses the dataset from r. The first row is the header.
func ReadCSV(r io.Reader) (*Pool, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // tolerate ragged rows; missing cells read as empty

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := idx[colMake]; !ok {
		return nil, fmt.Errorf("missing column %q", colMake)
	}
	if _, ok := idx[colModel]; !ok {
		return nil, fmt.Errorf("missing column %q", colModel)
	}

	cell := func(row []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var records []Record
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, Record{
			Make:       cell(row, colMake),
			Model:      cell(row, colModel),
			Year:       cleanNumericCell(cell(row, colYear)),
			Cylinders:  cell(row, colCylinders),
			Horsepower: cleanNumericCell(cell(row, colHorsepower)),
			FuelGal:    cleanNumericCell(cell(row, colFuelGal)),
			FuelL:      cleanNumericCell(cell(row, colFuelL)),
			Country:    cell(row, colCountry),
		})
	}
	return NewPool(records)
}

// cleanNumericCell normalizes the dataset's spreadsheet artifacts: "NaN"
// and "nan" mean missing, trailing ".0" from float-typed integer columns is
// stripped for display.
func cleanNumericCell(s string) string {
	switch strings.ToLower(s) {
	case "", "nan", "null", "none":
		return ""
	}
	if strings.HasSuffix(s, ".0") {
		return strings.TrimSuffix(s, ".0")
	}
	return s
}
