package importer

import (
	"encoding/csv"
	"fmt"
	"io"
)

// ParseCSV reads offer rows from CSV. The first record must be a header row
// naming at least product_name, pharmacy, and price.
func ParseCSV(r io.Reader) (Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return Result{}, fmt.Errorf("failed to read header: %w", err)
	}
	idx, err := headerIndex(header)
	if err != nil {
		return Result{}, err
	}

	var res Result
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			res.Errors = append(res.Errors, RowError{Line: line, Err: err})
			continue
		}
		row, err := parseRecord(record, idx)
		if err != nil {
			res.Errors = append(res.Errors, RowError{Line: line, Err: err})
			continue
		}
		res.Rows = append(res.Rows, row)
	}
	return res, nil
}
