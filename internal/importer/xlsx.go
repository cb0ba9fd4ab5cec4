package importer

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// ParseXLSX reads offer rows from the first sheet of an XLSX workbook. The
// first row must be a header row, same contract as ParseCSV.
func ParseXLSX(r io.Reader) (Result, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return Result{}, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Result{}, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return Result{}, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return Result{}, fmt.Errorf("sheet %q is empty", sheets[0])
	}

	idx, err := headerIndex(rows[0])
	if err != nil {
		return Result{}, err
	}

	var res Result
	for i, record := range rows[1:] {
		line := i + 2
		if len(record) == 0 {
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
