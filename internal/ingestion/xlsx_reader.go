package ingestion

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// xlsxReader streams the first sheet of a workbook. Columns are read by
// position and the first row with a blank title ends the data.
type xlsxReader struct {
	file   *excelize.File
	sheet  string
	rows   *excelize.Rows
	rowNum int
	done   bool
}

func newXLSXReader(data []byte) (*xlsxReader, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		_ = f.Close()
		return nil, errors.New("excel file has no sheets")
	}

	rows, err := f.Rows(sheets[0])
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to read rows from xlsx: %w", err)
	}

	return &xlsxReader{file: f, sheet: sheets[0], rows: rows}, nil
}

func (r *xlsxReader) Next() (RawRow, error) {
	for !r.done {
		if !r.rows.Next() {
			r.done = true
			if err := r.rows.Error(); err != nil {
				return RawRow{}, fmt.Errorf("failed to read rows from xlsx: %w", err)
			}
			break
		}
		r.rowNum++
		if r.rowNum <= headerRows {
			continue
		}

		cells := r.cells()
		row := rowFromCells(r.rowNum, func(field string) string {
			return cellAt(cells, columnIndex[field])
		})
		if row.Blank() {
			r.done = true
			break
		}
		return row, nil
	}
	return RawRow{}, io.EOF
}

// cells decodes the current row. When the row cannot be decoded as a whole
// each cell is read on its own and unreadable cells are left blank.
func (r *xlsxReader) cells() []string {
	cells, err := r.rows.Columns()
	if err == nil {
		return cells
	}

	cells = make([]string, len(Columns))
	for i := range Columns {
		name, nameErr := excelize.CoordinatesToCellName(i+1, r.rowNum)
		if nameErr != nil {
			continue
		}
		value, cellErr := r.file.GetCellValue(r.sheet, name)
		if cellErr != nil {
			continue
		}
		cells[i] = value
	}
	return cells
}

func (r *xlsxReader) Close() error {
	var closeErr error
	if r.rows != nil {
		closeErr = r.rows.Close()
	}
	if err := r.file.Close(); err != nil {
		return err
	}
	return closeErr
}

var columnIndex = func() map[string]int {
	index := make(map[string]int, len(Columns))
	for i, name := range Columns {
		index[name] = i
	}
	return index
}()

func cellAt(cells []string, idx int) string {
	if idx < 0 || idx >= len(cells) {
		return ""
	}
	return cells[idx]
}
