package ingestion

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strings"
)

// maxBlankRun is the number of consecutive blank-title records that ends a
// CSV file. Shorter runs are skipped.
const maxBlankRun = 5

// headerAliases maps normalized header text to a field.
var headerAliases = map[string]string{
	"标题":             ColumnTitle,
	"用例标题":           ColumnTitle,
	"用例名称":           ColumnTitle,
	"title":          ColumnTitle,
	"name":           ColumnTitle,
	"系统":             ColumnSystem,
	"所属系统":           ColumnSystem,
	"system":         ColumnSystem,
	"模块":             ColumnModule,
	"所属模块":           ColumnModule,
	"module":         ColumnModule,
	"场景":             ColumnScenario,
	"所属场景":           ColumnScenario,
	"scenario":       ColumnScenario,
	"前置条件":           ColumnPreconditions,
	"preconditions":  ColumnPreconditions,
	"precondition":   ColumnPreconditions,
	"测试步骤":           ColumnSteps,
	"步骤":             ColumnSteps,
	"steps":          ColumnSteps,
	"预期结果":           ColumnExpectedResult,
	"期望结果":           ColumnExpectedResult,
	"expectedresult": ColumnExpectedResult,
	"expected":       ColumnExpectedResult,
	"状态":             ColumnStatus,
	"status":         ColumnStatus,
	"优先级":            ColumnPriority,
	"priority":       ColumnPriority,
	"标签":             ColumnTags,
	"tags":           ColumnTags,
	"tag":            ColumnTags,
}

func normalizeHeader(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(raw)
}

// csvReader reads records by header name. Row 1 names the columns and row 2
// is the example row. After the header, fully empty lines count as blank
// rows, so rowNum counts records plus empty lines.
type csvReader struct {
	reader   *csv.Reader
	columns  map[string]int
	rowNum   int
	lastLine int
	blankRun int
	done     bool
}

func newCSVReader(data []byte) *csvReader {
	buffered := bufio.NewReader(bytes.NewReader(data))
	if prefix, err := buffered.Peek(len(byteOrderMark)); err == nil && bytes.Equal(prefix, byteOrderMark) {
		_, _ = buffered.Discard(len(byteOrderMark))
	}

	reader := csv.NewReader(buffered)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	return &csvReader{reader: reader}
}

// read returns the next record with the physical lines it spans. A
// malformed record is reported as an empty one so that it is treated as a
// blank row.
func (r *csvReader) read() (record []string, startLine, endLine int, err error) {
	record, err = r.reader.Read()
	if err == nil {
		startLine, _ = r.reader.FieldPos(0)
		last := len(record) - 1
		endLine, _ = r.reader.FieldPos(last)
		endLine += strings.Count(record[last], "\n")
		return record, startLine, endLine, nil
	}
	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		return nil, parseErr.StartLine, parseErr.Line, nil
	}
	return nil, 0, 0, err
}

// blank records one blank data row and reports whether the run ends the file.
func (r *csvReader) blank() bool {
	r.blankRun++
	if r.blankRun >= maxBlankRun {
		r.done = true
	}
	return r.done
}

func (r *csvReader) Next() (RawRow, error) {
	for !r.done {
		record, startLine, endLine, err := r.read()
		if errors.Is(err, io.EOF) {
			r.done = true
			break
		}
		if err != nil {
			r.done = true
			return RawRow{}, err
		}

		if r.columns != nil {
			for skipped := startLine - r.lastLine - 1; skipped > 0 && !r.done; skipped-- {
				r.rowNum++
				if r.rowNum > headerRows {
					r.blank()
				}
			}
			if r.done {
				break
			}
		}
		r.lastLine = endLine
		r.rowNum++

		if r.rowNum == 1 {
			r.columns = resolveHeader(record)
			continue
		}
		if r.rowNum <= headerRows {
			continue
		}

		row := rowFromCells(r.rowNum, func(field string) string {
			idx, ok := r.columns[field]
			if !ok {
				return ""
			}
			return cellAt(record, idx)
		})
		if row.Blank() {
			r.blank()
			continue
		}
		r.blankRun = 0
		return row, nil
	}
	return RawRow{}, io.EOF
}

func (r *csvReader) Close() error {
	return nil
}

// resolveHeader maps header names to column positions. A header without a
// recognizable title column falls back to the spreadsheet layout.
func resolveHeader(header []string) map[string]int {
	columns := make(map[string]int, len(Columns))
	for idx, name := range header {
		field, ok := headerAliases[normalizeHeader(name)]
		if !ok {
			continue
		}
		if _, seen := columns[field]; !seen {
			columns[field] = idx
		}
	}
	if _, ok := columns[ColumnTitle]; ok {
		return columns
	}
	return columnIndex
}
