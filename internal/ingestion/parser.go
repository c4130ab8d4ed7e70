package ingestion

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/18061718791/AITestCraft-sub000/internal/domain"

	"github.com/gabriel-vasile/mimetype"
)

var (
	// ErrUnsupportedFormat is returned when an uploaded file is not supported.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	byteOrderMark = []byte{0xEF, 0xBB, 0xBF}
)

// Format is a supported upload format.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Column labels used in error reports and the import template. They follow
// the fixed spreadsheet column order.
const (
	ColumnTitle          = "标题"
	ColumnSystem         = "系统"
	ColumnModule         = "模块"
	ColumnScenario       = "场景"
	ColumnPreconditions  = "前置条件"
	ColumnSteps          = "测试步骤"
	ColumnExpectedResult = "预期结果"
	ColumnStatus         = "状态"
	ColumnPriority       = "优先级"
	ColumnTags           = "标签"
)

// Columns lists the import layout in spreadsheet column order.
var Columns = []string{
	ColumnTitle,
	ColumnSystem,
	ColumnModule,
	ColumnScenario,
	ColumnPreconditions,
	ColumnSteps,
	ColumnExpectedResult,
	ColumnStatus,
	ColumnPriority,
	ColumnTags,
}

// ExampleRow is the sample line shown under the header of the template.
// Importers always skip it.
var ExampleRow = []string{
	"示例：使用正确密码登录",
	"示例系统",
	"登录模块",
	"密码登录",
	"用户已注册",
	"1. 打开登录页\n2. 输入账号密码\n3. 点击登录",
	"进入首页",
	"待执行",
	"中",
	"冒烟,登录",
}

// headerRows is the number of leading rows (header and example) every
// format skips before data starts.
const headerRows = 2

// RawRow is one loosely typed data line. Priority and Status hold the
// normalized value, or are empty when the cell was blank; the *Text fields
// keep what the file actually said.
type RawRow struct {
	RowNumber      int             `json:"row"`
	Title          string          `json:"title"`
	System         string          `json:"system,omitempty"`
	Module         string          `json:"module,omitempty"`
	Scenario       string          `json:"scenario,omitempty"`
	Preconditions  string          `json:"preconditions,omitempty"`
	Steps          string          `json:"steps,omitempty"`
	ExpectedResult string          `json:"expectedResult,omitempty"`
	Status         domain.Status   `json:"status,omitempty"`
	Priority       domain.Priority `json:"priority,omitempty"`
	Tags           []string        `json:"tags,omitempty"`
	StatusText     string          `json:"-"`
	PriorityText   string          `json:"-"`
}

// Blank reports whether the row has no title and so carries no data.
func (r RawRow) Blank() bool {
	return strings.TrimSpace(r.Title) == ""
}

// TestCase converts the row into an unsaved test case with defaults applied.
func (r RawRow) TestCase() domain.TestCase {
	tc := domain.TestCase{
		Title:          strings.TrimSpace(r.Title),
		Preconditions:  r.Preconditions,
		Steps:          r.Steps,
		ExpectedResult: r.ExpectedResult,
		Priority:       r.Priority,
		Status:         r.Status,
		Source:         domain.SourceManual,
	}
	if r.Tags != nil {
		tc.Tags = append([]string(nil), r.Tags...)
	}
	return tc.ApplyDefaults()
}

// rowFromCells maps cells by field name onto a RawRow, normalizing the
// enumerations and tags.
func rowFromCells(rowNumber int, get func(field string) string) RawRow {
	row := RawRow{
		RowNumber:      rowNumber,
		Title:          strings.TrimSpace(get(ColumnTitle)),
		System:         strings.TrimSpace(get(ColumnSystem)),
		Module:         strings.TrimSpace(get(ColumnModule)),
		Scenario:       strings.TrimSpace(get(ColumnScenario)),
		Preconditions:  strings.TrimSpace(get(ColumnPreconditions)),
		Steps:          strings.TrimSpace(get(ColumnSteps)),
		ExpectedResult: strings.TrimSpace(get(ColumnExpectedResult)),
		StatusText:     strings.TrimSpace(get(ColumnStatus)),
		PriorityText:   strings.TrimSpace(get(ColumnPriority)),
		Tags:           domain.SplitTags(get(ColumnTags)),
	}
	if row.StatusText != "" {
		row.Status = domain.NormalizeStatus(row.StatusText)
	}
	if row.PriorityText != "" {
		row.Priority = domain.NormalizePriority(row.PriorityText)
	}
	return row
}

// RowReader yields data rows in file order. Next returns io.EOF once the
// data ends; a reader cannot be restarted.
type RowReader interface {
	Next() (RawRow, error)
	Close() error
}

// DetectFormat picks the parser for an upload. The extension decides when it
// is known; otherwise the content is sniffed.
func DetectFormat(fileName string, data []byte) (Format, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".xlsx":
		return FormatXLSX, nil
	case ".csv":
		return FormatCSV, nil
	case "":
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}

	mtype := mimetype.Detect(data)
	switch {
	case mtype.Is(xlsxMIME):
		return FormatXLSX, nil
	case mtype.Is("text/csv"), mtype.Is("text/plain"):
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, mtype.String())
	}
}

// NewRowReader opens data with the reader for format.
func NewRowReader(format Format, data []byte) (RowReader, error) {
	switch format {
	case FormatXLSX:
		return newXLSXReader(data)
	case FormatCSV:
		return newCSVReader(data), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// ParseAll drains reader and closes it.
func ParseAll(reader RowReader) ([]RawRow, error) {
	defer func() { _ = reader.Close() }()

	rows := []RawRow{}
	for {
		row, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return rows, err
		}
		rows = append(rows, row)
	}
}

// ParseFile detects the format of an upload and parses every data row.
func ParseFile(fileName string, data []byte) (Format, []RawRow, error) {
	format, err := DetectFormat(fileName, data)
	if err != nil {
		return "", nil, err
	}
	reader, err := NewRowReader(format, data)
	if err != nil {
		return format, nil, err
	}
	rows, err := ParseAll(reader)
	return format, rows, err
}
