package ingestion

import (
	"strings"
	"testing"

	"github.com/18061718791/AITestCraft-sub000/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var templateHeader = []any{"标题", "系统", "模块", "场景", "前置条件", "测试步骤", "预期结果", "状态", "优先级", "标签"}
var templateExample = []any{"示例：登录成功", "示例系统", "示例模块", "示例场景", "已注册", "输入账号密码", "进入首页", "待执行", "高", "冒烟"}

func buildXLSX(t *testing.T, rows ...[]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		values := row
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &values))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func csvFile(lines ...string) []byte {
	all := append([]string{
		"标题,系统,模块,场景,前置条件,测试步骤,预期结果,状态,优先级,标签",
		"示例：登录成功,示例系统,示例模块,示例场景,已注册,输入账号密码,进入首页,待执行,高,冒烟",
	}, lines...)
	return []byte(strings.Join(all, "\n") + "\n")
}

func parseBytes(t *testing.T, format Format, data []byte) []RawRow {
	t.Helper()
	reader, err := NewRowReader(format, data)
	require.NoError(t, err)
	rows, err := ParseAll(reader)
	require.NoError(t, err)
	return rows
}

func titles(rows []RawRow) []string {
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.Title)
	}
	return out
}

func TestXLSXSkipsHeaderAndExampleRows(t *testing.T) {
	data := buildXLSX(t,
		templateHeader,
		templateExample,
		[]any{"Login works", "Acme", "Auth", "Login", "", "open page", "home shown", "通过", "urgent", "smoke, regression"},
	)

	rows := parseBytes(t, FormatXLSX, data)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, 3, row.RowNumber)
	assert.Equal(t, "Login works", row.Title)
	assert.Equal(t, "Acme", row.System)
	assert.Equal(t, "Auth", row.Module)
	assert.Equal(t, "Login", row.Scenario)
	assert.Equal(t, "open page", row.Steps)
	assert.Equal(t, "home shown", row.ExpectedResult)
	assert.Equal(t, domain.StatusPassed, row.Status)
	assert.Equal(t, domain.PriorityMedium, row.Priority)
	assert.Equal(t, "urgent", row.PriorityText)
	assert.Equal(t, []string{"smoke", "regression"}, row.Tags)
}

func TestXLSXStopsAtFirstBlankTitle(t *testing.T) {
	data := buildXLSX(t,
		templateHeader,
		templateExample,
		[]any{"T1"},
		[]any{"  ", "Acme"},
		[]any{"T2"},
	)

	rows := parseBytes(t, FormatXLSX, data)
	assert.Equal(t, []string{"T1"}, titles(rows))
}

func TestXLSXHeaderOnlyYieldsNothing(t *testing.T) {
	data := buildXLSX(t, templateHeader, templateExample)
	assert.Empty(t, parseBytes(t, FormatXLSX, data))
}

func TestXLSXBlankTagsAreAbsent(t *testing.T) {
	data := buildXLSX(t, templateHeader, templateExample, []any{"T1", "", "", "", "", "", "", "", "", " "})

	rows := parseBytes(t, FormatXLSX, data)
	require.Len(t, rows, 1)
	assert.Nil(t, rows[0].Tags)
	assert.Empty(t, rows[0].Priority)
	assert.Empty(t, rows[0].Status)
}

func TestCorruptXLSXIsRejected(t *testing.T) {
	_, err := NewRowReader(FormatXLSX, []byte("definitely not a zip archive"))
	require.Error(t, err)
}

func TestCSVReadsByHeaderAliases(t *testing.T) {
	data := []byte("\xEF\xBB\xBFPriority,Title,System,Tags,Expected Result\n" +
		"HIGH,example,Demo,,\n" +
		"low,Login works,Acme,\"a，b\",home shown\n")

	rows := parseBytes(t, FormatCSV, data)
	require.Len(t, rows, 1)
	assert.Equal(t, "Login works", rows[0].Title)
	assert.Equal(t, "Acme", rows[0].System)
	assert.Equal(t, domain.PriorityLow, rows[0].Priority)
	assert.Equal(t, []string{"a", "b"}, rows[0].Tags)
	assert.Equal(t, "home shown", rows[0].ExpectedResult)
	assert.Equal(t, 3, rows[0].RowNumber)
}

func TestCSVWithoutKnownHeaderUsesColumnOrder(t *testing.T) {
	data := []byte("a,b,c\nx,y,z\nT1,Acme,Auth\n")

	rows := parseBytes(t, FormatCSV, data)
	require.Len(t, rows, 1)
	assert.Equal(t, "T1", rows[0].Title)
	assert.Equal(t, "Acme", rows[0].System)
	assert.Equal(t, "Auth", rows[0].Module)
}

func TestCSVSkipsIsolatedBlankTitles(t *testing.T) {
	data := csvFile(
		"T1,Acme",
		",Acme",
		",,,",
		",",
		",Other",
		"T2",
	)

	rows := parseBytes(t, FormatCSV, data)
	assert.Equal(t, []string{"T1", "T2"}, titles(rows))
	assert.Equal(t, 8, rows[1].RowNumber)
}

func TestCSVHaltsAfterFiveBlankTitles(t *testing.T) {
	data := csvFile(
		"T1",
		",a",
		",b",
		",c",
		",d",
		",e",
		"T2",
	)

	rows := parseBytes(t, FormatCSV, data)
	assert.Equal(t, []string{"T1"}, titles(rows))
}

func TestCSVEmptyLinesCountAsBlankRows(t *testing.T) {
	rows := parseBytes(t, FormatCSV, csvFile("T1", "", "", "T2"))
	assert.Equal(t, []string{"T1", "T2"}, titles(rows))
	assert.Equal(t, 6, rows[1].RowNumber)

	rows = parseBytes(t, FormatCSV, csvFile("T1", "", "", "", "", "", "", "T2"))
	assert.Equal(t, []string{"T1"}, titles(rows))

	rows = parseBytes(t, FormatCSV, csvFile("T1", "", ",a", "", ",b", "", "T2"))
	assert.Equal(t, []string{"T1"}, titles(rows))
}

func TestCSVMultilineFieldIsNotABlankRow(t *testing.T) {
	rows := parseBytes(t, FormatCSV, csvFile("T1,,,,,\"step 1\nstep 2\"", "T2"))
	require.Len(t, rows, 2)
	assert.Equal(t, "step 1\nstep 2", rows[0].Steps)
	assert.Equal(t, "T2", rows[1].Title)
	assert.Equal(t, 4, rows[1].RowNumber)
}

func TestCSVMalformedRecordCountsAsBlank(t *testing.T) {
	data := csvFile(
		"T1",
		`bad"quote,Acme`,
		"T2",
	)

	rows := parseBytes(t, FormatCSV, data)
	assert.Equal(t, []string{"T1", "T2"}, titles(rows))
	assert.Equal(t, 5, rows[1].RowNumber)
}

func TestDetectFormat(t *testing.T) {
	csvData := []byte("标题,系统\n示例,Demo\nT1,Acme\n")

	tests := []struct {
		name     string
		fileName string
		data     []byte
		want     Format
		wantErr  bool
	}{
		{name: "xlsx extension", fileName: "cases.XLSX", data: []byte("x"), want: FormatXLSX},
		{name: "csv extension", fileName: "cases.csv", data: csvData, want: FormatCSV},
		{name: "legacy excel", fileName: "cases.xls", data: []byte("x"), wantErr: true},
		{name: "text file", fileName: "notes.txt", data: csvData, wantErr: true},
		{name: "sniffed csv", fileName: "upload", data: csvData, want: FormatCSV},
		{name: "sniffed binary", fileName: "upload", data: []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectFormat(tt.fileName, tt.data)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRawRowTestCaseAppliesDefaults(t *testing.T) {
	tc := RawRow{Title: "  T1 ", Tags: []string{"a"}}.TestCase()

	assert.Equal(t, "T1", tc.Title)
	assert.Equal(t, domain.PriorityMedium, tc.Priority)
	assert.Equal(t, domain.StatusPending, tc.Status)
	assert.Equal(t, domain.SourceManual, tc.Source)
	assert.Equal(t, []string{"a"}, tc.Tags)
}
