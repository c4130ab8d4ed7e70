// Package export renders test cases as workbooks in the import layout, so an
// exported file can be edited and imported again.
package export

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/18061718791/AITestCraft-sub000/internal/domain"
	"github.com/18061718791/AITestCraft-sub000/internal/hierarchyloader"
	"github.com/18061718791/AITestCraft-sub000/internal/ingestion"
	"github.com/18061718791/AITestCraft-sub000/internal/repository"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

const (
	sheetName = "测试用例"
	pageSize  = 500
)

var columnWidths = []float64{36, 16, 16, 16, 28, 48, 36, 10, 10, 20}

type Service struct {
	store  repository.Store
	logger logrus.FieldLogger
	now    func() time.Time
}

func NewService(store repository.Store, logger logrus.FieldLogger) *Service {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{store: store, logger: logger.WithField("component", "export"), now: time.Now}
}

// FileName returns the download name for an export created now.
func (s *Service) FileName() string {
	return fmt.Sprintf("test-cases-%s.xlsx", s.now().Format("20060102-150405"))
}

// WriteTemplate writes an empty import template: header and example row.
func (s *Service) WriteTemplate(w io.Writer) error {
	f, err := newWorkbook()
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	return f.Write(w)
}

// WriteTestCases writes every test case matching filter after the template
// rows. Limit and Offset of the filter are ignored.
func (s *Service) WriteTestCases(ctx context.Context, w io.Writer, filter repository.TestCaseFilter) (int, error) {
	f, err := newWorkbook()
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.Close() }()

	repos := s.store.Repos()
	loaders := hierarchyloader.FromContext(ctx)
	if loaders == nil {
		loaders = hierarchyloader.New(repos)
	}
	written := 0
	filter.Offset = 0
	filter.Limit = pageSize
	for {
		items, total, err := repos.TestCases.List(ctx, filter)
		if err != nil {
			return written, fmt.Errorf("list test cases: %w", err)
		}

		waits := make([]func() (hierarchyloader.Names, error), len(items))
		for i, tc := range items {
			waits[i] = loaders.Prime(ctx, tc.Hierarchy())
		}
		for i, tc := range items {
			names, err := waits[i]()
			if err != nil {
				return written, fmt.Errorf("load hierarchy names: %w", err)
			}
			if err := writeRow(f, written+3, rowValues(tc, names)); err != nil {
				return written, err
			}
			written++
		}

		filter.Offset += len(items)
		if len(items) == 0 || filter.Offset >= total {
			break
		}
	}

	if err := f.Write(w); err != nil {
		return written, fmt.Errorf("write workbook: %w", err)
	}
	s.logger.WithField("rows", written).Info("exported test cases")
	return written, nil
}

func rowValues(tc domain.TestCase, names hierarchyloader.Names) []string {
	return []string{
		tc.Title,
		names.SystemName,
		names.ModuleName,
		names.ScenarioName,
		tc.Preconditions,
		tc.Steps,
		tc.ExpectedResult,
		string(tc.Status),
		string(tc.Priority),
		strings.Join(tc.Tags, ","),
	}
}

func newWorkbook() (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("create header style: %w", err)
	}
	exampleStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Italic: true, Color: "808080"},
	})
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("create example style: %w", err)
	}

	if err := writeRow(f, 1, ingestion.Columns); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := writeRow(f, 2, ingestion.ExampleRow); err != nil {
		_ = f.Close()
		return nil, err
	}

	last, _ := excelize.ColumnNumberToName(len(ingestion.Columns))
	_ = f.SetCellStyle(sheetName, "A1", last+"1", headerStyle)
	_ = f.SetCellStyle(sheetName, "A2", last+"2", exampleStyle)
	for i, width := range columnWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(sheetName, col, col, width)
	}
	_ = f.SetPanes(sheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
	return f, nil
}

func writeRow(f *excelize.File, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	if err := f.SetSheetRow(sheetName, cell, &cells); err != nil {
		return fmt.Errorf("write row %d: %w", row, err)
	}
	return nil
}
