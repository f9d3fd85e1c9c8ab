// Package xlsx writes the three-forces/three-platforms action plan workbook.
package xlsx

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/evanschultz/scorecard/internal/app"
	"github.com/xuri/excelize/v2"
)

// defaultSheet is the sheet every new excelize workbook starts with.
const defaultSheet = "Sheet1"

// Column widths in characters.
var (
	actionColumnWidths    = []float64{8, 18, 18, 12, 28, 28, 28, 24, 24, 24}
	referenceColumnWidths = []float64{12, 18, 36, 10, 10, 12, 22, 22}
)

// Build renders plan into a new workbook. Callers must Close the result.
func Build(plan app.ActionPlan) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(defaultSheet, app.ActionSheetName); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("rename action sheet: %w", err)
	}
	if _, err := f.NewSheet(app.ReferenceSheetName); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("create reference sheet: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#E2E8F0"}},
	})
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("create header style: %w", err)
	}

	actionRows := make([][]any, 0, len(plan.Rows))
	for _, row := range plan.Rows {
		actionRows = append(actionRows, row.Values())
	}
	if err := writeSheet(f, app.ActionSheetName, app.ActionHeaders, actionRows, actionColumnWidths, headerStyle); err != nil {
		_ = f.Close()
		return nil, err
	}

	refRows := make([][]any, 0, len(plan.Reference))
	for _, row := range plan.Reference {
		refRows = append(refRows, row.Values())
	}
	if err := writeSheet(f, app.ReferenceSheetName, app.ReferenceHeaders, refRows, referenceColumnWidths, headerStyle); err != nil {
		_ = f.Close()
		return nil, err
	}
	f.SetActiveSheet(0)
	return f, nil
}

// Write renders plan and streams the workbook to w.
func Write(w io.Writer, plan app.ActionPlan) error {
	f, err := Build(plan)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// SaveFile writes plan into dir under plan.Filename and returns the written path.
func SaveFile(dir string, plan app.ActionPlan) (string, error) {
	name := strings.TrimSpace(plan.Filename)
	if name == "" {
		return "", errors.New("workbook filename is required")
	}
	if strings.TrimSpace(dir) == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	f, err := Build(plan)
	if err != nil {
		return "", err
	}
	defer f.Close()
	path := filepath.Join(dir, name)
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save workbook %q: %w", path, err)
	}
	return path, nil
}

// writeSheet writes a styled header row followed by data rows.
func writeSheet(f *excelize.File, sheet string, headers []string, rows [][]any, widths []float64, headerStyle int) error {
	header := make([]any, 0, len(headers))
	for _, h := range headers {
		header = append(header, h)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write %s header: %w", sheet, err)
	}
	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("style %s header: %w", sheet, err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	for i, width := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return fmt.Errorf("size %s column %s: %w", sheet, col, err)
		}
	}
	return f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}
