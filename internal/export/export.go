// Package export renders ticket lists as CSV or Excel files.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/vbonduro/propdesk/internal/domain"
)

const SheetName = "Tickets"

var Header = []string{
	"ID",
	"Title",
	"Category",
	"Module",
	"Severity",
	"Status",
	"Priority",
	"Assigned To",
	"Reporter",
	"Created",
	"Resolved",
	"Resolution Hours",
	"Linked Features",
}

func row(p *domain.UserProblem) []string {
	resolved, hours := "", ""
	if p.ResolvedAt != nil {
		resolved = p.ResolvedAt.UTC().Format(time.RFC3339)
	}
	if p.LoesungszeitStunden != nil {
		hours = strconv.FormatFloat(*p.LoesungszeitStunden, 'f', 1, 64)
	}
	cells := []string{
		p.ID,
		p.Title,
		p.Category,
		p.Module,
		string(p.Severity),
		string(p.Status),
		p.Priority,
		p.AssignedTo,
		p.UserEmail,
		p.CreatedDate.UTC().Format(time.RFC3339),
		resolved,
		hours,
		strings.Join(p.LinkedFeatureIDs, ";"),
	}
	for i, c := range cells {
		cells[i] = escapeFormula(c)
	}
	return cells
}

// escapeFormula prefixes cells that a spreadsheet would evaluate as a formula.
func escapeFormula(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}

func WriteCSV(w io.Writer, tickets []*domain.UserProblem) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, p := range tickets {
		if err := cw.Write(row(p)); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}

// columnWidths matches Header.
var columnWidths = []float64{38, 40, 14, 14, 10, 12, 10, 26, 26, 22, 22, 16, 30}

func WriteXLSX(w io.Writer, tickets []*domain.UserProblem) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(SheetName)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to remove default sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	if err := setRow(f, 1, Header); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(Header), 1)
	if err != nil {
		return fmt.Errorf("failed to convert coordinates: %w", err)
	}
	if err := f.SetCellStyle(SheetName, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("failed to set header style: %w", err)
	}

	for i, p := range tickets {
		if err := setRow(f, i+2, row(p)); err != nil {
			return err
		}
	}

	for i, width := range columnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("failed to convert column: %w", err)
		}
		if err := f.SetColWidth(SheetName, col, col, width); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write xlsx: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, n int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		return fmt.Errorf("failed to convert coordinates: %w", err)
	}
	row := make([]any, len(values))
	for i, v := range values {
		row[i] = v
	}
	if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
		return fmt.Errorf("failed to write row %d: %w", n, err)
	}
	return nil
}
