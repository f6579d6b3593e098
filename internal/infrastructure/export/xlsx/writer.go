package xlsx

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/complaints-api/internal/core/domain"
)

const SheetName = "Complaints"

var header = []any{"ID", "Text", "Status", "Sentiment", "Category", "Created At"}

type Writer struct{}

func NewWriter() *Writer {
	return &Writer{}
}

func (Writer) WriteComplaints(w io.Writer, complaints []domain.Complaint) error {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	if err := f.SetCellStyle(SheetName, "A1", "F1", bold); err != nil {
		return fmt.Errorf("apply header style: %w", err)
	}
	if err := f.SetColWidth(SheetName, "B", "B", 60); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	if err := f.SetColWidth(SheetName, "F", "F", 22); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	for i, c := range complaints {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		row := []any{
			c.ID,
			c.Text,
			string(c.Status),
			string(c.Sentiment),
			string(c.Category),
			c.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", c.ID, err)
		}
	}

	if len(complaints) > 0 {
		last, err := excelize.CoordinatesToCellName(len(header), len(complaints)+1)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		if err := f.AutoFilter(SheetName, "A1:"+last, nil); err != nil {
			return fmt.Errorf("set auto filter: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
