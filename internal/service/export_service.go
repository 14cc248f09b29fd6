package service

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/xGerart/odoo-sync-backend/internal/repository"
)

// ExportService renders a working invoice's items as an Excel worksheet so
// barcodes can be annotated offline and fed back through the item endpoints.
type ExportService struct {
	repo repository.InvoiceRepository
}

func NewExportService(repo repository.InvoiceRepository) *ExportService {
	return &ExportService{repo: repo}
}

const exportSheet = "Productos"

// InvoiceWorkbook builds the xlsx bytes for one invoice.
func (s *ExportService) InvoiceWorkbook(ctx context.Context, invoiceID string) ([]byte, string, error) {
	inv, err := s.repo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, "", wrapNotFound(err)
	}

	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", exportSheet)

	headers := []string{"CÓDIGO DE BARRAS", "DESCRIPCIÓN", "CANTIDAD", "COSTO UNITARIO"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(exportSheet, cell, h)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err == nil {
		f.SetCellStyle(exportSheet, "A1", "D1", headerStyle)
	}

	row := 2
	for i := range inv.Items {
		item := &inv.Items[i]
		if item.IsExcluded {
			continue
		}
		f.SetCellValue(exportSheet, fmt.Sprintf("A%d", row), item.Barcode)
		f.SetCellValue(exportSheet, fmt.Sprintf("B%d", row), item.Description)
		f.SetCellValue(exportSheet, fmt.Sprintf("C%d", row), item.Quantity)
		f.SetCellValue(exportSheet, fmt.Sprintf("D%d", row), item.UnitCost)
		row++
	}

	f.SetColWidth(exportSheet, "A", "A", 22)
	f.SetColWidth(exportSheet, "B", "B", 60)
	f.SetColWidth(exportSheet, "C", "C", 12)
	f.SetColWidth(exportSheet, "D", "D", 16)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, "", fmt.Errorf("write workbook: %w", err)
	}

	filename := fmt.Sprintf("factura_%s.xlsx", inv.InvoiceNumber)
	return buf.Bytes(), filename, nil
}
