package excel

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/fieldline/crm-api/internal/domain"
)

const (
	workOrderSheet = "Work orders"
	historySheet   = "Status history"
)

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// WorkOrders writes one row per work order and one row per history entry
func (g *Generator) WorkOrders(workOrders []domain.WorkOrderDTO) ([]byte, error) {
	file := excelize.NewFile()
	defer file.Close()

	file.SetSheetName("Sheet1", workOrderSheet)
	if err := g.writeWorkOrders(file, workOrders); err != nil {
		return nil, err
	}

	if _, err := file.NewSheet(historySheet); err != nil {
		return nil, err
	}
	if err := g.writeHistory(file, workOrders); err != nil {
		return nil, err
	}

	file.SetActiveSheet(0)
	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *Generator) writeWorkOrders(file *excelize.File, workOrders []domain.WorkOrderDTO) error {
	headers := []string{
		"Order ID",
		"Customer",
		"Phone",
		"Project type",
		"Category",
		"Status",
		"Technician",
		"Approved by",
		"Created",
		"Completed",
	}
	if err := writeHeader(file, workOrderSheet, headers); err != nil {
		return err
	}

	for i, wo := range workOrders {
		row := i + 2
		values := []interface{}{
			wo.OrderID,
			wo.CustomerName,
			wo.CustomerPhone,
			wo.ProjectType,
			string(wo.ProjectCategory),
			string(wo.Status),
			personName(wo.Technician),
			personName(wo.ApprovedBy),
			formatDate(&wo.CreatedAt),
			formatDate(wo.CompletedAt),
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := file.SetSheetRow(workOrderSheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", row, err)
		}
	}

	_ = file.SetColWidth(workOrderSheet, "A", "A", 16)
	_ = file.SetColWidth(workOrderSheet, "B", "B", 30)
	_ = file.SetColWidth(workOrderSheet, "C", "H", 20)
	_ = file.SetColWidth(workOrderSheet, "I", "J", 14)
	return nil
}

func (g *Generator) writeHistory(file *excelize.File, workOrders []domain.WorkOrderDTO) error {
	if err := writeHeader(file, historySheet, []string{"Order ID", "Status", "Remark", "Updated by", "Updated at"}); err != nil {
		return err
	}

	row := 2
	for _, wo := range workOrders {
		for _, entry := range wo.StatusHistory {
			values := []interface{}{
				wo.OrderID,
				string(entry.Status),
				entry.Remark,
				entry.UpdatedBy,
				entry.UpdatedAt.Format(time.RFC3339),
			}
			cell, _ := excelize.CoordinatesToCellName(1, row)
			if err := file.SetSheetRow(historySheet, cell, &values); err != nil {
				return fmt.Errorf("failed to write history row %d: %w", row, err)
			}
			row++
		}
	}

	_ = file.SetColWidth(historySheet, "A", "B", 16)
	_ = file.SetColWidth(historySheet, "C", "C", 60)
	_ = file.SetColWidth(historySheet, "D", "E", 22)
	return nil
}

func writeHeader(file *excelize.File, sheet string, headers []string) error {
	style, err := file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := file.SetCellValue(sheet, cell, header); err != nil {
			return err
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	return file.SetCellStyle(sheet, "A1", last, style)
}

func personName(ref *domain.UserRefDTO) string {
	return ref.Person().FullName()
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
