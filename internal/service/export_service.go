package service

import (
	"context"
	"fmt"
	"time"

	"github.com/fieldline/crm-api/internal/domain"
	"github.com/fieldline/crm-api/internal/excel"
	"go.uber.org/zap"
)

// ExportService produces spreadsheet exports of work orders
type ExportService struct {
	workOrders *WorkOrderService
	excel      *excel.Generator
	logger     *zap.Logger
	now        func() time.Time
}

func NewExportService(workOrders *WorkOrderService, generator *excel.Generator, logger *zap.Logger) *ExportService {
	return &ExportService{
		workOrders: workOrders,
		excel:      generator,
		logger:     logger,
		now:        time.Now,
	}
}

// WorkOrders exports the work orders matching filters, returning the workbook and a filename
func (s *ExportService) WorkOrders(ctx context.Context, filters domain.WorkOrderFilters) ([]byte, string, error) {
	workOrders, err := s.workOrders.List(ctx, filters)
	if err != nil {
		return nil, "", err
	}

	data, err := s.excel.WorkOrders(workOrders)
	if err != nil {
		return nil, "", fmt.Errorf("failed to build export: %w", err)
	}

	s.logger.Info("work orders exported", zap.Int("count", len(workOrders)))

	return data, fmt.Sprintf("work-orders-%s.xlsx", s.now().Format("20060102")), nil
}
