package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fieldline/crm-api/internal/domain"
	"github.com/fieldline/crm-api/internal/mapper"
	"github.com/fieldline/crm-api/internal/pdf"
	"github.com/fieldline/crm-api/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// BillService issues bills against work orders and renders them as PDF
type BillService struct {
	billRepo      *repository.BillRepository
	workOrderRepo *repository.WorkOrderRepository
	numbers       *NumberSequenceService
	pdf           *pdf.Generator
	logger        *zap.Logger
}

func NewBillService(
	billRepo *repository.BillRepository,
	workOrderRepo *repository.WorkOrderRepository,
	numbers *NumberSequenceService,
	generator *pdf.Generator,
	logger *zap.Logger,
) *BillService {
	return &BillService{
		billRepo:      billRepo,
		workOrderRepo: workOrderRepo,
		numbers:       numbers,
		pdf:           generator,
		logger:        logger,
	}
}

// Create issues a bill. Line amounts are quantity times unit price rounded to cents.
func (s *BillService) Create(ctx context.Context, req *domain.CreateBillRequest) (*domain.BillDTO, error) {
	if len(req.Items) == 0 {
		return nil, domain.NewValidationError("items", "a bill needs at least one item")
	}

	workOrder, err := s.workOrderRepo.GetByID(ctx, req.WorkOrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkOrderNotFound
		}
		return nil, fmt.Errorf("failed to get work order: %w", err)
	}

	items := make([]domain.BillItem, 0, len(req.Items))
	total := decimal.Zero
	for i, item := range req.Items {
		field := fmt.Sprintf("items[%d]", i)
		if strings.TrimSpace(item.Description) == "" {
			return nil, domain.NewValidationError(field+".description", "description is required")
		}
		if !item.Quantity.IsPositive() {
			return nil, domain.NewValidationError(field+".quantity", "quantity must be greater than zero")
		}
		if item.UnitPrice.IsNegative() {
			return nil, domain.NewValidationError(field+".unitPrice", "unit price cannot be negative")
		}
		amount := item.Quantity.Mul(item.UnitPrice).Round(2)
		total = total.Add(amount)
		items = append(items, domain.BillItem{
			Description: strings.TrimSpace(item.Description),
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Amount:      amount,
		})
	}

	number, err := s.numbers.GenerateBillNumber(ctx)
	if err != nil {
		return nil, err
	}

	bill := &domain.Bill{
		BillNumber:    number,
		WorkOrderID:   workOrder.ID,
		Items:         items,
		Total:         total,
		PaymentStatus: domain.PaymentPending,
		Notes:         strings.TrimSpace(req.Notes),
		CreatedByID:   actorFrom(ctx).id,
	}
	if err := s.billRepo.Create(ctx, bill); err != nil {
		return nil, fmt.Errorf("failed to create bill: %w", err)
	}

	s.logger.Info("bill created",
		zap.String("billID", bill.ID.String()),
		zap.String("billNumber", bill.BillNumber),
		zap.String("orderID", workOrder.OrderID),
		zap.String("total", total.StringFixed(2)),
	)

	return s.Get(ctx, bill.ID)
}

func (s *BillService) Get(ctx context.Context, id uuid.UUID) (*domain.BillDTO, error) {
	bill, err := s.billRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBillNotFound
		}
		return nil, fmt.Errorf("failed to get bill: %w", err)
	}
	dto := mapper.ToBillDTO(bill)
	return &dto, nil
}

// PDF renders a bill, returning the document and a download filename
func (s *BillService) PDF(ctx context.Context, id uuid.UUID) ([]byte, string, error) {
	bill, err := s.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	data, err := s.pdf.Bill(*bill)
	if err != nil {
		return nil, "", fmt.Errorf("failed to render bill: %w", err)
	}
	return data, bill.BillNumber + ".pdf", nil
}
