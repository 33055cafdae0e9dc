package service

import (
	"context"
	"fmt"
	"time"

	"github.com/fieldline/crm-api/internal/repository"
	"go.uber.org/zap"
)

// Number prefixes. Each has its own counter per year.
const (
	PrefixWorkOrder = "WO"
	PrefixBill      = "BL"
)

// NumberSequenceService generates human-readable numbers for work orders and bills.
//
// Format: {PREFIX}-{YEAR}-{SEQUENCE}
// Example: WO-2025-0001, BL-2025-0042
type NumberSequenceService struct {
	repo   *repository.NumberSequenceRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewNumberSequenceService creates a new NumberSequenceService
func NewNumberSequenceService(
	repo *repository.NumberSequenceRepository,
	logger *zap.Logger,
) *NumberSequenceService {
	return &NumberSequenceService{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// GenerateWorkOrderNumber returns the next order number, e.g. "WO-2025-0007"
func (s *NumberSequenceService) GenerateWorkOrderNumber(ctx context.Context) (string, error) {
	return s.generateNumber(ctx, PrefixWorkOrder)
}

// GenerateBillNumber returns the next bill number, e.g. "BL-2025-0003"
func (s *NumberSequenceService) GenerateBillNumber(ctx context.Context) (string, error) {
	return s.generateNumber(ctx, PrefixBill)
}

func (s *NumberSequenceService) generateNumber(ctx context.Context, prefix string) (string, error) {
	year := s.now().Year()

	nextSeq, err := s.repo.GetNextNumber(ctx, prefix, year)
	if err != nil {
		s.logger.Error("failed to get next sequence number",
			zap.String("prefix", prefix),
			zap.Int("year", year),
			zap.Error(err))
		return "", fmt.Errorf("failed to generate %s number: %w", prefix, err)
	}

	number := fmt.Sprintf("%s-%d-%04d", prefix, year, nextSeq)

	s.logger.Debug("generated number",
		zap.String("number", number),
		zap.Int("sequence", nextSeq))

	return number, nil
}

// InitializeSequence raises the counter to value, the last number already in use.
// Used when importing existing work orders.
func (s *NumberSequenceService) InitializeSequence(ctx context.Context, prefix string, year int, value int) error {
	return s.repo.SetSequence(ctx, prefix, year, value)
}
