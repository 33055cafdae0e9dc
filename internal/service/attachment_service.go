package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/fieldline/crm-api/internal/domain"
	"github.com/fieldline/crm-api/internal/mapper"
	"github.com/fieldline/crm-api/internal/repository"
	"github.com/fieldline/crm-api/internal/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AttachmentService stores files against work orders
type AttachmentService struct {
	attachmentRepo *repository.AttachmentRepository
	workOrderRepo  *repository.WorkOrderRepository
	storage        storage.Storage
	logger         *zap.Logger
}

func NewAttachmentService(
	attachmentRepo *repository.AttachmentRepository,
	workOrderRepo *repository.WorkOrderRepository,
	storage storage.Storage,
	logger *zap.Logger,
) *AttachmentService {
	return &AttachmentService{
		attachmentRepo: attachmentRepo,
		workOrderRepo:  workOrderRepo,
		storage:        storage,
		logger:         logger,
	}
}

// Upload stores data and records it as an attachment of the work order
func (s *AttachmentService) Upload(ctx context.Context, workOrderID uuid.UUID, filename, contentType string, data io.Reader) (*domain.AttachmentDTO, error) {
	if err := s.ensureWorkOrder(ctx, workOrderID); err != nil {
		return nil, err
	}

	filename = filepath.Base(strings.TrimSpace(filename))
	if filename == "" || filename == "." || filename == "/" {
		return nil, domain.NewValidationError("file", "filename is required")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	attachment := &domain.Attachment{
		WorkOrderID:  workOrderID,
		Filename:     filename,
		ContentType:  contentType,
		UploadedByID: actorFrom(ctx).id,
	}
	attachment.ID = uuid.New()
	attachment.StoragePath = storage.AttachmentKey(workOrderID.String(), attachment.ID.String(), filename)

	size, err := s.storage.Put(ctx, attachment.StoragePath, contentType, data)
	if err != nil {
		return nil, fmt.Errorf("failed to store attachment: %w", err)
	}
	attachment.Size = size

	if err := s.attachmentRepo.Create(ctx, attachment); err != nil {
		if rmErr := s.storage.Remove(ctx, attachment.StoragePath); rmErr != nil {
			s.logger.Warn("failed to clean up stored attachment after DB error",
				zap.String("storagePath", attachment.StoragePath),
				zap.Error(rmErr),
			)
		}
		return nil, fmt.Errorf("failed to create attachment record: %w", err)
	}

	s.logger.Info("attachment uploaded",
		zap.String("attachmentID", attachment.ID.String()),
		zap.String("workOrderID", workOrderID.String()),
		zap.Int64("size", size),
	)

	dto := mapper.ToAttachmentDTO(attachment)
	return &dto, nil
}

func (s *AttachmentService) List(ctx context.Context, workOrderID uuid.UUID) ([]domain.AttachmentDTO, error) {
	if err := s.ensureWorkOrder(ctx, workOrderID); err != nil {
		return nil, err
	}
	attachments, err := s.attachmentRepo.ListByWorkOrder(ctx, workOrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}
	dtos := make([]domain.AttachmentDTO, len(attachments))
	for i := range attachments {
		dtos[i] = mapper.ToAttachmentDTO(&attachments[i])
	}
	return dtos, nil
}

// Download opens an attachment. The caller closes the reader.
func (s *AttachmentService) Download(ctx context.Context, id uuid.UUID) (io.ReadCloser, *domain.AttachmentDTO, error) {
	attachment, err := s.load(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	reader, err := s.storage.Open(ctx, attachment.StoragePath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, ErrAttachmentNotFound
		}
		return nil, nil, fmt.Errorf("failed to open attachment: %w", err)
	}

	dto := mapper.ToAttachmentDTO(attachment)
	return reader, &dto, nil
}

// Delete removes an attachment from storage and the database
func (s *AttachmentService) Delete(ctx context.Context, id uuid.UUID) error {
	attachment, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	if err := s.storage.Remove(ctx, attachment.StoragePath); err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.logger.Warn("failed to remove attachment from storage",
			zap.String("storagePath", attachment.StoragePath),
			zap.String("attachmentID", id.String()),
			zap.Error(err),
		)
	}

	if err := s.attachmentRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete attachment record: %w", err)
	}
	return nil
}

func (s *AttachmentService) ensureWorkOrder(ctx context.Context, workOrderID uuid.UUID) error {
	if _, err := s.workOrderRepo.GetByID(ctx, workOrderID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrWorkOrderNotFound
		}
		return fmt.Errorf("failed to get work order: %w", err)
	}
	return nil
}

func (s *AttachmentService) load(ctx context.Context, id uuid.UUID) (*domain.Attachment, error) {
	attachment, err := s.attachmentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAttachmentNotFound
		}
		return nil, fmt.Errorf("failed to get attachment: %w", err)
	}
	// attachments carry no branch of their own; access follows the work order
	if err := s.ensureWorkOrder(ctx, attachment.WorkOrderID); err != nil {
		return nil, err
	}
	return attachment, nil
}
