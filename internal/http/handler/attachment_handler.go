package handler

import (
	"fmt"
	"io"
	"net/http"

	"github.com/fieldline/crm-api/internal/service"
	"go.uber.org/zap"
)

type AttachmentHandler struct {
	attachmentService *service.AttachmentService
	maxUploadMB       int64
	logger            *zap.Logger
}

func NewAttachmentHandler(attachmentService *service.AttachmentService, maxUploadMB int64, logger *zap.Logger) *AttachmentHandler {
	if maxUploadMB <= 0 {
		maxUploadMB = 50
	}
	return &AttachmentHandler{
		attachmentService: attachmentService,
		maxUploadMB:       maxUploadMB,
		logger:            logger,
	}
}

// Upload godoc
// @Summary Upload attachment
// @Tags Attachments
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Work order ID" format(uuid)
// @Param file formData file true "File to upload"
// @Success 201 {object} domain.APIResponse{data=domain.AttachmentDTO}
// @Failure 400 {object} domain.APIResponse
// @Failure 404 {object} domain.APIResponse
// @Failure 413 {object} domain.APIResponse
// @Security CookieAuth
// @Router /work-orders/{id}/attachments [post]
func (h *AttachmentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	workOrderID, ok := parseUUIDParam(w, r, "id", "work order ID")
	if !ok {
		return
	}

	limit := h.maxUploadMB * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		respondWithError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("File too large: maximum size is %dMB", h.maxUploadMB))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid file upload: file field is required")
		return
	}
	defer file.Close()

	attachment, err := h.attachmentService.Upload(r.Context(), workOrderID, header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		handleServiceError(w, h.logger, err, "upload attachment")
		return
	}
	respondJSON(w, http.StatusCreated, attachment)
}

// List godoc
// @Summary List attachments
// @Tags Attachments
// @Produce json
// @Param id path string true "Work order ID" format(uuid)
// @Success 200 {object} domain.APIResponse{data=[]domain.AttachmentDTO}
// @Security CookieAuth
// @Router /work-orders/{id}/attachments [get]
func (h *AttachmentHandler) List(w http.ResponseWriter, r *http.Request) {
	workOrderID, ok := parseUUIDParam(w, r, "id", "work order ID")
	if !ok {
		return
	}
	attachments, err := h.attachmentService.List(r.Context(), workOrderID)
	if err != nil {
		handleServiceError(w, h.logger, err, "list attachments")
		return
	}
	respondJSON(w, http.StatusOK, attachments)
}

// Download godoc
// @Summary Download attachment
// @Tags Attachments
// @Produce application/octet-stream
// @Param attachmentId path string true "Attachment ID" format(uuid)
// @Success 200 {file} file
// @Failure 404 {object} domain.APIResponse
// @Security CookieAuth
// @Router /attachments/{attachmentId} [get]
func (h *AttachmentHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "attachmentId", "attachment ID")
	if !ok {
		return
	}
	reader, attachment, err := h.attachmentService.Download(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.logger, err, "download attachment")
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", attachment.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", attachment.Filename))
	if _, err := io.Copy(w, reader); err != nil {
		h.logger.Warn("attachment download interrupted", zap.String("attachment_id", id.String()), zap.Error(err))
	}
}

// Delete godoc
// @Summary Delete attachment
// @Tags Attachments
// @Produce json
// @Param attachmentId path string true "Attachment ID" format(uuid)
// @Success 200 {object} domain.APIResponse
// @Failure 404 {object} domain.APIResponse
// @Security CookieAuth
// @Router /attachments/{attachmentId} [delete]
func (h *AttachmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "attachmentId", "attachment ID")
	if !ok {
		return
	}
	if err := h.attachmentService.Delete(r.Context(), id); err != nil {
		handleServiceError(w, h.logger, err, "delete attachment")
		return
	}
	respondJSON(w, http.StatusOK, nil)
}
