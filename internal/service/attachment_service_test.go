package service_test

import (
	"io"
	"strings"
	"testing"

	"github.com/fieldline/crm-api/internal/domain"
	"github.com/fieldline/crm-api/internal/lifecycle"
	"github.com/fieldline/crm-api/internal/service"
	"github.com/fieldline/crm-api/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttachmentService(t *testing.T) {
	s := newServices(t)
	north := testutil.CreateTestBranch(t, s.db, "North")
	south := testutil.CreateTestBranch(t, s.db, "South")
	manager := testutil.CreateTestUser(t, s.db, domain.RoleManager, &north.ID)
	outsider := testutil.CreateTestUser(t, s.db, domain.RoleManager, &south.ID)
	customer := testutil.CreateTestCustomer(t, s.db, "Kari Nordmann", &north.ID)
	workOrder := testutil.CreateTestWorkOrder(t, s.db, customer, domain.CategoryNewInstallation, lifecycle.StatusInProgress, nil)
	ctx := testutil.ContextFor(manager)

	uploaded, err := s.attachments.Upload(ctx, workOrder.ID, "../../site/photo.jpg", "image/jpeg", strings.NewReader("jpeg-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "photo.jpg", uploaded.Filename)
	assert.Equal(t, int64(len("jpeg-bytes")), uploaded.Size)

	list, err := s.attachments.List(ctx, workOrder.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	reader, dto, err := s.attachments.Download(ctx, uploaded.ID)
	require.NoError(t, err)
	data, err := io.ReadAll(reader)
	require.NoError(t, reader.Close())
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))
	assert.Equal(t, "image/jpeg", dto.ContentType)

	t.Run("access follows the work order branch", func(t *testing.T) {
		_, _, err := s.attachments.Download(testutil.ContextFor(outsider), uploaded.ID)
		assert.ErrorIs(t, err, service.ErrWorkOrderNotFound)
	})

	t.Run("validation", func(t *testing.T) {
		_, err := s.attachments.Upload(ctx, workOrder.ID, "  ", "", strings.NewReader("x"))
		var verr *domain.ValidationError
		assert.ErrorAs(t, err, &verr)

		_, err = s.attachments.Upload(ctx, uuid.New(), "a.txt", "", strings.NewReader("x"))
		assert.ErrorIs(t, err, service.ErrWorkOrderNotFound)
	})

	require.NoError(t, s.attachments.Delete(ctx, uploaded.ID))
	_, _, err = s.attachments.Download(ctx, uploaded.ID)
	assert.ErrorIs(t, err, service.ErrAttachmentNotFound)
}
