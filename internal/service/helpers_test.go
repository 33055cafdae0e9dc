package service_test

import (
	"testing"

	"github.com/fieldline/crm-api/internal/excel"
	"github.com/fieldline/crm-api/internal/pdf"
	"github.com/fieldline/crm-api/internal/repository"
	"github.com/fieldline/crm-api/internal/service"
	"github.com/fieldline/crm-api/internal/storage"
	"github.com/fieldline/crm-api/internal/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// services wires every service over one in-memory database
type services struct {
	db            *gorm.DB
	numbers       *service.NumberSequenceService
	notifications *service.NotificationService
	branches      *service.BranchService
	users         *service.UserService
	leads         *service.LeadService
	customers     *service.CustomerService
	workOrders    *service.WorkOrderService
	inventory     *service.InventoryService
	warranty      *service.WarrantyService
	bills         *service.BillService
	attachments   *service.AttachmentService
	export        *service.ExportService
}

func newServices(t *testing.T) *services {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()

	branchRepo := repository.NewBranchRepository(db)
	userRepo := repository.NewUserRepository(db)
	leadRepo := repository.NewLeadRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	workOrderRepo := repository.NewWorkOrderRepository(db)
	inventoryRepo := repository.NewInventoryRepository(db)
	warrantyRepo := repository.NewWarrantyRepository(db)
	billRepo := repository.NewBillRepository(db)
	attachmentRepo := repository.NewAttachmentRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	numbers := service.NewNumberSequenceService(repository.NewNumberSequenceRepository(db), logger)
	notifications := service.NewNotificationService(notificationRepo, logger)
	workOrders := service.NewWorkOrderService(workOrderRepo, customerRepo, userRepo, numbers, notifications, logger)

	return &services{
		db:            db,
		numbers:       numbers,
		notifications: notifications,
		branches:      service.NewBranchService(branchRepo, logger),
		users:         service.NewUserService(userRepo, branchRepo, workOrderRepo, 4, logger),
		leads:         service.NewLeadService(db, leadRepo, customerRepo, numbers, logger),
		customers:     service.NewCustomerService(customerRepo, leadRepo, workOrderRepo, numbers, logger),
		workOrders:    workOrders,
		inventory:     service.NewInventoryService(inventoryRepo, warrantyRepo, logger),
		warranty:      service.NewWarrantyService(warrantyRepo, inventoryRepo, userRepo, notifications, logger),
		bills:         service.NewBillService(billRepo, workOrderRepo, numbers, pdf.NewGenerator("Fieldline"), logger),
		attachments:   service.NewAttachmentService(attachmentRepo, workOrderRepo, files, logger),
		export:        service.NewExportService(workOrders, excel.NewGenerator(), logger),
	}
}

const approvalRemark = "All panels installed and tested on site"
