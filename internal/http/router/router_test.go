package router_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fieldline/crm-api/internal/auth"
	"github.com/fieldline/crm-api/internal/config"
	"github.com/fieldline/crm-api/internal/domain"
	"github.com/fieldline/crm-api/internal/excel"
	"github.com/fieldline/crm-api/internal/http/handler"
	"github.com/fieldline/crm-api/internal/http/middleware"
	"github.com/fieldline/crm-api/internal/http/router"
	"github.com/fieldline/crm-api/internal/lifecycle"
	"github.com/fieldline/crm-api/internal/pdf"
	"github.com/fieldline/crm-api/internal/repository"
	"github.com/fieldline/crm-api/internal/service"
	"github.com/fieldline/crm-api/internal/storage"
	"github.com/fieldline/crm-api/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testPassword = "correct-horse-battery"

type envelope struct {
	Success bool                          `json:"success"`
	Data    json.RawMessage               `json:"data"`
	Message string                        `json:"message"`
	Errors  []domain.ValidationFieldError `json:"errors"`
}

type testServer struct {
	t       *testing.T
	db      *gorm.DB
	handler http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()

	cfg := &config.Config{
		App:       config.AppConfig{Name: "Fieldline CRM", Environment: "development"},
		Auth:      config.AuthConfig{SessionSecret: "router-test-secret", CookieName: "session", SessionTTL: 60, BcryptCost: 4},
		Security:  config.SecurityConfig{ContentTypeNosniff: true, FrameOptions: "DENY"},
		RateLimit: config.RateLimitConfig{Enabled: false},
	}

	branchRepo := repository.NewBranchRepository(db)
	userRepo := repository.NewUserRepository(db)
	leadRepo := repository.NewLeadRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	workOrderRepo := repository.NewWorkOrderRepository(db)
	inventoryRepo := repository.NewInventoryRepository(db)
	warrantyRepo := repository.NewWarrantyRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	numbers := service.NewNumberSequenceService(repository.NewNumberSequenceRepository(db), logger)
	notifications := service.NewNotificationService(notificationRepo, logger)
	workOrders := service.NewWorkOrderService(workOrderRepo, customerRepo, userRepo, numbers, notifications, logger)
	users := service.NewUserService(userRepo, branchRepo, workOrderRepo, cfg.Auth.BcryptCost, logger)
	inventory := service.NewInventoryService(inventoryRepo, warrantyRepo, logger)

	sessions := auth.NewSessionManager(&cfg.Auth)
	handlers := router.Handlers{
		Auth:         handler.NewAuthHandler(users, sessions, logger),
		Lead:         handler.NewLeadHandler(service.NewLeadService(db, leadRepo, customerRepo, numbers, logger), logger),
		Customer:     handler.NewCustomerHandler(service.NewCustomerService(customerRepo, leadRepo, workOrderRepo, numbers, logger), logger),
		WorkOrder:    handler.NewWorkOrderHandler(workOrders, service.NewExportService(workOrders, excel.NewGenerator(), logger), logger),
		Attachment:   handler.NewAttachmentHandler(service.NewAttachmentService(repository.NewAttachmentRepository(db), workOrderRepo, files, logger), 5, logger),
		Branch:       handler.NewBranchHandler(service.NewBranchService(branchRepo, logger), logger),
		User:         handler.NewUserHandler(users, logger),
		Inventory:    handler.NewInventoryHandler(inventory, logger),
		Warranty:     handler.NewWarrantyHandler(service.NewWarrantyService(warrantyRepo, inventoryRepo, userRepo, notifications, logger), logger),
		Bill:         handler.NewBillHandler(service.NewBillService(repository.NewBillRepository(db), workOrderRepo, numbers, pdf.NewGenerator(cfg.App.Name), logger), logger),
		Notification: handler.NewNotificationHandler(notifications, logger),
	}

	rt := router.NewRouter(cfg, logger, db,
		auth.NewMiddleware(sessions, logger),
		middleware.NewBranchFilterMiddleware(logger),
		middleware.NewRateLimiter(&cfg.RateLimit, logger),
		handlers,
	)
	return &testServer{t: t, db: db, handler: rt.Setup()}
}

// user creates an active account that can sign in with testPassword
func (s *testServer) user(role domain.UserRole, branchID *uuid.UUID) *domain.User {
	s.t.Helper()
	user := testutil.CreateTestUser(s.t, s.db, role, branchID)
	hash, err := auth.HashPassword(testPassword, 4)
	require.NoError(s.t, err)
	require.NoError(s.t, s.db.Model(user).Update("password_hash", hash).Error)
	return user
}

func (s *testServer) do(method, path string, body interface{}, cookie *http.Cookie) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func (s *testServer) signIn(user *domain.User) *http.Cookie {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/signin", domain.SignInRequest{Username: user.Username, Password: testPassword}, nil)
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
	for _, c := range w.Result().Cookies() {
		if c.Name == "session" {
			return c
		}
	}
	s.t.Fatal("no session cookie set")
	return nil
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dst interface{}) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if dst != nil {
		require.NoError(t, json.Unmarshal(env.Data, dst))
	}
	return env
}

func TestRouter_Health(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	w = s.do(http.MethodGet, "/health/ready", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestRouter_Authentication(t *testing.T) {
	s := newTestServer(t)
	branch := testutil.CreateTestBranch(t, s.db, "North")
	technician := s.user(domain.RoleTechnician, &branch.ID)

	w := s.do(http.MethodGet, "/api/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/api/signin", domain.SignInRequest{Username: technician.Username, Password: "nope"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/api/signin", map[string]string{}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotEmpty(t, decode(t, w, nil).Errors)

	cookie := s.signIn(technician)
	w = s.do(http.MethodGet, "/api/me", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	var me domain.UserDTO
	decode(t, w, &me)
	assert.Equal(t, technician.ID, me.ID)
	assert.Equal(t, "North", me.BranchName)

	w = s.do(http.MethodPost, "/api/signout", nil, cookie)
	assert.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, w.Result().Cookies())
	assert.Equal(t, -1, w.Result().Cookies()[0].MaxAge)
}

func TestRouter_RoleGating(t *testing.T) {
	s := newTestServer(t)
	north := testutil.CreateTestBranch(t, s.db, "North")
	south := testutil.CreateTestBranch(t, s.db, "South")
	technician := s.signIn(s.user(domain.RoleTechnician, &north.ID))
	manager := s.signIn(s.user(domain.RoleManager, &north.ID))
	admin := s.signIn(s.user(domain.RoleAdmin, nil))

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		cookie *http.Cookie
		want   int
	}{
		{"technician cannot approve", http.MethodPost, "/api/work-orders/approve", domain.ApproveWorkOrderRequest{}, technician, http.StatusForbidden},
		{"technician cannot open dashboard", http.MethodGet, "/api/manager/dashboard", nil, technician, http.StatusForbidden},
		{"technician cannot export", http.MethodGet, "/api/work-orders/export", nil, technician, http.StatusForbidden},
		{"manager opens dashboard", http.MethodGet, "/api/manager/dashboard", nil, manager, http.StatusOK},
		{"manager cannot create branches", http.MethodPost, "/api/branches", domain.CreateBranchRequest{Name: "East"}, manager, http.StatusForbidden},
		{"admin creates branches", http.MethodPost, "/api/branches", domain.CreateBranchRequest{Name: "East"}, admin, http.StatusCreated},
		{"manager cannot read another branch", http.MethodGet, "/api/customers?branch=" + south.ID.String(), nil, manager, http.StatusForbidden},
		{"admin narrows to a branch", http.MethodGet, "/api/customers?branch=" + south.ID.String(), nil, admin, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(tt.method, tt.path, tt.body, tt.cookie)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestRouter_WorkOrderFlow(t *testing.T) {
	s := newTestServer(t)
	branch := testutil.CreateTestBranch(t, s.db, "North")
	technicianUser := s.user(domain.RoleTechnician, &branch.ID)
	technician := s.signIn(technicianUser)
	manager := s.signIn(s.user(domain.RoleManager, &branch.ID))

	w := s.do(http.MethodPost, "/api/customers", domain.CreateCustomerRequest{Name: "Kari Nordmann", Phone: "+47 900 00 000"}, manager)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var customer domain.CustomerDTO
	decode(t, w, &customer)
	require.NotNil(t, customer.BranchID)
	assert.Equal(t, branch.ID, *customer.BranchID)

	w = s.do(http.MethodPost, "/api/work-orders", domain.CreateWorkOrderRequest{
		CustomerID:      customer.ID,
		ProjectType:     "Solar panels",
		ProjectCategory: domain.CategoryNewInstallation,
	}, manager)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var workOrder domain.WorkOrderDTO
	decode(t, w, &workOrder)
	assert.Equal(t, lifecycle.StatusPending, workOrder.Status)

	w = s.do(http.MethodPost, "/api/work-orders/assign", domain.AssignTechnicianRequest{
		WorkOrderID: workOrder.ProjectID, TechnicianID: technicianUser.ID,
	}, manager)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	move := func(status lifecycle.Status, remark string) *httptest.ResponseRecorder {
		return s.do(http.MethodPost, "/api/work-orders/status", domain.UpdateWorkOrderStatusRequest{
			WorkOrderID: workOrder.ProjectID, Status: status, Remark: remark,
		}, technician)
	}
	require.Equal(t, http.StatusOK, move(lifecycle.StatusInProgress, "").Code)

	w = move(lifecycle.StatusCompleted, "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, "technicians cannot complete directly")

	require.Equal(t, http.StatusOK, move(lifecycle.StatusPendingApproval, "All panels installed and tested").Code)

	w = s.do(http.MethodGet, "/api/notifications?unreadOnly=true", nil, manager)
	require.Equal(t, http.StatusOK, w.Code)
	var inbox handler.NotificationListDTO
	decode(t, w, &inbox)
	assert.Equal(t, 1, inbox.UnreadCount)
	require.Len(t, inbox.Items, 1)
	assert.Equal(t, string(domain.NotificationTypeApprovalRequest), inbox.Items[0].Type)

	w = s.do(http.MethodPut, "/api/notifications/"+inbox.Items[0].ID.String()+"/read", nil, manager)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodPost, "/api/work-orders/approve", domain.ApproveWorkOrderRequest{
		WorkOrderID: workOrder.ProjectID, Remark: "Looks good",
	}, manager)
	assert.Equal(t, http.StatusBadRequest, w.Code, "approval remark needs five words")

	w = s.do(http.MethodPost, "/api/work-orders/approve", domain.ApproveWorkOrderRequest{
		WorkOrderID: workOrder.ProjectID, Remark: "Inspected the site and everything works",
	}, manager)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/api/work-orders/"+customer.ID.String()+"/"+workOrder.OrderID, nil, technician)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &workOrder)
	assert.Equal(t, lifecycle.StatusCompleted, workOrder.Status)
	assert.NotNil(t, workOrder.CompletedAt)
	assert.Len(t, workOrder.StatusHistory, 5)

	t.Run("bill and pdf", func(t *testing.T) {
		w := s.do(http.MethodPost, "/api/bills", map[string]interface{}{
			"workOrderId": workOrder.ProjectID,
			"items":       []map[string]interface{}{{"description": "Panel", "quantity": "2", "unitPrice": "1500.50"}},
		}, manager)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var bill domain.BillDTO
		decode(t, w, &bill)
		assert.Equal(t, "3001.00", bill.Total.StringFixed(2))

		w = s.do(http.MethodGet, "/api/bills/"+bill.ID.String()+"/pdf", nil, manager)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
		assert.Contains(t, w.Header().Get("Content-Disposition"), bill.BillNumber+".pdf")
	})

	t.Run("export", func(t *testing.T) {
		w := s.do(http.MethodGet, "/api/work-orders/export", nil, manager)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")
	})

	t.Run("unknown work order", func(t *testing.T) {
		w := s.do(http.MethodGet, "/api/work-orders/"+customer.ID.String()+"/WO-1999-0001", nil, manager)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.False(t, decode(t, w, nil).Success)
	})
}
