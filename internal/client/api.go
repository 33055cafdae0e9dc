package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/fieldline/crm-api/internal/domain"
	"github.com/fieldline/crm-api/internal/lifecycle"
	"github.com/fieldline/crm-api/internal/warranty"
	"github.com/google/uuid"
)

// NotificationPage is one page of the caller's notifications
type NotificationPage struct {
	Items       []domain.NotificationDTO `json:"items"`
	Total       int64                    `json:"total"`
	UnreadCount int                      `json:"unreadCount"`
	Page        int                      `json:"page"`
	PageSize    int                      `json:"pageSize"`
}

func statusQuery(status lifecycle.Status) url.Values {
	if status == "" {
		return nil
	}
	return url.Values{"status": {string(status)}}
}

func requireRemark(remark string) error {
	if v := lifecycle.ValidateApprovalRemark(remark); !v.Valid {
		return domain.NewValidationError("remark", v.Message)
	}
	return nil
}

// Me returns the signed-in user
func (c *Client) Me(ctx context.Context) (*domain.UserDTO, error) {
	var user domain.UserDTO
	if err := c.do(ctx, http.MethodGet, "/me", nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Search finds leads and customers by name or phone
func (c *Client) Search(ctx context.Context, query string) ([]domain.ContactDTO, error) {
	var contacts []domain.ContactDTO
	err := c.do(ctx, http.MethodGet, "/search", url.Values{"query": {query}}, nil, &contacts)
	return contacts, err
}

// Leads

func (c *Client) Leads(ctx context.Context) ([]domain.LeadDTO, error) {
	var leads []domain.LeadDTO
	err := c.do(ctx, http.MethodGet, "/leads", nil, nil, &leads)
	return leads, err
}

func (c *Client) Lead(ctx context.Context, id uuid.UUID) (*domain.LeadDTO, error) {
	var lead domain.LeadDTO
	if err := c.do(ctx, http.MethodGet, "/leads/"+id.String(), nil, nil, &lead); err != nil {
		return nil, err
	}
	return &lead, nil
}

func (c *Client) CreateLead(ctx context.Context, req domain.CreateLeadRequest) (*domain.LeadDTO, error) {
	var lead domain.LeadDTO
	if err := c.do(ctx, http.MethodPost, "/leads", nil, req, &lead); err != nil {
		return nil, err
	}
	return &lead, nil
}

func (c *Client) AddLeadRemark(ctx context.Context, id uuid.UUID, req domain.LeadRemarkRequest) (*domain.LeadDTO, error) {
	var lead domain.LeadDTO
	if err := c.do(ctx, http.MethodPost, "/leads/"+id.String()+"/remarks", nil, req, &lead); err != nil {
		return nil, err
	}
	return &lead, nil
}

// ConvertLead turns a lead into a customer with a first work order
func (c *Client) ConvertLead(ctx context.Context, id uuid.UUID, req domain.ConvertLeadRequest) (*domain.CustomerDTO, error) {
	var customer domain.CustomerDTO
	if err := c.do(ctx, http.MethodPost, "/leads/"+id.String()+"/convert", nil, req, &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

// Customers

func (c *Client) Customers(ctx context.Context) ([]domain.CustomerDTO, error) {
	var customers []domain.CustomerDTO
	err := c.do(ctx, http.MethodGet, "/customers", nil, nil, &customers)
	return customers, err
}

func (c *Client) Customer(ctx context.Context, id uuid.UUID) (*domain.CustomerDTO, error) {
	var customer domain.CustomerDTO
	if err := c.do(ctx, http.MethodGet, "/customers/"+id.String(), nil, nil, &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

func (c *Client) CreateCustomer(ctx context.Context, req domain.CreateCustomerRequest) (*domain.CustomerDTO, error) {
	var customer domain.CustomerDTO
	if err := c.do(ctx, http.MethodPost, "/customers", nil, req, &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

// Work orders

// WorkOrders lists work orders visible to the caller, optionally by status
func (c *Client) WorkOrders(ctx context.Context, status lifecycle.Status) ([]domain.WorkOrderDTO, error) {
	var orders []domain.WorkOrderDTO
	err := c.do(ctx, http.MethodGet, "/work-orders", statusQuery(status), nil, &orders)
	return orders, err
}

// WorkOrderDetails fetches one order by customer and display order ID
func (c *Client) WorkOrderDetails(ctx context.Context, customerID uuid.UUID, orderID string) (*domain.WorkOrderDTO, error) {
	var order domain.WorkOrderDTO
	path := fmt.Sprintf("/work-orders/%s/%s", customerID, url.PathEscape(orderID))
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) CreateWorkOrder(ctx context.Context, req domain.CreateWorkOrderRequest) (*domain.WorkOrderDTO, error) {
	return c.workOrderCall(ctx, "/work-orders", req)
}

func (c *Client) AssignTechnician(ctx context.Context, req domain.AssignTechnicianRequest) (*domain.WorkOrderDTO, error) {
	return c.workOrderCall(ctx, "/work-orders/assign", req)
}

func (c *Client) UpdateStatus(ctx context.Context, req domain.UpdateWorkOrderStatusRequest) (*domain.WorkOrderDTO, error) {
	return c.workOrderCall(ctx, "/work-orders/status", req)
}

func (c *Client) RequestTransfer(ctx context.Context, req domain.TransferRequest) (*domain.WorkOrderDTO, error) {
	return c.workOrderCall(ctx, "/work-orders/transfer", req)
}

// Approve completes an order. A remark under the word minimum fails locally
// without contacting the server.
func (c *Client) Approve(ctx context.Context, req domain.ApproveWorkOrderRequest) (*domain.WorkOrderDTO, error) {
	if err := requireRemark(req.Remark); err != nil {
		return nil, err
	}
	return c.workOrderCall(ctx, "/work-orders/approve", req)
}

// AcceptTransfer takes over a transferring order, with the same remark rule as Approve
func (c *Client) AcceptTransfer(ctx context.Context, req domain.AcceptTransferRequest) (*domain.WorkOrderDTO, error) {
	if err := requireRemark(req.Remark); err != nil {
		return nil, err
	}
	return c.workOrderCall(ctx, "/manager/transfers/accept", req)
}

func (c *Client) workOrderCall(ctx context.Context, path string, req interface{}) (*domain.WorkOrderDTO, error) {
	var order domain.WorkOrderDTO
	if err := c.do(ctx, http.MethodPost, path, nil, req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// ExportWorkOrders downloads the work order workbook
func (c *Client) ExportWorkOrders(ctx context.Context, status lifecycle.Status) ([]byte, error) {
	return c.download(ctx, "/work-orders/export", statusQuery(status))
}

func (c *Client) Attachments(ctx context.Context, workOrderID uuid.UUID) ([]domain.AttachmentDTO, error) {
	var attachments []domain.AttachmentDTO
	err := c.do(ctx, http.MethodGet, "/work-orders/"+workOrderID.String()+"/attachments", nil, nil, &attachments)
	return attachments, err
}

func (c *Client) DownloadAttachment(ctx context.Context, id uuid.UUID) ([]byte, error) {
	return c.download(ctx, "/attachments/"+id.String(), nil)
}

// Manager views

// ManagerProjects lists the orders a manager is responsible for
func (c *Client) ManagerProjects(ctx context.Context, status lifecycle.Status) ([]domain.WorkOrderDTO, error) {
	var orders []domain.WorkOrderDTO
	err := c.do(ctx, http.MethodGet, "/manager/projects", statusQuery(status), nil, &orders)
	return orders, err
}

func (c *Client) Dashboard(ctx context.Context) (*domain.DashboardDTO, error) {
	var dashboard domain.DashboardDTO
	if err := c.do(ctx, http.MethodGet, "/manager/dashboard", nil, nil, &dashboard); err != nil {
		return nil, err
	}
	return &dashboard, nil
}

// ManagerTechnicians lists the technicians of the manager's branch with server-side performance
func (c *Client) ManagerTechnicians(ctx context.Context) ([]domain.TechnicianDTO, error) {
	var technicians []domain.TechnicianDTO
	err := c.do(ctx, http.MethodGet, "/manager/technicians", nil, nil, &technicians)
	return technicians, err
}

func (c *Client) TechnicianProjects(ctx context.Context, technicianID uuid.UUID) ([]domain.WorkOrderDTO, error) {
	var orders []domain.WorkOrderDTO
	err := c.do(ctx, http.MethodGet, "/technicians/"+technicianID.String()+"/projects", nil, nil, &orders)
	return orders, err
}

// Branches and users

func (c *Client) Branches(ctx context.Context) ([]domain.BranchDTO, error) {
	var branches []domain.BranchDTO
	err := c.do(ctx, http.MethodGet, "/branches", nil, nil, &branches)
	return branches, err
}

func (c *Client) CreateBranch(ctx context.Context, req domain.CreateBranchRequest) (*domain.BranchDTO, error) {
	var branch domain.BranchDTO
	if err := c.do(ctx, http.MethodPost, "/branches", nil, req, &branch); err != nil {
		return nil, err
	}
	return &branch, nil
}

func (c *Client) Managers(ctx context.Context) ([]domain.UserDTO, error) {
	var users []domain.UserDTO
	err := c.do(ctx, http.MethodGet, "/users/managers", nil, nil, &users)
	return users, err
}

func (c *Client) Technicians(ctx context.Context) ([]domain.TechnicianDTO, error) {
	var technicians []domain.TechnicianDTO
	err := c.do(ctx, http.MethodGet, "/users/technicians", nil, nil, &technicians)
	return technicians, err
}

func (c *Client) User(ctx context.Context, id uuid.UUID) (*domain.UserDTO, error) {
	var user domain.UserDTO
	if err := c.do(ctx, http.MethodGet, "/users/"+id.String(), nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) CreateUser(ctx context.Context, req domain.CreateUserRequest) (*domain.UserDTO, error) {
	var user domain.UserDTO
	if err := c.do(ctx, http.MethodPost, "/users", nil, req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Inventory and warranty

func (c *Client) InventoryByType(ctx context.Context, itemType string) ([]domain.InventoryItemDTO, error) {
	var items []domain.InventoryItemDTO
	err := c.do(ctx, http.MethodGet, "/inventory/type/"+url.PathEscape(itemType), nil, nil, &items)
	return items, err
}

// TechnicianInventory lists items held by a technician; a nil ID means the caller
func (c *Client) TechnicianInventory(ctx context.Context, technicianID *uuid.UUID) ([]domain.InventoryItemDTO, error) {
	var query url.Values
	if technicianID != nil {
		query = url.Values{"technicianId": {technicianID.String()}}
	}
	var items []domain.InventoryItemDTO
	err := c.do(ctx, http.MethodGet, "/inventory/technician", query, nil, &items)
	return items, err
}

func (c *Client) SerialDetails(ctx context.Context, serial string) (*domain.SerialDetailsDTO, error) {
	var details domain.SerialDetailsDTO
	if err := c.do(ctx, http.MethodGet, "/inventory/serial/"+url.PathEscape(serial), nil, nil, &details); err != nil {
		return nil, err
	}
	return &details, nil
}

func (c *Client) WarrantyStatus(ctx context.Context, serial string) (*domain.WarrantyStatusDTO, error) {
	var status domain.WarrantyStatusDTO
	if err := c.do(ctx, http.MethodGet, "/warranty/status/"+url.PathEscape(serial), nil, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// WarrantyReplacements lists claims, optionally by status
func (c *Client) WarrantyReplacements(ctx context.Context, status warranty.Status) ([]domain.WarrantyReplacementDTO, error) {
	var query url.Values
	if status != "" {
		query = url.Values{"status": {string(status)}}
	}
	var claims []domain.WarrantyReplacementDTO
	err := c.do(ctx, http.MethodGet, "/warranty", query, nil, &claims)
	return claims, err
}

func (c *Client) RegisterWarranty(ctx context.Context, req domain.RegisterWarrantyRequest) (*domain.WarrantyReplacementDTO, error) {
	return c.warrantyCall(ctx, http.MethodPost, "/warranty/register", req)
}

func (c *Client) CompleteWarranty(ctx context.Context, req domain.CompleteWarrantyRequest) (*domain.WarrantyReplacementDTO, error) {
	return c.warrantyCall(ctx, http.MethodPost, "/warranty/complete", req)
}

func (c *Client) UpdateWarrantyClaim(ctx context.Context, req domain.UpdateWarrantyClaimRequest) (*domain.WarrantyReplacementDTO, error) {
	return c.warrantyCall(ctx, http.MethodPost, "/warranty/claim", req)
}

func (c *Client) WarrantyHistory(ctx context.Context, serial string) (*domain.WarrantyReplacementDTO, error) {
	return c.warrantyCall(ctx, http.MethodGet, "/warranty/history/"+url.PathEscape(serial), nil)
}

func (c *Client) ReplacementBySerial(ctx context.Context, serial string) (*domain.WarrantyReplacementDTO, error) {
	return c.warrantyCall(ctx, http.MethodGet, "/warranty/replacement-serial/"+url.PathEscape(serial), nil)
}

func (c *Client) warrantyCall(ctx context.Context, method, path string, req interface{}) (*domain.WarrantyReplacementDTO, error) {
	var claim domain.WarrantyReplacementDTO
	if err := c.do(ctx, method, path, nil, req, &claim); err != nil {
		return nil, err
	}
	return &claim, nil
}

// Bills

func (c *Client) CreateBill(ctx context.Context, req domain.CreateBillRequest) (*domain.BillDTO, error) {
	var bill domain.BillDTO
	if err := c.do(ctx, http.MethodPost, "/bills", nil, req, &bill); err != nil {
		return nil, err
	}
	return &bill, nil
}

func (c *Client) Bill(ctx context.Context, id uuid.UUID) (*domain.BillDTO, error) {
	var bill domain.BillDTO
	if err := c.do(ctx, http.MethodGet, "/bills/"+id.String(), nil, nil, &bill); err != nil {
		return nil, err
	}
	return &bill, nil
}

func (c *Client) BillPDF(ctx context.Context, id uuid.UUID) ([]byte, error) {
	return c.download(ctx, "/bills/"+id.String()+"/pdf", nil)
}

// Notifications

func (c *Client) Notifications(ctx context.Context, page, pageSize int, unreadOnly bool) (*NotificationPage, error) {
	query := url.Values{}
	if page > 0 {
		query.Set("page", strconv.Itoa(page))
	}
	if pageSize > 0 {
		query.Set("pageSize", strconv.Itoa(pageSize))
	}
	if unreadOnly {
		query.Set("unreadOnly", "true")
	}
	var result NotificationPage
	if err := c.do(ctx, http.MethodGet, "/notifications", query, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) MarkNotificationRead(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodPut, "/notifications/"+id.String()+"/read", nil, nil, nil)
}
