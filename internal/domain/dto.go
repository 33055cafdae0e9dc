package domain

import (
	"time"

	"github.com/fieldline/crm-api/internal/lifecycle"
	"github.com/fieldline/crm-api/internal/warranty"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// API Response wrapper. Every endpoint answers with this envelope.
type APIResponse struct {
	Success bool                   `json:"success"`
	Data    interface{}            `json:"data,omitempty"`
	Message string                 `json:"message,omitempty"`
	Errors  []ValidationFieldError `json:"errors,omitempty"`
}

// UserRefDTO is the compact user shape embedded in other resources
type UserRefDTO struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
}

// Person converts the reference for lifecycle filtering; nil stays nil
func (u *UserRefDTO) Person() *lifecycle.Person {
	if u == nil {
		return nil
	}
	return &lifecycle.Person{FirstName: u.FirstName, LastName: u.LastName}
}

type LeadRemarkDTO struct {
	Text      string     `json:"text"`
	Status    LeadStatus `json:"status"`
	CreatedAt time.Time  `json:"createdAt"`
	CreatedBy string     `json:"createdBy,omitempty"`
}

type LeadDTO struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Phone       string          `json:"phone"`
	Email       string          `json:"email,omitempty"`
	Address     string          `json:"address,omitempty"`
	Status      LeadStatus      `json:"status"`
	Remarks     []LeadRemarkDTO `json:"remarks"`
	BranchID    *uuid.UUID      `json:"branch,omitempty"`
	Converted   bool            `json:"converted"`
	ConvertedAt *time.Time      `json:"convertedAt,omitempty"`
	CustomerID  *uuid.UUID      `json:"customerId,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

type CustomerDTO struct {
	ID                uuid.UUID      `json:"id"`
	Name              string         `json:"name"`
	Phone             string         `json:"phone"`
	Email             string         `json:"email,omitempty"`
	Address           string         `json:"address,omitempty"`
	ConvertedFromLead bool           `json:"convertedFromLead"`
	LeadID            *uuid.UUID     `json:"leadId,omitempty"`
	BranchID          *uuid.UUID     `json:"branch,omitempty"`
	Projects          []WorkOrderDTO `json:"projects,omitempty"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
}

// ContactKind tells merged search and contact rows apart
type ContactKind string

const (
	ContactKindLead     ContactKind = "lead"
	ContactKindCustomer ContactKind = "customer"
)

// ContactDTO is one row of the merged leads and customers view
type ContactDTO struct {
	ID        uuid.UUID   `json:"id"`
	Kind      ContactKind `json:"kind"`
	Name      string      `json:"name"`
	Phone     string      `json:"phone"`
	Email     string      `json:"email,omitempty"`
	Status    LeadStatus  `json:"status,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
}

type StatusHistoryDTO struct {
	Status    lifecycle.Status `json:"status"`
	Remark    string           `json:"remark,omitempty"`
	UpdatedAt time.Time        `json:"updatedAt"`
	UpdatedBy string           `json:"updatedBy,omitempty"`
}

type WorkOrderDTO struct {
	ProjectID       uuid.UUID          `json:"projectId"`
	OrderID         string             `json:"orderId"`
	CustomerID      uuid.UUID          `json:"customerId"`
	CustomerName    string             `json:"customerName,omitempty"`
	CustomerPhone   string             `json:"customerPhone,omitempty"`
	ProjectType     string             `json:"projectType"`
	ProjectCategory ProjectCategory    `json:"projectCategory"`
	Status          lifecycle.Status   `json:"status"`
	Technician      *UserRefDTO        `json:"technician,omitempty"`
	Manager         *UserRefDTO        `json:"manager,omitempty"`
	ApprovedBy      *UserRefDTO        `json:"approvedBy,omitempty"`
	BranchID        *uuid.UUID         `json:"branch,omitempty"`
	InitialRemark   string             `json:"initialRemark,omitempty"`
	Instructions    string             `json:"instructions,omitempty"`
	RelatedOrderID  *uuid.UUID         `json:"relatedOrderId,omitempty"`
	TransferRemark  string             `json:"transferRemark,omitempty"`
	TransferTo      *TransferTargetDTO `json:"transferTo,omitempty"`
	StatusHistory   []StatusHistoryDTO `json:"statusHistory"`
	BillingInfo     []BillDTO          `json:"billingInfo,omitempty"`
	CreatedAt       time.Time          `json:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt"`
	CompletedAt     *time.Time         `json:"completedAt,omitempty"`
}

// TransferTargetDTO is where a pending transfer is headed
type TransferTargetDTO struct {
	BranchID  *uuid.UUID `json:"branch,omitempty"`
	ManagerID *uuid.UUID `json:"manager,omitempty"`
}

func (w WorkOrderDTO) CurrentStatus() lifecycle.Status { return w.Status }

// TouchedAt returns UpdatedAt, falling back to CreatedAt when unset
func (w WorkOrderDTO) TouchedAt() time.Time {
	if w.UpdatedAt.IsZero() {
		return w.CreatedAt
	}
	return w.UpdatedAt
}

func (w WorkOrderDTO) AssignedTechnician() *lifecycle.Person { return w.Technician.Person() }

func (w WorkOrderDTO) SearchFields() lifecycle.SearchFields {
	return lifecycle.SearchFields{
		CustomerName: w.CustomerName,
		ProjectType:  w.ProjectType,
		OrderID:      w.OrderID,
		Technician:   w.Technician.Person(),
		Approver:     w.ApprovedBy.Person(),
	}
}

// DashboardDTO is the manager overview: assigned work split into buckets plus the
// unassigned queue
type DashboardDTO struct {
	Buckets    lifecycle.Buckets[WorkOrderDTO] `json:"buckets"`
	Unassigned []WorkOrderDTO                  `json:"unassigned"`
	Counts     DashboardCounts                 `json:"counts"`
}

type DashboardCounts struct {
	Unassigned       int `json:"unassigned"`
	PendingApprovals int `json:"pendingApprovals"`
	InProgress       int `json:"inProgress"`
	Transferred      int `json:"transferred"`
	Completed        int `json:"completed"`
}

type UserDTO struct {
	ID          uuid.UUID  `json:"id"`
	FirstName   string     `json:"firstName"`
	LastName    string     `json:"lastName"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	Phone       string     `json:"phone,omitempty"`
	Role        UserRole   `json:"role"`
	BranchID    *uuid.UUID `json:"branch,omitempty"`
	BranchName  string     `json:"branchName,omitempty"`
	Status      UserStatus `json:"status"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// TechnicianDTO is a technician with performance derived from their work orders
type TechnicianDTO struct {
	UserDTO
	Performance *lifecycle.TechnicianPerformance `json:"performance,omitempty"`
}

type BranchDTO struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Location  string     `json:"location,omitempty"`
	CreatedBy *uuid.UUID `json:"createdBy,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

type InventoryItemDTO struct {
	ID               uuid.UUID     `json:"id"`
	SerialNumber     string        `json:"serialNumber,omitempty"`
	ProductName      string        `json:"productName"`
	Type             InventoryType `json:"type"`
	BranchID         *uuid.UUID    `json:"branch,omitempty"`
	TechnicianID     *uuid.UUID    `json:"technicianId,omitempty"`
	CustomerID       *uuid.UUID    `json:"customerId,omitempty"`
	CustomerName     string        `json:"customerName,omitempty"`
	CustomerPhone    string        `json:"customerPhone,omitempty"`
	WorkOrderID      *uuid.UUID    `json:"workOrderId,omitempty"`
	WarrantyPeriod   string        `json:"warrantyPeriod,omitempty"`
	InstallationDate *time.Time    `json:"installationDate,omitempty"`
	Quantity         int           `json:"quantity"`
}

type WarrantyIssueDTO struct {
	IssueDescription        string     `json:"issueDescription"`
	IssueCheckedBy          string     `json:"issueCheckedBy"`
	ReportedAt              time.Time  `json:"reportedAt"`
	ReplacementSerialNumber string     `json:"replacementSerialNumber,omitempty"`
	ReplacedAt              *time.Time `json:"replacedAt,omitempty"`
}

type WarrantyReplacementDTO struct {
	ID                  uuid.UUID          `json:"id"`
	SerialNumber        string             `json:"serialNumber"`
	CurrentSerialNumber string             `json:"currentSerialNumber"`
	ProductName         string             `json:"productName,omitempty"`
	CustomerName        string             `json:"customerName,omitempty"`
	CustomerPhone       string             `json:"customerPhone,omitempty"`
	Status              warranty.Status    `json:"status"`
	Issues              []WarrantyIssueDTO `json:"issues"`
	RegisteredAt        time.Time          `json:"registeredAt"`
	Remark              string             `json:"remark,omitempty"`
}

// SerialDetailsDTO is everything known about one serial number
type SerialDetailsDTO struct {
	Item        InventoryItemDTO        `json:"item"`
	Warranty    warranty.Coverage       `json:"warranty"`
	Replacement *WarrantyReplacementDTO `json:"replacement,omitempty"`
}

// WarrantyStatusDTO answers "is this unit still covered"
type WarrantyStatusDTO struct {
	SerialNumber      string            `json:"serialNumber"`
	ProductName       string            `json:"productName"`
	Coverage          warranty.Coverage `json:"coverage"`
	ReplacementStatus warranty.Status   `json:"replacementStatus,omitempty"`
}

type BillItemDTO struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Amount      decimal.Decimal `json:"amount"`
}

type BillDTO struct {
	ID            uuid.UUID       `json:"id"`
	BillNumber    string          `json:"billNumber"`
	WorkOrderID   uuid.UUID       `json:"workOrderId"`
	OrderID       string          `json:"orderId,omitempty"`
	CustomerName  string          `json:"customerName,omitempty"`
	Items         []BillItemDTO   `json:"items"`
	Total         decimal.Decimal `json:"total"`
	PaymentStatus PaymentStatus   `json:"paymentStatus"`
	Notes         string          `json:"notes,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

type AttachmentDTO struct {
	ID          uuid.UUID `json:"id"`
	WorkOrderID uuid.UUID `json:"workOrderId"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"createdAt"`
}

type NotificationDTO struct {
	ID         uuid.UUID  `json:"id"`
	Type       string     `json:"type"`
	Title      string     `json:"title"`
	Message    string     `json:"message"`
	Read       bool       `json:"read"`
	ReadAt     *time.Time `json:"readAt,omitempty"`
	EntityID   *uuid.UUID `json:"entityId,omitempty"`
	EntityType string     `json:"entityType,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// SessionDTO is returned on sign-in and by /me
type SessionDTO struct {
	User      UserDTO   `json:"user"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Request DTOs

type LeadRemarkRequest struct {
	Text   string     `json:"text" validate:"required,max=2000"`
	Status LeadStatus `json:"status" validate:"required,oneof=positive neutral negative"`
}

type CreateLeadRequest struct {
	Name     string             `json:"name" validate:"required,max=200"`
	Phone    string             `json:"phone" validate:"required,max=50"`
	Email    string             `json:"email,omitempty" validate:"omitempty,email,max=255"`
	Address  string             `json:"address,omitempty" validate:"max=500"`
	BranchID *uuid.UUID         `json:"branch,omitempty"`
	Remark   *LeadRemarkRequest `json:"remark,omitempty"`
}

type ConvertLeadRequest struct {
	ProjectType   string `json:"projectType" validate:"required,max=200"`
	InitialRemark string `json:"initialRemark,omitempty"`
	Instructions  string `json:"instructions,omitempty"`
}

type CreateCustomerRequest struct {
	Name          string     `json:"name" validate:"required,max=200"`
	Phone         string     `json:"phone" validate:"required,max=50"`
	Email         string     `json:"email,omitempty" validate:"omitempty,email,max=255"`
	Address       string     `json:"address,omitempty" validate:"max=500"`
	BranchID      *uuid.UUID `json:"branch,omitempty"`
	ProjectType   string     `json:"projectType,omitempty" validate:"max=200"`
	InitialRemark string     `json:"initialRemark,omitempty"`
}

type CreateWorkOrderRequest struct {
	CustomerID      uuid.UUID       `json:"customerId" validate:"required"`
	ProjectType     string          `json:"projectType" validate:"required,max=200"`
	ProjectCategory ProjectCategory `json:"projectCategory" validate:"required"`
	InitialRemark   string          `json:"initialRemark,omitempty"`
	Instructions    string          `json:"instructions,omitempty"`
	RelatedOrderID  *uuid.UUID      `json:"relatedOrderId,omitempty"`
	BranchID        *uuid.UUID      `json:"branch,omitempty"`
}

type AssignTechnicianRequest struct {
	WorkOrderID  uuid.UUID `json:"workOrderId" validate:"required"`
	TechnicianID uuid.UUID `json:"technicianId" validate:"required"`
	Instructions string    `json:"instructions,omitempty"`
}

type ApproveWorkOrderRequest struct {
	WorkOrderID uuid.UUID `json:"workOrderId" validate:"required"`
	Remark      string    `json:"remark" validate:"required"`
}

type UpdateWorkOrderStatusRequest struct {
	WorkOrderID uuid.UUID        `json:"workOrderId" validate:"required"`
	Status      lifecycle.Status `json:"status" validate:"required"`
	Remark      string           `json:"remark,omitempty"`
}

// TransferRequest moves a work order to another manager or branch. With neither
// target set it goes back to the managers of its own branch.
type TransferRequest struct {
	WorkOrderID uuid.UUID  `json:"workOrderId" validate:"required"`
	Remark      string     `json:"remark" validate:"required"`
	ToBranchID  *uuid.UUID `json:"toBranch,omitempty"`
	ToManagerID *uuid.UUID `json:"toManager,omitempty"`
}

type AcceptTransferRequest struct {
	WorkOrderID uuid.UUID `json:"workOrderId" validate:"required"`
	Remark      string    `json:"remark" validate:"required"`
}

type CreateUserRequest struct {
	FirstName string     `json:"firstName" validate:"required,max=100"`
	LastName  string     `json:"lastName" validate:"required,max=100"`
	Username  string     `json:"username" validate:"required,max=100"`
	Email     string     `json:"email" validate:"required,email,max=255"`
	Phone     string     `json:"phone,omitempty" validate:"max=50"`
	Role      UserRole   `json:"role" validate:"required,oneof=admin manager technician"`
	BranchID  *uuid.UUID `json:"branch,omitempty"`
	Password  string     `json:"password" validate:"required,min=8,max=72"`
}

type CreateBranchRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	Location string `json:"location,omitempty" validate:"max=500"`
}

type RegisterWarrantyRequest struct {
	SerialNumber     string `json:"serialNumber" validate:"required,max=100"`
	IssueDescription string `json:"issueDescription" validate:"required"`
	IssueCheckedBy   string `json:"issueCheckedBy" validate:"required,max=200"`
	ProductName      string `json:"productName,omitempty"`
	CustomerName     string `json:"customerName,omitempty"`
	CustomerPhone    string `json:"customerPhone,omitempty"`
}

type CompleteWarrantyRequest struct {
	ReplacementID   uuid.UUID `json:"replacementId" validate:"required"`
	NewSerialNumber string    `json:"newSerialNumber" validate:"required,max=100"`
}

type UpdateWarrantyClaimRequest struct {
	ReplacementID uuid.UUID       `json:"replacementId" validate:"required"`
	Status        warranty.Status `json:"status" validate:"required,oneof=approved rejected"`
	Remark        string          `json:"remark,omitempty"`
}

type BillItemRequest struct {
	Description string          `json:"description" validate:"required,max=500"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

type CreateBillRequest struct {
	WorkOrderID uuid.UUID         `json:"workOrderId" validate:"required"`
	Items       []BillItemRequest `json:"items" validate:"required,min=1,dive"`
	Notes       string            `json:"notes,omitempty"`
}

type SignInRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// WorkOrderFilters narrows work order listings
type WorkOrderFilters struct {
	BranchID     *uuid.UUID
	Status       *lifecycle.Status
	TechnicianID *uuid.UUID
	CustomerID   *uuid.UUID
}
