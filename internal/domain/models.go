package domain

import (
	"time"

	"github.com/fieldline/crm-api/internal/lifecycle"
	"github.com/fieldline/crm-api/internal/warranty"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// BeforeCreate assigns an ID when the caller did not
func (m *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// Branch is a regional office. Managers and technicians belong to one.
type Branch struct {
	BaseModel
	Name      string     `gorm:"type:varchar(200);not null;uniqueIndex"`
	Location  string     `gorm:"type:varchar(500)"`
	CreatedBy *uuid.UUID `gorm:"type:uuid;column:created_by"`
}

// UserRole represents the role of a user
type UserRole string

const (
	RoleAdmin      UserRole = "admin"
	RoleManager    UserRole = "manager"
	RoleTechnician UserRole = "technician"
)

// IsValid checks if the UserRole is a valid enum value
func (r UserRole) IsValid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleTechnician:
		return true
	}
	return false
}

// UserStatus represents whether a user can sign in and receive work
type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
)

// User represents a staff member. Technicians are users with RoleTechnician.
type User struct {
	BaseModel
	FirstName    string     `gorm:"type:varchar(100);not null;column:first_name"`
	LastName     string     `gorm:"type:varchar(100);not null;column:last_name"`
	Username     string     `gorm:"type:varchar(100);not null;uniqueIndex"`
	Email        string     `gorm:"type:varchar(255);not null;uniqueIndex"`
	Phone        string     `gorm:"type:varchar(50)"`
	Role         UserRole   `gorm:"type:varchar(50);not null;index"`
	BranchID     *uuid.UUID `gorm:"type:uuid;index;column:branch_id"`
	Branch       *Branch    `gorm:"foreignKey:BranchID"`
	Status       UserStatus `gorm:"type:varchar(20);not null;default:'active'"`
	PasswordHash string     `gorm:"type:varchar(255);not null;column:password_hash"`
	LastLoginAt  *time.Time `gorm:"column:last_login_at"`
}

// FullName returns the user's full name
func (u *User) FullName() string {
	if u == nil {
		return ""
	}
	return u.FirstName + " " + u.LastName
}

// IsActive reports whether the user may sign in
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// LeadStatus is the sales temperature of a lead
type LeadStatus string

const (
	LeadStatusPositive LeadStatus = "positive"
	LeadStatusNeutral  LeadStatus = "neutral"
	LeadStatusNegative LeadStatus = "negative"
)

// IsValid checks if the LeadStatus is a valid enum value
func (s LeadStatus) IsValid() bool {
	switch s {
	case LeadStatusPositive, LeadStatusNeutral, LeadStatusNegative:
		return true
	}
	return false
}

// Lead represents a prospective customer. Conversion flags it instead of deleting it.
type Lead struct {
	BaseModel
	Name        string       `gorm:"type:varchar(200);not null;index"`
	Phone       string       `gorm:"type:varchar(50);not null"`
	Email       string       `gorm:"type:varchar(255)"`
	Address     string       `gorm:"type:varchar(500)"`
	Status      LeadStatus   `gorm:"type:varchar(20);not null;default:'neutral';index"`
	Remarks     []LeadRemark `gorm:"foreignKey:LeadID;constraint:OnDelete:CASCADE"`
	BranchID    *uuid.UUID   `gorm:"type:uuid;index;column:branch_id"`
	Converted   bool         `gorm:"not null;default:false;index"`
	ConvertedAt *time.Time   `gorm:"column:converted_at"`
	CustomerID  *uuid.UUID   `gorm:"type:uuid;column:customer_id"`
	CreatedByID *uuid.UUID   `gorm:"type:uuid;column:created_by_id"`
}

// LeadRemark is a timestamped note on a lead
type LeadRemark struct {
	BaseModel
	LeadID    uuid.UUID  `gorm:"type:uuid;not null;index"`
	Text      string     `gorm:"type:text;not null"`
	Status    LeadStatus `gorm:"type:varchar(20);not null"`
	CreatedBy string     `gorm:"type:varchar(200);column:created_by"`
}

// Customer represents a client, either created directly or converted from a lead
type Customer struct {
	BaseModel
	Name              string      `gorm:"type:varchar(200);not null;index"`
	Phone             string      `gorm:"type:varchar(50);not null"`
	Email             string      `gorm:"type:varchar(255)"`
	Address           string      `gorm:"type:varchar(500)"`
	ConvertedFromLead bool        `gorm:"not null;default:false;column:converted_from_lead"`
	LeadID            *uuid.UUID  `gorm:"type:uuid;column:lead_id"`
	BranchID          *uuid.UUID  `gorm:"type:uuid;index;column:branch_id"`
	WorkOrders        []WorkOrder `gorm:"foreignKey:CustomerID"`
}

// ProjectCategory distinguishes new installations from repair complaints
type ProjectCategory string

const (
	CategoryNewInstallation ProjectCategory = "New Installation"
	CategoryRepair          ProjectCategory = "Repair"
)

// IsValid checks if the ProjectCategory is a valid enum value
func (c ProjectCategory) IsValid() bool {
	return c == CategoryNewInstallation || c == CategoryRepair
}

// WorkOrder is a unit of field work. Screens also call it a project.
type WorkOrder struct {
	BaseModel
	OrderID               string           `gorm:"type:varchar(50);not null;uniqueIndex;column:order_id"`
	CustomerID            uuid.UUID        `gorm:"type:uuid;not null;index"`
	Customer              *Customer        `gorm:"foreignKey:CustomerID"`
	ProjectType           string           `gorm:"type:varchar(200);not null;column:project_type"`
	ProjectCategory       ProjectCategory  `gorm:"type:varchar(50);not null;column:project_category"`
	Status                lifecycle.Status `gorm:"type:varchar(50);not null;index"`
	TechnicianID          *uuid.UUID       `gorm:"type:uuid;index;column:technician_id"`
	Technician            *User            `gorm:"foreignKey:TechnicianID"`
	ManagerID             *uuid.UUID       `gorm:"type:uuid;index;column:manager_id"`
	Manager               *User            `gorm:"foreignKey:ManagerID"`
	BranchID              *uuid.UUID       `gorm:"type:uuid;index;column:branch_id"`
	InitialRemark         string           `gorm:"type:text;column:initial_remark"`
	Instructions          string           `gorm:"type:text"`
	RelatedOrderID        *uuid.UUID       `gorm:"type:uuid;column:related_order_id"`
	StatusHistory         []StatusHistory  `gorm:"foreignKey:WorkOrderID;constraint:OnDelete:CASCADE"`
	Bills                 []Bill           `gorm:"foreignKey:WorkOrderID"`
	ApprovedByID          *uuid.UUID       `gorm:"type:uuid;column:approved_by_id"`
	ApprovedBy            *User            `gorm:"foreignKey:ApprovedByID"`
	TransferRequestedByID *uuid.UUID       `gorm:"type:uuid;column:transfer_requested_by_id"`
	TransferRemark        string           `gorm:"type:text;column:transfer_remark"`
	TransferToBranchID    *uuid.UUID       `gorm:"type:uuid;index;column:transfer_to_branch_id"`
	TransferToManagerID   *uuid.UUID       `gorm:"type:uuid;column:transfer_to_manager_id"`
	CompletedAt           *time.Time       `gorm:"column:completed_at"`
}

// StatusHistory records one lifecycle transition of a work order
type StatusHistory struct {
	BaseModel
	WorkOrderID uuid.UUID        `gorm:"type:uuid;not null;index;column:work_order_id"`
	Status      lifecycle.Status `gorm:"type:varchar(50);not null"`
	Remark      string           `gorm:"type:text"`
	UpdatedBy   string           `gorm:"type:varchar(200);column:updated_by"`
	UpdatedByID *uuid.UUID       `gorm:"type:uuid;column:updated_by_id"`
}

// TableName overrides the default plural
func (StatusHistory) TableName() string {
	return "work_order_status_history"
}

// InventoryType classifies stock items
type InventoryType string

const (
	InventorySerialized InventoryType = "serialized"
	InventoryGeneric    InventoryType = "generic"
	InventoryService    InventoryType = "service"
)

// IsValid checks if the InventoryType is a valid enum value
func (t InventoryType) IsValid() bool {
	switch t {
	case InventorySerialized, InventoryGeneric, InventoryService:
		return true
	}
	return false
}

// InventoryItem is stock held by a branch or a technician, or installed at a customer
type InventoryItem struct {
	BaseModel
	SerialNumber     string        `gorm:"type:varchar(100);index;column:serial_number"`
	ProductName      string        `gorm:"type:varchar(200);not null;column:product_name"`
	Type             InventoryType `gorm:"type:varchar(20);not null;index"`
	BranchID         *uuid.UUID    `gorm:"type:uuid;index;column:branch_id"`
	TechnicianID     *uuid.UUID    `gorm:"type:uuid;index;column:technician_id"`
	CustomerID       *uuid.UUID    `gorm:"type:uuid;index;column:customer_id"`
	Customer         *Customer     `gorm:"foreignKey:CustomerID"`
	WorkOrderID      *uuid.UUID    `gorm:"type:uuid;column:work_order_id"`
	WarrantyPeriod   string        `gorm:"type:varchar(100);column:warranty_period"`
	InstallationDate *time.Time    `gorm:"column:installation_date"`
	Quantity         int           `gorm:"not null;default:1"`
}

// WarrantyReplacement is the single replacement history of an installed serial
type WarrantyReplacement struct {
	BaseModel
	SerialNumber        string          `gorm:"type:varchar(100);not null;uniqueIndex;column:serial_number"`
	CurrentSerialNumber string          `gorm:"type:varchar(100);not null;index;column:current_serial_number"`
	ProductName         string          `gorm:"type:varchar(200);column:product_name"`
	CustomerName        string          `gorm:"type:varchar(200);column:customer_name"`
	CustomerPhone       string          `gorm:"type:varchar(50);column:customer_phone"`
	Status              warranty.Status `gorm:"type:varchar(20);not null;index"`
	Issues              []WarrantyIssue `gorm:"foreignKey:ReplacementID;constraint:OnDelete:CASCADE"`
	RegisteredAt        time.Time       `gorm:"not null;column:registered_at"`
	Remark              string          `gorm:"type:text"`
}

// WarrantyIssue is one reported fault on a replacement record
type WarrantyIssue struct {
	BaseModel
	ReplacementID           uuid.UUID  `gorm:"type:uuid;not null;index;column:replacement_id"`
	Sequence                int        `gorm:"not null"`
	IssueDescription        string     `gorm:"type:text;not null;column:issue_description"`
	IssueCheckedBy          string     `gorm:"type:varchar(200);not null;column:issue_checked_by"`
	ReportedAt              time.Time  `gorm:"not null;column:reported_at"`
	ReplacementSerialNumber string     `gorm:"type:varchar(100);column:replacement_serial_number"`
	ReplacedAt              *time.Time `gorm:"column:replaced_at"`
}

// PaymentStatus of a bill
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
)

// Bill is an invoice raised against a work order
type Bill struct {
	BaseModel
	BillNumber    string          `gorm:"type:varchar(50);not null;uniqueIndex;column:bill_number"`
	WorkOrderID   uuid.UUID       `gorm:"type:uuid;not null;index;column:work_order_id"`
	WorkOrder     *WorkOrder      `gorm:"foreignKey:WorkOrderID"`
	Items         []BillItem      `gorm:"foreignKey:BillID;constraint:OnDelete:CASCADE"`
	Total         decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`
	PaymentStatus PaymentStatus   `gorm:"type:varchar(20);not null;default:'pending';column:payment_status"`
	Notes         string          `gorm:"type:text"`
	CreatedByID   *uuid.UUID      `gorm:"type:uuid;column:created_by_id"`
}

// BillItem is one line of a bill
type BillItem struct {
	BaseModel
	BillID      uuid.UUID       `gorm:"type:uuid;not null;index;column:bill_id"`
	Description string          `gorm:"type:varchar(500);not null"`
	Quantity    decimal.Decimal `gorm:"type:decimal(15,2);not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(15,2);not null;column:unit_price"`
	Amount      decimal.Decimal `gorm:"type:decimal(15,2);not null"`
}

// Attachment is a file uploaded against a work order
type Attachment struct {
	BaseModel
	WorkOrderID  uuid.UUID  `gorm:"type:uuid;not null;index;column:work_order_id"`
	Filename     string     `gorm:"type:varchar(255);not null"`
	ContentType  string     `gorm:"type:varchar(100);not null;column:content_type"`
	Size         int64      `gorm:"not null"`
	StoragePath  string     `gorm:"type:varchar(500);not null;uniqueIndex;column:storage_path"`
	UploadedByID *uuid.UUID `gorm:"type:uuid;column:uploaded_by_id"`
}

// NotificationType represents the type of notification
type NotificationType string

const (
	NotificationTypeAssigned         NotificationType = "work_order_assigned"
	NotificationTypeApprovalRequest  NotificationType = "approval_requested"
	NotificationTypeApproved         NotificationType = "work_order_approved"
	NotificationTypeTransferRequest  NotificationType = "transfer_requested"
	NotificationTypeTransferAccepted NotificationType = "transfer_accepted"
	NotificationTypeApprovalReminder NotificationType = "approval_reminder"
	NotificationTypeWarrantyClaim    NotificationType = "warranty_claim"
)

// Notification represents a user notification
type Notification struct {
	BaseModel
	UserID     uuid.UUID  `gorm:"type:uuid;not null;index"`
	Type       string     `gorm:"type:varchar(50);not null"`
	Title      string     `gorm:"type:varchar(200);not null"`
	Message    string     `gorm:"type:varchar(500);not null"`
	Read       bool       `gorm:"column:read;not null;default:false;index"`
	ReadAt     *time.Time `gorm:"column:read_at"`
	EntityID   *uuid.UUID `gorm:"type:uuid"`
	EntityType string     `gorm:"type:varchar(50)"`
}

// NumberSequence tracks the last issued number per prefix and year
type NumberSequence struct {
	ID           uint      `gorm:"primaryKey"`
	Prefix       string    `gorm:"type:varchar(10);not null;uniqueIndex:idx_number_sequence_prefix_year"`
	Year         int       `gorm:"not null;uniqueIndex:idx_number_sequence_prefix_year"`
	LastSequence int       `gorm:"not null;default:0;column:last_sequence"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

// AllModels lists every persisted model in dependency order
func AllModels() []interface{} {
	return []interface{}{
		&Branch{},
		&User{},
		&Lead{},
		&LeadRemark{},
		&Customer{},
		&WorkOrder{},
		&StatusHistory{},
		&InventoryItem{},
		&WarrantyReplacement{},
		&WarrantyIssue{},
		&Bill{},
		&BillItem{},
		&Attachment{},
		&Notification{},
		&NumberSequence{},
	}
}
