package mapper

import (
	"github.com/fieldline/crm-api/internal/domain"
	"github.com/fieldline/crm-api/internal/warranty"
)

// ToUserRefDTO converts a user to its compact reference; nil stays nil
func ToUserRefDTO(user *domain.User) *domain.UserRefDTO {
	if user == nil {
		return nil
	}
	return &domain.UserRefDTO{
		ID:        user.ID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}
}

// ToUserDTO converts User to UserDTO
func ToUserDTO(user *domain.User) domain.UserDTO {
	dto := domain.UserDTO{
		ID:          user.ID,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		Username:    user.Username,
		Email:       user.Email,
		Phone:       user.Phone,
		Role:        user.Role,
		BranchID:    user.BranchID,
		Status:      user.Status,
		LastLoginAt: user.LastLoginAt,
		CreatedAt:   user.CreatedAt,
	}
	if user.Branch != nil {
		dto.BranchName = user.Branch.Name
	}
	return dto
}

// ToBranchDTO converts Branch to BranchDTO
func ToBranchDTO(branch *domain.Branch) domain.BranchDTO {
	return domain.BranchDTO{
		ID:        branch.ID,
		Name:      branch.Name,
		Location:  branch.Location,
		CreatedBy: branch.CreatedBy,
		CreatedAt: branch.CreatedAt,
	}
}

// ToLeadDTO converts Lead to LeadDTO
func ToLeadDTO(lead *domain.Lead) domain.LeadDTO {
	remarks := make([]domain.LeadRemarkDTO, 0, len(lead.Remarks))
	for _, remark := range lead.Remarks {
		remarks = append(remarks, domain.LeadRemarkDTO{
			Text:      remark.Text,
			Status:    remark.Status,
			CreatedAt: remark.CreatedAt,
			CreatedBy: remark.CreatedBy,
		})
	}
	return domain.LeadDTO{
		ID:          lead.ID,
		Name:        lead.Name,
		Phone:       lead.Phone,
		Email:       lead.Email,
		Address:     lead.Address,
		Status:      lead.Status,
		Remarks:     remarks,
		BranchID:    lead.BranchID,
		Converted:   lead.Converted,
		ConvertedAt: lead.ConvertedAt,
		CustomerID:  lead.CustomerID,
		CreatedAt:   lead.CreatedAt,
		UpdatedAt:   lead.UpdatedAt,
	}
}

// ToCustomerDTO converts Customer to CustomerDTO, including any loaded work orders
func ToCustomerDTO(customer *domain.Customer) domain.CustomerDTO {
	dto := domain.CustomerDTO{
		ID:                customer.ID,
		Name:              customer.Name,
		Phone:             customer.Phone,
		Email:             customer.Email,
		Address:           customer.Address,
		ConvertedFromLead: customer.ConvertedFromLead,
		LeadID:            customer.LeadID,
		BranchID:          customer.BranchID,
		CreatedAt:         customer.CreatedAt,
		UpdatedAt:         customer.UpdatedAt,
	}
	for i := range customer.WorkOrders {
		wo := customer.WorkOrders[i]
		if wo.Customer == nil {
			wo.Customer = customer
		}
		dto.Projects = append(dto.Projects, ToWorkOrderDTO(&wo))
	}
	return dto
}

// LeadToContactDTO converts a lead to a merged contact row
func LeadToContactDTO(lead *domain.Lead) domain.ContactDTO {
	return domain.ContactDTO{
		ID:        lead.ID,
		Kind:      domain.ContactKindLead,
		Name:      lead.Name,
		Phone:     lead.Phone,
		Email:     lead.Email,
		Status:    lead.Status,
		CreatedAt: lead.CreatedAt,
	}
}

// CustomerToContactDTO converts a customer to a merged contact row
func CustomerToContactDTO(customer *domain.Customer) domain.ContactDTO {
	return domain.ContactDTO{
		ID:        customer.ID,
		Kind:      domain.ContactKindCustomer,
		Name:      customer.Name,
		Phone:     customer.Phone,
		Email:     customer.Email,
		CreatedAt: customer.CreatedAt,
	}
}

// ToWorkOrderDTO converts WorkOrder to WorkOrderDTO
func ToWorkOrderDTO(workOrder *domain.WorkOrder) domain.WorkOrderDTO {
	dto := domain.WorkOrderDTO{
		ProjectID:       workOrder.ID,
		OrderID:         workOrder.OrderID,
		CustomerID:      workOrder.CustomerID,
		ProjectType:     workOrder.ProjectType,
		ProjectCategory: workOrder.ProjectCategory,
		Status:          workOrder.Status,
		Technician:      ToUserRefDTO(workOrder.Technician),
		Manager:         ToUserRefDTO(workOrder.Manager),
		ApprovedBy:      ToUserRefDTO(workOrder.ApprovedBy),
		BranchID:        workOrder.BranchID,
		InitialRemark:   workOrder.InitialRemark,
		Instructions:    workOrder.Instructions,
		RelatedOrderID:  workOrder.RelatedOrderID,
		TransferRemark:  workOrder.TransferRemark,
		StatusHistory:   make([]domain.StatusHistoryDTO, 0, len(workOrder.StatusHistory)),
		CreatedAt:       workOrder.CreatedAt,
		UpdatedAt:       workOrder.UpdatedAt,
		CompletedAt:     workOrder.CompletedAt,
	}

	if workOrder.TransferToBranchID != nil || workOrder.TransferToManagerID != nil {
		dto.TransferTo = &domain.TransferTargetDTO{
			BranchID:  workOrder.TransferToBranchID,
			ManagerID: workOrder.TransferToManagerID,
		}
	}

	if workOrder.Customer != nil {
		dto.CustomerName = workOrder.Customer.Name
		dto.CustomerPhone = workOrder.Customer.Phone
	}

	for _, entry := range workOrder.StatusHistory {
		dto.StatusHistory = append(dto.StatusHistory, domain.StatusHistoryDTO{
			Status:    entry.Status,
			Remark:    entry.Remark,
			UpdatedAt: entry.CreatedAt,
			UpdatedBy: entry.UpdatedBy,
		})
	}

	for i := range workOrder.Bills {
		dto.BillingInfo = append(dto.BillingInfo, ToBillDTO(&workOrder.Bills[i]))
	}

	return dto
}

// ToWorkOrderDTOs converts a slice of work orders
func ToWorkOrderDTOs(workOrders []domain.WorkOrder) []domain.WorkOrderDTO {
	dtos := make([]domain.WorkOrderDTO, 0, len(workOrders))
	for i := range workOrders {
		dtos = append(dtos, ToWorkOrderDTO(&workOrders[i]))
	}
	return dtos
}

// ToInventoryItemDTO converts InventoryItem to InventoryItemDTO
func ToInventoryItemDTO(item *domain.InventoryItem) domain.InventoryItemDTO {
	dto := domain.InventoryItemDTO{
		ID:               item.ID,
		SerialNumber:     item.SerialNumber,
		ProductName:      item.ProductName,
		Type:             item.Type,
		BranchID:         item.BranchID,
		TechnicianID:     item.TechnicianID,
		CustomerID:       item.CustomerID,
		WorkOrderID:      item.WorkOrderID,
		WarrantyPeriod:   item.WarrantyPeriod,
		InstallationDate: item.InstallationDate,
		Quantity:         item.Quantity,
	}
	if item.Customer != nil {
		dto.CustomerName = item.Customer.Name
		dto.CustomerPhone = item.Customer.Phone
	}
	return dto
}

// ToWarrantyRecord converts the stored replacement into the state machine's record
func ToWarrantyRecord(replacement *domain.WarrantyReplacement) *warranty.Record {
	if replacement == nil {
		return nil
	}
	record := &warranty.Record{
		SerialNumber:        replacement.SerialNumber,
		CurrentSerialNumber: replacement.CurrentSerialNumber,
		ProductName:         replacement.ProductName,
		CustomerName:        replacement.CustomerName,
		CustomerPhone:       replacement.CustomerPhone,
		Status:              replacement.Status,
		RegisteredAt:        replacement.RegisteredAt,
		Remark:              replacement.Remark,
		Issues:              make([]warranty.Issue, 0, len(replacement.Issues)),
	}
	for _, issue := range replacement.Issues {
		record.Issues = append(record.Issues, warranty.Issue{
			IssueDescription:        issue.IssueDescription,
			IssueCheckedBy:          issue.IssueCheckedBy,
			ReportedAt:              issue.ReportedAt,
			ReplacementSerialNumber: issue.ReplacementSerialNumber,
			ReplacedAt:              issue.ReplacedAt,
		})
	}
	return record
}

// ApplyWarrantyRecord copies a state machine result onto the stored replacement.
// Existing issues keep their identity by position; new ones are appended.
func ApplyWarrantyRecord(replacement *domain.WarrantyReplacement, record *warranty.Record) {
	replacement.SerialNumber = record.SerialNumber
	replacement.CurrentSerialNumber = record.CurrentSerialNumber
	replacement.ProductName = record.ProductName
	replacement.CustomerName = record.CustomerName
	replacement.CustomerPhone = record.CustomerPhone
	replacement.Status = record.Status
	replacement.RegisteredAt = record.RegisteredAt
	replacement.Remark = record.Remark

	for i, issue := range record.Issues {
		if i >= len(replacement.Issues) {
			replacement.Issues = append(replacement.Issues, domain.WarrantyIssue{})
		}
		stored := &replacement.Issues[i]
		stored.Sequence = i + 1
		stored.IssueDescription = issue.IssueDescription
		stored.IssueCheckedBy = issue.IssueCheckedBy
		stored.ReportedAt = issue.ReportedAt
		stored.ReplacementSerialNumber = issue.ReplacementSerialNumber
		stored.ReplacedAt = issue.ReplacedAt
	}
}

// ToWarrantyReplacementDTO converts WarrantyReplacement to its DTO
func ToWarrantyReplacementDTO(replacement *domain.WarrantyReplacement) domain.WarrantyReplacementDTO {
	dto := domain.WarrantyReplacementDTO{
		ID:                  replacement.ID,
		SerialNumber:        replacement.SerialNumber,
		CurrentSerialNumber: replacement.CurrentSerialNumber,
		ProductName:         replacement.ProductName,
		CustomerName:        replacement.CustomerName,
		CustomerPhone:       replacement.CustomerPhone,
		Status:              replacement.Status,
		Issues:              make([]domain.WarrantyIssueDTO, 0, len(replacement.Issues)),
		RegisteredAt:        replacement.RegisteredAt,
		Remark:              replacement.Remark,
	}
	for _, issue := range replacement.Issues {
		dto.Issues = append(dto.Issues, domain.WarrantyIssueDTO{
			IssueDescription:        issue.IssueDescription,
			IssueCheckedBy:          issue.IssueCheckedBy,
			ReportedAt:              issue.ReportedAt,
			ReplacementSerialNumber: issue.ReplacementSerialNumber,
			ReplacedAt:              issue.ReplacedAt,
		})
	}
	return dto
}

// ToBillDTO converts Bill to BillDTO
func ToBillDTO(bill *domain.Bill) domain.BillDTO {
	dto := domain.BillDTO{
		ID:            bill.ID,
		BillNumber:    bill.BillNumber,
		WorkOrderID:   bill.WorkOrderID,
		Items:         make([]domain.BillItemDTO, 0, len(bill.Items)),
		Total:         bill.Total,
		PaymentStatus: bill.PaymentStatus,
		Notes:         bill.Notes,
		CreatedAt:     bill.CreatedAt,
	}
	if bill.WorkOrder != nil {
		dto.OrderID = bill.WorkOrder.OrderID
		if bill.WorkOrder.Customer != nil {
			dto.CustomerName = bill.WorkOrder.Customer.Name
		}
	}
	for _, item := range bill.Items {
		dto.Items = append(dto.Items, domain.BillItemDTO{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Amount:      item.Amount,
		})
	}
	return dto
}

// ToAttachmentDTO converts Attachment to AttachmentDTO
func ToAttachmentDTO(attachment *domain.Attachment) domain.AttachmentDTO {
	return domain.AttachmentDTO{
		ID:          attachment.ID,
		WorkOrderID: attachment.WorkOrderID,
		Filename:    attachment.Filename,
		ContentType: attachment.ContentType,
		Size:        attachment.Size,
		CreatedAt:   attachment.CreatedAt,
	}
}

// ToNotificationDTO converts Notification to NotificationDTO
func ToNotificationDTO(notification *domain.Notification) domain.NotificationDTO {
	return domain.NotificationDTO{
		ID:         notification.ID,
		Type:       notification.Type,
		Title:      notification.Title,
		Message:    notification.Message,
		Read:       notification.Read,
		ReadAt:     notification.ReadAt,
		EntityID:   notification.EntityID,
		EntityType: notification.EntityType,
		CreatedAt:  notification.CreatedAt,
	}
}
