package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fieldline/crm-api/internal/cache"
	"github.com/fieldline/crm-api/internal/domain"
	"github.com/fieldline/crm-api/internal/lifecycle"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	ordersStatus       string
	ordersQuery        string
	ordersAssignedOnly bool
	orderRemark        string
	orderToBranch      string
	orderToManager     string
	orderInstructions  string
	orderOutput        string
	attachmentOutput   string

	orderCustomerID   string
	orderProjectType  string
	orderCategory     string
	orderRelatedOrder string
)

var workOrderHeaders = []string{"ID", "ORDER", "CUSTOMER", "TYPE", "STATUS", "TECHNICIAN", "UPDATED"}

func workOrderRows(orders []domain.WorkOrderDTO) [][]string {
	rows := make([][]string, 0, len(orders))
	for _, o := range orders {
		rows = append(rows, []string{
			short(o.ProjectID),
			o.OrderID,
			o.CustomerName,
			o.ProjectType,
			statusCell(o.Status),
			o.Technician.Person().FullName(),
			day(o.TouchedAt()),
		})
	}
	return rows
}

// narrowOrders applies the --status, --query and --assigned flags and the display order
func narrowOrders(orders []domain.WorkOrderDTO) ([]domain.WorkOrderDTO, error) {
	if ordersStatus != "" {
		status, err := lifecycle.ParseStatus(ordersStatus)
		if err != nil {
			return nil, domain.NewValidationError("status", err.Error())
		}
		kept := orders[:0:0]
		for _, o := range orders {
			if o.Status == status {
				kept = append(kept, o)
			}
		}
		orders = kept
	}
	if ordersAssignedOnly {
		orders = lifecycle.FilterAssignedOnly(orders)
	}
	orders = lifecycle.Filter(orders, ordersQuery)
	return lifecycle.SortForDisplay(orders), nil
}

func renderOrders(orders []domain.WorkOrderDTO) string {
	narrowed, err := narrowOrders(orders)
	if err != nil {
		return errorStyle.Render(err.Error())
	}
	return renderTable(workOrderHeaders, workOrderRows(narrowed))
}

func parseID(name, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, domain.NewValidationError(name, "must be a UUID")
	}
	return id, nil
}

var workOrderKeys = []string{cache.KeyWorkOrders, cache.KeyManagerProjects, cache.KeyTransferredProjects}

var ordersCmd = &cobra.Command{
	Use:     "orders",
	Aliases: []string{"work-orders"},
	Short:   "List and act on work orders",
	RunE: run(func(ctx context.Context, a *app, _ []string) error {
		if _, err := narrowOrders(nil); err != nil {
			return err
		}
		fetch := func(ctx context.Context) ([]domain.WorkOrderDTO, error) {
			return a.client.WorkOrders(ctx, "")
		}
		return showList(ctx, a, cache.KeyWorkOrders, fetch, renderOrders)
	}),
}

var ordersTransfersCmd = &cobra.Command{
	Use:   "transfers",
	Short: "List orders being transferred or already transferred",
	RunE: run(func(ctx context.Context, a *app, _ []string) error {
		fetch := func(ctx context.Context) ([]domain.WorkOrderDTO, error) {
			orders, err := a.client.ManagerProjects(ctx, "")
			if err != nil {
				return nil, err
			}
			return lifecycle.Categorize(orders).Transferred, nil
		}
		return showList(ctx, a, cache.KeyTransferredProjects, fetch, renderOrders)
	}),
}

var ordersShowCmd = &cobra.Command{
	Use:   "show <customer-id> <order-id>",
	Short: "Show one work order with its status history",
	Args:  cobra.ExactArgs(2),
	RunE: run(func(ctx context.Context, a *app, args []string) error {
		customerID, err := parseID("customer-id", args[0])
		if err != nil {
			return err
		}
		o, err := a.client.WorkOrderDetails(ctx, customerID, args[1])
		if err != nil {
			return err
		}

		fields := [][2]string{
			{"Work order", o.ProjectID.String()},
			{"Customer", o.CustomerName + " " + o.CustomerPhone},
			{"Type", fmt.Sprintf("%s (%s)", o.ProjectType, o.ProjectCategory)},
			{"Status", statusCell(o.Status)},
			{"Technician", o.Technician.Person().FullName()},
			{"Manager", o.Manager.Person().FullName()},
			{"Instructions", o.Instructions},
		}
		if o.ApprovedBy != nil {
			fields = append(fields, [2]string{"Approved by", o.ApprovedBy.Person().FullName()})
		}
		if o.TransferRemark != "" {
			fields = append(fields, [2]string{"Transfer", o.TransferRemark})
		}
		if o.TransferTo != nil {
			target := "own branch"
			switch {
			case o.TransferTo.ManagerID != nil:
				target = "manager " + o.TransferTo.ManagerID.String()
			case o.TransferTo.BranchID != nil:
				target = "branch " + o.TransferTo.BranchID.String()
			}
			fields = append(fields, [2]string{"Transfer to", target})
		}
		fmt.Println(renderFields("Order "+o.OrderID, fields))

		rows := make([][]string, 0, len(o.StatusHistory))
		for _, h := range o.StatusHistory {
			rows = append(rows, []string{stamp(h.UpdatedAt), statusCell(h.Status), h.UpdatedBy, h.Remark})
		}
		fmt.Println(renderTable([]string{"WHEN", "STATUS", "BY", "REMARK"}, rows))

		if len(o.BillingInfo) > 0 {
			fmt.Println()
			fmt.Println(renderBills(o.BillingInfo))
		}
		return nil
	}),
}

var ordersCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Open a work order for an existing customer",
	RunE: run(func(ctx context.Context, a *app, _ []string) error {
		customerID, err := parseID("customer", orderCustomerID)
		if err != nil {
			return err
		}
		req := domain.CreateWorkOrderRequest{
			CustomerID:      customerID,
			ProjectType:     orderProjectType,
			ProjectCategory: domain.ProjectCategory(orderCategory),
			InitialRemark:   orderRemark,
			Instructions:    orderInstructions,
		}
		if orderRelatedOrder != "" {
			related, err := parseID("related", orderRelatedOrder)
			if err != nil {
				return err
			}
			req.RelatedOrderID = &related
		}
		o, err := a.client.CreateWorkOrder(ctx, req)
		if err != nil {
			return err
		}
		a.invalidate(ctx, workOrderKeys...)
		fmt.Println(okStyle.Render(fmt.Sprintf("work order %s created (%s)", o.OrderID, o.ProjectID)))
		return nil
	}),
}

// orderAction builds a command taking a work order ID plus optional extra args
func orderAction(use, short string, nargs int, call func(ctx context.Context, a *app, id uuid.UUID, args []string) (*domain.WorkOrderDTO, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(nargs),
		RunE: run(func(ctx context.Context, a *app, args []string) error {
			id, err := parseID("work-order-id", args[0])
			if err != nil {
				return err
			}
			o, err := call(ctx, a, id, args[1:])
			if err != nil {
				return err
			}
			a.invalidate(ctx, workOrderKeys...)
			fmt.Println(okStyle.Render(fmt.Sprintf("%s is now %s", o.OrderID, o.Status)))
			return nil
		}),
	}
}

var ordersAssignCmd = orderAction("assign <work-order-id> <technician-id>", "Assign a technician", 2,
	func(ctx context.Context, a *app, id uuid.UUID, args []string) (*domain.WorkOrderDTO, error) {
		techID, err := parseID("technician-id", args[0])
		if err != nil {
			return nil, err
		}
		return a.client.AssignTechnician(ctx, domain.AssignTechnicianRequest{WorkOrderID: id, TechnicianID: techID, Instructions: orderInstructions})
	})

var ordersStatusCmd = orderAction("status <work-order-id> <status>", "Move an order along as its technician", 2,
	func(ctx context.Context, a *app, id uuid.UUID, args []string) (*domain.WorkOrderDTO, error) {
		status, err := lifecycle.ParseStatus(args[0])
		if err != nil {
			return nil, domain.NewValidationError("status", err.Error())
		}
		return a.client.UpdateStatus(ctx, domain.UpdateWorkOrderStatusRequest{WorkOrderID: id, Status: status, Remark: orderRemark})
	})

var ordersApproveCmd = orderAction("approve <work-order-id>", "Approve a completed job (remark of at least five words)", 1,
	func(ctx context.Context, a *app, id uuid.UUID, _ []string) (*domain.WorkOrderDTO, error) {
		return a.client.Approve(ctx, domain.ApproveWorkOrderRequest{WorkOrderID: id, Remark: orderRemark})
	})

var ordersTransferCmd = orderAction("transfer <work-order-id>", "Ask another manager or branch to take over an order", 1,
	func(ctx context.Context, a *app, id uuid.UUID, _ []string) (*domain.WorkOrderDTO, error) {
		req := domain.TransferRequest{WorkOrderID: id, Remark: orderRemark}
		var err error
		if req.ToBranchID, err = optionalIDFlag("to-branch", orderToBranch); err != nil {
			return nil, err
		}
		if req.ToManagerID, err = optionalIDFlag("to-manager", orderToManager); err != nil {
			return nil, err
		}
		return a.client.RequestTransfer(ctx, req)
	})

// optionalIDFlag parses a UUID flag that may be left empty
func optionalIDFlag(name, raw string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := parseID(name, raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

var ordersAcceptCmd = orderAction("accept <work-order-id>", "Accept a transfer (remark of at least five words)", 1,
	func(ctx context.Context, a *app, id uuid.UUID, _ []string) (*domain.WorkOrderDTO, error) {
		return a.client.AcceptTransfer(ctx, domain.AcceptTransferRequest{WorkOrderID: id, Remark: orderRemark})
	})

var ordersExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Download work orders as an Excel workbook",
	RunE: run(func(ctx context.Context, a *app, _ []string) error {
		var status lifecycle.Status
		if ordersStatus != "" {
			s, err := lifecycle.ParseStatus(ordersStatus)
			if err != nil {
				return domain.NewValidationError("status", err.Error())
			}
			status = s
		}
		data, err := a.client.ExportWorkOrders(ctx, status)
		if err != nil {
			return err
		}
		if err := os.WriteFile(orderOutput, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", orderOutput, err)
		}
		fmt.Println(okStyle.Render(fmt.Sprintf("wrote %s (%d bytes)", orderOutput, len(data))))
		return nil
	}),
}

var ordersAttachmentsCmd = &cobra.Command{
	Use:   "attachments <work-order-id>",
	Short: "List files attached to an order",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(ctx context.Context, a *app, args []string) error {
		id, err := parseID("work-order-id", args[0])
		if err != nil {
			return err
		}
		attachments, err := a.client.Attachments(ctx, id)
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(attachments))
		for _, at := range attachments {
			rows = append(rows, []string{at.ID.String(), at.Filename, at.ContentType, fmt.Sprintf("%d", at.Size), stamp(at.CreatedAt)})
		}
		fmt.Println(renderTable([]string{"ID", "FILE", "TYPE", "BYTES", "UPLOADED"}, rows))
		return nil
	}),
}

var ordersAttachmentGetCmd = &cobra.Command{
	Use:   "attachment <attachment-id>",
	Short: "Download an attached file",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(ctx context.Context, a *app, args []string) error {
		id, err := parseID("attachment-id", args[0])
		if err != nil {
			return err
		}
		data, err := a.client.DownloadAttachment(ctx, id)
		if err != nil {
			return err
		}
		out := attachmentOutput
		if out == "" {
			out = id.String()
		}
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", out, err)
		}
		fmt.Println(okStyle.Render(fmt.Sprintf("wrote %s (%d bytes)", out, len(data))))
		return nil
	}),
}

func init() {
	for _, c := range []*cobra.Command{ordersCmd, ordersTransfersCmd} {
		c.Flags().StringVarP(&ordersQuery, "query", "q", "", "Match customer, type, order ID or technician")
		c.Flags().BoolVar(&ordersAssignedOnly, "assigned", false, "Only orders with a technician")
	}
	ordersCmd.Flags().StringVarP(&ordersStatus, "status", "s", "", "Only orders in this status")
	ordersExportCmd.Flags().StringVarP(&ordersStatus, "status", "s", "", "Only orders in this status")
	ordersExportCmd.Flags().StringVarP(&orderOutput, "output", "o", "work-orders.xlsx", "Output file")

	ordersCreateCmd.Flags().StringVar(&orderCustomerID, "customer", "", "Customer ID")
	ordersCreateCmd.Flags().StringVar(&orderProjectType, "project-type", "", "Project type, e.g. a product name")
	ordersCreateCmd.Flags().StringVar(&orderCategory, "category", string(domain.CategoryNewInstallation), "\"New Installation\" or \"Repair\"")
	ordersCreateCmd.Flags().StringVar(&orderRelatedOrder, "related", "", "Completed order a repair refers to")
	ordersCreateCmd.Flags().StringVar(&orderRemark, "remark", "", "Initial remark")

	for _, c := range []*cobra.Command{ordersCreateCmd, ordersAssignCmd} {
		c.Flags().StringVar(&orderInstructions, "instructions", "", "Instructions for the technician")
	}
	for _, c := range []*cobra.Command{ordersStatusCmd, ordersApproveCmd, ordersTransferCmd, ordersAcceptCmd} {
		c.Flags().StringVarP(&orderRemark, "remark", "r", "", "Remark recorded in the status history")
	}

	ordersTransferCmd.Flags().StringVar(&orderToBranch, "to-branch", "", "Branch that should take over")
	ordersTransferCmd.Flags().StringVar(&orderToManager, "to-manager", "", "Manager that should take over")
	ordersAttachmentGetCmd.Flags().StringVarP(&attachmentOutput, "output", "o", "", "Output file (default: the attachment ID)")

	ordersCmd.AddCommand(ordersTransfersCmd, ordersShowCmd, ordersCreateCmd, ordersAssignCmd, ordersStatusCmd,
		ordersApproveCmd, ordersTransferCmd, ordersAcceptCmd, ordersExportCmd, ordersAttachmentsCmd, ordersAttachmentGetCmd)
	rootCmd.AddCommand(ordersCmd)
}
