package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fieldline/crm-api/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	billItems  []string
	billNotes  string
	billOutput string
)

// parseBillItem reads "description:quantity:unit price"
func parseBillItem(raw string) (domain.BillItemRequest, error) {
	idx := strings.LastIndex(raw, ":")
	if idx < 0 {
		return domain.BillItemRequest{}, domain.NewValidationError("item", "expected description:quantity:price")
	}
	rest, priceText := raw[:idx], raw[idx+1:]
	idx = strings.LastIndex(rest, ":")
	if idx < 0 {
		return domain.BillItemRequest{}, domain.NewValidationError("item", "expected description:quantity:price")
	}
	description, qtyText := rest[:idx], rest[idx+1:]

	qty, err := decimal.NewFromString(strings.TrimSpace(qtyText))
	if err != nil {
		return domain.BillItemRequest{}, domain.NewValidationError("item", fmt.Sprintf("bad quantity %q", qtyText))
	}
	price, err := decimal.NewFromString(strings.TrimSpace(priceText))
	if err != nil {
		return domain.BillItemRequest{}, domain.NewValidationError("item", fmt.Sprintf("bad price %q", priceText))
	}
	return domain.BillItemRequest{Description: strings.TrimSpace(description), Quantity: qty, UnitPrice: price}, nil
}

func renderBills(bills []domain.BillDTO) string {
	rows := make([][]string, 0, len(bills))
	for _, b := range bills {
		rows = append(rows, []string{b.BillNumber, b.ID.String(), fmt.Sprintf("%d", len(b.Items)), b.Total.StringFixed(2), string(b.PaymentStatus), day(b.CreatedAt)})
	}
	return renderTable([]string{"BILL", "ID", "ITEMS", "TOTAL", "PAYMENT", "CREATED"}, rows)
}

func renderBill(b *domain.BillDTO) string {
	out := renderFields("Bill "+b.BillNumber, [][2]string{
		{"Order", b.OrderID},
		{"Customer", b.CustomerName},
		{"Payment", string(b.PaymentStatus)},
		{"Notes", b.Notes},
	})
	rows := make([][]string, 0, len(b.Items)+1)
	for _, item := range b.Items {
		rows = append(rows, []string{item.Description, item.Quantity.String(), item.UnitPrice.StringFixed(2), item.Amount.StringFixed(2)})
	}
	rows = append(rows, []string{titleStyle.Render("Total"), "", "", titleStyle.Render(b.Total.StringFixed(2))})
	return out + "\n" + renderTable([]string{"DESCRIPTION", "QTY", "UNIT PRICE", "AMOUNT"}, rows)
}

var billCmd = &cobra.Command{
	Use:   "bill",
	Short: "Create bills and download them as PDF",
}

var billCreateCmd = &cobra.Command{
	Use:   "create <work-order-id>",
	Short: "Bill a work order",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(ctx context.Context, a *app, args []string) error {
		workOrderID, err := parseID("work-order-id", args[0])
		if err != nil {
			return err
		}
		req := domain.CreateBillRequest{WorkOrderID: workOrderID, Notes: billNotes}
		for _, raw := range billItems {
			item, err := parseBillItem(raw)
			if err != nil {
				return err
			}
			req.Items = append(req.Items, item)
		}
		bill, err := a.client.CreateBill(ctx, req)
		if err != nil {
			return err
		}
		fmt.Println(renderBill(bill))
		return nil
	}),
}

var billShowCmd = &cobra.Command{
	Use:   "show <bill-id>",
	Short: "Show a bill",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(ctx context.Context, a *app, args []string) error {
		id, err := parseID("bill-id", args[0])
		if err != nil {
			return err
		}
		bill, err := a.client.Bill(ctx, id)
		if err != nil {
			return err
		}
		fmt.Println(renderBill(bill))
		return nil
	}),
}

var billPDFCmd = &cobra.Command{
	Use:   "pdf <bill-id>",
	Short: "Download a bill as PDF",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(ctx context.Context, a *app, args []string) error {
		id, err := parseID("bill-id", args[0])
		if err != nil {
			return err
		}
		data, err := a.client.BillPDF(ctx, id)
		if err != nil {
			return err
		}
		out := billOutput
		if out == "" {
			out = id.String() + ".pdf"
		}
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", out, err)
		}
		fmt.Println(okStyle.Render(fmt.Sprintf("wrote %s (%d bytes)", out, len(data))))
		return nil
	}),
}

func init() {
	billCreateCmd.Flags().StringArrayVar(&billItems, "item", nil, "Line item as description:quantity:price (repeat flag)")
	billCreateCmd.Flags().StringVar(&billNotes, "notes", "", "Notes printed on the bill")
	billPDFCmd.Flags().StringVarP(&billOutput, "output", "o", "", "Output file (default <bill-id>.pdf)")
	billCmd.AddCommand(billCreateCmd, billShowCmd, billPDFCmd)
	rootCmd.AddCommand(billCmd)
}
