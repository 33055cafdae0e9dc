package main

import (
	"context"
	"fmt"

	"github.com/fieldline/crm-api/internal/domain"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var inventoryTechnician string

func renderInventory(items []domain.InventoryItemDTO) string {
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		installed := ""
		if it.InstallationDate != nil {
			installed = day(*it.InstallationDate)
		}
		rows = append(rows, []string{it.SerialNumber, it.ProductName, string(it.Type), it.CustomerName, fmt.Sprintf("%d", it.Quantity), it.WarrantyPeriod, installed})
	}
	return renderTable([]string{"SERIAL", "PRODUCT", "TYPE", "CUSTOMER", "QTY", "WARRANTY", "INSTALLED"}, rows)
}

var inventoryCmd = &cobra.Command{
	Use:   "inventory",
	Short: "Look up installed units and stock",
}

var inventoryTypeCmd = &cobra.Command{
	Use:   "type <type>",
	Short: "List items of one type",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(ctx context.Context, a *app, args []string) error {
		items, err := a.client.InventoryByType(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Println(renderInventory(items))
		return nil
	}),
}

var inventoryMineCmd = &cobra.Command{
	Use:   "technician",
	Short: "List items installed by a technician (default yourself)",
	RunE: run(func(ctx context.Context, a *app, _ []string) error {
		var techID *uuid.UUID
		if inventoryTechnician != "" {
			id, err := parseID("technician", inventoryTechnician)
			if err != nil {
				return err
			}
			techID = &id
		}
		items, err := a.client.TechnicianInventory(ctx, techID)
		if err != nil {
			return err
		}
		fmt.Println(renderInventory(items))
		return nil
	}),
}

var inventorySerialCmd = &cobra.Command{
	Use:   "serial <serial>",
	Short: "Show everything known about a serial number",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(ctx context.Context, a *app, args []string) error {
		d, err := a.client.SerialDetails(ctx, args[0])
		if err != nil {
			return err
		}
		fields := [][2]string{
			{"Product", d.Item.ProductName},
			{"Type", string(d.Item.Type)},
			{"Customer", d.Item.CustomerName},
			{"Warranty", coverageText(d.Warranty)},
		}
		if d.Replacement != nil {
			fields = append(fields, [2]string{"Claim", fmt.Sprintf("%s (%s)", d.Replacement.Status, d.Replacement.ID)})
		}
		fmt.Println(renderFields(args[0], fields))
		return nil
	}),
}

func init() {
	inventoryMineCmd.Flags().StringVar(&inventoryTechnician, "technician", "", "Technician ID")
	inventoryCmd.AddCommand(inventoryTypeCmd, inventoryMineCmd, inventorySerialCmd)
	rootCmd.AddCommand(inventoryCmd)
}
