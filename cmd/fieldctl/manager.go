package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fieldline/crm-api/internal/cache"
	"github.com/fieldline/crm-api/internal/domain"
	"github.com/spf13/cobra"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show the manager overview of the branch",
	RunE: run(func(ctx context.Context, a *app, _ []string) error {
		d, err := a.client.Dashboard(ctx)
		if err != nil {
			return err
		}

		tile := func(label string, n int) string {
			return boxStyle.Width(18).Render(headerStyle.Render(label) + "\n" + titleStyle.Render(fmt.Sprintf("%d", n)))
		}
		fmt.Println(lipgloss.JoinHorizontal(lipgloss.Top,
			tile("Unassigned", d.Counts.Unassigned),
			tile("Pending approval", d.Counts.PendingApprovals),
			tile("In progress", d.Counts.InProgress),
			tile("Transferred", d.Counts.Transferred),
			tile("Completed", d.Counts.Completed),
		))

		sections := []struct {
			title  string
			orders []domain.WorkOrderDTO
		}{
			{"Unassigned", d.Unassigned},
			{"Pending approval", d.Buckets.PendingApprovals},
			{"In progress", d.Buckets.InProgress},
			{"Transferred", d.Buckets.Transferred},
		}
		for _, s := range sections {
			if len(s.orders) == 0 {
				continue
			}
			fmt.Println()
			fmt.Println(titleStyle.Render(s.title))
			fmt.Println(renderTable(workOrderHeaders, workOrderRows(s.orders)))
		}
		return nil
	}),
}

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List the orders you manage",
	RunE: run(func(ctx context.Context, a *app, _ []string) error {
		if _, err := narrowOrders(nil); err != nil {
			return err
		}
		fetch := func(ctx context.Context) ([]domain.WorkOrderDTO, error) {
			return a.client.ManagerProjects(ctx, "")
		}
		return showList(ctx, a, cache.KeyManagerProjects, fetch, renderOrders)
	}),
}

var techniciansCmd = &cobra.Command{
	Use:   "technicians",
	Short: "Show technicians of your branch with their workload",
	RunE: run(func(ctx context.Context, a *app, _ []string) error {
		technicians, err := a.client.ManagerTechnicians(ctx)
		if err != nil {
			return err
		}

		stats := a.client.TechnicianPerformance(ctx, technicians)
		rows := make([][]string, 0, len(stats))
		var failed []string
		for _, s := range stats {
			name := s.Technician.FirstName + " " + s.Technician.LastName
			if s.Err != nil {
				failed = append(failed, name)
				rows = append(rows, []string{name, s.Technician.Username, errorStyle.Render("unavailable"), "", "", "", "", ""})
				continue
			}
			p := s.Performance
			rows = append(rows, []string{
				name,
				s.Technician.Username,
				fmt.Sprintf("%d", p.Total),
				fmt.Sprintf("%d", p.InProgress),
				fmt.Sprintf("%d", p.PendingApprovals),
				fmt.Sprintf("%d", p.Transferred),
				fmt.Sprintf("%d", p.Completed),
				fmt.Sprintf("%.0f%%", p.CompletionRate),
			})
		}
		fmt.Println(renderTable([]string{"NAME", "USERNAME", "TOTAL", "IN PROGRESS", "PENDING", "TRANSFERRED", "DONE", "RATE"}, rows))
		if len(failed) > 0 {
			fmt.Println(errorStyle.Render("could not load: " + strings.Join(failed, ", ")))
		}
		return nil
	}),
}

func init() {
	projectsCmd.Flags().StringVarP(&ordersStatus, "status", "s", "", "Only orders in this status")
	projectsCmd.Flags().StringVarP(&ordersQuery, "query", "q", "", "Match customer, type, order ID or technician")
	projectsCmd.Flags().BoolVar(&ordersAssignedOnly, "assigned", false, "Only orders with a technician")
	rootCmd.AddCommand(dashboardCmd, projectsCmd, techniciansCmd)
}
