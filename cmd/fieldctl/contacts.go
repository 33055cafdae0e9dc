package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/fieldline/crm-api/internal/cache"
	"github.com/fieldline/crm-api/internal/domain"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	contactsQuery string

	leadName         string
	leadPhone        string
	leadEmail        string
	leadAddress      string
	leadRemark       string
	leadRemarkStatus string
	leadProjectType  string
	leadInstructions string

	customerName        string
	customerPhone       string
	customerEmail       string
	customerAddress     string
	customerProjectType string
	customerRemark      string
)

func contactRows(contacts []domain.ContactDTO) [][]string {
	rows := make([][]string, 0, len(contacts))
	for _, c := range contacts {
		rows = append(rows, []string{short(c.ID), string(c.Kind), c.Name, c.Phone, c.Email, string(c.Status), day(c.CreatedAt)})
	}
	return rows
}

var contactHeaders = []string{"ID", "KIND", "NAME", "PHONE", "EMAIL", "LEAD STATUS", "CREATED"}

func matchesContact(c domain.ContactDTO, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(c.Name), q) || strings.Contains(c.Phone, q)
}

var contactsCmd = &cobra.Command{
	Use:   "contacts",
	Short: "List leads and customers together",
	RunE: run(func(ctx context.Context, a *app, _ []string) error {
		return showList(ctx, a, cache.KeyContacts, a.client.Contacts, func(contacts []domain.ContactDTO) string {
			filtered := contacts[:0:0]
			for _, c := range contacts {
				if matchesContact(c, contactsQuery) {
					filtered = append(filtered, c)
				}
			}
			return renderTable(contactHeaders, contactRows(filtered))
		})
	}),
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search leads and customers on the server",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(ctx context.Context, a *app, args []string) error {
		contacts, err := a.client.Search(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Println(renderTable(contactHeaders, contactRows(contacts)))
		return nil
	}),
}

var leadCmd = &cobra.Command{
	Use:   "lead",
	Short: "Create and follow up leads",
}

var leadCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Register a new lead",
	RunE: run(func(ctx context.Context, a *app, _ []string) error {
		req := domain.CreateLeadRequest{Name: leadName, Phone: leadPhone, Email: leadEmail, Address: leadAddress}
		if leadRemark != "" {
			req.Remark = &domain.LeadRemarkRequest{Text: leadRemark, Status: domain.LeadStatus(leadRemarkStatus)}
		}
		lead, err := a.client.CreateLead(ctx, req)
		if err != nil {
			return err
		}
		a.invalidate(ctx, cache.KeyContacts)
		fmt.Println(okStyle.Render(fmt.Sprintf("lead %s created (%s)", lead.Name, lead.ID)))
		return nil
	}),
}

var leadRemarkCmd = &cobra.Command{
	Use:   "remark <lead-id>",
	Short: "Add a follow-up remark to a lead",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(ctx context.Context, a *app, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return domain.NewValidationError("lead-id", "must be a UUID")
		}
		lead, err := a.client.AddLeadRemark(ctx, id, domain.LeadRemarkRequest{Text: leadRemark, Status: domain.LeadStatus(leadRemarkStatus)})
		if err != nil {
			return err
		}
		a.invalidate(ctx, cache.KeyContacts)
		fmt.Println(okStyle.Render(fmt.Sprintf("lead %s is %s with %d remarks", lead.Name, lead.Status, len(lead.Remarks))))
		return nil
	}),
}

var leadConvertCmd = &cobra.Command{
	Use:   "convert <lead-id>",
	Short: "Convert a lead into a customer with a first work order",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(ctx context.Context, a *app, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return domain.NewValidationError("lead-id", "must be a UUID")
		}
		customer, err := a.client.ConvertLead(ctx, id, domain.ConvertLeadRequest{
			ProjectType:   leadProjectType,
			InitialRemark: leadRemark,
			Instructions:  leadInstructions,
		})
		if err != nil {
			return err
		}
		a.invalidate(ctx, cache.KeyContacts, cache.KeyWorkOrders, cache.KeyManagerProjects)
		fmt.Println(okStyle.Render(fmt.Sprintf("customer %s created (%s)", customer.Name, customer.ID)))
		return nil
	}),
}

var customerCmd = &cobra.Command{
	Use:   "customer",
	Short: "Create customers directly",
}

var customerCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Register a customer, optionally with a first work order",
	RunE: run(func(ctx context.Context, a *app, _ []string) error {
		customer, err := a.client.CreateCustomer(ctx, domain.CreateCustomerRequest{
			Name:          customerName,
			Phone:         customerPhone,
			Email:         customerEmail,
			Address:       customerAddress,
			ProjectType:   customerProjectType,
			InitialRemark: customerRemark,
		})
		if err != nil {
			return err
		}
		a.invalidate(ctx, cache.KeyContacts, cache.KeyWorkOrders, cache.KeyManagerProjects)
		fmt.Println(okStyle.Render(fmt.Sprintf("customer %s created (%s)", customer.Name, customer.ID)))
		return nil
	}),
}

func init() {
	contactsCmd.Flags().StringVarP(&contactsQuery, "query", "q", "", "Filter by name or phone")

	leadCreateCmd.Flags().StringVar(&leadName, "name", "", "Lead name")
	leadCreateCmd.Flags().StringVar(&leadPhone, "phone", "", "Phone number")
	leadCreateCmd.Flags().StringVar(&leadEmail, "email", "", "Email address")
	leadCreateCmd.Flags().StringVar(&leadAddress, "address", "", "Address")
	for _, c := range []*cobra.Command{leadCreateCmd, leadRemarkCmd} {
		c.Flags().StringVar(&leadRemark, "remark", "", "Remark text")
		c.Flags().StringVar(&leadRemarkStatus, "status", "neutral", "Lead status: positive, neutral or negative")
	}
	leadConvertCmd.Flags().StringVar(&leadProjectType, "project-type", "", "Project type of the first work order")
	leadConvertCmd.Flags().StringVar(&leadRemark, "remark", "", "Initial remark")
	leadConvertCmd.Flags().StringVar(&leadInstructions, "instructions", "", "Instructions for the technician")
	leadCmd.AddCommand(leadCreateCmd, leadRemarkCmd, leadConvertCmd)

	customerCreateCmd.Flags().StringVar(&customerName, "name", "", "Customer name")
	customerCreateCmd.Flags().StringVar(&customerPhone, "phone", "", "Phone number")
	customerCreateCmd.Flags().StringVar(&customerEmail, "email", "", "Email address")
	customerCreateCmd.Flags().StringVar(&customerAddress, "address", "", "Address")
	customerCreateCmd.Flags().StringVar(&customerProjectType, "project-type", "", "Project type of a first work order")
	customerCreateCmd.Flags().StringVar(&customerRemark, "remark", "", "Initial remark")
	customerCmd.AddCommand(customerCreateCmd)

	rootCmd.AddCommand(contactsCmd, searchCmd, leadCmd, customerCmd)
}
