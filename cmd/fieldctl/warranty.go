package main

import (
	"context"
	"fmt"

	"github.com/fieldline/crm-api/internal/cache"
	"github.com/fieldline/crm-api/internal/domain"
	"github.com/fieldline/crm-api/internal/warranty"
	"github.com/spf13/cobra"
)

var (
	claimsStatus     string
	warrantyIssue    string
	warrantyChecker  string
	warrantyProduct  string
	warrantyCustomer string
	warrantyPhone    string
	warrantyRemark   string
)

func coverageText(c warranty.Coverage) string {
	if c.IsUnderWarranty {
		return okStyle.Render(c.Label)
	}
	return errorStyle.Render(c.Label)
}

func renderClaim(c *domain.WarrantyReplacementDTO) string {
	fields := [][2]string{
		{"Claim", c.ID.String()},
		{"Original serial", c.SerialNumber},
		{"Current serial", c.CurrentSerialNumber},
		{"Product", c.ProductName},
		{"Customer", c.CustomerName + " " + c.CustomerPhone},
		{"Status", string(c.Status)},
		{"Registered", stamp(c.RegisteredAt)},
	}
	if c.Remark != "" {
		fields = append(fields, [2]string{"Remark", c.Remark})
	}
	out := renderFields("Warranty claim", fields)

	rows := make([][]string, 0, len(c.Issues))
	for _, i := range c.Issues {
		replaced := ""
		if i.ReplacedAt != nil {
			replaced = stamp(*i.ReplacedAt)
		}
		rows = append(rows, []string{stamp(i.ReportedAt), i.IssueDescription, i.IssueCheckedBy, i.ReplacementSerialNumber, replaced})
	}
	return out + "\n" + renderTable([]string{"REPORTED", "ISSUE", "CHECKED BY", "NEW SERIAL", "REPLACED"}, rows)
}

var warrantyCmd = &cobra.Command{
	Use:   "warranty",
	Short: "Check coverage and handle replacement claims",
}

var warrantyStatusCmd = &cobra.Command{
	Use:   "status <serial>",
	Short: "Is this unit still under warranty",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(ctx context.Context, a *app, args []string) error {
		s, err := a.client.WarrantyStatus(ctx, args[0])
		if err != nil {
			return err
		}
		fields := [][2]string{
			{"Product", s.ProductName},
			{"Coverage", coverageText(s.Coverage)},
		}
		if s.Coverage.EndDate != nil {
			fields = append(fields, [2]string{"Ends", day(*s.Coverage.EndDate)})
		}
		if s.ReplacementStatus != "" {
			fields = append(fields, [2]string{"Open claim", string(s.ReplacementStatus)})
		}
		fmt.Println(renderFields(s.SerialNumber, fields))
		return nil
	}),
}

var warrantyClaimsCmd = &cobra.Command{
	Use:   "claims",
	Short: "List replacement claims",
	RunE: run(func(ctx context.Context, a *app, _ []string) error {
		var status warranty.Status
		if claimsStatus != "" {
			status = warranty.Status(claimsStatus)
			if !status.IsValid() {
				return domain.NewValidationError("status", "must be pending, approved, replaced or rejected")
			}
		}
		fetch := func(ctx context.Context) ([]domain.WarrantyReplacementDTO, error) {
			return a.client.WarrantyReplacements(ctx, "")
		}
		return showList(ctx, a, cache.KeyWarrantyReplacements, fetch, func(claims []domain.WarrantyReplacementDTO) string {
			rows := make([][]string, 0, len(claims))
			for _, c := range claims {
				if status != "" && c.Status != status {
					continue
				}
				rows = append(rows, []string{short(c.ID), c.SerialNumber, c.CurrentSerialNumber, c.ProductName, c.CustomerName, string(c.Status), fmt.Sprintf("%d", len(c.Issues)), day(c.RegisteredAt)})
			}
			return renderTable([]string{"ID", "SERIAL", "CURRENT", "PRODUCT", "CUSTOMER", "STATUS", "ISSUES", "REGISTERED"}, rows)
		})
	}),
}

var warrantyRegisterCmd = &cobra.Command{
	Use:   "register <serial>",
	Short: "Report a faulty unit",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(ctx context.Context, a *app, args []string) error {
		claim, err := a.client.RegisterWarranty(ctx, domain.RegisterWarrantyRequest{
			SerialNumber:     args[0],
			IssueDescription: warrantyIssue,
			IssueCheckedBy:   warrantyChecker,
			ProductName:      warrantyProduct,
			CustomerName:     warrantyCustomer,
			CustomerPhone:    warrantyPhone,
		})
		if err != nil {
			return err
		}
		a.invalidate(ctx, cache.KeyWarrantyReplacements)
		fmt.Println(renderClaim(claim))
		return nil
	}),
}

var warrantyCompleteCmd = &cobra.Command{
	Use:   "complete <claim-id> <new-serial>",
	Short: "Record the replacement unit for a claim",
	Args:  cobra.ExactArgs(2),
	RunE: run(func(ctx context.Context, a *app, args []string) error {
		id, err := parseID("claim-id", args[0])
		if err != nil {
			return err
		}
		claim, err := a.client.CompleteWarranty(ctx, domain.CompleteWarrantyRequest{ReplacementID: id, NewSerialNumber: args[1]})
		if err != nil {
			return err
		}
		a.invalidate(ctx, cache.KeyWarrantyReplacements)
		fmt.Println(renderClaim(claim))
		return nil
	}),
}

var warrantyDecideCmd = &cobra.Command{
	Use:   "decide <claim-id> <approved|rejected>",
	Short: "Approve or reject a pending claim",
	Args:  cobra.ExactArgs(2),
	RunE: run(func(ctx context.Context, a *app, args []string) error {
		id, err := parseID("claim-id", args[0])
		if err != nil {
			return err
		}
		claim, err := a.client.UpdateWarrantyClaim(ctx, domain.UpdateWarrantyClaimRequest{
			ReplacementID: id,
			Status:        warranty.Status(args[1]),
			Remark:        warrantyRemark,
		})
		if err != nil {
			return err
		}
		a.invalidate(ctx, cache.KeyWarrantyReplacements)
		fmt.Println(okStyle.Render(fmt.Sprintf("claim for %s is now %s", claim.SerialNumber, claim.Status)))
		return nil
	}),
}

var warrantyHistoryCmd = &cobra.Command{
	Use:   "history <serial>",
	Short: "Show the claim for an original or replacement serial",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(ctx context.Context, a *app, args []string) error {
		claim, err := a.client.WarrantyHistory(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Println(renderClaim(claim))
		return nil
	}),
}

var warrantyReplacementCmd = &cobra.Command{
	Use:   "replacement <new-serial>",
	Short: "Find the claim a replacement unit was issued under",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(ctx context.Context, a *app, args []string) error {
		claim, err := a.client.ReplacementBySerial(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Println(renderClaim(claim))
		return nil
	}),
}

func init() {
	warrantyClaimsCmd.Flags().StringVarP(&claimsStatus, "status", "s", "", "Only claims in this status")
	warrantyRegisterCmd.Flags().StringVar(&warrantyIssue, "issue", "", "What is wrong with the unit")
	warrantyRegisterCmd.Flags().StringVar(&warrantyChecker, "checked-by", "", "Who verified the issue")
	warrantyRegisterCmd.Flags().StringVar(&warrantyProduct, "product", "", "Product name when the serial is not in inventory")
	warrantyRegisterCmd.Flags().StringVar(&warrantyCustomer, "customer", "", "Customer name")
	warrantyRegisterCmd.Flags().StringVar(&warrantyPhone, "phone", "", "Customer phone")
	warrantyDecideCmd.Flags().StringVarP(&warrantyRemark, "remark", "r", "", "Reason for the decision")

	warrantyCmd.AddCommand(warrantyStatusCmd, warrantyClaimsCmd, warrantyRegisterCmd, warrantyCompleteCmd, warrantyDecideCmd, warrantyHistoryCmd, warrantyReplacementCmd)
	rootCmd.AddCommand(warrantyCmd)
}
