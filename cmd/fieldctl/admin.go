package main

import (
	"context"
	"fmt"

	"github.com/fieldline/crm-api/internal/domain"
	"github.com/spf13/cobra"
)

var (
	branchLocation string

	userFirstName string
	userLastName  string
	userUsername  string
	userEmail     string
	userPhone     string
	userRole      string
	userBranch    string
	userPassword  string
)

func renderUsers(users []domain.UserDTO) string {
	rows := make([][]string, 0, len(users))
	for _, u := range users {
		rows = append(rows, []string{u.ID.String(), u.FirstName + " " + u.LastName, u.Username, u.Email, string(u.Role), u.BranchName, string(u.Status)})
	}
	return renderTable([]string{"ID", "NAME", "USERNAME", "EMAIL", "ROLE", "BRANCH", "STATUS"}, rows)
}

var branchesCmd = &cobra.Command{
	Use:   "branches",
	Short: "List branches",
	RunE: run(func(ctx context.Context, a *app, _ []string) error {
		branches, err := a.client.Branches(ctx)
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(branches))
		for _, b := range branches {
			rows = append(rows, []string{b.ID.String(), b.Name, b.Location})
		}
		fmt.Println(renderTable([]string{"ID", "NAME", "LOCATION"}, rows))
		return nil
	}),
}

var branchCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a branch (admin)",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(ctx context.Context, a *app, args []string) error {
		branch, err := a.client.CreateBranch(ctx, domain.CreateBranchRequest{Name: args[0], Location: branchLocation})
		if err != nil {
			return err
		}
		fmt.Println(okStyle.Render(fmt.Sprintf("branch %s created (%s)", branch.Name, branch.ID)))
		return nil
	}),
}

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "List managers and technicians",
	RunE: run(func(ctx context.Context, a *app, _ []string) error {
		managers, err := a.client.Managers(ctx)
		if err != nil {
			return err
		}
		technicians, err := a.client.Technicians(ctx)
		if err != nil {
			return err
		}
		users := append([]domain.UserDTO{}, managers...)
		for _, t := range technicians {
			users = append(users, t.UserDTO)
		}
		fmt.Println(renderUsers(users))
		return nil
	}),
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user (admin)",
	RunE: run(func(ctx context.Context, a *app, _ []string) error {
		req := domain.CreateUserRequest{
			FirstName: userFirstName,
			LastName:  userLastName,
			Username:  userUsername,
			Email:     userEmail,
			Phone:     userPhone,
			Role:      domain.UserRole(userRole),
			Password:  userPassword,
		}
		if userBranch != "" {
			id, err := parseID("branch", userBranch)
			if err != nil {
				return err
			}
			req.BranchID = &id
		}
		user, err := a.client.CreateUser(ctx, req)
		if err != nil {
			return err
		}
		fmt.Println(okStyle.Render(fmt.Sprintf("user %s created (%s)", user.Username, user.ID)))
		return nil
	}),
}

func init() {
	branchCreateCmd.Flags().StringVar(&branchLocation, "location", "", "Branch location")
	branchesCmd.AddCommand(branchCreateCmd)

	userCreateCmd.Flags().StringVar(&userFirstName, "first-name", "", "First name")
	userCreateCmd.Flags().StringVar(&userLastName, "last-name", "", "Last name")
	userCreateCmd.Flags().StringVar(&userUsername, "username", "", "Username")
	userCreateCmd.Flags().StringVar(&userEmail, "email", "", "Email")
	userCreateCmd.Flags().StringVar(&userPhone, "phone", "", "Phone")
	userCreateCmd.Flags().StringVar(&userRole, "role", string(domain.RoleTechnician), "admin, manager or technician")
	userCreateCmd.Flags().StringVar(&userBranch, "branch", "", "Branch ID (required unless admin)")
	userCreateCmd.Flags().StringVar(&userPassword, "password", "", "Initial password")
	usersCmd.AddCommand(userCreateCmd)

	rootCmd.AddCommand(branchesCmd, usersCmd)
}
