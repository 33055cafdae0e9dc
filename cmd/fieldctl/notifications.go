package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	notificationsPage   int
	notificationsUnread bool
)

var notificationsCmd = &cobra.Command{
	Use:     "notifications",
	Aliases: []string{"inbox"},
	Short:   "Show your notifications",
	RunE: run(func(ctx context.Context, a *app, _ []string) error {
		page, err := a.client.Notifications(ctx, notificationsPage, 20, notificationsUnread)
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(page.Items))
		for _, n := range page.Items {
			mark := " "
			if !n.Read {
				mark = okStyle.Render("●")
			}
			rows = append(rows, []string{mark, n.ID.String(), stamp(n.CreatedAt), n.Title, n.Message})
		}
		fmt.Println(renderTable([]string{"", "ID", "WHEN", "TITLE", "MESSAGE"}, rows))
		fmt.Println(mutedStyle.Render(fmt.Sprintf("page %d, %d total, %d unread", page.Page, page.Total, page.UnreadCount)))
		return nil
	}),
}

var notificationsReadCmd = &cobra.Command{
	Use:   "read <notification-id>",
	Short: "Mark a notification as read",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(ctx context.Context, a *app, args []string) error {
		id, err := parseID("notification-id", args[0])
		if err != nil {
			return err
		}
		if err := a.client.MarkNotificationRead(ctx, id); err != nil {
			return err
		}
		fmt.Println(okStyle.Render("marked as read"))
		return nil
	}),
}

func init() {
	notificationsCmd.Flags().IntVar(&notificationsPage, "page", 1, "Page number")
	notificationsCmd.Flags().BoolVar(&notificationsUnread, "unread", false, "Only unread notifications")
	notificationsCmd.AddCommand(notificationsReadCmd)
	rootCmd.AddCommand(notificationsCmd)
}
