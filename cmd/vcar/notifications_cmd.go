package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"vcar-client/internal/domain"
	"vcar-client/internal/jobs"
	"vcar-client/internal/logger"
	"vcar-client/internal/scheduler"
)

func newNotificationsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "notifications",
		Aliases: []string{"notif"},
		Short:   "Read and watch account notifications",
	}

	var page, size int
	list := &cobra.Command{
		Use:   "list",
		Short: "List notifications, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.notifications().List(cmd.Context(), page, size)
			if err != nil {
				return err
			}
			printNotifications(a.out, p.Items, a)
			fmt.Fprintf(a.out, "page %d/%d, %d notifications\n", p.Meta.Page+1, p.Meta.PageCount, p.Meta.ItemCount)
			return nil
		},
	}
	list.Flags().IntVar(&page, "page", 0, "Page number, 0 is the newest")
	list.Flags().IntVar(&size, "size", 0, "Page size (default from config)")

	unread := &cobra.Command{
		Use:   "unread",
		Short: "List unread notifications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := a.notifications().Unread(cmd.Context())
			if err != nil {
				return err
			}
			printNotifications(a.out, items, a)
			return nil
		},
	}

	read := &cobra.Command{
		Use:   "read <notification-id>",
		Short: "Mark a notification as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.notifications().MarkAsRead(cmd.Context(), args[0])
		},
	}

	watch := &cobra.Command{
		Use:   "watch",
		Short: "Poll for new notifications until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.session.RequireUser(); err != nil {
				return err
			}

			runner := jobs.NewJobRunner(a.notifications(), jobs.SinkFunc(func(n domain.Notification) {
				fmt.Fprintf(a.out, "[%s] %s: %s\n", formatTime(n.CreatedAt, a), n.Title, n.Message)
			}), a.cfg)
			s, err := scheduler.NewScheduler(runner)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			runner.RunAll(ctx)
			s.Start()
			logger.Info("Watching notifications", "schedule", a.cfg.Notifications.PollSchedule)
			<-ctx.Done()
			s.Stop()
			return nil
		},
	}

	cmd.AddCommand(list, unread, read, watch)
	return cmd
}

func printNotifications(out io.Writer, items []domain.Notification, a *app) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tWHEN\tREAD\tTITLE\tMESSAGE")
	for _, n := range items {
		fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%s\n", n.ID, formatTime(n.CreatedAt, a), n.IsRead, n.Title, n.Message)
	}
	w.Flush()
}

func formatTime(ts domain.Timestamp, a *app) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.In(a.cfg.Location()).Format("02/01/2006 15:04")
}
