package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/fbz-tec/crudx/core/crud"
	"github.com/fbz-tec/crudx/core/model"
	"github.com/fbz-tec/crudx/internal/logger"
	"github.com/spf13/cobra"
)

func newListCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all users",
		Args:    exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withConn(cmd, func(ctx context.Context, conn *crud.Conn) error {
				users, err := conn.ReadAll(ctx)
				if err != nil {
					return err
				}
				if len(users) == 0 {
					logger.Info("No users found")
					return nil
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tAGE")
				for _, u := range users {
					fmt.Fprintf(w, "%d\t%s\t%d\n", u.ID, u.Name, u.Age)
				}
				return w.Flush()
			})
		},
	}
}

func newGetCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Show one user",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return opts.withConn(cmd, func(ctx context.Context, conn *crud.Conn) error {
				u, err := conn.Get(ctx, id)
				if err != nil {
					return err
				}
				printUser(cmd, u)
				return nil
			})
		},
	}
}

func newCreateCmd(opts *globalOptions) *cobra.Command {
	var (
		name string
		age  int
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlags(cmd, "name", "age"); err != nil {
				return err
			}
			return opts.withConn(cmd, func(ctx context.Context, conn *crud.Conn) error {
				u, err := conn.Create(ctx, name, age)
				if err != nil {
					return err
				}
				logger.Success("Created user %d", u.ID)
				printUser(cmd, u)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "User name (required)")
	cmd.Flags().IntVarP(&age, "age", "a", 0, "User age (required)")
	return cmd
}

func newUpdateCmd(opts *globalOptions) *cobra.Command {
	var age int

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Change the age of a user",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlags(cmd, "age"); err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return opts.withConn(cmd, func(ctx context.Context, conn *crud.Conn) error {
				u, err := conn.Update(ctx, id, age)
				if err != nil {
					return err
				}
				logger.Success("Updated user %d", u.ID)
				printUser(cmd, u)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&age, "age", "a", 0, "New age (required)")
	return cmd
}

func newDeleteCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "delete ID",
		Aliases: []string{"rm"},
		Short:   "Delete a user",
		Args:    exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return opts.withConn(cmd, func(ctx context.Context, conn *crud.Conn) error {
				if err := conn.Delete(ctx, id); err != nil {
					return err
				}
				logger.Success("Deleted user %d", id)
				return nil
			})
		},
	}
}

func printUser(cmd *cobra.Command, u model.User) {
	fmt.Fprintf(cmd.OutOrStdout(), "id=%d name=%s age=%d\n", u.ID, u.Name, u.Age)
}
