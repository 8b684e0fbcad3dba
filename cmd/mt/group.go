package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zulandar/mentortrack/internal/report"
)

func newGroupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "group",
		Short: "Product group commands",
	}

	cmd.AddCommand(newGroupAddCmd())
	cmd.AddCommand(newGroupListCmd())
	cmd.AddCommand(newGroupRenameCmd())
	cmd.AddCommand(newGroupRmCmd())
	return cmd
}

func newGroupAddCmd() *cobra.Command {
	var (
		configPath string
		opts       report.GroupOpts
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a product group for a mentee",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			g, err := report.CreateGroup(gormDB, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created product group %d: %s\n", g.ID, g.Name)
			return nil
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().UintVar(&opts.MenteeID, "mentee", 0, "mentee user ID (required)")
	cmd.Flags().StringVar(&opts.Name, "name", "", "product group name (required)")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description")
	cmd.Flags().StringSliceVar(&opts.Images, "image", nil, "image path (repeatable)")
	cmd.MarkFlagRequired("mentee")
	cmd.MarkFlagRequired("name")
	return cmd
}

func newGroupListCmd() *cobra.Command {
	var (
		configPath string
		menteeID   uint
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a mentee's product groups",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			groups, err := report.ListGroups(gormDB, menteeID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(groups) == 0 {
				fmt.Fprintln(out, "No product groups found.")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tIMAGES\tCREATED")
			for i := range groups {
				g := &groups[i]
				fmt.Fprintf(w, "%d\t%s\t%d\t%s\n", g.ID, truncate(g.Name, 40), len(report.GroupImages(g)), g.CreatedAt.Format("2006-01-02"))
			}
			return w.Flush()
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().UintVar(&menteeID, "mentee", 0, "mentee user ID (required)")
	cmd.MarkFlagRequired("mentee")
	return cmd
}

func newGroupRenameCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "rename <id> <new-name>",
		Short: "Rename a product group, keeping its report history",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			g, err := report.RenameGroup(gormDB, id, args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed product group %d to %s\n", g.ID, g.Name)
			return nil
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func newGroupRmCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a product group",
		Long:  "Removes a product group from the registry. Its reports are kept but no longer count toward progress.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if err := report.DeleteGroup(gormDB, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted product group %d\n", id)
			return nil
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func parseID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return uint(id), nil
}
