package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spec-kit/case-service/internal/api/dto"
	"github.com/spec-kit/case-service/internal/domain"
	"github.com/spec-kit/case-service/internal/service"
)

type serviceOpener func(ctx context.Context) (*service.CaseService, func(), error)

// cli carries the lazily opened service shared by every subcommand.
type cli struct {
	open    serviceOpener
	svc     *service.CaseService
	cleanup func()
}

func newRootCmd(open serviceOpener) *cobra.Command {
	c := &cli{open: open}
	root := &cobra.Command{
		Use:           "casectl",
		Short:         "Inspect and change tracked cases",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			c.svc, c.cleanup = svc, cleanup
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.cleanup != nil {
				c.cleanup()
			}
		},
	}
	root.AddCommand(
		c.listCmd(),
		c.showCmd(),
		c.createCmd(),
		c.updateCmd(),
		c.deleteCmd(),
		c.categoriesCmd(),
		c.historyCmd(),
		c.sweepCmd(),
	)
	return root
}

func (c *cli) listCmd() *cobra.Command {
	var filter service.CaseFilter
	var escalated string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cases matching the given filters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if escalated != "" {
				v, ok := dto.ParseFlag(escalated)
				if !ok {
					return fmt.Errorf("invalid --escalated %q", escalated)
				}
				filter.Escalated = &v
			}
			views, err := c.svc.ListCases(cmd.Context(), filter)
			if err != nil {
				return err
			}
			out := make([]dto.CaseResponse, 0, len(views))
			for _, v := range views {
				out = append(out, dto.NewCaseResponse(v))
			}
			return writeJSON(cmd, out)
		},
	}
	cmd.Flags().StringVarP(&filter.Query, "query", "q", "", "case-insensitive text search")
	cmd.Flags().StringVar(&filter.Category, "category", "", "exact category")
	cmd.Flags().StringVar(&filter.Status, "status", "", "Pending, Escalated or OK")
	cmd.Flags().StringVar(&escalated, "escalated", "", "yes/no")
	return cmd
}

func (c *cli) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one case",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := c.svc.GetCase(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd, dto.NewCaseResponse(view))
		},
	}
}

// changeFlags binds the mutable case fields; only flags given on the
// command line end up in the change.
type changeFlags struct {
	title, category, notes, status, escalated string
	slaHours                                  float64
}

func (f *changeFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.title, "title", "", "case title")
	cmd.Flags().StringVar(&f.category, "category", "", "case category")
	cmd.Flags().StringVar(&f.notes, "notes", "", "free-form notes")
	cmd.Flags().StringVar(&f.status, "status", "", "Pending, Escalated or OK")
	cmd.Flags().StringVar(&f.escalated, "escalated", "", "yes/no")
	cmd.Flags().Float64Var(&f.slaHours, "sla-hours", 0, "escalation window in hours")
}

func (f *changeFlags) change(cmd *cobra.Command) (service.CaseChange, error) {
	var change service.CaseChange
	flags := cmd.Flags()
	if flags.Changed("title") {
		change.Title = &f.title
	}
	if flags.Changed("category") {
		change.Category = &f.category
	}
	if flags.Changed("notes") {
		change.Notes = &f.notes
	}
	if flags.Changed("status") {
		status := domain.CaseStatus(f.status)
		change.Status = &status
	}
	if flags.Changed("escalated") {
		v, ok := dto.ParseFlag(f.escalated)
		if !ok {
			return change, fmt.Errorf("invalid --escalated %q", f.escalated)
		}
		change.Escalated = &v
	}
	if flags.Changed("sla-hours") {
		change.SLAHours = &f.slaHours
	}
	return change, nil
}

func (c *cli) createCmd() *cobra.Command {
	var flags changeFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a case",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			change, err := flags.change(cmd)
			if err != nil {
				return err
			}
			view, err := c.svc.CreateCase(cmd.Context(), change)
			if err != nil {
				return err
			}
			return writeJSON(cmd, dto.NewCaseResponse(view))
		},
	}
	flags.bind(cmd)
	return cmd
}

func (c *cli) updateCmd() *cobra.Command {
	var flags changeFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update fields of a case",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			change, err := flags.change(cmd)
			if err != nil {
				return err
			}
			view, err := c.svc.UpdateCase(cmd.Context(), args[0], change)
			if err != nil {
				return err
			}
			return writeJSON(cmd, dto.NewCaseResponse(view))
		},
	}
	flags.bind(cmd)
	return cmd
}

func (c *cli) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a case; its history is kept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.svc.DeleteCase(cmd.Context(), args[0]); err != nil {
				return err
			}
			return writeJSON(cmd, dto.DeleteResponse{OK: true})
		},
	}
}

func (c *cli) categoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List the categories in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			categories, err := c.svc.Categories(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd, categories)
		},
	}
}

func (c *cli) historyCmd() *cobra.Command {
	var caseID string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the change history, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := c.svc.ListHistory(cmd.Context(), caseID)
			if err != nil {
				return err
			}
			return writeJSON(cmd, events)
		},
	}
	cmd.Flags().StringVar(&caseID, "case-id", "", "only events of this case")
	return cmd
}

func (c *cli) sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Demote escalated cases whose SLA has elapsed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := c.svc.SweepExpired(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd, map[string]int{"demoted": n})
		},
	}
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
