package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/longregen/promptloop/internal/domain/models"
)

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// withApp builds the application for a one-shot command and tears it down after fn
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := commandContext(cmd)
	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

// evolveCmd runs one evolution synchronously
func evolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "evolve",
		Short: "Run one prompt evolution now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				p, err := a.runEvolution.Execute(ctx, models.TriggerManual)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "promoted v%d (%s)\n%s\n", p.Version, p.ID, p.Content)
				return nil
			})
		},
	}
}

func promptsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prompts",
		Short: "Inspect and roll the prompt ledger",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List prompt versions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				prompts, err := a.prompts.List(ctx, limit)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "VERSION\tID\tACTIVE\tTRIGGER\tCREATED\tPREVIEW")
				for _, p := range prompts {
					active := ""
					if p.Active {
						active = "*"
					}
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
						p.Version, p.ID, active, p.TriggeredBy,
						p.CreatedAt.Format("2006-01-02 15:04"), p.Preview(60))
				}
				return w.Flush()
			})
		},
	}
	list.Flags().IntVarP(&limit, "limit", "n", 20, "maximum versions to show")

	active := &cobra.Command{
		Use:   "active",
		Short: "Print the active prompt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				p, err := a.prompts.GetActive(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "v%d (%s, %s)\n%s\n", p.Version, p.ID, p.TriggeredBy, p.Content)
				return nil
			})
		},
	}

	activate := &cobra.Command{
		Use:   "activate <prompt-id>",
		Short: "Make an existing version the active prompt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				p, err := a.prompts.ActivateByID(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "activated v%d (%s)\n", p.Version, p.ID)
				return nil
			})
		},
	}

	cmd.AddCommand(list, active, activate)
	return cmd
}

// resetCmd deletes all conversation history. The prompt ledger is kept.
func resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Delete all conversation history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				n, err := a.conversations.ResetHistory(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %d messages\n", n)
				return nil
			})
		},
	}
}

// migrateCmd applies the schema; opening storage is idempotent
func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStorage(commandContext(cmd), cfg)
			if err != nil {
				return err
			}
			store.close()
			fmt.Fprintf(cmd.OutOrStdout(), "schema ready (%s)\n", cfg.Database.Driver)
			return nil
		},
	}
}

func seedCmd() *cobra.Command {
	var content string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write version 1 on an empty prompt ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if content == "" {
				content = cfg.Evolution.SeedPrompt
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				p, created, err := a.prompts.Seed(ctx, content)
				if err != nil {
					return err
				}
				if created {
					fmt.Fprintf(cmd.OutOrStdout(), "seeded v%d (%s)\n", p.Version, p.ID)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "ledger already seeded; active is v%d (%s)\n", p.Version, p.ID)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&content, "content", "", "seed prompt text (defaults to evolution.seed_prompt)")
	return cmd
}
