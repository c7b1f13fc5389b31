package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/longregen/promptloop/internal/config"
	"github.com/longregen/promptloop/internal/ports"
)

// chatCmd sends one message, or reads messages interactively when none is given
func chatCmd() *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Chat under the active prompt",
		Long: `Send a message as the given session and print the reply.
Without a message argument, read messages from stdin until EOF or "exit".
Evolutions triggered from the CLI run inline so they finish before exit.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			cliCfg := *cfg
			cliCfg.Evolution.Mode = config.EvolutionModeInline

			a, err := buildApp(ctx, &cliCfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.seed(ctx, cfg.Evolution.SeedPrompt); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			send := func(message string) error {
				res, err := a.generateReply.Execute(ctx, &ports.GenerateReplyInput{SessionID: sessionID, Content: message})
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "[v%d] %s\n", res.Prompt.Version, res.Reply)
				if res.EvolutionScheduled {
					active, err := a.prompts.GetActive(ctx)
					if err == nil && active.Version != res.Prompt.Version {
						fmt.Fprintf(out, "(prompt evolved to v%d)\n", active.Version)
					}
				}
				return nil
			}

			if len(args) == 1 {
				return send(args[0])
			}

			fmt.Fprintln(out, "Type your message and press Enter. Type 'exit' or 'quit' to end.")
			scanner := bufio.NewScanner(os.Stdin)
			for {
				fmt.Fprint(out, "You: ")
				if !scanner.Scan() {
					break
				}
				message := strings.TrimSpace(scanner.Text())
				if message == "" {
					continue
				}
				if message == "exit" || message == "quit" {
					break
				}
				if err := send(message); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
				}
			}
			return scanner.Err()
		},
	}

	cmd.Flags().StringVarP(&sessionID, "session", "s", "cli", "session ID")
	return cmd
}
