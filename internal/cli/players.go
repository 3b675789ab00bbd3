package cli

import (
	"bufio"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mcoot/portfolio-leaderboard/internal/services/leaderboard"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Show the leaderboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result PlayersResult
			if err := client.Get(cmd.Context(), "/api/v1/players", &result); err != nil {
				return err
			}

			NewOutput(cmd, cfg.Output).Print(result)
			return nil
		},
	}
}

func newSubmitCmd() *cobra.Command {
	var name, value string

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Add a player or update their portfolio value",
		Long: `Submit a portfolio value for a name. The first submission for a name
adds a player; later ones update it and keep the old value for the change column.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{"name": name, "value": value}
			var result SubmitResult

			if err := client.Post(cmd.Context(), "/api/v1/players", req, &result); err != nil {
				return err
			}

			NewOutput(cmd, cfg.Output).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Player name (required)")
	cmd.Flags().StringVar(&value, "value", "", "Portfolio value, e.g. 105000 (required)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("value")

	return cmd
}

func newDeleteCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a player's data",
		Long:  "Delete a player by ID. Please only delete your own data.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/players/" + url.PathEscape(args[0])
			out := NewOutput(cmd, cfg.Output)

			var player Entry
			if err := client.Get(cmd.Context(), path, &player); err != nil {
				return err
			}

			if !yes {
				ok, err := confirm(cmd, leaderboard.ConfirmDeleteMessage(player.Name))
				if err != nil {
					return err
				}
				if !ok {
					out.PrintMessage("Cancelled")
					return nil
				}
			}

			var removed Entry
			if err := client.Delete(cmd.Context(), path, &removed); err != nil {
				return err
			}

			out.PrintMessage(leaderboard.RemovedMessage(removed.Name))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")

	return cmd
}

// confirm asks a yes/no question on the command's input, defaulting to no
func confirm(cmd *cobra.Command, question string) (bool, error) {
	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%s [y/N]: ", question)

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		// EOF without an answer
		return false, nil
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
