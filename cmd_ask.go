package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newAskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <experiment-id> <question...>",
		Short: "Ask the lab guide one question about a practical",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			a, err := newApp(ctx, cfg, os.Stderr)
			if err != nil {
				return err
			}
			defer a.Close()

			s, err := a.openSession(ctx, args[0])
			if err != nil {
				return err
			}
			defer s.Close()

			reply, err := s.Ask(ctx, strings.Join(args[1:], " "))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				attempts := make([]string, len(reply.Attempts))
				for i, at := range reply.Attempts {
					attempts[i] = at.Model
				}
				return json.NewEncoder(out).Encode(map[string]any{
					"session_id": s.ID(),
					"reply":      reply.Text,
					"outcome":    reply.Outcome,
					"model":      reply.Model,
					"attempts":   attempts,
					"error_kind": reply.ErrKind,
				})
			}
			fmt.Fprintln(out, reply.Text)
			return nil
		},
	}
}
