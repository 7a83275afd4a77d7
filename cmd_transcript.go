package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/VirtuLab-core-poc-v1/server/internal/lab/guide/conversations"
)

func newTranscriptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transcript <session-id>",
		Short: "Show or clear the mirrored conversation of a session",
		Long: `Prints the conversation of a past session as mirrored to Redis.
Requires REDIS_URL. With --clear the transcript is deleted instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			a, err := newApp(ctx, cfg, io.Discard)
			if err != nil {
				return err
			}
			defer a.Close()
			if a.transcript == nil {
				return errors.New("transcripts need REDIS_URL to be set")
			}

			out := cmd.OutOrStdout()
			sessionID := args[0]
			if clear, _ := cmd.Flags().GetBool("clear"); clear {
				if err := a.transcript.ClearHistory(ctx, sessionID); err != nil {
					return err
				}
				fmt.Fprintf(out, "Cleared transcript of %s\n", sessionID)
				return nil
			}

			h, err := a.transcript.LoadHistory(ctx, sessionID)
			if err != nil {
				return err
			}
			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				return json.NewEncoder(out).Encode(h)
			}
			if len(h.Messages) == 0 {
				fmt.Fprintf(out, "No transcript for %s\n", sessionID)
				return nil
			}
			fmt.Fprintln(out, conversations.FormatHistory(h.Messages))
			return nil
		},
	}
	cmd.Flags().Bool("clear", false, "Delete the transcript instead of printing it")
	return cmd
}
