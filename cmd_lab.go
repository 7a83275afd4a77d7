package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/VirtuLab-core-poc-v1/server/internal/lab/session"
)

func newLabCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lab <experiment-id>",
		Short: "Run a practical interactively",
		Long: `Run a practical interactively. The apparatus keeps evolving in real time
while you type; enter "help" for the list of commands.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			var logOut io.Writer = os.Stderr
			if path, _ := cmd.Flags().GetString("log-file"); path != "" {
				f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
				if err != nil {
					return fmt.Errorf("open log file: %w", err)
				}
				defer f.Close()
				logOut = f
			}

			a, err := newApp(ctx, cfg, logOut)
			if err != nil {
				return err
			}
			defer a.Close()

			s, err := a.openSession(ctx, args[0])
			if err != nil {
				return err
			}
			defer s.Close()

			return runLab(cmd, s)
		},
	}
	cmd.Flags().String("log-file", "", "Write logs to this file instead of stderr")
	return cmd
}

func runLab(cmd *cobra.Command, s *session.Session) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	snap, err := s.Snapshot(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "== %s ==\n%s\n\n", snap.Experiment.Title, snap.Experiment.Description)
	fmt.Fprintf(out, "Guide: %s\n", snap.Conversation[0].Content)
	fmt.Fprintln(out, snap.Reading.Summary())

	in := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "> ")
		if !in.Scan() {
			return in.Err()
		}
		act, err := parseLine(in.Text())
		if err != nil {
			fmt.Fprintln(out, err)
			continue
		}

		switch act.kind {
		case actHelp:
			fmt.Fprintln(out, labHelp)
			continue
		case actQuit:
			return nil
		case actFinish:
			c, err := s.Complete(ctx)
			if c.SessionID == "" {
				return err
			}
			if err != nil {
				fmt.Fprintf(out, "Could not record your progress: %v\n", err)
			}
			fmt.Fprintf(out, "Practical complete! +%d XP\n", c.RewardXP)
			return nil
		case actAsk:
			reply, err := s.Ask(ctx, act.question)
			if err != nil {
				fmt.Fprintln(out, err)
				continue
			}
			fmt.Fprintf(out, "Guide: %s\n", reply.Text)
			continue
		case actWait:
			select {
			case <-time.After(act.wait):
			case <-ctx.Done():
				return ctx.Err()
			}
		case actApparatus:
			if err := s.Do(ctx, act.cmd); err != nil {
				fmt.Fprintln(out, err)
				continue
			}
		}

		snap, err := s.Snapshot(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, snap.Reading.Summary())
	}
}
