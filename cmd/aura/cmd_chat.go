package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrcorrales01-hub/my-aura-sub004/internal/actions"
	"github.com/mrcorrales01-hub/my-aura-sub004/internal/chat"
	"github.com/mrcorrales01-hub/my-aura-sub004/internal/conversation"
	"github.com/mrcorrales01-hub/my-aura-sub004/internal/domain"
	"github.com/mrcorrales01-hub/my-aura-sub004/internal/identity"
)

var chatSessionID string

// chatCmd runs an interactive conversation.
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation",
	Long: `Start an interactive conversation with Aura.

Replies stream as they arrive. After each reply the suggested next steps are listed.
Type /quit or press Ctrl-D to leave.`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatSessionID, "session", "", "continue an existing session")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	cfg, err := clientConfig()
	if err != nil {
		return err
	}

	transport := chat.NewTransport(cfg.BaseURL, identity.Env{}, chat.WithTimeout(cfg.ChatTimeout))
	ctrl := conversation.NewController(transport, cfg.Language, conversation.WithSessionID(chatSessionID))

	out := cmd.OutOrStdout()
	in := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "> ")
		if !in.Scan() {
			fmt.Fprintln(out)
			return in.Err()
		}
		text := strings.TrimSpace(in.Text())
		switch text {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		}

		seq, err := ctrl.Send(cmd.Context(), text)
		if err != nil {
			return err
		}
		// Ctrl-C stops the reply, not the client.
		interrupt, stopSignals := signal.NotifyContext(cmd.Context(), os.Interrupt)
		last := runExchange(interrupt, ctrl, out, seq)
		stopSignals()
		if errors.Is(last.Err, domain.ErrUnauthenticated) {
			return fmt.Errorf("set %s to sign in: %w", identity.EnvToken, last.Err)
		}
	}
}

// runExchange prints an exchange, aborting it when ctx is done.
func runExchange(ctx context.Context, ctrl *conversation.Controller, out io.Writer, seq iter.Seq[conversation.Snapshot]) conversation.Snapshot {
	stop := context.AfterFunc(ctx, ctrl.Abort)
	defer stop()
	return printExchange(out, seq)
}

// printExchange streams an exchange to out and returns its settled snapshot.
func printExchange(out io.Writer, seq iter.Seq[conversation.Snapshot]) conversation.Snapshot {
	var (
		last    conversation.Snapshot
		printed int
		badge   bool
	)
	for snap := range seq {
		last = snap
		if snap.DemoMode && !badge {
			fmt.Fprintln(out, "[demo mode]")
			badge = true
		}
		if snap.State != conversation.StateStreaming {
			continue
		}
		reply := snap.Messages[len(snap.Messages)-1].Content
		fmt.Fprint(out, reply[printed:])
		printed = len(reply)
	}

	switch last.Outcome {
	case conversation.OutcomeOK:
		if printed == 0 && last.Plan != nil {
			fmt.Fprint(out, last.Plan.Text)
		}
		fmt.Fprintln(out)
		printPlan(out, last.Plan)
	case conversation.OutcomeError:
		if printed > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintln(out, last.Messages[len(last.Messages)-1].Content)
		if last.Retryable {
			fmt.Fprintln(out, "(you can send your message again)")
		}
	case conversation.OutcomeAborted:
		fmt.Fprintln(out, " [stopped]")
	}
	return last
}

func printPlan(out io.Writer, plan *actions.ActionPlan) {
	if plan == nil {
		return
	}
	fmt.Fprintln(out)
	for _, a := range plan.Actions {
		fmt.Fprintf(out, "  * %s\n", describe(a))
	}
	if len(plan.QuickReplies) > 0 {
		fmt.Fprintf(out, "  try: %s\n", strings.Join(plan.QuickReplies, " | "))
	}
}

func describe(a actions.Action) string {
	switch a.Type {
	case actions.TypeNav:
		return fmt.Sprintf("open %s %s", a.To, a.Label)
	case actions.TypeStartExercise:
		return fmt.Sprintf("exercise %s %s", a.ID, a.Label)
	case actions.TypeAddPlan:
		return "add to plan: " + a.Title
	case actions.TypeLogJournal:
		return "save to journal: " + a.Title
	case actions.TypeOpenRoleplay:
		return "rehearse: " + a.ID
	}
	return string(a.Type)
}
