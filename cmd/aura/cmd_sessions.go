package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrcorrales01-hub/my-aura-sub004/internal/identity"
	"github.com/mrcorrales01-hub/my-aura-sub004/internal/sessions"
)

// sessionsCmd is the parent command for session management.
var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage conversation sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your sessions, newest first",
	Args:  cobra.NoArgs,
	RunE:  runSessionsList,
}

var sessionsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Start a new session",
	Args:  cobra.NoArgs,
	RunE:  runSessionsCreate,
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a session and its messages",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsDelete,
}

func init() {
	sessionsCmd.AddCommand(sessionsListCmd, sessionsCreateCmd, sessionsDeleteCmd)
	rootCmd.AddCommand(sessionsCmd)
}

func sessionClient() (*sessions.Client, string, error) {
	cfg, err := clientConfig()
	if err != nil {
		return nil, "", err
	}
	return sessions.NewClient(cfg.BaseURL, identity.Env{}), cfg.Language, nil
}

func runSessionsList(cmd *cobra.Command, _ []string) error {
	client, _, err := sessionClient()
	if err != nil {
		return err
	}
	list, err := client.List(cmd.Context())
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tLANG\tMESSAGES\tCREATED")
	for _, s := range list {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", s.ID, s.LanguageCode, s.MessageCount, s.CreatedAt.Local().Format(time.DateTime))
	}
	return tw.Flush()
}

func runSessionsCreate(cmd *cobra.Command, _ []string) error {
	client, lang, err := sessionClient()
	if err != nil {
		return err
	}
	sess, err := client.Create(cmd.Context(), lang)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), sess.ID)
	return nil
}

func runSessionsDelete(cmd *cobra.Command, args []string) error {
	client, _, err := sessionClient()
	if err != nil {
		return err
	}
	if err := client.Delete(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
	return nil
}
