package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrcorrales01-hub/my-aura-sub004/internal/export"
	"github.com/mrcorrales01-hub/my-aura-sub004/internal/store"
)

var (
	exportDBPath    string
	exportSessionID string
	exportUTC       bool
)

// exportCmd prints a stored session as a plain-text transcript.
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print a session transcript from the backend database",
	Long: `Print a session transcript straight from the backend's SQLite database.

This reads the database file directly and is meant for operators; users export
through the backend with GET /sessions/{id}/export.`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportDBPath, "db", "./data/aura.db", "path to the backend database")
	exportCmd.Flags().StringVar(&exportSessionID, "session", "", "session to export")
	exportCmd.Flags().BoolVar(&exportUTC, "utc", false, "print timestamps in UTC")
	_ = exportCmd.MarkFlagRequired("session")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, _ []string) (err error) {
	repo, err := store.NewSQLite(exportDBPath)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, repo.Close())
	}()

	sess, err := repo.GetSession(cmd.Context(), exportSessionID)
	if err != nil {
		return err
	}
	if sess == nil {
		return fmt.Errorf("session %s not found", exportSessionID)
	}

	loc := time.Local
	if exportUTC {
		loc = time.UTC
	}
	text, err := export.Transcript(cmd.Context(), repo, sess.ID, loc)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), text)
	return err
}
